package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Decision audit",
		Headers: []string{"timestamp", "decision", "reasoning"},
		Widths:  []float64{1, 1, 3},
		Rows: [][]string{
			{"2026-03-02T10:00:00Z", "approved", "Guest request meets all policies"},
			{"2026-03-02T11:00:00Z", "escalated", "Needs review, \"quoted\""},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "timestamp,decision,reasoning\n"+
		"2026-03-02T10:00:00Z,approved,Guest request meets all policies\n"+
		"2026-03-02T11:00:00Z,escalated,\"Needs review, \"\"quoted\"\"\"\n", string(out))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only one"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", exporter.ContentType())
}

func TestColumnWidthsAndTruncate(t *testing.T) {
	widths := columnWidths(sampleDataset())
	require.Len(t, widths, 3)
	assert.InDelta(t, pdfPageWidth*3/5, widths[2], 0.001)
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}
