package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/export"
)

type auditReader interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

// AuditExportConfig tunes audit exports.
type AuditExportConfig struct {
	Enabled bool
	MaxRows int
}

// AuditService exposes the decision audit trail to staff.
type AuditService struct {
	repo      auditReader
	renderers map[models.ExportFormat]datasetRenderer
	cfg       AuditExportConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuditService constructs the service with CSV and PDF renderers.
func NewAuditService(repo auditReader, cfg AuditExportConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &AuditService{
		repo: repo,
		renderers: map[models.ExportFormat]datasetRenderer{
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of audit entries.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	if err := checkRange(filter); err != nil {
		return nil, nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return nonNil(logs), pagination(filter.Page, filter.PageSize, total), nil
}

// Export renders every entry matching filter in the requested format.
func (s *AuditService) Export(ctx context.Context, filter models.AuditLogFilter, format models.ExportFormat) (*models.AuditExport, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrFeatureDisabled, "audit exports are disabled")
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err := checkRange(filter); err != nil {
		return nil, err
	}

	filter.Page = -1
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit logs")
	}
	if total > s.cfg.MaxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export matches %d entries, limit is %d; narrow the date range", total, s.cfg.MaxRows))
	}

	payload, err := renderer.Render(auditDataset(logs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render audit export")
	}
	s.logger.Info("audit export generated", zap.String("format", string(format)), zap.Int("rows", len(logs)))
	return &models.AuditExport{
		Filename:    fmt.Sprintf("decision_audit_%s.%s", s.now().Format("20060102_150405"), format),
		ContentType: renderer.ContentType(),
		Rows:        len(logs),
		Data:        payload,
	}, nil
}

func checkRange(filter models.AuditLogFilter) error {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	return nil
}

func auditDataset(logs []models.AuditLog) export.Dataset {
	data := export.Dataset{
		Title:   "Decision audit trail",
		Headers: []string{"timestamp", "action_type", "entity_type", "entity_id", "decision", "confidence", "user_type", "user_id", "reasoning"},
		Widths:  []float64{1.4, 1.3, 1.2, 1.6, 0.9, 0.7, 0.7, 1.6, 3.6},
		Rows:    make([][]string, 0, len(logs)),
	}
	for _, log := range logs {
		data.Rows = append(data.Rows, []string{
			log.CreatedAt.UTC().Format(time.RFC3339),
			log.ActionType,
			log.EntityType,
			stringValue(log.EntityID),
			log.Decision,
			strconv.FormatFloat(log.ConfidenceScore, 'f', 2, 64),
			log.UserType,
			stringValue(log.UserID),
			log.Reasoning,
		})
	}
	return data
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
