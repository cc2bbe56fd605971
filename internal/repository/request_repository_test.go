package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

func TestGuestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGuestRequestRepository(db)

	mock.ExpectExec("INSERT INTO guest_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.GuestRequest{StudentID: "stu-1", GuestName: "Alice", Status: models.RequestStatusApproved, AutoApproved: true}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.False(t, req.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRequestRepositoryHasOverlappingApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewGuestRequestRepository(db)

	start := time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM guest_requests WHERE student_id = $1 AND status = 'approved' AND start_date < $3 AND end_date > $2)")).
		WithArgs("stu-1", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	overlap, err := repo.HasOverlappingApproved(context.Background(), "stu-1", start, end)
	require.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "start_date", "end_date", "reason", "emergency_contact", "status", "auto_approved", "approved_by", "approval_reason", "created_at", "updated_at"}).
		AddRow("abs-1", "stu-1", now, now.Add(48*time.Hour), "family", "", "pending", false, nil, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+absenceColumns+" FROM absence_records WHERE 1=1 AND status = $1 ORDER BY created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs(models.RequestStatusPending).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM absence_records WHERE 1=1 AND status = $1")).
		WithArgs(models.RequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	records, total, err := repo.List(context.Background(), models.RequestFilter{Status: models.RequestStatusPending, Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "family", records[0].Reason)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleaningRepositoryReviewRequiresPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCleaningRepository(db)

	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	query := regexp.QuoteMeta("UPDATE cleaning_requests SET status = $2, approved_by = $3, approval_reason = $4, updated_at = $5 WHERE id = $1 AND status = 'pending'")
	mock.ExpectExec(query).
		WithArgs("cl-1", models.RequestStatusApproved, "staff-1", "ok", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("cl-1", models.RequestStatusRejected, "staff-1", "", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Review(context.Background(), "cl-1", models.RequestStatusApproved, "staff-1", "ok", at))
	assert.ErrorIs(t, repo.Review(context.Background(), "cl-1", models.RequestStatusRejected, "staff-1", "", at), ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkOrderRepositoryReviewSchedulesApproved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewWorkOrderRepository(db)

	at := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_work_orders SET status = $2")).
		WithArgs("wo-1", models.RequestStatusScheduled, "staff-2", "", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Review(context.Background(), "wo-1", models.RequestStatusApproved, "staff-2", "", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestQueueRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestQueueRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "request_type", "student_id", "summary", "status", "auto_approved", "created_at"}).
		AddRow("g-1", "guest_request", "stu-1", "Guest visit: Alice", "pending", false, now).
		AddRow("wo-1", "maintenance_request", "stu-2", "plumbing in B-204", "pending", false, now)
	mock.ExpectQuery(`UNION ALL .* WHERE 1=1 AND student_id = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), models.RequestFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.RequestTypeMaintenance, items[1].RequestType)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
