package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

const absenceColumns = `id, student_id, start_date, end_date, reason, emergency_contact, status, auto_approved, approved_by, approval_reason, created_at, updated_at`

// AbsenceRepository persists leave records.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs the repository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create inserts an absence record.
func (r *AbsenceRepository) Create(ctx context.Context, record *models.AbsenceRecord) error {
	stampCreated(&record.ID, &record.CreatedAt, &record.UpdatedAt)
	const query = `INSERT INTO absence_records (id, student_id, start_date, end_date, reason, emergency_contact, status, auto_approved, approved_by, approval_reason, created_at, updated_at)
        VALUES (:id, :student_id, :start_date, :end_date, :reason, :emergency_contact, :status, :auto_approved, :approved_by, :approval_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create absence record: %w", err)
	}
	return nil
}

// FindByID returns an absence record.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error) {
	query := `SELECT ` + absenceColumns + ` FROM absence_records WHERE id = $1`
	var record models.AbsenceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find absence record: %w", err)
	}
	return &record, nil
}

// List returns absence records matching filter.
func (r *AbsenceRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.AbsenceRecord, int, error) {
	var rows []models.AbsenceRecord
	total, err := listRequests(ctx, r.db, &rows, absenceTable, absenceColumns, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Review records a staff decision on a pending leave request.
func (r *AbsenceRepository) Review(ctx context.Context, id string, status models.RequestStatus, reviewer, note string, at time.Time) error {
	return reviewRequest(ctx, r.db, absenceTable, id, status, reviewer, note, at)
}
