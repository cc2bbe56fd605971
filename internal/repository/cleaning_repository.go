package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

const cleaningColumns = `id, student_id, room_number, cleaning_type, preferred_time, notes, status, auto_approved, approved_by, approval_reason, created_at, updated_at`

// CleaningRepository persists room cleaning bookings.
type CleaningRepository struct {
	db *sqlx.DB
}

// NewCleaningRepository constructs the repository.
func NewCleaningRepository(db *sqlx.DB) *CleaningRepository {
	return &CleaningRepository{db: db}
}

// Create inserts a cleaning request.
func (r *CleaningRepository) Create(ctx context.Context, req *models.CleaningRequest) error {
	stampCreated(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	const query = `INSERT INTO cleaning_requests (id, student_id, room_number, cleaning_type, preferred_time, notes, status, auto_approved, approved_by, approval_reason, created_at, updated_at)
        VALUES (:id, :student_id, :room_number, :cleaning_type, :preferred_time, :notes, :status, :auto_approved, :approved_by, :approval_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create cleaning request: %w", err)
	}
	return nil
}

// FindByID returns a cleaning request.
func (r *CleaningRepository) FindByID(ctx context.Context, id string) (*models.CleaningRequest, error) {
	query := `SELECT ` + cleaningColumns + ` FROM cleaning_requests WHERE id = $1`
	var req models.CleaningRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cleaning request: %w", err)
	}
	return &req, nil
}

// List returns cleaning requests matching filter.
func (r *CleaningRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.CleaningRequest, int, error) {
	var rows []models.CleaningRequest
	total, err := listRequests(ctx, r.db, &rows, cleaningTable, cleaningColumns, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Review records a staff decision on a pending cleaning request.
func (r *CleaningRepository) Review(ctx context.Context, id string, status models.RequestStatus, reviewer, note string, at time.Time) error {
	return reviewRequest(ctx, r.db, cleaningTable, id, status, reviewer, note, at)
}
