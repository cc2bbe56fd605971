package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

const guestRequestColumns = `id, student_id, guest_name, guest_phone, start_date, end_date, purpose, status, auto_approved, approved_by, approval_reason, created_at, updated_at`

// GuestRequestRepository persists visitor registrations.
type GuestRequestRepository struct {
	db *sqlx.DB
}

// NewGuestRequestRepository constructs the repository.
func NewGuestRequestRepository(db *sqlx.DB) *GuestRequestRepository {
	return &GuestRequestRepository{db: db}
}

// Create inserts a guest request.
func (r *GuestRequestRepository) Create(ctx context.Context, req *models.GuestRequest) error {
	stampCreated(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	const query = `INSERT INTO guest_requests (id, student_id, guest_name, guest_phone, start_date, end_date, purpose, status, auto_approved, approved_by, approval_reason, created_at, updated_at)
        VALUES (:id, :student_id, :guest_name, :guest_phone, :start_date, :end_date, :purpose, :status, :auto_approved, :approved_by, :approval_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create guest request: %w", err)
	}
	return nil
}

// FindByID returns a guest request.
func (r *GuestRequestRepository) FindByID(ctx context.Context, id string) (*models.GuestRequest, error) {
	query := `SELECT ` + guestRequestColumns + ` FROM guest_requests WHERE id = $1`
	var req models.GuestRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guest request: %w", err)
	}
	return &req, nil
}

// List returns guest requests matching filter, newest first.
func (r *GuestRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.GuestRequest, int, error) {
	var rows []models.GuestRequest
	total, err := listRequests(ctx, r.db, &rows, guestRequestTable, guestRequestColumns, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Review records a staff decision on a pending guest request.
func (r *GuestRequestRepository) Review(ctx context.Context, id string, status models.RequestStatus, reviewer, note string, at time.Time) error {
	return reviewRequest(ctx, r.db, guestRequestTable, id, status, reviewer, note, at)
}

// HasOverlappingApproved reports whether the student already has an approved
// visit intersecting [start, end).
func (r *GuestRequestRepository) HasOverlappingApproved(ctx context.Context, studentID string, start, end time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM guest_requests WHERE student_id = $1 AND status = 'approved' AND start_date < $3 AND end_date > $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, start, end); err != nil {
		return false, fmt.Errorf("check overlapping guest requests: %w", err)
	}
	return exists, nil
}
