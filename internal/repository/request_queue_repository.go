package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// requestQueueSources projects each request table onto models.RequestSummary.
var requestQueueSources = []string{
	`SELECT id, 'guest_request' AS request_type, student_id, 'Guest visit: ' || guest_name AS summary, status, auto_approved, created_at FROM guest_requests`,
	`SELECT id, 'leave_request' AS request_type, student_id, 'Leave: ' || reason AS summary, status, auto_approved, created_at FROM absence_records`,
	`SELECT id, 'maintenance_request' AS request_type, student_id, issue_type || ' in ' || room_number AS summary, status, auto_scheduled AS auto_approved, created_at FROM maintenance_work_orders`,
	`SELECT id, 'room_cleaning' AS request_type, student_id, cleaning_type || ' cleaning for ' || room_number AS summary, status, auto_approved, created_at FROM cleaning_requests`,
}

// RequestQueueRepository reads the cross-type review queue.
type RequestQueueRepository struct {
	db *sqlx.DB
}

// NewRequestQueueRepository constructs the repository.
func NewRequestQueueRepository(db *sqlx.DB) *RequestQueueRepository {
	return &RequestQueueRepository{db: db}
}

// List returns requests of every type matching filter, newest first.
func (r *RequestQueueRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, int, error) {
	union := "(" + strings.Join(requestQueueSources, " UNION ALL ") + ") AS queue"
	where, args := requestConditions(filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT id, request_type, student_id, summary, status, auto_approved, created_at FROM %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", union, where, limit, offset)
	var rows []models.RequestSummary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list request queue: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", union, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count request queue: %w", err)
	}
	return rows, total, nil
}
