package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

// ErrNotPending is returned when a review targets a request that has already
// been decided.
var ErrNotPending = errors.New("request is not pending")

// Request tables.
const (
	guestRequestTable = "guest_requests"
	absenceTable      = "absence_records"
	workOrderTable    = "maintenance_work_orders"
	cleaningTable     = "cleaning_requests"
)

func requestConditions(filter models.RequestFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

// listRequests selects columns from table into dest and returns the total
// row count for the filter.
func listRequests(ctx context.Context, db *sqlx.DB, dest interface{}, table, columns string, filter models.RequestFilter) (int, error) {
	where, args := requestConditions(filter)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", columns, table, where, limit, offset)
	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return 0, fmt.Errorf("list %s: %w", table, err)
	}
	var total int
	if err := db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, where), args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

// reviewRequest records a staff decision on a pending request.
func reviewRequest(ctx context.Context, db *sqlx.DB, table, id string, status models.RequestStatus, reviewer, note string, at time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET status = $2, approved_by = $3, approval_reason = $4, updated_at = $5 WHERE id = $1 AND status = 'pending'", table)
	res, err := db.ExecContext(ctx, query, id, status, reviewer, note, at)
	if err != nil {
		return fmt.Errorf("review %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review %s: %w", table, err)
	}
	if affected == 0 {
		return ErrNotPending
	}
	return nil
}

func stampCreated(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}
