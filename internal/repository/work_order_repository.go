package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

const workOrderColumns = `id, work_order_id, student_id, room_number, issue_type, description, urgency, priority, scheduled_date, status, auto_scheduled, approved_by, approval_reason, created_at, updated_at`

// WorkOrderRepository persists maintenance work orders.
type WorkOrderRepository struct {
	db *sqlx.DB
}

// NewWorkOrderRepository constructs the repository.
func NewWorkOrderRepository(db *sqlx.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// Create inserts a work order.
func (r *WorkOrderRepository) Create(ctx context.Context, order *models.MaintenanceWorkOrder) error {
	stampCreated(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	const query = `INSERT INTO maintenance_work_orders (id, work_order_id, student_id, room_number, issue_type, description, urgency, priority, scheduled_date, status, auto_scheduled, approved_by, approval_reason, created_at, updated_at)
        VALUES (:id, :work_order_id, :student_id, :room_number, :issue_type, :description, :urgency, :priority, :scheduled_date, :status, :auto_scheduled, :approved_by, :approval_reason, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, order); err != nil {
		return fmt.Errorf("create work order: %w", err)
	}
	return nil
}

// FindByID returns a work order by row identifier.
func (r *WorkOrderRepository) FindByID(ctx context.Context, id string) (*models.MaintenanceWorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM maintenance_work_orders WHERE id = $1`
	var order models.MaintenanceWorkOrder
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find work order: %w", err)
	}
	return &order, nil
}

// List returns work orders matching filter.
func (r *WorkOrderRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceWorkOrder, int, error) {
	var rows []models.MaintenanceWorkOrder
	total, err := listRequests(ctx, r.db, &rows, workOrderTable, workOrderColumns, filter)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Review records a staff decision on a pending work order. Approval moves it
// straight to scheduled.
func (r *WorkOrderRepository) Review(ctx context.Context, id string, status models.RequestStatus, reviewer, note string, at time.Time) error {
	if status == models.RequestStatusApproved {
		status = models.RequestStatusScheduled
	}
	return reviewRequest(ctx, r.db, workOrderTable, id, status, reviewer, note, at)
}
