package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

const auditColumns = `id, action_type, entity_type, entity_id, decision, reasoning, confidence_score, rules_applied, user_id, user_type, metadata, created_at`

// AuditRepository stores the decision audit trail. Rows are append only.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog stores an audit log entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if len(log.RulesApplied) == 0 {
		log.RulesApplied = []byte("[]")
	}
	const query = `INSERT INTO audit_logs (id, action_type, entity_type, entity_id, decision, reasoning, confidence_score, rules_applied, user_id, user_type, metadata, created_at)
        VALUES (:id, :action_type, :entity_type, :entity_id, :decision, :reasoning, :confidence_score, :rules_applied, :user_id, :user_type, :metadata, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// List returns audit entries matching filter, newest first. A negative Page
// disables paging, which exports rely on.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.ActionType != "" {
		add("action_type = $%d", filter.ActionType)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.Decision != "" {
		add("decision = $%d", filter.Decision)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}
	where := strings.Join(conditions, " AND ")

	query := fmt.Sprintf("SELECT %s FROM audit_logs WHERE %s ORDER BY created_at DESC", auditColumns, where)
	if filter.Page >= 0 {
		limit, offset := pageBounds(filter.Page, filter.PageSize)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}

	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM audit_logs WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return logs, total, nil
}
