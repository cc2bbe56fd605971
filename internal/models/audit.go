package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit action types recorded by the decision pipeline and auth flows.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionAutoApproval      = "auto_approval"
	AuditActionRejection         = "rejection"
	AuditActionEscalation        = "escalation"
	AuditActionGuestRecordCreate = "guest_record_created"
	AuditActionLeaveRecordCreate = "leave_record_created"
	AuditActionCleaningCreate    = "cleaning_record_created"
	AuditActionMaintenance       = "maintenance_scheduled"
	AuditActionManualReview      = "manual_review"
)

// Audit user types.
const (
	AuditUserSystem  = "system"
	AuditUserStudent = "student"
	AuditUserStaff   = "staff"
)

// AuditLog is one entry of the decision audit trail.
type AuditLog struct {
	ID              string         `db:"id" json:"id"`
	ActionType      string         `db:"action_type" json:"action_type"`
	EntityType      string         `db:"entity_type" json:"entity_type"`
	EntityID        *string        `db:"entity_id" json:"entity_id,omitempty"`
	Decision        string         `db:"decision" json:"decision"`
	Reasoning       string         `db:"reasoning" json:"reasoning"`
	ConfidenceScore float64        `db:"confidence_score" json:"confidence_score"`
	RulesApplied    types.JSONText `db:"rules_applied" json:"rules_applied"`
	UserID          *string        `db:"user_id" json:"user_id,omitempty"`
	UserType        string         `db:"user_type" json:"user_type"`
	Metadata        types.JSONText `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"timestamp"`
}

// AuditLogFilter narrows audit listings and exports.
type AuditLogFilter struct {
	ActionType string
	EntityType string
	Decision   string
	UserID     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// ExportFormat selects the audit export encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// AuditExport is a rendered audit export ready to be streamed.
type AuditExport struct {
	Filename    string
	ContentType string
	Rows        int
	Data        []byte
}
