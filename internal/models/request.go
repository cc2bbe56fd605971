package models

import (
	"strings"
	"time"
)

// RequestType enumerates the request variants handled by the decision pipeline.
type RequestType string

const (
	RequestTypeGuest       RequestType = "guest_request"
	RequestTypeLeave       RequestType = "leave_request"
	RequestTypeMaintenance RequestType = "maintenance_request"
	RequestTypeCleaning    RequestType = "room_cleaning"
)

// RequestTypes lists every supported request type in a stable order.
var RequestTypes = []RequestType{RequestTypeGuest, RequestTypeLeave, RequestTypeMaintenance, RequestTypeCleaning}

// Valid reports whether the type belongs to the closed set.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeGuest, RequestTypeLeave, RequestTypeMaintenance, RequestTypeCleaning:
		return true
	default:
		return false
	}
}

// RequiredFields lists the raw request_data keys that must be present and
// non-blank for the submission to count as complete.
func (t RequestType) RequiredFields() []string {
	switch t {
	case RequestTypeGuest:
		return []string{"guest_name", "start_date", "end_date"}
	case RequestTypeLeave:
		return []string{"start_date", "end_date", "reason"}
	case RequestTypeMaintenance:
		return []string{"problem_description", "location"}
	case RequestTypeCleaning:
		return []string{"room_number"}
	default:
		return nil
	}
}

// RequestData is the loosely typed payload extracted from a student message.
type RequestData map[string]interface{}

// Has reports whether key is present with a non-blank value.
func (d RequestData) Has(key string) bool {
	value, ok := d[key]
	if !ok || value == nil {
		return false
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) != ""
	case *string:
		return v != nil && strings.TrimSpace(*v) != ""
	case time.Time:
		return !v.IsZero()
	case *time.Time:
		return v != nil && !v.IsZero()
	default:
		return true
	}
}

// RequestStatus is the lifecycle state of a persisted request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusScheduled RequestStatus = "scheduled"
)

// GuestRequest is a visitor registration.
type GuestRequest struct {
	ID             string        `db:"id" json:"id"`
	StudentID      string        `db:"student_id" json:"student_id"`
	GuestName      string        `db:"guest_name" json:"guest_name"`
	GuestPhone     string        `db:"guest_phone" json:"guest_phone"`
	StartDate      time.Time     `db:"start_date" json:"start_date"`
	EndDate        time.Time     `db:"end_date" json:"end_date"`
	Purpose        string        `db:"purpose" json:"purpose"`
	Status         RequestStatus `db:"status" json:"status"`
	AutoApproved   bool          `db:"auto_approved" json:"auto_approved"`
	ApprovedBy     *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalReason string        `db:"approval_reason" json:"approval_reason"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// AbsenceRecord is a persisted leave request.
type AbsenceRecord struct {
	ID             string        `db:"id" json:"id"`
	StudentID      string        `db:"student_id" json:"student_id"`
	StartDate      time.Time     `db:"start_date" json:"start_date"`
	EndDate        time.Time     `db:"end_date" json:"end_date"`
	Reason         string        `db:"reason" json:"reason"`
	EmergencyPhone string        `db:"emergency_contact" json:"emergency_contact"`
	Status         RequestStatus `db:"status" json:"status"`
	AutoApproved   bool          `db:"auto_approved" json:"auto_approved"`
	ApprovedBy     *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalReason string        `db:"approval_reason" json:"approval_reason"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// MaintenanceWorkOrder is a scheduled maintenance job.
type MaintenanceWorkOrder struct {
	ID            string        `db:"id" json:"-"`
	WorkOrderID   string        `db:"work_order_id" json:"work_order_id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	RoomNumber    string        `db:"room_number" json:"room_number"`
	IssueType     string        `db:"issue_type" json:"issue_type"`
	Description   string        `db:"description" json:"description"`
	Urgency       string        `db:"urgency" json:"urgency"`
	Priority      Priority      `db:"priority" json:"priority"`
	ScheduledDate time.Time     `db:"scheduled_date" json:"scheduled_date"`
	Status        RequestStatus `db:"status" json:"status"`
	AutoScheduled bool          `db:"auto_scheduled" json:"auto_scheduled"`
	ApprovedBy    *string       `db:"approved_by" json:"approved_by,omitempty"`
	ReviewNote    string        `db:"approval_reason" json:"approval_reason,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"-"`
}

// CleaningRequest is a room cleaning booking.
type CleaningRequest struct {
	ID             string        `db:"id" json:"id"`
	StudentID      string        `db:"student_id" json:"student_id"`
	RoomNumber     string        `db:"room_number" json:"room_number"`
	CleaningType   string        `db:"cleaning_type" json:"cleaning_type"`
	PreferredTime  *time.Time    `db:"preferred_time" json:"preferred_time,omitempty"`
	Notes          string        `db:"notes" json:"notes"`
	Status         RequestStatus `db:"status" json:"status"`
	AutoApproved   bool          `db:"auto_approved" json:"auto_approved"`
	ApprovedBy     *string       `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalReason string        `db:"approval_reason" json:"approval_reason"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestFilter narrows request listings for staff review.
type RequestFilter struct {
	StudentID string
	Status    RequestStatus
	Page      int
	PageSize  int
}

// RequestSummary is the type-agnostic row shown in staff review queues.
type RequestSummary struct {
	ID           string        `db:"id" json:"id"`
	RequestType  RequestType   `db:"request_type" json:"request_type"`
	StudentID    string        `db:"student_id" json:"student_id"`
	Summary      string        `db:"summary" json:"summary"`
	Status       RequestStatus `db:"status" json:"status"`
	AutoApproved bool          `db:"auto_approved" json:"auto_approved"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}
