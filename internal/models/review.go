package models

import "time"

// ReviewAction is a staff verdict on a pending request.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ReviewDecision is the staff input for a manual review.
type ReviewDecision struct {
	Action ReviewAction `json:"action" validate:"required,oneof=approve reject"`
	Note   string       `json:"note" validate:"max=500"`
}

// ReviewOutcome reports the result of a manual review.
type ReviewOutcome struct {
	RequestType RequestType   `json:"request_type"`
	RequestID   string        `json:"request_id"`
	StudentID   string        `json:"student_id"`
	Status      RequestStatus `json:"status"`
	ReviewedBy  string        `json:"reviewed_by"`
	ReviewedAt  time.Time     `json:"reviewed_at"`
}
