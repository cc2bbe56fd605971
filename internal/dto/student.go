package dto

import "time"

// ViolationRequest records a policy violation. OccurredAt defaults to now.
type ViolationRequest struct {
	OccurredAt *time.Time `json:"occurred_at"`
}
