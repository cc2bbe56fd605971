package models

// ViolationKind identifies a hard policy rule a request breaks.
type ViolationKind string

const (
	ViolationGuestDurationExceeded ViolationKind = "GUEST_DURATION_EXCEEDED"
	ViolationRecentViolations      ViolationKind = "RECENT_VIOLATIONS"
	ViolationInsufficientNotice    ViolationKind = "INSUFFICIENT_NOTICE"
	// ViolationRoomCapacityExceeded also covers overlapping approved visits.
	ViolationRoomCapacityExceeded ViolationKind = "ROOM_CAPACITY_EXCEEDED"
)

// ValidationResult is the verdict of validating a single guest request.
type ValidationResult struct {
	IsValid            bool            `json:"is_valid"`
	Violations         []ViolationKind `json:"violations"`
	Reasons            []string        `json:"reasons"`
	Confidence         float64         `json:"confidence"`
	AutoApprovable     bool            `json:"auto_approvable"`
	EscalationRequired bool            `json:"escalation_required"`
	DurationDays       int             `json:"duration_days"`
	NoticeHours        float64         `json:"notice_hours"`
}

// HasViolation reports whether kind was detected.
func (r ValidationResult) HasViolation(kind ViolationKind) bool {
	for _, v := range r.Violations {
		if v == kind {
			return true
		}
	}
	return false
}

// PolicyResult is the compliance verdict for a leave request.
type PolicyResult struct {
	Compliant       bool     `json:"compliant"`
	Explanations    []string `json:"explanations"`
	Recommendations []string `json:"recommendations"`
	DurationDays    int      `json:"duration_days"`
	NoticeHours     float64  `json:"notice_hours"`
}

// DecisionType is the outcome of an automated evaluation.
type DecisionType string

const (
	DecisionAutoApproved DecisionType = "auto_approved"
	DecisionEscalated    DecisionType = "escalated"
	DecisionRejected     DecisionType = "rejected"
)

// ApprovalDecision is the rule engine's per-type decision.
type ApprovalDecision struct {
	Approved     bool         `json:"approved"`
	DecisionType DecisionType `json:"decision_type"`
	Reasoning    string       `json:"reasoning"`
	Confidence   float64      `json:"confidence"`
	RulesApplied []string     `json:"rules_applied"`
}

// StaffRole is the staff group an escalation is routed to.
type StaffRole string

const (
	StaffRoleWarden      StaffRole = "warden"
	StaffRoleSecurity    StaffRole = "security"
	StaffRoleMaintenance StaffRole = "maintenance"
	StaffRoleAdmin       StaffRole = "admin"
)

// UserRole maps the staff role onto the login role used for RBAC.
func (r StaffRole) UserRole() UserRole {
	switch r {
	case StaffRoleSecurity:
		return RoleSecurity
	case StaffRoleMaintenance:
		return RoleMaintenance
	case StaffRoleAdmin:
		return RoleAdmin
	default:
		return RoleWarden
	}
}

// Priority orders escalations and work orders.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// EscalationReason records why a request needs a human decision.
type EscalationReason string

const (
	EscalationPolicyViolation         EscalationReason = "policy_violation"
	EscalationComplexRequest          EscalationReason = "complex_request"
	EscalationStudentViolations       EscalationReason = "student_violations"
	EscalationInsufficientInformation EscalationReason = "insufficient_information"
	EscalationSystemError             EscalationReason = "system_error"
	EscalationManualReviewRequired    EscalationReason = "manual_review_required"
)

// EscalationRoute says who reviews an escalated request and how urgently.
type EscalationRoute struct {
	StaffRole StaffRole        `json:"staff_role"`
	Priority  Priority         `json:"priority"`
	Reason    EscalationReason `json:"reason"`
}

// AutoApprovalResult is the outcome of the full approval pipeline.
type AutoApprovalResult struct {
	Approved         bool                   `json:"approved"`
	DecisionType     DecisionType           `json:"decision_type"`
	Reasoning        string                 `json:"reasoning"`
	Confidence       float64                `json:"confidence"`
	RulesApplied     []string               `json:"rules_applied"`
	EscalationReason EscalationReason       `json:"escalation_reason,omitempty"`
	EscalationRoute  *EscalationRoute       `json:"escalation_route,omitempty"`
	AllFieldsPresent bool                   `json:"all_fields_present"`
	AuditData        map[string]interface{} `json:"audit_data,omitempty"`
}

// Escalated reports whether the request awaits manual review.
func (r AutoApprovalResult) Escalated() bool {
	return r.DecisionType == DecisionEscalated
}

// RuleExplanation is a canned answer to a policy question.
type RuleExplanation struct {
	Topic               string        `json:"topic"`
	Title               string        `json:"title"`
	PolicyText          string        `json:"policy_text"`
	Citations           []string      `json:"citations"`
	Examples            []string      `json:"examples"`
	RelatedRequestTypes []RequestType `json:"related_request_types"`
}
