package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

// Hostel policy constants.
const (
	MaxGuestStayDays      = 1
	MaxAutoLeaveDays      = 2
	MinAdvanceNoticeHours = 24
	ViolationLookbackDays = models.ViolationLookbackDays

	// defaultGuestVisit is assumed when a guest request has no end date.
	defaultGuestVisit = 12 * time.Hour
	// noticeSkewHours is how far in the past a same-day visit may start.
	noticeSkewHours = 1.0
)

var basicMaintenanceIssues = []string{"plumbing", "electrical_minor", "furniture", "cleaning", "ac_repair"}

var standardCleaningTypes = map[string]struct{}{
	"regular":  {},
	"weekly":   {},
	"standard": {},
}

type guestConflictChecker interface {
	HasOverlappingApproved(ctx context.Context, studentID string, start, end time.Time) (bool, error)
}

// RuleEngine evaluates a single request against the fixed hostel policy. It
// never mutates persisted state.
type RuleEngine struct {
	conflicts guestConflictChecker
	logger    *zap.Logger
	now       func() time.Time
	loc       *time.Location
}

// RuleEngineOption configures the engine.
type RuleEngineOption func(*RuleEngine)

// WithRuleClock overrides the clock used for notice and lookback windows.
func WithRuleClock(now func() time.Time) RuleEngineOption {
	return func(e *RuleEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRuleLocation sets the zone used for timestamps supplied without one.
func WithRuleLocation(loc *time.Location) RuleEngineOption {
	return func(e *RuleEngine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewRuleEngine constructs a RuleEngine. conflicts may be nil, in which case
// overlapping visits are not checked.
func NewRuleEngine(conflicts guestConflictChecker, logger *zap.Logger, opts ...RuleEngineOption) *RuleEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &RuleEngine{conflicts: conflicts, logger: logger, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Location returns the zone naive timestamps are interpreted in.
func (e *RuleEngine) Location() *time.Location {
	return e.loc
}

// Now returns the engine clock reading in the engine location.
func (e *RuleEngine) Now() time.Time {
	return e.now().In(e.loc)
}

// ValidateGuestRequest checks a guest request against the visit policy.
func (e *RuleEngine) ValidateGuestRequest(ctx context.Context, data models.RequestData, student *models.Student) models.ValidationResult {
	req, err := newApprovalRequest(models.RequestTypeGuest, data, e.loc)
	if err == nil {
		var result models.ValidationResult
		result, err = e.validateGuest(ctx, req.(guestRequest), student)
		if err == nil {
			return result
		}
	}
	e.logger.Error("guest validation failed", zap.Error(err))
	return models.ValidationResult{
		IsValid:            false,
		Violations:         []models.ViolationKind{},
		Reasons:            []string{fmt.Sprintf("Validation error: %v", err)},
		Confidence:         0,
		EscalationRequired: true,
	}
}

func (e *RuleEngine) validateGuest(ctx context.Context, req guestRequest, student *models.Student) (models.ValidationResult, error) {
	now := e.Now()
	result := models.ValidationResult{Violations: []models.ViolationKind{}, Reasons: []string{}}

	if req.GuestName == "" {
		result.Reasons = append(result.Reasons, "Guest name is required to register a visit.")
		result.Confidence = 1.0
		result.EscalationRequired = true
		return result, nil
	}

	missing := 0
	start := now
	if req.Start != nil {
		start = *req.Start
	} else {
		missing++
		result.Reasons = append(result.Reasons, "No start time given; assuming the visit starts now.")
	}
	end := start.Add(defaultGuestVisit)
	if req.End != nil {
		end = *req.End
	} else {
		missing++
		result.Reasons = append(result.Reasons, "No end time given; assuming a short visit of 12 hours.")
	}

	if end.Before(start) {
		result.Reasons = append(result.Reasons, "The visit end time is before its start time.")
		result.Confidence = 1.0
		result.EscalationRequired = true
		return result, nil
	}

	duration := durationDays(start, end)
	notice := start.Sub(now).Hours()
	recent := student.HasRecentViolations(now)
	result.DurationDays = duration
	result.NoticeHours = roundTo(notice, 2)

	if duration > MaxGuestStayDays {
		result.Violations = append(result.Violations, models.ViolationGuestDurationExceeded)
		result.Reasons = append(result.Reasons, fmt.Sprintf("Guest stay of %d days exceeds the %d day limit.", duration, MaxGuestStayDays))
	}
	if recent {
		result.Violations = append(result.Violations, models.ViolationRecentViolations)
		result.Reasons = append(result.Reasons, fmt.Sprintf("Student has a policy violation within the last %d days.", ViolationLookbackDays))
	}
	if notice < MinAdvanceNoticeHours && !sameDayVisit(notice, duration) {
		result.Violations = append(result.Violations, models.ViolationInsufficientNotice)
		result.Reasons = append(result.Reasons, fmt.Sprintf("Guest visits need %d hours of advance notice; %.1f hours given.", MinAdvanceNoticeHours, notice))
	}
	if e.conflicts != nil && student != nil {
		overlap, err := e.conflicts.HasOverlappingApproved(ctx, student.ID, start, end)
		if err != nil {
			return models.ValidationResult{}, fmt.Errorf("check overlapping guest visits: %w", err)
		}
		if overlap {
			result.Violations = append(result.Violations, models.ViolationRoomCapacityExceeded)
			result.Reasons = append(result.Reasons, "An approved guest visit already overlaps this period.")
		}
	}

	result.IsValid = len(result.Violations) == 0
	result.AutoApprovable = result.IsValid && duration <= MaxGuestStayDays && !recent
	result.EscalationRequired = !result.AutoApprovable
	result.Confidence = roundTo(clamp(0.9-0.2*float64(missing)-0.1*float64(len(result.Violations)), 0.1, 1.0), 2)
	return result, nil
}

// sameDayVisit exempts short visits starting within the next day, tolerating
// an hour of clock skew into the past.
func sameDayVisit(noticeHours float64, duration int) bool {
	return noticeHours >= -noticeSkewHours && noticeHours < MinAdvanceNoticeHours && duration <= MaxGuestStayDays
}

// CheckLeavePolicy reports whether a leave request complies with the
// auto-approval policy and explains every sub-check.
func (e *RuleEngine) CheckLeavePolicy(data models.RequestData, student *models.Student) models.PolicyResult {
	req, err := newApprovalRequest(models.RequestTypeLeave, data, e.loc)
	if err != nil {
		e.logger.Error("leave policy check failed", zap.Error(err))
		return models.PolicyResult{
			Explanations:    []string{fmt.Sprintf("Policy check error: %v", err)},
			Recommendations: []string{"A warden will review this leave request manually."},
		}
	}
	return e.checkLeave(req.(leaveRequest), student)
}

func (e *RuleEngine) checkLeave(req leaveRequest, student *models.Student) models.PolicyResult {
	if req.Start == nil || req.End == nil {
		return models.PolicyResult{
			Explanations:    []string{"Leave requests need both a start date and an end date; missing dates cannot be checked."},
			Recommendations: []string{"Provide both the start date and the end date of your leave."},
		}
	}
	if req.End.Before(*req.Start) {
		return models.PolicyResult{
			Explanations:    []string{"The leave end date is before its start date."},
			Recommendations: []string{"Check the dates and resubmit the leave request."},
		}
	}

	now := e.Now()
	duration := durationDays(*req.Start, *req.End)
	notice := req.Start.Sub(now).Hours()
	recent := student.HasRecentViolations(now)

	result := models.PolicyResult{DurationDays: duration, NoticeHours: roundTo(notice, 2)}
	durationOK := duration <= MaxAutoLeaveDays
	noticeOK := notice >= MinAdvanceNoticeHours

	if durationOK {
		result.Explanations = append(result.Explanations, fmt.Sprintf("Leave duration of %d day(s) is within the %d day auto-approval limit.", duration, MaxAutoLeaveDays))
	} else {
		result.Explanations = append(result.Explanations, fmt.Sprintf("Leave duration of %d days exceeds the %d day auto-approval limit.", duration, MaxAutoLeaveDays))
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("Leave longer than %d days is reviewed by the warden; expect a manual decision.", MaxAutoLeaveDays))
	}
	if noticeOK {
		result.Explanations = append(result.Explanations, fmt.Sprintf("Advance notice of %.1f hours meets the %d hour requirement.", notice, MinAdvanceNoticeHours))
	} else {
		result.Explanations = append(result.Explanations, fmt.Sprintf("Advance notice of %.1f hours is below the %d hour requirement.", notice, MinAdvanceNoticeHours))
		result.Recommendations = append(result.Recommendations, fmt.Sprintf("Submit leave requests at least %d hours before departure.", MinAdvanceNoticeHours))
	}
	if recent {
		result.Explanations = append(result.Explanations, fmt.Sprintf("A policy violation within the last %d days requires warden review.", ViolationLookbackDays))
		result.Recommendations = append(result.Recommendations, "Contact the warden's office about your recent violation.")
	} else {
		result.Explanations = append(result.Explanations, "No recent policy violations on record.")
	}

	result.Compliant = durationOK && noticeOK && !recent
	return result
}

// EvaluateAutoApprovalCriteria produces the per-type decision for a request.
// Internal faults yield an escalated decision with zero confidence.
func (e *RuleEngine) EvaluateAutoApprovalCriteria(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student) models.ApprovalDecision {
	decision, err := e.evaluate(ctx, data, requestType, student)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrUnknownRequestType.Code {
			return models.ApprovalDecision{
				DecisionType: models.DecisionEscalated,
				Reasoning:    appErr.Message,
				Confidence:   0.5,
				RulesApplied: []string{"unknown_request_type"},
			}
		}
		e.logger.Error("auto-approval evaluation failed", zap.String("request_type", string(requestType)), zap.Error(err))
		return models.ApprovalDecision{
			DecisionType: models.DecisionEscalated,
			Reasoning:    fmt.Sprintf("Evaluation error, escalating for manual review: %v", err),
			Confidence:   0,
			RulesApplied: []string{"error_escalation"},
		}
	}
	decision.Confidence = roundTo(clamp(decision.Confidence, 0, 1), 2)
	return decision
}

func (e *RuleEngine) evaluate(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student) (models.ApprovalDecision, error) {
	req, err := newApprovalRequest(requestType, data, e.loc)
	if err != nil {
		return models.ApprovalDecision{}, err
	}
	switch r := req.(type) {
	case guestRequest:
		return e.evaluateGuest(ctx, r, student)
	case leaveRequest:
		return e.evaluateLeave(r, student), nil
	case maintenanceRequest:
		return evaluateMaintenance(r), nil
	case cleaningRequest:
		return evaluateCleaning(r), nil
	default:
		return models.ApprovalDecision{}, fmt.Errorf("unhandled request variant %T", req)
	}
}

func (e *RuleEngine) evaluateGuest(ctx context.Context, req guestRequest, student *models.Student) (models.ApprovalDecision, error) {
	result, err := e.validateGuest(ctx, req, student)
	if err != nil {
		return models.ApprovalDecision{}, err
	}
	switch {
	case result.AutoApprovable:
		return models.ApprovalDecision{
			Approved:     true,
			DecisionType: models.DecisionAutoApproved,
			Reasoning:    "Guest visit meets all auto-approval criteria.",
			Confidence:   result.Confidence,
			RulesApplied: []string{"guest_request_validation", "guest_auto_approval"},
		}, nil
	case result.IsValid:
		return models.ApprovalDecision{
			DecisionType: models.DecisionEscalated,
			Reasoning:    "Guest request is valid but requires manual approval.",
			Confidence:   result.Confidence,
			RulesApplied: []string{"guest_request_validation", "guest_manual_review"},
		}, nil
	case len(result.Violations) == 0:
		return models.ApprovalDecision{
			DecisionType: models.DecisionEscalated,
			Reasoning:    strings.Join(result.Reasons, " "),
			Confidence:   result.Confidence,
			RulesApplied: []string{"guest_request_validation", "guest_missing_information"},
		}, nil
	default:
		return models.ApprovalDecision{
			DecisionType: models.DecisionRejected,
			Reasoning:    guestRejectionReason(result),
			Confidence:   result.Confidence,
			RulesApplied: []string{"guest_request_validation", "guest_policy_rejection"},
		}, nil
	}
}

// guestRejectionReason phrases each violation for the student, in detection order.
func guestRejectionReason(result models.ValidationResult) string {
	messages := make([]string, 0, len(result.Violations))
	for _, violation := range result.Violations {
		switch violation {
		case models.ViolationGuestDurationExceeded:
			messages = append(messages, fmt.Sprintf("Guests may stay for at most %d day, and this visit spans %d days.", MaxGuestStayDays, result.DurationDays))
		case models.ViolationRecentViolations:
			messages = append(messages, fmt.Sprintf("Guest privileges are on hold because of a policy violation in the last %d days.", ViolationLookbackDays))
		case models.ViolationInsufficientNotice:
			messages = append(messages, fmt.Sprintf("Guest visits must be registered at least %d hours in advance.", MinAdvanceNoticeHours))
		case models.ViolationRoomCapacityExceeded:
			messages = append(messages, "You already have an approved guest visit during this time.")
		}
	}
	return strings.Join(messages, " ")
}

func (e *RuleEngine) evaluateLeave(req leaveRequest, student *models.Student) models.ApprovalDecision {
	policy := e.checkLeave(req, student)
	if policy.Compliant {
		return models.ApprovalDecision{
			Approved:     true,
			DecisionType: models.DecisionAutoApproved,
			Reasoning:    "Leave request complies with policy. " + strings.Join(policy.Explanations, " "),
			Confidence:   0.9,
			RulesApplied: []string{"leave_policy_check", "leave_auto_approval"},
		}
	}
	return models.ApprovalDecision{
		DecisionType: models.DecisionEscalated,
		Reasoning:    strings.Join(policy.Explanations, " "),
		Confidence:   0.8,
		RulesApplied: []string{"leave_policy_check", "leave_manual_review"},
	}
}

func evaluateMaintenance(req maintenanceRequest) models.ApprovalDecision {
	if req.Urgency == "emergency" {
		return models.ApprovalDecision{
			Approved:     true,
			DecisionType: models.DecisionAutoApproved,
			Reasoning:    "Emergency maintenance is scheduled immediately with the highest priority.",
			Confidence:   1.0,
			RulesApplied: []string{"emergency_maintenance_priority"},
		}
	}
	for _, basic := range basicMaintenanceIssues {
		if req.IssueType != "" && strings.Contains(req.IssueType, basic) {
			return models.ApprovalDecision{
				Approved:     true,
				DecisionType: models.DecisionAutoApproved,
				Reasoning:    fmt.Sprintf("Basic %s issue is scheduled automatically.", basic),
				Confidence:   0.9,
				RulesApplied: []string{"basic_maintenance_auto_schedule"},
			}
		}
	}
	return models.ApprovalDecision{
		DecisionType: models.DecisionEscalated,
		Reasoning:    "Complex maintenance issue requires assessment by maintenance staff.",
		Confidence:   0.8,
		RulesApplied: []string{"complex_maintenance_escalation"},
	}
}

func evaluateCleaning(req cleaningRequest) models.ApprovalDecision {
	if _, ok := standardCleaningTypes[req.CleaningType]; ok {
		return models.ApprovalDecision{
			Approved:     true,
			DecisionType: models.DecisionAutoApproved,
			Reasoning:    fmt.Sprintf("Standard %s cleaning is approved automatically.", req.CleaningType),
			Confidence:   1.0,
			RulesApplied: []string{"standard_cleaning_auto_approval"},
		}
	}
	return models.ApprovalDecision{
		DecisionType: models.DecisionEscalated,
		Reasoning:    fmt.Sprintf("Special cleaning (%s) requires scheduling by staff.", req.CleaningType),
		Confidence:   0.9,
		RulesApplied: []string{"special_cleaning_escalation"},
	}
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
