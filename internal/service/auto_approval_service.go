package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	"github.com/noah-isme/hostel-ops-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type guestRecordStore interface {
	Create(ctx context.Context, guest *models.GuestRequest) error
}

type absenceRecordStore interface {
	Create(ctx context.Context, record *models.AbsenceRecord) error
}

type workOrderStore interface {
	Create(ctx context.Context, order *models.MaintenanceWorkOrder) error
}

type cleaningRecordStore interface {
	Create(ctx context.Context, request *models.CleaningRequest) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type escalationNotifier interface {
	SendEscalationAlert(ctx context.Context, student *models.Student, requestType models.RequestType, data models.RequestData, route models.EscalationRoute) (*models.DeliveryReport, error)
}

type decisionMetrics interface {
	RecordDecision(requestType models.RequestType, decision models.DecisionType)
	RecordEscalation(role models.StaffRole, reason models.EscalationReason)
}

// ApprovalRecordStores groups the persistence targets for approved requests.
type ApprovalRecordStores struct {
	Guests     guestRecordStore
	Absences   absenceRecordStore
	WorkOrders workOrderStore
	Cleaning   cleaningRecordStore
}

// AutoApprovalService gates rule engine decisions, routes escalations and
// records every outcome in the audit trail.
type AutoApprovalService struct {
	engine   *RuleEngine
	stores   ApprovalRecordStores
	audit    auditLogger
	notifier escalationNotifier
	metrics  decisionMetrics
	cfg      config.ApprovalConfig
	logger   *zap.Logger
}

// AutoApprovalOption configures optional collaborators.
type AutoApprovalOption func(*AutoApprovalService)

// WithEscalationNotifier sets the staff notifier used on escalation.
func WithEscalationNotifier(notifier escalationNotifier) AutoApprovalOption {
	return func(s *AutoApprovalService) {
		s.notifier = notifier
	}
}

// WithDecisionMetrics sets the decision counters.
func WithDecisionMetrics(metrics decisionMetrics) AutoApprovalOption {
	return func(s *AutoApprovalService) {
		s.metrics = metrics
	}
}

// NewAutoApprovalService constructs the service.
func NewAutoApprovalService(engine *RuleEngine, stores ApprovalRecordStores, audit auditLogger, cfg config.ApprovalConfig, logger *zap.Logger, opts ...AutoApprovalOption) *AutoApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewRuleEngine(nil, logger)
	}
	if cfg.MinConfidenceThreshold <= 0 || cfg.MinConfidenceThreshold > 1 {
		cfg.MinConfidenceThreshold = config.DefaultMinConfidenceThreshold
	}
	svc := &AutoApprovalService{
		engine: engine,
		stores: stores,
		audit:  audit,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Engine exposes the underlying rule engine.
func (s *AutoApprovalService) Engine() *RuleEngine {
	return s.engine
}

// WithoutAlerts returns a copy of the service that decides and audits but never
// notifies staff. Used for evaluations that do not create a request.
func (s *AutoApprovalService) WithoutAlerts() *AutoApprovalService {
	clone := *s
	clone.notifier = nil
	return &clone
}

// EvaluateRequest decides a request. It never fails: internal faults are
// reported as an escalation with reason system_error.
func (s *AutoApprovalService) EvaluateRequest(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student) (result models.AutoApprovalResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("auto-approval panicked", zap.Any("panic", r), zap.String("request_type", string(requestType)))
			result = s.systemErrorResult(ctx, data, requestType, student, fmt.Errorf("panic: %v", r))
		}
	}()

	decision := s.engine.EvaluateAutoApprovalCriteria(ctx, data, requestType, student)
	allPresent := allFieldsPresent(requestType, data)

	if !s.cfg.AutoApprovalEnabled {
		decision.Reasoning = "Automatic approval is disabled; a staff member will review this request."
		return s.escalate(ctx, data, requestType, student, decision, models.EscalationManualReviewRequired, allPresent)
	}

	if decision.Confidence < s.cfg.MinConfidenceThreshold && !allPresent {
		decision.Reasoning = fmt.Sprintf("Confidence %.2f is below the %.2f threshold and required information is missing. %s",
			decision.Confidence, s.cfg.MinConfidenceThreshold, decision.Reasoning)
		return s.escalate(ctx, data, requestType, student, decision, models.EscalationInsufficientInformation, allPresent)
	}

	switch decision.DecisionType {
	case models.DecisionAutoApproved:
		result = models.AutoApprovalResult{
			Approved:         true,
			DecisionType:     models.DecisionAutoApproved,
			Reasoning:        decision.Reasoning,
			Confidence:       decision.Confidence,
			RulesApplied:     decision.RulesApplied,
			AllFieldsPresent: allPresent,
		}
	case models.DecisionRejected:
		result = models.AutoApprovalResult{
			DecisionType:     models.DecisionRejected,
			Reasoning:        decision.Reasoning,
			Confidence:       decision.Confidence,
			RulesApplied:     decision.RulesApplied,
			AllFieldsPresent: allPresent,
		}
	default:
		return s.escalate(ctx, data, requestType, student, decision, models.EscalationComplexRequest, allPresent)
	}

	result.AuditData = auditMetadata(data, requestType, student, nil, allPresent)
	s.recordDecision(ctx, requestType, student, result)
	return result
}

// GetEscalationRoute returns the reviewing staff role and priority for an
// escalated request.
func (s *AutoApprovalService) GetEscalationRoute(requestType models.RequestType, reason models.EscalationReason, data models.RequestData) (route models.EscalationRoute) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("escalation routing panicked", zap.Any("panic", r))
			route = models.EscalationRoute{StaffRole: models.StaffRoleWarden, Priority: models.PriorityMedium, Reason: models.EscalationSystemError}
		}
	}()
	return s.engine.EscalationRoute(requestType, reason, data)
}

func (s *AutoApprovalService) escalate(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student, decision models.ApprovalDecision, reason models.EscalationReason, allPresent bool) models.AutoApprovalResult {
	route := s.GetEscalationRoute(requestType, reason, data)
	result := models.AutoApprovalResult{
		DecisionType:     models.DecisionEscalated,
		Reasoning:        decision.Reasoning,
		Confidence:       decision.Confidence,
		RulesApplied:     decision.RulesApplied,
		EscalationReason: reason,
		EscalationRoute:  &route,
		AllFieldsPresent: allPresent,
	}
	result.AuditData = auditMetadata(data, requestType, student, &route, allPresent)
	s.notifyEscalation(ctx, student, requestType, data, route)
	s.recordDecision(ctx, requestType, student, result)
	return result
}

func (s *AutoApprovalService) systemErrorResult(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student, cause error) models.AutoApprovalResult {
	route := models.EscalationRoute{StaffRole: models.StaffRoleWarden, Priority: models.PriorityMedium, Reason: models.EscalationSystemError}
	result := models.AutoApprovalResult{
		DecisionType:     models.DecisionEscalated,
		Reasoning:        fmt.Sprintf("System error during evaluation, escalating for manual review: %v", cause),
		Confidence:       0,
		RulesApplied:     []string{"system_error_escalation"},
		EscalationReason: models.EscalationSystemError,
		EscalationRoute:  &route,
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("failed to finalise system error result", zap.Any("panic", r))
			}
		}()
		result.AuditData = auditMetadata(data, requestType, student, &route, false)
		s.recordDecision(ctx, requestType, student, result)
		s.notifyEscalation(ctx, student, requestType, data, route)
	}()
	return result
}

func (s *AutoApprovalService) notifyEscalation(ctx context.Context, student *models.Student, requestType models.RequestType, data models.RequestData, route models.EscalationRoute) {
	if s.metrics != nil {
		s.metrics.RecordEscalation(route.StaffRole, route.Reason)
	}
	if s.notifier == nil {
		return
	}
	report, err := s.notifier.SendEscalationAlert(ctx, student, requestType, data, route)
	if err != nil {
		s.logger.Warn("failed to notify staff of escalation",
			zap.String("request_type", string(requestType)),
			zap.String("staff_role", string(route.StaffRole)),
			zap.Error(err))
		return
	}
	if report != nil && len(report.Failed) > 0 {
		s.logger.Warn("escalation alert not delivered to every recipient", zap.Strings("failed", report.Failed))
	}
}

func (s *AutoApprovalService) recordDecision(ctx context.Context, requestType models.RequestType, student *models.Student, result models.AutoApprovalResult) {
	if s.metrics != nil {
		s.metrics.RecordDecision(requestType, result.DecisionType)
	}
	action := models.AuditActionEscalation
	switch result.DecisionType {
	case models.DecisionAutoApproved:
		action = models.AuditActionAutoApproval
	case models.DecisionRejected:
		action = models.AuditActionRejection
	}
	log := &models.AuditLog{
		ActionType:      action,
		EntityType:      string(requestType),
		Decision:        string(result.DecisionType),
		Reasoning:       result.Reasoning,
		ConfidenceScore: result.Confidence,
		RulesApplied:    marshalJSON(result.RulesApplied, "[]"),
		UserType:        models.AuditUserSystem,
		Metadata:        marshalJSON(result.AuditData, "{}"),
	}
	if student != nil {
		log.UserID = optionalString(student.ID)
	}
	s.emitAudit(ctx, log)
}

func (s *AutoApprovalService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", log.ActionType), zap.Error(err))
	}
}

// CreateGuestRecord persists a guest visit. Approved results are stored as
// approved, escalated ones as pending staff review. Dates were validated before
// the decision, so a parse failure here is reported as an internal error.
func (s *AutoApprovalService) CreateGuestRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.GuestRequest, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is required")
	}
	if s.stores.Guests == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "guest store not configured")
	}
	start, err := parseDate(data["start_date"], s.engine.Location())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid guest start date")
	}
	end, err := parseDate(data["end_date"], s.engine.Location())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid guest end date")
	}
	if start == nil {
		now := s.engine.Now()
		start = &now
	}
	if end == nil {
		e := start.Add(defaultGuestVisit)
		end = &e
	}

	guest := &models.GuestRequest{
		StudentID:      student.ID,
		GuestName:      stringField(data, "guest_name"),
		GuestPhone:     stringField(data, "guest_phone"),
		StartDate:      *start,
		EndDate:        *end,
		Purpose:        stringField(data, "purpose"),
		Status:         recordStatus(result, models.RequestStatusApproved),
		AutoApproved:   result.Approved,
		ApprovalReason: result.Reasoning,
	}
	if err := s.stores.Guests.Create(ctx, guest); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create guest record")
	}
	s.emitAudit(ctx, s.recordAudit(models.AuditActionGuestRecordCreate, models.RequestTypeGuest, guest.ID, student, result, data))
	return guest, nil
}

// CreateLeaveRecord persists a leave request. Both dates are required.
func (s *AutoApprovalService) CreateLeaveRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.AbsenceRecord, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is required")
	}
	if s.stores.Absences == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "absence store not configured")
	}
	start, err := parseDate(data["start_date"], s.engine.Location())
	if err != nil || start == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leave start date is required")
	}
	end, err := parseDate(data["end_date"], s.engine.Location())
	if err != nil || end == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leave end date is required")
	}

	record := &models.AbsenceRecord{
		StudentID:      student.ID,
		StartDate:      *start,
		EndDate:        *end,
		Reason:         stringField(data, "reason"),
		EmergencyPhone: stringField(data, "emergency_contact"),
		Status:         recordStatus(result, models.RequestStatusApproved),
		AutoApproved:   result.Approved,
		ApprovalReason: result.Reasoning,
	}
	if err := s.stores.Absences.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave record")
	}
	s.emitAudit(ctx, s.recordAudit(models.AuditActionLeaveRecordCreate, models.RequestTypeLeave, record.ID, student, result, data))
	return record, nil
}

// CreateCleaningRecord books a room cleaning, defaulting to the student's room.
func (s *AutoApprovalService) CreateCleaningRecord(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.CleaningRequest, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is required")
	}
	if s.stores.Cleaning == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "cleaning store not configured")
	}
	req, err := newApprovalRequest(models.RequestTypeCleaning, data, s.engine.Location())
	if err != nil {
		return nil, err
	}
	cleaning := req.(cleaningRequest)
	room := cleaning.RoomNumber
	if room == "" {
		room = student.RoomNumber
	}

	record := &models.CleaningRequest{
		StudentID:      student.ID,
		RoomNumber:     room,
		CleaningType:   cleaning.CleaningType,
		PreferredTime:  cleaning.PreferredTime,
		Notes:          cleaning.Notes,
		Status:         recordStatus(result, models.RequestStatusApproved),
		AutoApproved:   result.Approved,
		ApprovalReason: result.Reasoning,
	}
	if err := s.stores.Cleaning.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cleaning record")
	}
	s.emitAudit(ctx, s.recordAudit(models.AuditActionCleaningCreate, models.RequestTypeCleaning, record.ID, student, result, data))
	return record, nil
}

// ScheduleMaintenance creates the work order for a maintenance request.
// Emergencies are scheduled immediately with urgent priority, everything else
// for the next day. Orders that were not auto-approved stay pending with the
// priority of their escalation route.
func (s *AutoApprovalService) ScheduleMaintenance(ctx context.Context, data models.RequestData, student *models.Student, result models.AutoApprovalResult) (*models.MaintenanceWorkOrder, error) {
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is required")
	}
	if s.stores.WorkOrders == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "work order store not configured")
	}
	req, err := newApprovalRequest(models.RequestTypeMaintenance, data, s.engine.Location())
	if err != nil {
		return nil, err
	}
	maintenance := req.(maintenanceRequest)

	now := s.engine.Now()
	scheduled := now.Add(24 * time.Hour)
	priority := models.PriorityMedium
	if maintenance.Urgency == "emergency" {
		scheduled = now
		priority = models.PriorityUrgent
	} else if !result.Approved && result.EscalationRoute != nil {
		priority = result.EscalationRoute.Priority
	}
	room := student.RoomNumber
	if room == "" {
		room = maintenance.Location
	}

	order := &models.MaintenanceWorkOrder{
		WorkOrderID:   fmt.Sprintf("WO-%s-%s", now.Format("20060102"), student.StudentNumber),
		StudentID:     student.ID,
		RoomNumber:    room,
		IssueType:     maintenance.IssueType,
		Description:   maintenance.Description,
		Urgency:       maintenance.Urgency,
		Priority:      priority,
		ScheduledDate: scheduled,
		Status:        recordStatus(result, models.RequestStatusScheduled),
		AutoScheduled: result.Approved,
		CreatedAt:     now,
	}
	if err := s.stores.WorkOrders.Create(ctx, order); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule maintenance")
	}
	s.emitAudit(ctx, s.recordAudit(models.AuditActionMaintenance, models.RequestTypeMaintenance, order.WorkOrderID, student, result, data))
	return order, nil
}

func (s *AutoApprovalService) recordAudit(action string, requestType models.RequestType, entityID string, student *models.Student, result models.AutoApprovalResult, data models.RequestData) *models.AuditLog {
	log := &models.AuditLog{
		ActionType:      action,
		EntityType:      string(requestType),
		EntityID:        optionalString(entityID),
		Decision:        string(result.DecisionType),
		Reasoning:       result.Reasoning,
		ConfidenceScore: result.Confidence,
		RulesApplied:    marshalJSON(result.RulesApplied, "[]"),
		UserType:        models.AuditUserSystem,
		Metadata:        marshalJSON(map[string]interface{}{"request_data": data}, "{}"),
	}
	if student != nil {
		log.UserID = optionalString(student.ID)
	}
	return log
}

// recordStatus is the initial status of a persisted request: approvedStatus
// when the pipeline approved it, pending otherwise.
func recordStatus(result models.AutoApprovalResult, approvedStatus models.RequestStatus) models.RequestStatus {
	if result.Approved {
		return approvedStatus
	}
	return models.RequestStatusPending
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func auditMetadata(data models.RequestData, requestType models.RequestType, student *models.Student, route *models.EscalationRoute, allPresent bool) map[string]interface{} {
	meta := map[string]interface{}{
		"request_type":       string(requestType),
		"request_data":       data,
		"all_fields_present": allPresent,
	}
	if student != nil {
		meta["student_id"] = student.StudentNumber
	}
	if route != nil {
		meta["escalation_route"] = route
	}
	return meta
}

// marshalJSON encodes value for a JSONB column, using fallback when value
// cannot be encoded.
func marshalJSON(value interface{}, fallback string) []byte {
	if value == nil {
		return []byte(fallback)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return []byte(fallback)
	}
	return raw
}
