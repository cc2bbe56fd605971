package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	"github.com/noah-isme/hostel-ops-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (s *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return s.err
}

type escalationNotifierStub struct {
	routes []models.EscalationRoute
	err    error
	panics bool
}

func (s *escalationNotifierStub) SendEscalationAlert(ctx context.Context, student *models.Student, requestType models.RequestType, data models.RequestData, route models.EscalationRoute) (*models.DeliveryReport, error) {
	if s.panics {
		panic("notifier exploded")
	}
	s.routes = append(s.routes, route)
	if s.err != nil {
		return nil, s.err
	}
	return &models.DeliveryReport{Recipients: 1, Delivered: 1}, nil
}

type decisionMetricsStub struct {
	decisions   map[models.DecisionType]int
	escalations map[models.StaffRole]int
}

func newDecisionMetricsStub() *decisionMetricsStub {
	return &decisionMetricsStub{decisions: map[models.DecisionType]int{}, escalations: map[models.StaffRole]int{}}
}

func (s *decisionMetricsStub) RecordDecision(requestType models.RequestType, decision models.DecisionType) {
	s.decisions[decision]++
}

func (s *decisionMetricsStub) RecordEscalation(role models.StaffRole, reason models.EscalationReason) {
	s.escalations[role]++
}

type guestStoreStub struct {
	created []*models.GuestRequest
	err     error
}

func (s *guestStoreStub) Create(ctx context.Context, guest *models.GuestRequest) error {
	if s.err != nil {
		return s.err
	}
	guest.ID = "guest-1"
	s.created = append(s.created, guest)
	return nil
}

type absenceStoreStub struct {
	created []*models.AbsenceRecord
}

func (s *absenceStoreStub) Create(ctx context.Context, record *models.AbsenceRecord) error {
	record.ID = "leave-1"
	s.created = append(s.created, record)
	return nil
}

type workOrderStoreStub struct {
	created []*models.MaintenanceWorkOrder
}

func (s *workOrderStoreStub) Create(ctx context.Context, order *models.MaintenanceWorkOrder) error {
	s.created = append(s.created, order)
	return nil
}

type cleaningStoreStub struct {
	created []*models.CleaningRequest
}

func (s *cleaningStoreStub) Create(ctx context.Context, request *models.CleaningRequest) error {
	request.ID = "clean-1"
	s.created = append(s.created, request)
	return nil
}

type approvalFixture struct {
	svc      *AutoApprovalService
	audit    *auditStub
	notifier *escalationNotifierStub
	metrics  *decisionMetricsStub
	guests   *guestStoreStub
	absences *absenceStoreStub
	orders   *workOrderStoreStub
	cleaning *cleaningStoreStub
}

func newApprovalFixture(cfg config.ApprovalConfig, conflicts guestConflictChecker) *approvalFixture {
	f := &approvalFixture{
		audit:    &auditStub{},
		notifier: &escalationNotifierStub{},
		metrics:  newDecisionMetricsStub(),
		guests:   &guestStoreStub{},
		absences: &absenceStoreStub{},
		orders:   &workOrderStoreStub{},
		cleaning: &cleaningStoreStub{},
	}
	f.svc = NewAutoApprovalService(newTestRuleEngine(conflicts), ApprovalRecordStores{
		Guests:     f.guests,
		Absences:   f.absences,
		WorkOrders: f.orders,
		Cleaning:   f.cleaning,
	}, f.audit, cfg, nil, WithEscalationNotifier(f.notifier), WithDecisionMetrics(f.metrics))
	return f
}

func enabledApproval() config.ApprovalConfig {
	return config.ApprovalConfig{AutoApprovalEnabled: true, MinConfidenceThreshold: 0.8}
}

func TestEvaluateRequestAutoApprovesGuest(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), &conflictStub{})

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{
		"guest_name": "Alice",
		"start_date": iso(ruleNow.Add(30 * time.Hour)),
		"end_date":   iso(ruleNow.Add(34 * time.Hour)),
	}, models.RequestTypeGuest, cleanStudent())

	assert.True(t, result.Approved)
	assert.Equal(t, models.DecisionAutoApproved, result.DecisionType)
	assert.True(t, result.AllFieldsPresent)
	assert.Nil(t, result.EscalationRoute)
	assert.Empty(t, f.notifier.routes)

	require.Len(t, f.audit.logs, 1)
	log := f.audit.logs[0]
	assert.Equal(t, models.AuditActionAutoApproval, log.ActionType)
	assert.Equal(t, "auto_approved", log.Decision)
	assert.Equal(t, string(models.RequestTypeGuest), log.EntityType)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "stu-1", *log.UserID)
	assert.JSONEq(t, `["guest_request_validation","guest_auto_approval"]`, string(log.RulesApplied))
	assert.Equal(t, 1, f.metrics.decisions[models.DecisionAutoApproved])
}

func TestEvaluateRequestLowConfidenceWithCompleteDataPassesGate(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), &conflictStub{overlap: true})

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{
		"guest_name": "Bob",
		"start_date": iso(ruleNow.Add(-2 * time.Hour)),
		"end_date":   iso(ruleNow.Add(72 * time.Hour)),
	}, models.RequestTypeGuest, violatingStudent())

	assert.Equal(t, 0.5, result.Confidence)
	assert.True(t, result.AllFieldsPresent)
	assert.Equal(t, models.DecisionRejected, result.DecisionType)
	assert.Empty(t, result.EscalationReason)
	assert.Contains(t, result.Reasoning, "already have an approved guest visit")
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionRejection, f.audit.logs[0].ActionType)
}

func TestEvaluateRequestLowConfidenceWithMissingDataEscalates(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{"guest_name": "Carol"}, models.RequestTypeGuest, cleanStudent())

	assert.False(t, result.Approved)
	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Equal(t, models.EscalationInsufficientInformation, result.EscalationReason)
	assert.Contains(t, result.Reasoning, "below the 0.80 threshold")
	require.NotNil(t, result.EscalationRoute)
	assert.Equal(t, models.StaffRoleWarden, result.EscalationRoute.StaffRole)
	assert.Len(t, f.notifier.routes, 1)
}

func TestEvaluateRequestDisabledForcesManualReview(t *testing.T) {
	f := newApprovalFixture(config.ApprovalConfig{AutoApprovalEnabled: false}, nil)

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{
		"issue_type":          "plumbing",
		"problem_description": "leaking tap",
		"location":            "B-204",
	}, models.RequestTypeMaintenance, cleanStudent())

	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Equal(t, models.EscalationManualReviewRequired, result.EscalationReason)
	require.NotNil(t, result.EscalationRoute)
	assert.Equal(t, models.StaffRoleMaintenance, result.EscalationRoute.StaffRole)
	assert.Equal(t, models.PriorityMedium, result.EscalationRoute.Priority)
	assert.Equal(t, 1, f.metrics.escalations[models.StaffRoleMaintenance])
}

func TestEvaluateRequestEscalatedDecisionIsComplexRequest(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{
		"issue_type":          "structural",
		"complexity":          "complex",
		"problem_description": "crack in wall",
		"location":            "B-204",
	}, models.RequestTypeMaintenance, cleanStudent())

	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Equal(t, models.EscalationComplexRequest, result.EscalationReason)
	require.NotNil(t, result.EscalationRoute)
	assert.Equal(t, models.PriorityHigh, result.EscalationRoute.Priority)

	require.Len(t, f.audit.logs, 1)
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(f.audit.logs[0].Metadata, &meta))
	assert.Contains(t, meta, "request_data")
	assert.Contains(t, meta, "escalation_route")
}

func TestWithoutAlertsSkipsStaffNotification(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	data := models.RequestData{
		"issue_type":          "structural",
		"complexity":          "complex",
		"problem_description": "crack in wall",
		"location":            "B-204",
	}

	result := f.svc.WithoutAlerts().EvaluateRequest(context.Background(), data, models.RequestTypeMaintenance, cleanStudent())
	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Empty(t, f.notifier.routes)
	assert.Len(t, f.audit.logs, 1)

	f.svc.EvaluateRequest(context.Background(), data, models.RequestTypeMaintenance, cleanStudent())
	assert.Len(t, f.notifier.routes, 1)
}

func TestEvaluateRequestSideEffectFailuresDoNotChangeDecision(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	f.audit.err = errors.New("audit down")
	f.notifier.err = errors.New("smtp down")

	result := f.svc.EvaluateRequest(context.Background(), models.RequestData{
		"room_number":   "B-204",
		"cleaning_type": "deep",
	}, models.RequestTypeCleaning, cleanStudent())

	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Equal(t, models.EscalationComplexRequest, result.EscalationReason)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Len(t, f.audit.logs, 1)
}

func TestEvaluateRequestRecoversFromPanics(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	f.notifier.panics = true

	var result models.AutoApprovalResult
	require.NotPanics(t, func() {
		result = f.svc.EvaluateRequest(context.Background(), models.RequestData{}, models.RequestTypeLeave, cleanStudent())
	})

	assert.Equal(t, models.DecisionEscalated, result.DecisionType)
	assert.Equal(t, models.EscalationSystemError, result.EscalationReason)
	assert.Zero(t, result.Confidence)
	require.NotNil(t, result.EscalationRoute)
	assert.Equal(t, models.StaffRoleWarden, result.EscalationRoute.StaffRole)
}

func TestGetEscalationRoute(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	cases := []struct {
		name        string
		requestType models.RequestType
		reason      models.EscalationReason
		data        models.RequestData
		role        models.StaffRole
		priority    models.Priority
	}{
		{"guest default", models.RequestTypeGuest, models.EscalationComplexRequest, models.RequestData{}, models.StaffRoleWarden, models.PriorityMedium},
		{"guest violations win over emergency", models.RequestTypeGuest, models.EscalationStudentViolations, models.RequestData{"urgency": "emergency"}, models.StaffRoleWarden, models.PriorityHigh},
		{"guest emergency", models.RequestTypeGuest, models.EscalationComplexRequest, models.RequestData{"urgency": "emergency"}, models.StaffRoleSecurity, models.PriorityUrgent},
		{"leave extended", models.RequestTypeLeave, models.EscalationComplexRequest, models.RequestData{"duration_days": "9"}, models.StaffRoleAdmin, models.PriorityHigh},
		{"leave extended from dates", models.RequestTypeLeave, models.EscalationComplexRequest, models.RequestData{"start_date": "2026-03-10", "end_date": "2026-03-20"}, models.StaffRoleAdmin, models.PriorityHigh},
		{"leave week", models.RequestTypeLeave, models.EscalationComplexRequest, models.RequestData{"duration_days": 7}, models.StaffRoleWarden, models.PriorityMedium},
		{"maintenance complex", models.RequestTypeMaintenance, models.EscalationComplexRequest, models.RequestData{"complexity": "complex"}, models.StaffRoleMaintenance, models.PriorityHigh},
		{"maintenance violations falls back to default", models.RequestTypeMaintenance, models.EscalationStudentViolations, models.RequestData{}, models.StaffRoleMaintenance, models.PriorityMedium},
		{"cleaning special", models.RequestTypeCleaning, models.EscalationComplexRequest, models.RequestData{"cleaning_type": "deep"}, models.StaffRoleMaintenance, models.PriorityMedium},
		{"cleaning regular", models.RequestTypeCleaning, models.EscalationComplexRequest, models.RequestData{"cleaning_type": "regular"}, models.StaffRoleMaintenance, models.PriorityLow},
		{"unknown type", models.RequestType("parcel"), models.EscalationComplexRequest, models.RequestData{}, models.StaffRoleWarden, models.PriorityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			route := f.svc.GetEscalationRoute(tc.requestType, tc.reason, tc.data)
			assert.Equal(t, tc.role, route.StaffRole)
			assert.Equal(t, tc.priority, route.Priority)
			assert.Equal(t, tc.reason, route.Reason)
		})
	}
}

func TestCreateGuestRecord(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	data := models.RequestData{
		"guest_name":  "Alice",
		"guest_phone": "+15550100",
		"purpose":     "study group",
		"start_date":  "2026-03-03T14:00:00",
		"end_date":    "2026-03-03T18:00:00",
	}
	result := models.AutoApprovalResult{Approved: true, DecisionType: models.DecisionAutoApproved, Reasoning: "ok", Confidence: 0.9}

	guest, err := f.svc.CreateGuestRecord(context.Background(), data, cleanStudent(), result)
	require.NoError(t, err)

	assert.Equal(t, "stu-1", guest.StudentID)
	assert.Equal(t, "Alice", guest.GuestName)
	assert.Equal(t, models.RequestStatusApproved, guest.Status)
	assert.True(t, guest.AutoApproved)
	assert.Equal(t, "ok", guest.ApprovalReason)
	assert.Equal(t, time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC), guest.StartDate)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionGuestRecordCreate, f.audit.logs[0].ActionType)
	require.NotNil(t, f.audit.logs[0].EntityID)
	assert.Equal(t, "guest-1", *f.audit.logs[0].EntityID)
}

func TestCreateGuestRecordRejectsUnparseableDates(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)

	_, err := f.svc.CreateGuestRecord(context.Background(), models.RequestData{"guest_name": "A", "start_date": "soonish"}, cleanStudent(), models.AutoApprovalResult{})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Empty(t, f.guests.created)
}

func TestCreateLeaveAndCleaningRecords(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	result := models.AutoApprovalResult{Approved: true, DecisionType: models.DecisionAutoApproved}

	leave, err := f.svc.CreateLeaveRecord(context.Background(), models.RequestData{
		"start_date":        "2026-03-06",
		"end_date":          "2026-03-08",
		"reason":            "family",
		"emergency_contact": "+15550111",
	}, cleanStudent(), result)
	require.NoError(t, err)
	assert.Equal(t, "+15550111", leave.EmergencyPhone)
	assert.Equal(t, models.RequestStatusApproved, leave.Status)

	_, err = f.svc.CreateLeaveRecord(context.Background(), models.RequestData{"reason": "family"}, cleanStudent(), result)
	require.Error(t, err)

	cleaning, err := f.svc.CreateCleaningRecord(context.Background(), models.RequestData{"cleaning_type": "Weekly"}, cleanStudent(), result)
	require.NoError(t, err)
	assert.Equal(t, "B-204", cleaning.RoomNumber)
	assert.Equal(t, "weekly", cleaning.CleaningType)
	assert.Len(t, f.audit.logs, 2)
}

func TestScheduleMaintenance(t *testing.T) {
	f := newApprovalFixture(enabledApproval(), nil)
	result := models.AutoApprovalResult{Approved: true, DecisionType: models.DecisionAutoApproved}

	routine, err := f.svc.ScheduleMaintenance(context.Background(), models.RequestData{
		"issue_type":          "Plumbing",
		"problem_description": "leaking tap",
		"urgency":             "normal",
	}, cleanStudent(), result)
	require.NoError(t, err)
	assert.Equal(t, "WO-20260302-S1001", routine.WorkOrderID)
	assert.Equal(t, models.PriorityMedium, routine.Priority)
	assert.Equal(t, ruleNow.Add(24*time.Hour), routine.ScheduledDate)
	assert.Equal(t, models.RequestStatusScheduled, routine.Status)
	assert.True(t, routine.AutoScheduled)
	assert.Equal(t, "plumbing", routine.IssueType)

	emergency, err := f.svc.ScheduleMaintenance(context.Background(), models.RequestData{
		"issue_type": "gas_leak",
		"urgency":    "emergency",
	}, cleanStudent(), result)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, emergency.Priority)
	assert.Equal(t, ruleNow, emergency.ScheduledDate)

	require.Len(t, f.audit.logs, 2)
	assert.Equal(t, "WO-20260302-S1001", *f.audit.logs[0].EntityID)
}
