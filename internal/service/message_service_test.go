package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/llm"
)

type studentLoaderStub struct {
	student *models.Student
	err     error
}

func (s *studentLoaderStub) Get(ctx context.Context, id string) (*models.Student, error) {
	return s.student, s.err
}

type extractorStub struct {
	result *llm.Result
	err    error
}

func (s *extractorStub) Extract(ctx context.Context, text string) (*llm.Result, error) {
	return s.result, s.err
}

type confirmationStub struct {
	subjects []string
	messages []string
}

func (s *confirmationStub) SendConfirmation(ctx context.Context, student *models.Student, subject, message string) (*models.DeliveryReport, error) {
	s.subjects = append(s.subjects, subject)
	s.messages = append(s.messages, message)
	return &models.DeliveryReport{Recipients: 1, Delivered: 1}, nil
}

type messageFixture struct {
	*approvalFixture
	svc     *MessageService
	confirm *confirmationStub
}

func newMessageFixture(student *models.Student, extractor entityExtractor) *messageFixture {
	approvals := newApprovalFixture(enabledApproval(), &conflictStub{})
	confirm := &confirmationStub{}
	return &messageFixture{
		approvalFixture: approvals,
		confirm:         confirm,
		svc:             NewMessageService(&studentLoaderStub{student: student}, extractor, approvals.svc, approvals.svc.Engine(), confirm, nil),
	}
}

func TestProcessKeywordCleaningIsBooked(t *testing.T) {
	f := newMessageFixture(cleanStudent(), nil)

	reply, err := f.svc.Process(context.Background(), "stu-1", "Could someone clean my room tomorrow?")
	require.NoError(t, err)

	assert.Equal(t, models.IntentRoomCleaning, reply.Intent)
	assert.Equal(t, "clean-1", reply.RecordID)
	assert.Equal(t, "Regular cleaning for room B-204 is booked.", reply.Reply)
	require.Len(t, f.cleaning.created, 1)
	assert.Equal(t, models.RequestStatusApproved, f.cleaning.created[0].Status)
	assert.Equal(t, []string{"Cleaning request approved"}, f.confirm.subjects)
}

func TestProcessLLMGuestIsRegistered(t *testing.T) {
	extractor := &extractorStub{result: &llm.Result{
		Intent: "guest_request",
		Entities: map[string]interface{}{
			"guest_name": "Alice",
			"start_date": iso(ruleNow.Add(48 * time.Hour)),
			"end_date":   iso(ruleNow.Add(54 * time.Hour)),
		},
		Confidence: 0.95,
	}}
	f := newMessageFixture(cleanStudent(), extractor)

	reply, err := f.svc.Process(context.Background(), "stu-1", "My sister Alice visits on Wednesday afternoon")
	require.NoError(t, err)

	require.NotNil(t, reply.Decision)
	assert.True(t, reply.Decision.Approved)
	assert.Equal(t, "guest-1", reply.RecordID)
	assert.Contains(t, reply.Reply, "Your guest Alice is registered")
	require.Len(t, f.guests.created, 1)
	assert.True(t, f.guests.created[0].AutoApproved)
}

func TestProcessFallsBackWhenLLMFails(t *testing.T) {
	f := newMessageFixture(cleanStudent(), &extractorStub{err: errors.New("timeout")})

	reply, err := f.svc.Process(context.Background(), "stu-1", "What are the rules for guests?")
	require.NoError(t, err)

	assert.Equal(t, models.IntentRuleQuery, reply.Intent)
	require.NotNil(t, reply.Explanation)
	assert.Equal(t, "guest", reply.Explanation.Topic)
	assert.Equal(t, reply.Explanation.PolicyText, reply.Reply)
	assert.Nil(t, reply.Decision)
}

func TestProcessUnknownLLMIntentUsesKeywords(t *testing.T) {
	f := newMessageFixture(cleanStudent(), &extractorStub{result: &llm.Result{Intent: "complaint"}})

	reply, err := f.svc.Process(context.Background(), "stu-1", "hello there")
	require.NoError(t, err)

	assert.Equal(t, models.IntentGeneral, reply.Intent)
	assert.Contains(t, reply.Reply, "What do you need?")
}

func TestProcessComplexMaintenanceIsQueuedForReview(t *testing.T) {
	f := newMessageFixture(cleanStudent(), nil)

	reply, err := f.svc.Process(context.Background(), "stu-1", "The wardrobe door is broken")
	require.NoError(t, err)

	require.NotNil(t, reply.Decision)
	assert.Equal(t, models.DecisionEscalated, reply.Decision.DecisionType)
	assert.Equal(t, "Your maintenance request has been passed to the maintenance for review.", reply.Reply)
	require.Len(t, f.orders.created, 1)
	order := f.orders.created[0]
	assert.Equal(t, models.RequestStatusPending, order.Status)
	assert.False(t, order.AutoScheduled)
	assert.Equal(t, "B-204", order.RoomNumber)
	assert.Equal(t, "The wardrobe door is broken", order.Description)
	assert.Empty(t, f.confirm.subjects)
}

func TestProcessIncompleteGuestAsksForDetails(t *testing.T) {
	f := newMessageFixture(cleanStudent(), nil)

	reply, err := f.svc.Process(context.Background(), "stu-1", "my friend is coming over")
	require.NoError(t, err)

	assert.Equal(t, models.IntentGuestRequest, reply.Intent)
	assert.Contains(t, reply.Reply, "please send: guest name, start date, end date.")
	assert.Empty(t, reply.RecordID)
	assert.Empty(t, f.guests.created)
}

func TestProcessRejectedGuestExplainsWhy(t *testing.T) {
	extractor := &extractorStub{result: &llm.Result{
		Intent: "guest_request",
		Entities: map[string]interface{}{
			"guest_name": "Bob",
			"start_date": iso(ruleNow.Add(48 * time.Hour)),
			"end_date":   iso(ruleNow.Add(54 * time.Hour)),
		},
	}}
	f := newMessageFixture(violatingStudent(), extractor)

	reply, err := f.svc.Process(context.Background(), "stu-1", "Bob visits Wednesday")
	require.NoError(t, err)

	assert.Equal(t, models.DecisionRejected, reply.Decision.DecisionType)
	assert.Contains(t, reply.Reply, "could not be approved")
	assert.Contains(t, reply.Reply, "Guest privileges are on hold")
	assert.Empty(t, f.guests.created)
	assert.Equal(t, []string{"Guest request not approved"}, f.confirm.subjects)
}

func TestProcessValidation(t *testing.T) {
	f := newMessageFixture(cleanStudent(), nil)
	_, err := f.svc.Process(context.Background(), "stu-1", "   ")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	missing := NewMessageService(&studentLoaderStub{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}, nil, nil, nil, nil, nil)
	_, err = missing.Process(context.Background(), "ghost", "clean my room")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassifyIntentOrder(t *testing.T) {
	cases := map[string]models.Intent{
		"Is my friend allowed to stay over?":   models.IntentRuleQuery,
		"the AC is not working":                models.IntentMaintenanceRequest,
		"please tidy up room B-204":            models.IntentRoomCleaning,
		"I am going home for the weekend":      models.IntentLeaveRequest,
		"my parents want to visit on Saturday": models.IntentGuestRequest,
		"thanks!":                              models.IntentGeneral,
	}
	for text, want := range cases {
		got := ClassifyIntent(text)
		assert.Equal(t, want, got.Intent, text)
	}
	assert.Equal(t, 0.5, ClassifyIntent("guest").Confidence)
}
