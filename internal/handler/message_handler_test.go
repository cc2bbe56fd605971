package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-ops-api/internal/models"
)

type messageStub struct {
	studentID string
	text      string
}

func (s *messageStub) Process(ctx context.Context, studentID, text string) (*models.MessageReply, error) {
	s.studentID = studentID
	s.text = text
	return &models.MessageReply{
		Intent:   models.IntentRoomCleaning,
		Reply:    "Regular cleaning for room B-204 is booked.",
		Decision: &models.AutoApprovalResult{Approved: true, DecisionType: models.DecisionAutoApproved},
	}, nil
}

func TestMessageHandlerStudentActsForSelf(t *testing.T) {
	svc := &messageStub{}
	r := newTestRouter(studentClaims, http.MethodPost, "/messages", NewMessageHandler(svc).Process)

	rec := do(r, http.MethodPost, "/messages", map[string]string{"text": "clean my room"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", svc.studentID)
	env := decode(t, rec)
	assert.Equal(t, "auto_approved", env.Meta["decision"])
	assert.Contains(t, env.Meta, "processing_time_ms")

	rec = do(r, http.MethodPost, "/messages", map[string]string{"text": "clean", "student_id": "stu-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMessageHandlerStaffMustNameStudent(t *testing.T) {
	svc := &messageStub{}
	r := newTestRouter(wardenClaims, http.MethodPost, "/messages", NewMessageHandler(svc).Process)

	rec := do(r, http.MethodPost, "/messages", map[string]string{"text": "clean my room"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)

	rec = do(r, http.MethodPost, "/messages", map[string]string{"text": "clean my room", "student_id": "stu-9"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-9", svc.studentID)

	rec = do(r, http.MethodPost, "/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
