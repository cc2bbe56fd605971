package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-ops-api/internal/dto"
	"github.com/noah-isme/hostel-ops-api/internal/middleware"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/response"
)

type messageProcessor interface {
	Process(ctx context.Context, studentID, text string) (*models.MessageReply, error)
}

// MessageHandler accepts free-text student messages.
type MessageHandler struct {
	service messageProcessor
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service messageProcessor) *MessageHandler {
	return &MessageHandler{service: service}
}

// Process godoc
// @Summary Process a student message
// @Description Classifies the message, evaluates any request it contains and returns the reply sent to the student
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Process(c *gin.Context) {
	var req dto.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	studentID, err := actingStudentID(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	reply, err := h.service.Process(c.Request.Context(), studentID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}
	if reply.Decision != nil {
		middleware.SetMeta(c, "decision", reply.Decision.DecisionType)
	}
	response.JSON(c, http.StatusOK, reply, nil, middleware.ResponseMeta(c))
}
