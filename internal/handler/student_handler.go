package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-ops-api/internal/dto"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/response"
)

type studentRecords interface {
	Get(ctx context.Context, id string) (*models.Student, error)
	RecordViolation(ctx context.Context, id string, at time.Time) error
}

// StudentHandler lets staff inspect residents and record violations.
type StudentHandler struct {
	service studentRecords
	now     func() time.Time
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service studentRecords) *StudentHandler {
	return &StudentHandler{service: service, now: func() time.Time { return time.Now().UTC() }}
}

// Get godoc
// @Summary Get a student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RecordViolation godoc
// @Summary Record a policy violation
// @Description Counts against guest eligibility for 30 days
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body dto.ViolationRequest false "Violation"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/violations [post]
func (h *StudentHandler) RecordViolation(c *gin.Context) {
	var req dto.ViolationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid violation payload"))
			return
		}
	}
	at := h.now()
	if req.OccurredAt != nil {
		if req.OccurredAt.After(at) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "occurred_at cannot be in the future"))
			return
		}
		at = req.OccurredAt.UTC()
	}

	id := c.Param("id")
	if err := h.service.RecordViolation(c.Request.Context(), id, at); err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
