package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-ops-api/internal/dto"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/response"
)

type requestReviewer interface {
	Queue(ctx context.Context, filter models.RequestFilter) ([]models.RequestSummary, *models.Pagination, error)
	List(ctx context.Context, requestType models.RequestType, filter models.RequestFilter) (interface{}, *models.Pagination, error)
	Review(ctx context.Context, requestType models.RequestType, id string, decision models.ReviewDecision, reviewer models.JWTClaims) (*models.ReviewOutcome, error)
}

// RequestHandler serves the staff review queue.
type RequestHandler struct {
	service requestReviewer
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestReviewer) *RequestHandler {
	return &RequestHandler{service: service}
}

func bindRequestQuery(c *gin.Context) (models.RequestFilter, bool) {
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return models.RequestFilter{}, false
	}
	filter := query.Filter()
	switch filter.Status {
	case "", models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected, models.RequestStatusScheduled:
		return filter, true
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(filter.Status)))
		return filter, false
	}
}

// Queue godoc
// @Summary List requests of every type
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved, rejected or scheduled"
// @Param student_id query string false "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) Queue(c *gin.Context) {
	filter, ok := bindRequestQuery(c)
	if !ok {
		return
	}
	items, pagination, err := h.service.Queue(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// List godoc
// @Summary List requests of one type
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param type path string true "guest_request, leave_request, maintenance_request or cleaning_request"
// @Param status query string false "Status"
// @Param student_id query string false "Student ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{type} [get]
func (h *RequestHandler) List(c *gin.Context) {
	requestType, err := requestTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter, ok := bindRequestQuery(c)
	if !ok {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), requestType, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Review godoc
// @Summary Approve or reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "Request type"
// @Param id path string true "Request ID"
// @Param payload body models.ReviewDecision true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{type}/{id}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requestType, err := requestTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var decision models.ReviewDecision
	if err := c.ShouldBindJSON(&decision); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	outcome, err := h.service.Review(c.Request.Context(), requestType, c.Param("id"), decision, *claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
