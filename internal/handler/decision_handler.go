package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-ops-api/internal/dto"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
	"github.com/noah-isme/hostel-ops-api/pkg/response"
)

type requestEvaluator interface {
	EvaluateRequest(ctx context.Context, data models.RequestData, requestType models.RequestType, student *models.Student) models.AutoApprovalResult
	GetEscalationRoute(requestType models.RequestType, reason models.EscalationReason, data models.RequestData) models.EscalationRoute
}

type studentLookup interface {
	Get(ctx context.Context, id string) (*models.Student, error)
}

type ruleExplainer interface {
	ExplainRule(query string, requestContext map[string]string) models.RuleExplanation
}

// DecisionHandler exposes the rule engine and auto-approval engine directly.
type DecisionHandler struct {
	evaluator requestEvaluator
	students  studentLookup
	rules     ruleExplainer
}

// NewDecisionHandler constructs the handler.
func NewDecisionHandler(evaluator requestEvaluator, students studentLookup, rules ruleExplainer) *DecisionHandler {
	return &DecisionHandler{evaluator: evaluator, students: students, rules: rules}
}

// Evaluate godoc
// @Summary Evaluate a structured request
// @Description Runs the auto-approval engine and audits the decision. No record is created and staff are not alerted.
// @Tags Decisions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EvaluateRequest true "Request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/evaluate [post]
func (h *DecisionHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluation payload"))
		return
	}
	if !req.RequestType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrUnknownRequestType, "Unknown request type: "+string(req.RequestType)))
		return
	}
	studentID, err := actingStudentID(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	result := h.evaluator.EvaluateRequest(c.Request.Context(), req.RequestData, req.RequestType, student)
	response.JSON(c, http.StatusOK, result, nil)
}

// EscalationRoute godoc
// @Summary Resolve an escalation route
// @Tags Decisions
// @Produce json
// @Security BearerAuth
// @Param request_type query string true "Request type"
// @Param reason query string false "Escalation reason"
// @Param urgency query string false "Urgency"
// @Param complexity query string false "Maintenance complexity"
// @Param cleaning_type query string false "Cleaning type"
// @Param duration_days query int false "Leave duration in days"
// @Success 200 {object} response.Envelope
// @Router /requests/escalation-route [get]
func (h *DecisionHandler) EscalationRoute(c *gin.Context) {
	var query dto.EscalationRouteQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid escalation route query"))
		return
	}
	reason := models.EscalationReason(strings.TrimSpace(query.Reason))
	if reason == "" {
		reason = models.EscalationManualReviewRequired
	}
	route := h.evaluator.GetEscalationRoute(models.RequestType(query.RequestType), reason, query.RequestData())
	response.JSON(c, http.StatusOK, route, nil)
}

// ExplainRule godoc
// @Summary Explain hostel policy
// @Tags Decisions
// @Produce json
// @Security BearerAuth
// @Param q query string true "Question"
// @Param request_type query string false "Request type hint"
// @Success 200 {object} response.Envelope
// @Router /rules/explain [get]
func (h *DecisionHandler) ExplainRule(c *gin.Context) {
	var query dto.RuleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "q is required"))
		return
	}
	hints := map[string]string{}
	if query.RequestType != "" {
		hints["request_type"] = query.RequestType
	}
	response.JSON(c, http.StatusOK, h.rules.ExplainRule(query.Query, hints), nil)
}
