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

type auditQueryService interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error)
	Export(ctx context.Context, filter models.AuditLogFilter, format models.ExportFormat) (*models.AuditExport, error)
}

// AuditHandler exposes the decision audit trail.
type AuditHandler struct {
	service auditQueryService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditQueryService) *AuditHandler {
	return &AuditHandler{service: service}
}

func bindAuditQuery(c *gin.Context) (dto.AuditQuery, models.AuditLogFilter, bool) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return query, models.AuditLogFilter{}, false
	}
	filter, err := query.Filter()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "dates must be RFC3339 or YYYY-MM-DD"))
		return query, filter, false
	}
	return query, filter, true
}

// List godoc
// @Summary List decision audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param action_type query string false "Action type"
// @Param entity_type query string false "Entity type"
// @Param decision query string false "Decision"
// @Param user_id query string false "User ID"
// @Param date_from query string false "From (RFC3339 or YYYY-MM-DD)"
// @Param date_to query string false "To (RFC3339 or YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit/decisions [get]
func (h *AuditHandler) List(c *gin.Context) {
	_, filter, ok := bindAuditQuery(c)
	if !ok {
		return
	}
	logs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Export godoc
// @Summary Export decision audit logs
// @Tags Audit
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param date_from query string false "From"
// @Param date_to query string false "To"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /audit/decisions/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	query, filter, ok := bindAuditQuery(c)
	if !ok {
		return
	}
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(query.Format)))
	if format == "" {
		format = models.ExportFormatCSV
	}
	out, err := h.service.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Data)
}
