package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-ops-api/internal/middleware"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actingStudentID resolves whose request is being handled. Students always act
// for themselves; staff must name the student.
func actingStudentID(c *gin.Context, requested string) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	requested = strings.TrimSpace(requested)
	if claims.Role == models.RoleStudent {
		if requested != "" && requested != claims.StudentID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "students may only act for themselves")
		}
		return claims.StudentID, nil
	}
	if requested == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	return requested, nil
}

func requestTypeParam(c *gin.Context) (models.RequestType, error) {
	requestType := models.RequestType(strings.TrimSpace(c.Param("type")))
	if !requestType.Valid() {
		return "", appErrors.Clone(appErrors.ErrUnknownRequestType, "Unknown request type: "+string(requestType))
	}
	return requestType, nil
}
