package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-ops-api/internal/models"
	appErrors "github.com/noah-isme/hostel-ops-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func newRouter(role models.UserRole, observer RequestObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(observer))
	protected := r.Group("/", JWT(validatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: role}}))
	protected.GET("/staff", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })
	protected.GET("/wardens", RequireRoles(models.RoleWarden), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func serve(r http.Handler, path, auth string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter(models.RoleWarden, nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/staff", "Bearer bad"))
	assert.Equal(t, http.StatusOK, serve(r, "/staff", "bearer good"))
}

func TestRequireRoles(t *testing.T) {
	student := newRouter(models.RoleStudent, nil)
	assert.Equal(t, http.StatusForbidden, serve(student, "/staff", "Bearer good"))

	security := newRouter(models.RoleSecurity, nil)
	assert.Equal(t, http.StatusOK, serve(security, "/staff", "Bearer good"))
	assert.Equal(t, http.StatusForbidden, serve(security, "/wardens", "Bearer good"))

	admin := newRouter(models.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, serve(admin, "/wardens", "Bearer good"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	r := newRouter(models.RoleWarden, observer)
	serve(r, "/staff", "Bearer good")
	serve(r, "/nowhere", "")

	assert.Equal(t, []string{"/staff", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.statuses)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetMeta(c, "intent_source", "keyword")
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})
	serve(r, "/", "")

	assert.Equal(t, "keyword", meta["intent_source"])
	assert.Contains(t, meta, "processing_time_ms")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ResponseMeta(c))
}
