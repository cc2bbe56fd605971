package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-ops-api/internal/middleware"
	"github.com/noah-isme/hostel-ops-api/pkg/config"
	"github.com/noah-isme/hostel-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-ops-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(app.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", app.handlers.metrics.Health)
	r.GET("/ready", app.handlers.metrics.Ready)
	r.GET("/metrics", app.handlers.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", app.handlers.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(app.auth))
	secured.GET("/auth/me", app.handlers.auth.Me)
	secured.POST("/messages", app.handlers.messages.Process)
	secured.POST("/requests/evaluate", app.handlers.decision.Evaluate)
	secured.GET("/requests/escalation-route", app.handlers.decision.EscalationRoute)
	secured.GET("/rules/explain", app.handlers.decision.ExplainRule)

	staff := secured.Group("")
	staff.Use(middleware.RequireStaff())
	staff.GET("/requests", app.handlers.requests.Queue)
	staff.GET("/requests/:type", app.handlers.requests.List)
	staff.POST("/requests/:type/:id/review", app.handlers.requests.Review)
	staff.GET("/students/:id", app.handlers.students.Get)
	staff.POST("/students/:id/violations", app.handlers.students.RecordViolation)
	staff.GET("/audit/decisions", app.handlers.audit.List)
	staff.GET("/audit/decisions/export", app.handlers.audit.Export)
	staff.GET("/metrics/summary", app.handlers.metrics.Summary)

	return r
}
