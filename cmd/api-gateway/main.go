package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hostel-ops-api/api/swagger"
	"github.com/noah-isme/hostel-ops-api/internal/handler"
	"github.com/noah-isme/hostel-ops-api/internal/models"
	"github.com/noah-isme/hostel-ops-api/internal/repository"
	"github.com/noah-isme/hostel-ops-api/internal/service"
	"github.com/noah-isme/hostel-ops-api/pkg/cache"
	"github.com/noah-isme/hostel-ops-api/pkg/config"
	"github.com/noah-isme/hostel-ops-api/pkg/database"
	"github.com/noah-isme/hostel-ops-api/pkg/jobs"
	"github.com/noah-isme/hostel-ops-api/pkg/llm"
	"github.com/noah-isme/hostel-ops-api/pkg/logger"
	"github.com/noah-isme/hostel-ops-api/pkg/notify"
)

// @title Hostel Ops API
// @version 1.0.0
// @description Message intake, auto-approval and staff review for hostel requests
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, student cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup := wire(ctx, cfg, db, redisClient, logr)
	defer cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// application holds the handlers and middleware dependencies built by wire.
type application struct {
	auth     *service.AuthService
	metrics  *service.MetricsService
	handlers struct {
		auth     *handler.AuthHandler
		messages *handler.MessageHandler
		decision *handler.DecisionHandler
		requests *handler.RequestHandler
		students *handler.StudentHandler
		audit    *handler.AuditHandler
		metrics  *handler.MetricsHandler
	}
}

func wire(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, func()) {
	var closers []func()
	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	studentsRepo := repository.NewStudentRepository(db)
	guests := repository.NewGuestRequestRepository(db)
	absences := repository.NewAbsenceRepository(db)
	workOrders := repository.NewWorkOrderRepository(db)
	cleaning := repository.NewCleaningRepository(db)
	queueRepo := repository.NewRequestQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notifications := repository.NewNotificationRepository(db)
	staff := repository.NewStaffRepository(db)

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	students := service.NewStudentService(studentsRepo, nil, 0, logger.Component(logr, "students"))
	if redisClient != nil {
		studentCache := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Redis.CacheTTL, logger.Component(logr, "cache"), true)
		students = service.NewStudentService(studentsRepo, studentCache, cfg.Redis.CacheTTL, logger.Component(logr, "students"))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	notifier := service.NewNotificationService(staff, notifications, senders(cfg.Notifications, logr, &closers), cfg.Notifications.DefaultChannels,
		logger.Component(logr, "notifications"), service.WithDeliveryMetrics(metrics))
	redelivery := jobs.NewQueue("notification-redelivery", notifier.HandleRedelivery, jobs.QueueConfig{
		Workers:    cfg.Notifications.RetryWorkers,
		MaxRetries: cfg.Notifications.RetryMax,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logger.Component(logr, "jobs"),
	})
	redelivery.Start(ctx)
	metrics.RegisterQueueDepth("notification-redelivery", redelivery.Depth)
	closers = append(closers, redelivery.Stop)
	// The queue handler and the notifier refer to each other.
	service.WithRedeliveryQueue(redelivery)(notifier)

	engine := service.NewRuleEngine(guests, logger.Component(logr, "rules"))
	approvals := service.NewAutoApprovalService(engine, service.ApprovalRecordStores{
		Guests:     guests,
		Absences:   absences,
		WorkOrders: workOrders,
		Cleaning:   cleaning,
	}, auditRepo, cfg.Approval, logger.Component(logr, "approvals"),
		service.WithEscalationNotifier(notifier),
		service.WithDecisionMetrics(metrics),
	)

	var extractor *llm.Client
	if cfg.LLM.Enabled {
		extractor = llm.NewClient(llm.Config{
			BaseURL:      cfg.LLM.BaseURL,
			APIKey:       cfg.LLM.APIKey,
			Model:        cfg.LLM.Model,
			Timeout:      cfg.LLM.Timeout,
			MaxRetries:   cfg.LLM.MaxRetries,
			RetryWait:    cfg.LLM.RetryWait,
			RetryMaxWait: cfg.LLM.RetryMaxWait,
		}, logger.Component(logr, "llm"),
			llm.WithCache(llm.NewResponseCache(cfg.LLM.CacheCapacity)),
			llm.WithCacheObserver(metrics.RecordLLMCache),
		)
	}
	messages := service.NewMessageService(students, nil, approvals, engine, notifier, logger.Component(logr, "messages"))
	if extractor != nil {
		messages = service.NewMessageService(students, extractor, approvals, engine, notifier, logger.Component(logr, "messages"))
	}

	reviews := service.NewRequestReviewService(service.ReviewStores{
		Guests:     guests,
		Absences:   absences,
		WorkOrders: workOrders,
		Cleaning:   cleaning,
		Queue:      queueRepo,
	}, students, auditRepo, notifier, validate, logger.Component(logr, "reviews"))

	audit := service.NewAuditService(auditRepo, service.AuditExportConfig{
		Enabled: cfg.Exports.Enabled,
		MaxRows: cfg.Exports.MaxRows,
	}, logger.Component(logr, "audit"))

	app := &application{
		auth: service.NewAuthService(users, auditRepo, validate, logger.Component(logr, "auth"), service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		}),
		metrics: metrics,
	}
	app.handlers.auth = handler.NewAuthHandler(app.auth)
	app.handlers.messages = handler.NewMessageHandler(messages)
	app.handlers.decision = handler.NewDecisionHandler(approvals.WithoutAlerts(), students, engine)
	app.handlers.requests = handler.NewRequestHandler(reviews)
	app.handlers.students = handler.NewStudentHandler(students)
	app.handlers.audit = handler.NewAuditHandler(audit)
	app.handlers.metrics = handler.NewMetricsHandler(metrics, checks)

	return app, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// senders builds the configured delivery channels. Channels without
// credentials are skipped.
func senders(cfg config.NotificationConfig, logr *zap.Logger, closers *[]func()) map[models.Channel]notify.Sender {
	out := map[models.Channel]notify.Sender{}
	if cfg.EmailAPIURL != "" {
		out[models.ChannelEmail] = notify.NewEmailSender(notify.EmailConfig{
			BaseURL: cfg.EmailAPIURL,
			APIKey:  cfg.EmailAPIKey,
			From:    cfg.EmailFrom,
		})
	}
	if cfg.TwilioAccountSID != "" {
		out[models.ChannelSMS] = notify.NewSMSSender(notify.SMSConfig{
			BaseURL:    cfg.TwilioBaseURL,
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		})
	}
	if cfg.MQTTBroker != "" {
		client, err := notify.NewMQTTClient(notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			logr.Warn("mqtt broker unreachable, push channel disabled", zap.Error(err))
		} else {
			out[models.ChannelPush] = notify.NewPushSender(client, cfg.MQTTTopicPrefix)
			*closers = append(*closers, client.Close)
		}
	}
	logr.Info("notification channels configured", zap.Int("channels", len(out)))
	return out
}
