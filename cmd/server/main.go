package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/config"
	"github.com/civilregistry/backend/internal/database"
	"github.com/civilregistry/backend/internal/handlers"
	"github.com/civilregistry/backend/internal/jobs"
	"github.com/civilregistry/backend/internal/logging"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/middleware"
	"github.com/civilregistry/backend/internal/queue"
	"github.com/civilregistry/backend/internal/routes"
	"github.com/civilregistry/backend/internal/security/audit"
	"github.com/civilregistry/backend/internal/services/application"
	"github.com/civilregistry/backend/internal/services/biometric"
	"github.com/civilregistry/backend/internal/services/document"
	"github.com/civilregistry/backend/internal/services/payment"
	"github.com/civilregistry/backend/internal/services/payment/providers/stripe"
	"github.com/civilregistry/backend/internal/services/user"
	"github.com/civilregistry/backend/internal/storage/uploads"
	"github.com/civilregistry/backend/internal/utils"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.Environment)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	stores := database.NewStores(db)

	redisClient, err := queue.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	redisQueue := queue.NewRedisQueue(redisClient, log.WithField("component", "queue"))

	m := metrics.New()
	recorder := audit.NewLogger(db, log.WithField("component", "audit"))
	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.TokenTTL())
	files := uploads.NewLocalStore(cfg.Server.UploadsDir, cfg.Server.MaxUploadBytes)
	provider := stripe.NewStripeProvider(stripe.StripeConfig{
		SecretKey: cfg.Stripe.SecretKey,
		BaseURL:   cfg.Stripe.BaseURL,
	})

	userService := user.NewService(stores.Users, tokens, utils.DefaultMFAConfig(cfg.Security.MFAIssuer), recorder, m, log.WithField("service", "user"))
	applicationService := application.NewService(stores.Applications, recorder, m, log.WithField("service", "application"))
	documentService := document.NewService(
		stores.Documents,
		stores.Applications,
		files,
		jobs.NewMirrorScheduler(redisQueue, log.WithField("component", "mirror_scheduler")),
		recorder,
		m,
		log.WithField("service", "document"),
	)
	paymentService := payment.NewPaymentService(stores.Payments, stores.Applications, provider, cfg.Stripe.WebhookSecret, m, log.WithField("service", "payment"))
	biometricService := biometric.NewService(stores.Biometrics, stores.Applications, recorder, log.WithField("service", "biometric"))

	if cfg.Admin.Email != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return fmt.Errorf("failed to seed admin account: %w", err)
		}
	}

	jobProcessor := queue.NewJobProcessor(redisQueue, cfg.Jobs.ReconcileWorkers, m, log.WithField("component", "job_processor"))
	jobs.RegisterAllJobHandlers(jobProcessor, documentService, log)
	jobProcessor.Start()
	defer jobProcessor.Stop()

	scheduler, err := jobs.ScheduleRecurringJobs(ctx, cfg.Jobs, documentService, paymentService, log)
	if err != nil {
		return fmt.Errorf("failed to schedule recurring jobs: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	defer rateLimiter.Stop()

	dev := cfg.IsDevelopment()
	router := routes.SetupRouter(cfg, routes.Handlers{
		Users:        handlers.NewUserHandler(userService, dev, log),
		Applications: handlers.NewApplicationHandler(applicationService, dev, log),
		Documents:    handlers.NewDocumentHandler(documentService, dev, log),
		Payments:     handlers.NewPaymentHandler(paymentService, dev, log),
		Webhooks:     handlers.NewWebhookHandler(paymentService, dev, log),
		Biometrics:   handlers.NewBiometricHandler(biometricService, dev, log),
		Health:       handlers.NewHealthHandler(version),
	}, tokens, rateLimiter, m, log.WithField("component", "http"))

	srv := startServer(router, cfg.Server, log)

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, cfg config.ServerConfig, log logrus.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	log.WithField("port", cfg.Port).Info("server started")
	return srv
}
