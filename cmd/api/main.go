package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/dmwangi/kopa-api/internal/config"
	"github.com/dmwangi/kopa-api/internal/database"
	"github.com/dmwangi/kopa-api/internal/handlers"
	"github.com/dmwangi/kopa-api/internal/jobs"
	"github.com/dmwangi/kopa-api/internal/middleware"
	"github.com/dmwangi/kopa-api/internal/repository"
	"github.com/dmwangi/kopa-api/internal/services"
	"github.com/dmwangi/kopa-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs, err := services.NewServices(repos, worker, cfg)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, cfg)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", h.Health.Index)

		// Loan lifecycle
		loans := v1.Group("/loans")
		{
			loans.POST("", h.Loan.Create)
			loans.GET("", h.Loan.Index)
			loans.GET("/:loan_id", h.Loan.Show)
			loans.POST("/:loan_id/approve", h.Loan.Approve)
			loans.POST("/:loan_id/disburse", h.Loan.Disburse)
			loans.POST("/:loan_id/write_off", h.Loan.WriteOff)
			loans.GET("/:loan_id/schedule", h.Loan.Schedule)

			// Repayments
			loans.POST("/:loan_id/repayments", h.Repayment.Create)
			loans.GET("/:loan_id/repayments", h.Repayment.Index)
			loans.POST("/:loan_id/cure", h.Repayment.Cure)

			// Credit staging history
			loans.GET("/:loan_id/staging", h.Portfolio.StagingHistory)
		}

		// Standalone calculators
		calculator := v1.Group("/calculator")
		{
			calculator.POST("/schedule", h.Calculator.Schedule)
			calculator.POST("/apr", h.Calculator.APR)
		}

		// Portfolio analytics
		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/at_risk", h.Portfolio.AtRisk)
			portfolio.POST("/run_staging", h.Portfolio.RunStaging)
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Accrue late payment penalties every 6 hours
	worker.ScheduleEvery(6*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Accruing late payment penalties...")
		n, err := svcs.Portfolio.AccruePenalties(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Penalty accrual finished", "loans_updated", n)
		return nil
	})

	// Move past-due loans into arrears every hour
	worker.ScheduleEvery(1*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Sweeping past-due loans into arrears...")
		n, err := svcs.Portfolio.SweepArrears(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Arrears sweep finished", "loans_transitioned", n)
		return nil
	})

	// Refresh credit staging and provisions daily, once at startup
	worker.ScheduleEveryImmediate(24*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Running portfolio credit staging...")
		n, err := svcs.Portfolio.RunStaging(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Credit staging finished", "loans_staged", n)
		return nil
	})

	logger.Info("Scheduled recurring jobs")
}
