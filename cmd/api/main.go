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
	_ "github.com/joho/godotenv/autoload"

	"github.com/jgrullon/credimax-api/internal/config"
	"github.com/jgrullon/credimax-api/internal/database"
	"github.com/jgrullon/credimax-api/internal/handlers"
	"github.com/jgrullon/credimax-api/internal/jobs"
	"github.com/jgrullon/credimax-api/internal/middleware"
	"github.com/jgrullon/credimax-api/internal/repository"
	"github.com/jgrullon/credimax-api/internal/services"
	"github.com/jgrullon/credimax-api/pkg/logger"

	"github.com/gin-gonic/gin"
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
	svcs := services.NewServices(repos, worker, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

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

// scheduleJobs wires the recurring background tasks. Late fees accrue
// with the passage of time, so the cached totals are refreshed on an
// interval, with one run right after startup.
func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	worker.ScheduleEveryImmediate(cfg.LateFeeRefreshEvery, func(ctx context.Context) error {
		return svcs.Reconciliation.RefreshLateFees(ctx)
	})
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
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Loan management
			protected.POST("/loans", h.Loan.Create)
			protected.GET("/loans", h.Loan.Index)
			protected.GET("/loans/:loan_id", h.Loan.Show)
			protected.GET("/loans/:loan_id/schedule", h.Loan.Schedule)
			protected.GET("/loans/:loan_id/late_fee", h.Loan.LateFee)
			protected.GET("/loans/:loan_id/ledger", h.Loan.Ledger)

			// Payments
			protected.POST("/loans/:loan_id/payments", h.Payment.Create)
			protected.GET("/payments", h.Payment.Index)
			protected.DELETE("/payments/:payment_id", h.Payment.Delete)

			// Balance-affecting events (admin only)
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.DELETE("/loans/:loan_id", h.Loan.Delete)
				admin.POST("/loans/:loan_id/charges", h.Loan.Charge)
				admin.POST("/loans/:loan_id/waive_late_fee", h.Loan.WaiveLateFee)
				admin.POST("/loans/:loan_id/capital_paydown", h.Loan.CapitalPaydown)
				admin.POST("/loans/:loan_id/settle", h.Loan.Settle)

				// Audits
				admin.GET("/audits", h.Audit.Index)

				// Background job status
				admin.GET("/jobs/status", h.Job.Status)
			}
		}
	}

	return router
}
