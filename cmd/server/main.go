package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DukeRupert/presskit/internal"
	"github.com/DukeRupert/presskit/internal/clock"
	"github.com/DukeRupert/presskit/internal/email"
	"github.com/DukeRupert/presskit/internal/handler"
	"github.com/DukeRupert/presskit/internal/jobs"
	"github.com/DukeRupert/presskit/internal/metrics"
	"github.com/DukeRupert/presskit/internal/middleware"
	"github.com/DukeRupert/presskit/internal/notify"
	"github.com/DukeRupert/presskit/internal/repository"
	"github.com/DukeRupert/presskit/internal/service"
	"github.com/DukeRupert/presskit/internal/storage"
	"github.com/DukeRupert/presskit/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	store := repository.NewStore(db)
	clk := clock.New()

	// ==========================================================================
	// Usage tracking
	// ==========================================================================

	usageService, err := service.NewUsageService(store, store.ResourceCounters(), clk, logger)
	if err != nil {
		return fmt.Errorf("usage service initialization failed: %w", err)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("notifier initialization failed: %w", err)
	}

	monitor, err := service.NewUsageMonitor(usageService, store, store, notifier, service.MonitorConfig{
		Concurrency: cfg.UsageCheckConcurrency,
		Dedupe:      cfg.UsageNotifyDedupe,
	}, logger.With("component", "usage_monitor"))
	if err != nil {
		return fmt.Errorf("usage monitor initialization failed: %w", err)
	}

	var reports storage.Storage
	var exporter jobs.ReportExporter
	if cfg.UsageExportEnabled {
		reports, err = newStorage(cfg, logger)
		if err != nil {
			return fmt.Errorf("storage initialization failed: %w", err)
		}
		exporter = service.NewUsageReportExporter(reports, logger)
	}

	usageJob := jobs.NewUsageCheckJob(monitor, exporter, clk, cfg.UsageCheckLocation, logger)

	usageWorker, err := worker.New(usageJob, cfg.WorkerConfig(), clk, logger)
	if err != nil {
		return fmt.Errorf("worker initialization failed: %w", err)
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.UsageCheckEnabled {
		usageWorker.Start(workerCtx)
		logger.Info("Usage check scheduled",
			"time", fmt.Sprintf("%02d:%02d", cfg.UsageCheckHour, cfg.UsageCheckMinute),
			"timezone", cfg.UsageCheckLocation.String(),
			"dedupe", cfg.UsageNotifyDedupe,
		)
	} else {
		logger.Info("Usage check schedule disabled, manual trigger only")
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.Env != "development"
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	requestLogging.TrustProxyHeaders = cfg.TrustProxyHeaders
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuth := middleware.NewBasicAuthMiddleware("metrics", cfg.MetricsUsername, cfg.MetricsPassword)
	adminAuth := middleware.NewBasicAuthMiddleware("admin", cfg.AdminUsername, cfg.AdminPassword)
	if !metricsAuth.Enabled() {
		logger.Warn("METRICS_USERNAME and METRICS_PASSWORD not set, /metrics is unprotected")
	}
	if !adminAuth.Enabled() {
		logger.Warn("ADMIN_USERNAME and ADMIN_PASSWORD not set, /admin and /api are unprotected")
	}

	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateWindow, logger)
	apiLimiter.TrustProxyHeaders = cfg.TrustProxyHeaders
	defer apiLimiter.Close()

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	handler.NewUsageHandler(usageService, logger).
		RegisterRoutes(mux, middleware.Stack(apiLimiter.Limit, adminAuth.Handler))
	handler.NewAdminHandler(usageWorker, usageJob, reports, logger).
		RegisterRoutes(mux, adminAuth.Handler)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.Stack(requestLogging.Handler, metrics.Middleware, securityHeaders.Handler)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	usageWorker.Stop()

	logger.Info("Graceful shutdown complete")
	return nil
}

// newNotifier builds the configured alert transports. Without any, alerts
// go to the log.
func newNotifier(cfg *internal.Config, logger *slog.Logger) (notify.Notifier, error) {
	var transports []notify.Notifier

	switch cfg.EmailProvider {
	case "smtp":
		sender := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
		transports = append(transports, notify.NewEmailNotifier(sender, cfg.OperatorEmail))
	case "sendgrid":
		sender, err := email.NewSendGridSender(email.SendGridConfig{
			APIKey:   cfg.SendGridAPIKey,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
		if err != nil {
			return nil, err
		}
		transports = append(transports, notify.NewEmailNotifier(sender, cfg.OperatorEmail))
	}

	if cfg.SlackWebhookURL != "" {
		transports = append(transports, notify.NewSlackNotifier(cfg.SlackWebhookURL))
	}

	if len(transports) == 0 {
		logger.Warn("No notification transport configured, usage alerts go to the log only")
	}
	logger.Info("Operator notifications configured", "email", cfg.EmailProvider, "slack", cfg.SlackWebhookURL != "")
	return notify.New(logger, transports...), nil
}

// newStorage returns the usage report store for the configured provider.
func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
		}, logger)
	default:
		return storage.NewLocalStorage(storage.LocalConfig{BasePath: cfg.LocalStoragePath}, logger)
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
