package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/crisis-guard/cmd/mainconfig"
	"github.com/wolfman30/crisis-guard/internal/api/router"
	"github.com/wolfman30/crisis-guard/internal/app/bootstrap"
	"github.com/wolfman30/crisis-guard/internal/compliance"
	appconfig "github.com/wolfman30/crisis-guard/internal/config"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/internal/helplines"
	"github.com/wolfman30/crisis-guard/internal/observability/metrics"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting crisis-guard API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"cooldown_backend", cfg.CooldownBackend,
		"fail_mode", cfg.FailMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, guardMetrics := setupGuardMetrics()

	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = loaded
	}

	// Cooldown store
	deps := bootstrap.CooldownDeps{}
	switch cfg.CooldownBackend {
	case "redis":
		deps.Redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	case "dynamodb":
		deps.Dynamo = dynamodb.NewFromConfig(awsCfg)
	}
	store, err := bootstrap.BuildCooldownStore(ctx, cfg, deps, logger)
	if err != nil {
		logger.Error("failed to build cooldown store", "error", err)
		os.Exit(1)
	}
	if deps.Redis != nil {
		defer deps.Redis.Close()
	}

	// Remote helpline directory
	var s3Client helplines.S3API
	if cfg.UsesS3Directory() {
		s3Client = mainconfig.NewS3Client(awsCfg, cfg)
	}
	provider, err := bootstrap.BuildHelplineProvider(ctx, cfg, s3Client, logger)
	if err != nil {
		logger.Error("failed to load helpline directory", "error", err)
		os.Exit(1)
	}
	go provider.Run(ctx, cfg.HelplineRefreshInterval)

	// Audit sink
	db := connectDatabase(ctx, cfg.DatabaseURL, logger)
	if db != nil {
		defer db.Close()
	}
	var sqsClient *sqs.Client
	if cfg.AuditQueueURL != "" {
		sqsClient = sqs.NewFromConfig(awsCfg)
	}
	audit := bootstrap.BuildAuditSink(cfg, db, sqsClient, logger)
	logger.Info("audit sink ready", "sink", audit.Name)

	guard := bootstrap.BuildGuard(cfg, store, provider, guardMetrics, logger)

	// Initialize handlers
	crisisHandler := crisis.NewHandler(crisis.HandlerConfig{
		Guard:         guard,
		Audit:         audit.Sink,
		AuditSinkName: audit.Name,
		Source:        provider,
		Reloader:      provider,
		Cooldowns:     store,
		Metrics:       guardMetrics,
		Logger:        logger,
	})
	var auditHandler *compliance.Handler
	if audit.Service != nil {
		auditHandler = compliance.NewHandler(audit.Service, logger)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:          logger,
		CrisisHandler:   crisisHandler,
		AuditHandler:    auditHandler,
		MetricsHandler:  metricsHandler,
		AdminAuthSecret: cfg.AdminJWTSecret,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupGuardMetrics registers guard metrics and process/go collectors on a
// dedicated registry.
func setupGuardMetrics() (http.Handler, *metrics.GuardMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewGuardMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// connectDatabase returns nil when no URL is configured or Postgres is
// unreachable; audit then falls back to the next sink.
func connectDatabase(ctx context.Context, url string, logger *logging.Logger) *sql.DB {
	if url == "" {
		return nil
	}
	db, err := bootstrap.OpenDatabase(ctx, url)
	if err != nil {
		logger.Warn("postgres not available for audit", "error", err)
		return nil
	}
	return db
}
