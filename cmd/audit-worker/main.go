package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/wolfman30/crisis-guard/cmd/mainconfig"
	"github.com/wolfman30/crisis-guard/internal/app/bootstrap"
	"github.com/wolfman30/crisis-guard/internal/compliance"
	appconfig "github.com/wolfman30/crisis-guard/internal/config"
	auditworker "github.com/wolfman30/crisis-guard/internal/worker/audit"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.AuditQueueURL == "" || cfg.DatabaseURL == "" {
		logger.Error("audit worker requires CRISIS_AUDIT_QUEUE_URL and DATABASE_URL")
		os.Exit(1)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	db, err := bootstrap.OpenDatabase(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	queue := auditworker.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.AuditQueueURL)
	worker := auditworker.NewWorker(
		queue,
		compliance.NewAuditService(db),
		logger,
		auditworker.WithWorkerCount(cfg.AuditWorkerCount),
		auditworker.WithReceiveWaitSeconds(cfg.AuditReceiveWaitSeconds),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("starting audit worker", "workers", cfg.AuditWorkerCount)
	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down audit worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("audit worker stopped")
	case <-doneCtx.Done():
		logger.Error("audit worker shutdown timed out", "error", doneCtx.Err())
	}
}
