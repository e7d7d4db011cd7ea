package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/crisis-guard/internal/compliance"
	appconfig "github.com/wolfman30/crisis-guard/internal/config"
	"github.com/wolfman30/crisis-guard/internal/cooldown"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/internal/helplines"
	"github.com/wolfman30/crisis-guard/internal/observability/metrics"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

// CooldownBackend is a cooldown store that can also clear a user's records.
type CooldownBackend interface {
	crisis.CooldownStore
	crisis.CooldownResetter
}

// CooldownDeps carries the optional clients a cooldown backend may need.
type CooldownDeps struct {
	Redis  *redis.Client
	Dynamo *dynamodb.Client
}

// BuildCooldownStore selects the backend named by cfg.CooldownBackend. The
// memory backend starts its sweeper on ctx.
func BuildCooldownStore(ctx context.Context, cfg *appconfig.Config, deps CooldownDeps, logger *logging.Logger) (CooldownBackend, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	window := cfg.CooldownWindow
	if window <= 0 {
		window = cooldown.DefaultWindow
	}

	switch strings.ToLower(strings.TrimSpace(cfg.CooldownBackend)) {
	case "", "memory":
		store := cooldown.NewMemoryStore(window)
		if ctx != nil && cfg.CooldownSweepInterval > 0 {
			store.StartSweeper(ctx, cfg.CooldownSweepInterval)
		}
		logger.Info("cooldown store ready", "backend", "memory", "window", window.String())
		return store, nil
	case "redis":
		if deps.Redis == nil {
			return nil, errors.New("bootstrap: redis cooldown backend selected but redis is unavailable (check REDIS_ADDR and connectivity)")
		}
		logger.Info("cooldown store ready", "backend", "redis", "window", window.String())
		return cooldown.NewRedisStore(deps.Redis, window, crisis.CategoryNames()), nil
	case "dynamodb":
		if deps.Dynamo == nil {
			return nil, errors.New("bootstrap: dynamodb cooldown backend requires an AWS client")
		}
		if strings.TrimSpace(cfg.CooldownTable) == "" {
			return nil, errors.New("bootstrap: dynamodb cooldown backend requires CRISIS_COOLDOWN_TABLE")
		}
		logger.Info("cooldown store ready", "backend", "dynamodb", "table", cfg.CooldownTable, "window", window.String())
		return cooldown.NewDynamoStore(deps.Dynamo, cfg.CooldownTable, window), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown cooldown backend %q", cfg.CooldownBackend)
	}
}

// BuildHelplineProvider wires the remote directory (file first, then S3) and
// loads it once. A directory that fails validation is a startup error.
func BuildHelplineProvider(ctx context.Context, cfg *appconfig.Config, s3Client helplines.S3API, logger *logging.Logger) (*helplines.Provider, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var loader helplines.Loader
	switch {
	case strings.TrimSpace(cfg.HelplineDirectoryFile) != "":
		loader = helplines.FileLoader{Path: cfg.HelplineDirectoryFile}
		logger.Info("helpline directory source", "type", "file", "path", cfg.HelplineDirectoryFile)
	case cfg.UsesS3Directory():
		if s3Client == nil {
			return nil, errors.New("bootstrap: s3 helpline directory requires an AWS client")
		}
		loader = helplines.NewS3Loader(s3Client, cfg.HelplineDirectoryBucket, cfg.HelplineDirectoryKey)
		logger.Info("helpline directory source", "type", "s3", "bucket", cfg.HelplineDirectoryBucket, "key", cfg.HelplineDirectoryKey)
	default:
		logger.Info("helpline directory source", "type", "builtin")
	}

	provider := helplines.NewProvider(loader, logger)
	if ctx == nil {
		ctx = context.Background()
	}
	if err := provider.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap: load helpline directory: %w", err)
	}
	return provider, nil
}

// OpenDatabase opens and pings Postgres through the pgx stdlib driver.
func OpenDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: ping db: %w", err)
	}
	return db, nil
}

// AuditWiring is the selected audit sink. Service is set only for Postgres.
type AuditWiring struct {
	Sink    crisis.AuditSink
	Name    string
	Service *compliance.AuditService
}

// BuildAuditSink prefers Postgres, then SQS, then the structured log.
func BuildAuditSink(cfg *appconfig.Config, db *sql.DB, sqsClient *sqs.Client, logger *logging.Logger) AuditWiring {
	if logger == nil {
		logger = logging.Default()
	}
	switch {
	case db != nil:
		svc := compliance.NewAuditService(db)
		return AuditWiring{Sink: svc, Name: "postgres", Service: svc}
	case cfg != nil && cfg.AuditQueueURL != "" && sqsClient != nil:
		return AuditWiring{Sink: compliance.NewSQSAuditSink(sqsClient, cfg.AuditQueueURL), Name: "sqs"}
	default:
		return AuditWiring{Sink: compliance.NewLogAuditSink(logger), Name: "log"}
	}
}

// BuildGuard assembles the guard from config and its collaborators.
func BuildGuard(cfg *appconfig.Config, store crisis.CooldownStore, source helplines.Source, m *metrics.GuardMetrics, logger *logging.Logger) *crisis.Guard {
	opts := []crisis.Option{
		crisis.WithLogger(logger),
		crisis.WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, crisis.WithCooldownStore(store))
	}
	if source != nil {
		opts = append(opts, crisis.WithHelplineSource(source))
	}
	if cfg != nil {
		opts = append(opts,
			crisis.WithDefaultCountry(cfg.DefaultCountry),
			crisis.WithFailMode(crisis.ParseFailMode(cfg.FailMode)),
		)
	}
	return crisis.NewGuard(opts...)
}
