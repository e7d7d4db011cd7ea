package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/wolfman30/crisis-guard/internal/compliance"
	appconfig "github.com/wolfman30/crisis-guard/internal/config"
	"github.com/wolfman30/crisis-guard/internal/cooldown"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

func TestBuildCooldownStoreRequiresConfig(t *testing.T) {
	if _, err := BuildCooldownStore(context.Background(), nil, CooldownDeps{}, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildCooldownStoreMemoryDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := BuildCooldownStore(ctx, &appconfig.Config{CooldownSweepInterval: time.Minute}, CooldownDeps{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*cooldown.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
}

func TestBuildCooldownStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr(), CooldownBackend: "redis", CooldownWindow: 90 * time.Second}
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected redis client")
	}
	defer client.Close()

	store, err := BuildCooldownStore(context.Background(), cfg, CooldownDeps{Redis: client}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*cooldown.RedisStore); !ok {
		t.Fatalf("expected RedisStore, got %T", store)
	}
	allowed, err := store.Allow(context.Background(), "u1", "SELF_HARM", time.Now())
	if err != nil || !allowed {
		t.Fatalf("expected first trigger allowed, got %v %v", allowed, err)
	}
	_, _ = store.Allow(context.Background(), "u1", "ED_NSSI", time.Now())
	removed, err := store.Reset(context.Background(), "u1")
	if err != nil || removed != 2 {
		t.Fatalf("expected reset to clear both categories, got %d %v", removed, err)
	}
}

func TestBuildCooldownStoreRedisUnavailable(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1", CooldownBackend: "redis"}
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	_, err := BuildCooldownStore(context.Background(), cfg, CooldownDeps{Redis: client}, logging.New("error"))
	if err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
	if !strings.Contains(err.Error(), "redis is unavailable") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestBuildCooldownStoreMissingDeps(t *testing.T) {
	for _, backend := range []string{"redis", "dynamodb", "memcached"} {
		cfg := &appconfig.Config{CooldownBackend: backend, CooldownTable: "t"}
		if _, err := BuildCooldownStore(context.Background(), cfg, CooldownDeps{}, logging.New("error")); err == nil {
			t.Fatalf("expected error for backend %s", backend)
		}
	}
}

func TestBuildRedisClientDisabledOrUnreachable(t *testing.T) {
	if c := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); c != nil {
		t.Fatalf("expected nil client without address")
	}
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if c := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); c != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildHelplineProviderBuiltin(t *testing.T) {
	provider, err := BuildHelplineProvider(context.Background(), &appconfig.Config{}, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Directory() != nil {
		t.Fatalf("expected no remote directory")
	}
}

func TestBuildHelplineProviderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helplines.json")
	data := `{"GB":{"emergency":{"label":"Emergency","phone":"999"}},"DEFAULT":{"emergency":{"label":"Emergency","phone":"112"}}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	provider, err := BuildHelplineProvider(context.Background(), &appconfig.Config{HelplineDirectoryFile: path}, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := provider.Directory()["GB"]["emergency"].Phone; got != "999" {
		t.Fatalf("expected GB emergency 999, got %q", got)
	}
}

func TestBuildHelplineProviderRejectsInvalidDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helplines.json")
	if err := os.WriteFile(path, []byte(`{"GB":{"emergency":{"label":"Emergency","phone":"999"}}}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := BuildHelplineProvider(context.Background(), &appconfig.Config{HelplineDirectoryFile: path}, nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for directory without DEFAULT")
	}

	cfg := &appconfig.Config{HelplineDirectoryBucket: "bucket", HelplineDirectoryKey: "k"}
	if _, err := BuildHelplineProvider(context.Background(), cfg, nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for s3 directory without client")
	}
}

func TestBuildAuditSinkFallsBackToLog(t *testing.T) {
	wiring := BuildAuditSink(&appconfig.Config{AuditQueueURL: "https://sqs.local/q"}, nil, nil, logging.New("error"))
	if wiring.Name != "log" {
		t.Fatalf("expected log sink, got %s", wiring.Name)
	}
	if _, ok := wiring.Sink.(*compliance.LogAuditSink); !ok {
		t.Fatalf("expected LogAuditSink, got %T", wiring.Sink)
	}
	if wiring.Service != nil {
		t.Fatalf("expected no audit service")
	}
}

func TestBuildGuardAppliesConfig(t *testing.T) {
	cfg := &appconfig.Config{DefaultCountry: "US", FailMode: "closed"}
	guard := BuildGuard(cfg, cooldown.NewMemoryStore(time.Minute), nil, nil, logging.New("error"))

	res := guard.Check(context.Background(), crisis.Request{Message: "i want to die", UserID: "u1"})
	if res.LogPayload == nil || res.LogPayload.Country != "US" {
		t.Fatalf("expected US default country, got %+v", res.LogPayload)
	}
}
