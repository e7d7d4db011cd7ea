package helplines

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wolfman30/crisis-guard/pkg/logging"
)

// Provider holds the current remote directory. A failed or invalid reload keeps
// the previous directory in place.
type Provider struct {
	loader  Loader
	logger  *logging.Logger
	current atomic.Pointer[Directory]
	loaded  atomic.Int64
}

var _ Source = (*Provider)(nil)

// NewProvider creates a provider. A nil loader yields a provider that always
// reports no remote directory.
func NewProvider(loader Loader, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{loader: loader, logger: logger}
}

// Directory returns the last successfully loaded directory, or nil.
func (p *Provider) Directory() Directory {
	if p == nil {
		return nil
	}
	dir := p.current.Load()
	if dir == nil {
		return nil
	}
	return *dir
}

// LoadedAt reports when the current directory was loaded.
func (p *Provider) LoadedAt() time.Time {
	ts := p.loaded.Load()
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// Refresh reloads the directory. Errors are returned and the old directory kept.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.loader == nil {
		return nil
	}
	dir, err := p.loader.Load(ctx)
	if err != nil {
		p.logger.Warn("helpline directory reload failed", "error", err)
		return err
	}
	p.current.Store(&dir)
	p.loaded.Store(time.Now().Unix())
	p.logger.Info("helpline directory loaded", "countries", len(dir))
	return nil
}

// Run refreshes the directory every interval until ctx is done.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if p.loader == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}
