package crisis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/crisis-guard/internal/helplines"
	"github.com/wolfman30/crisis-guard/internal/observability/metrics"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

// DefaultCountry is used when a request carries no country code.
const DefaultCountry = "IN"

// CooldownStore decides whether a detected category may show its banner again.
// Implementations must perform the check and the write atomically.
type CooldownStore interface {
	Allow(ctx context.Context, userID, category string, now time.Time) (bool, error)
}

// FailMode selects the result returned when the guard recovers from an internal error.
type FailMode string

const (
	// FailOpen treats an internal error as "not matched" so the conversation continues.
	FailOpen FailMode = "open"
	// FailClosed treats an internal error as a match with a generic emergency response.
	FailClosed FailMode = "closed"
)

// ParseFailMode maps a config value to a FailMode, defaulting to FailOpen.
func ParseFailMode(s string) FailMode {
	if strings.EqualFold(strings.TrimSpace(s), string(FailClosed)) {
		return FailClosed
	}
	return FailOpen
}

// Request is a single message to screen.
type Request struct {
	Message     string              `json:"message"`
	UserID      string              `json:"user_id,omitempty"`
	CountryCode string              `json:"country,omitempty"`
	Helplines   helplines.Directory `json:"helplines,omitempty"`
}

// LogPayload is the audit record for an issued safety response. It never
// carries the message text.
type LogPayload struct {
	Category  Category `json:"category"`
	Country   string   `json:"country"`
	Language  Language `json:"language"`
	Timestamp int64    `json:"timestamp"`
}

// Result is the outcome of Check. A matched result with an empty Response was
// suppressed by the cooldown: callers skip normal generation but do not show
// the banner again.
type Result struct {
	Matched    bool               `json:"matched"`
	Category   Category           `json:"category,omitempty"`
	Response   string             `json:"response,omitempty"`
	Helplines  helplines.Contacts `json:"helplines,omitempty"`
	Language   Language           `json:"language,omitempty"`
	LogPayload *LogPayload        `json:"log_payload,omitempty"`
	Suppressed bool               `json:"suppressed,omitempty"`
	Failed     bool               `json:"failed,omitempty"`
}

// Guard runs language detection, category matching, cooldown and response
// composition for each message.
type Guard struct {
	matcher        *Matcher
	cooldown       CooldownStore
	source         helplines.Source
	defaultCountry string
	failMode       FailMode
	now            func() time.Time
	logger         *logging.Logger
	metrics        *metrics.GuardMetrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithCooldownStore sets the cooldown backend. Without one, every match shows its banner.
func WithCooldownStore(store CooldownStore) Option {
	return func(g *Guard) { g.cooldown = store }
}

// WithHelplineSource sets where the configured remote directory comes from.
func WithHelplineSource(src helplines.Source) Option {
	return func(g *Guard) { g.source = src }
}

// WithDefaultCountry overrides the country used when a request has none.
func WithDefaultCountry(country string) Option {
	return func(g *Guard) {
		if c := strings.ToUpper(strings.TrimSpace(country)); c != "" {
			g.defaultCountry = c
		}
	}
}

// WithFailMode sets the internal-error policy.
func WithFailMode(mode FailMode) Option {
	return func(g *Guard) { g.failMode = mode }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.GuardMetrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard builds a guard over the built-in pattern tables.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		matcher:        NewMatcher(),
		defaultCountry: DefaultCountry,
		failMode:       FailOpen,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.Default()
	}
	return g
}

// Check screens one message. It never returns an error: internal failures are
// recovered and mapped through the guard's FailMode. The cooldown store is
// consulted at most once, and only for a matched message.
func (g *Guard) Check(ctx context.Context, req Request) (res Result) {
	began := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = g.failResult(r)
		}
		g.metrics.ObserveCheck(checkOutcome(res), time.Since(began).Seconds())
	}()
	return g.check(ctx, req)
}

func (g *Guard) check(ctx context.Context, req Request) Result {
	language := DetectLanguage(req.Message)

	category, ok := g.matcher.DetectCategory(req.Message)
	if !ok {
		return Result{Matched: false, Language: language}
	}

	country := strings.ToUpper(strings.TrimSpace(req.CountryCode))
	if country == "" {
		country = g.defaultCountry
	}
	now := g.now()

	if !g.allow(ctx, req.UserID, category, now) {
		g.logger.Info("crisis detected, banner suppressed by cooldown",
			"category", category,
			"language", language,
		)
		g.metrics.ObserveDetection(string(category), "suppressed")
		return Result{Matched: true, Category: category, Language: language, Suppressed: true}
	}

	contacts := helplines.Resolve(country, g.directory(req.Helplines))
	g.logger.Warn("crisis detected",
		"category", category,
		"country", country,
		"language", language,
	)
	g.metrics.ObserveDetection(string(category), "alerted")

	return Result{
		Matched:   true,
		Category:  category,
		Response:  ComposeResponse(category, contacts),
		Helplines: contacts,
		Language:  language,
		LogPayload: &LogPayload{
			Category:  category,
			Country:   country,
			Language:  language,
			Timestamp: now.Unix(),
		},
	}
}

// allow consults the cooldown store. Store errors allow the banner: showing it
// twice is preferable to not showing it.
func (g *Guard) allow(ctx context.Context, userID string, category Category, now time.Time) bool {
	if g.cooldown == nil || userID == "" {
		return true
	}
	ok, err := g.cooldown.Allow(ctx, userID, string(category), now)
	if err != nil {
		g.logger.Error("cooldown check failed, allowing banner", "error", err, "category", category)
		return true
	}
	return ok
}

// directory picks the per-request directory, then the configured remote one.
// A nil result makes the resolver use the built-in directory.
func (g *Guard) directory(override helplines.Directory) helplines.Directory {
	if len(override) > 0 {
		return override
	}
	if g.source != nil {
		return g.source.Directory()
	}
	return nil
}

func (g *Guard) failResult(recovered any) Result {
	g.logger.Error("crisis guard failed",
		"error", fmt.Sprint(recovered),
		"fail_mode", g.failMode,
	)
	g.metrics.ObserveFailure(string(g.failMode))
	if g.failMode != FailClosed {
		return Result{Matched: false, Failed: true}
	}
	contacts := helplines.Resolve(helplines.DefaultKey, nil)
	return Result{
		Matched:   true,
		Response:  ComposeResponse("", contacts),
		Helplines: contacts,
		Failed:    true,
	}
}

func checkOutcome(res Result) string {
	switch {
	case res.Failed:
		return "failed"
	case res.Suppressed:
		return "suppressed"
	case res.Matched:
		return "matched"
	default:
		return "no_match"
	}
}
