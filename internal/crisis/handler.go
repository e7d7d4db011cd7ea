package crisis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/crisis-guard/internal/helplines"
	"github.com/wolfman30/crisis-guard/internal/observability/metrics"
	"github.com/wolfman30/crisis-guard/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var guardTracer = otel.Tracer("crisis.internal.crisis")

// QuietReply is returned alongside a cooldown-suppressed match so the client has
// something neutral to show while normal generation stays skipped.
const QuietReply = "I’m still here with you. The contacts I shared a moment ago are the fastest way to reach someone who can help."

const (
	maxRequestBytes = 64 << 10
	auditTimeout    = 3 * time.Second
)

// AuditSink persists the log payload of an issued safety response.
type AuditSink interface {
	RecordDetection(ctx context.Context, payload LogPayload) error
}

// DirectoryReloader refreshes the configured remote helpline directory.
type DirectoryReloader interface {
	Refresh(ctx context.Context) error
}

// CooldownResetter clears every cooldown record of a user.
type CooldownResetter interface {
	Reset(ctx context.Context, userID string) (int, error)
}

// HandlerConfig wires the HTTP handler. Only Guard is required.
type HandlerConfig struct {
	Guard         *Guard
	Audit         AuditSink
	AuditSinkName string
	Source        helplines.Source
	Reloader      DirectoryReloader
	Cooldowns     CooldownResetter
	Metrics       *metrics.GuardMetrics
	Logger        *logging.Logger
}

// Handler exposes the guard over HTTP.
type Handler struct {
	guard     *Guard
	audit     AuditSink
	auditName string
	source    helplines.Source
	reloader  DirectoryReloader
	cooldowns CooldownResetter
	metrics   *metrics.GuardMetrics
	logger    *logging.Logger
}

// NewHandler creates a crisis handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Guard == nil {
		panic("crisis: guard cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.AuditSinkName == "" {
		cfg.AuditSinkName = "default"
	}
	return &Handler{
		guard:     cfg.Guard,
		audit:     cfg.Audit,
		auditName: cfg.AuditSinkName,
		source:    cfg.Source,
		reloader:  cfg.Reloader,
		cooldowns: cfg.Cooldowns,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

type checkResponse struct {
	Result
	QuietReply string `json:"quiet_reply,omitempty"`
}

// Check handles POST /v1/guard.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, span := guardTracer.Start(r.Context(), "crisis.guard", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		h.logger.Warn("failed to decode guard request", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Helplines) > 0 {
		// An invalid override must not block the safety response; the
		// configured directory is used instead.
		req.Helplines = helplines.Normalize(req.Helplines)
		if err := helplines.Validate(req.Helplines); err != nil {
			span.RecordError(err)
			h.logger.Warn("ignoring invalid request helpline directory", "error", err)
			req.Helplines = nil
		}
	}

	res := h.guard.Check(ctx, req)
	span.SetAttributes(
		attribute.Bool("crisis.matched", res.Matched),
		attribute.String("crisis.category", string(res.Category)),
		attribute.String("crisis.language", string(res.Language)),
		attribute.Bool("crisis.suppressed", res.Suppressed),
	)

	if res.LogPayload != nil {
		h.recordAudit(ctx, *res.LogPayload)
	}

	resp := checkResponse{Result: res}
	if res.Suppressed {
		resp.QuietReply = QuietReply
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordAudit persists the payload. Failures are logged and counted, never
// returned to the client.
func (h *Handler) recordAudit(ctx context.Context, payload LogPayload) {
	if h.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	err := h.audit.RecordDetection(ctx, payload)
	h.metrics.ObserveAudit(h.auditName, err)
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		h.logger.Error("failed to record crisis audit payload",
			"error", err,
			"sink", h.auditName,
			"category", payload.Category,
		)
	}
}

type helplinesResponse struct {
	Country   string             `json:"country"`
	Helplines helplines.Contacts `json:"helplines"`
}

// Helplines handles GET /v1/helplines/{country}.
func (h *Handler) Helplines(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "country")))
	var dir helplines.Directory
	if h.source != nil {
		dir = h.source.Directory()
	}
	writeJSON(w, http.StatusOK, helplinesResponse{
		Country:   country,
		Helplines: helplines.Resolve(country, dir),
	})
}

// ReloadHelplines handles POST /admin/helplines/reload.
func (h *Handler) ReloadHelplines(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		http.Error(w, "remote helpline directory not configured", http.StatusNotFound)
		return
	}
	if err := h.reloader.Refresh(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, helplines.ErrMissingDefault) ||
			errors.Is(err, helplines.ErrInvalidCountry) ||
			errors.Is(err, helplines.ErrInvalidEntry) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.Error("helpline reload failed", "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	countries := []string{}
	if h.source != nil {
		countries = h.source.Directory().Countries()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"countries": countries,
	})
}

// ResetCooldown handles DELETE /admin/cooldowns/{userID}.
func (h *Handler) ResetCooldown(w http.ResponseWriter, r *http.Request) {
	if h.cooldowns == nil {
		http.Error(w, "cooldown store does not support reset", http.StatusNotFound)
		return
	}
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}
	cleared, err := h.cooldowns.Reset(r.Context(), userID)
	if err != nil {
		h.logger.Error("cooldown reset failed", "error", err)
		http.Error(w, "cooldown reset failed", http.StatusInternalServerError)
		return
	}
	h.logger.Info("cooldown reset", "cleared", cleared)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"cleared": cleared,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
