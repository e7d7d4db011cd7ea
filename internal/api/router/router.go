package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/crisis-guard/internal/compliance"
	"github.com/wolfman30/crisis-guard/internal/crisis"
	httpmiddleware "github.com/wolfman30/crisis-guard/internal/http/middleware"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	CrisisHandler   *crisis.Handler
	AuditHandler    *compliance.Handler
	MetricsHandler  http.Handler
	AdminAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.CrisisHandler != nil {
		r.Route("/v1", func(v1 chi.Router) {
			v1.Post("/guard", cfg.CrisisHandler.Check)
			v1.Get("/helplines/{country}", cfg.CrisisHandler.Helplines)
		})
	}

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.CrisisHandler != nil {
				admin.Post("/helplines/reload", cfg.CrisisHandler.ReloadHelplines)
				admin.Delete("/cooldowns/{userID}", cfg.CrisisHandler.ResetCooldown)
			}
			if cfg.AuditHandler != nil {
				admin.Get("/audit/events", cfg.AuditHandler.ListEvents)
			}
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
