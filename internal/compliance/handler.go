package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/crisis-guard/internal/crisis"
	"github.com/wolfman30/crisis-guard/pkg/logging"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

type eventQuerier interface {
	QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// Handler serves audit events to reviewers.
type Handler struct {
	events eventQuerier
	logger *logging.Logger
}

// NewHandler creates an audit handler.
func NewHandler(events eventQuerier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{events: events, logger: logger}
}

// ListEventsResponse is the response for listing audit events.
type ListEventsResponse struct {
	Events []AuditEvent `json:"events"`
	Count  int          `json:"count"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListEvents handles GET /admin/audit/events.
// Query: category, country, since, until (RFC3339), limit, offset.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AuditFilter{
		Category: crisis.Category(strings.ToUpper(strings.TrimSpace(q.Get("category")))),
		Country:  strings.ToUpper(strings.TrimSpace(q.Get("country"))),
		Limit:    defaultEventLimit,
	}
	if filter.Category != "" && !filter.Category.Valid() {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return
	}

	var err error
	if filter.StartTime, err = parseTime(q.Get("since")); err != nil {
		http.Error(w, "invalid since", http.StatusBadRequest)
		return
	}
	if filter.EndTime, err = parseTime(q.Get("until")); err != nil {
		http.Error(w, "invalid until", http.StatusBadRequest)
		return
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = min(limit, maxEventLimit)
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = offset
	}

	events, err := h.events.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "failed to query audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListEventsResponse{
		Events: events,
		Count:  len(events),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func parseTime(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
