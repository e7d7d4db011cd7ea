// Package compliance records crisis detections for reviewers without ever
// storing the message that triggered them.
package compliance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/crisis-guard/internal/crisis"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// EventSafetyResponseIssued is logged when the guard returned a safety banner.
	EventSafetyResponseIssued AuditEventType = "crisis.safety_response_issued"
)

// AuditEvent is an immutable detection record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	Category  crisis.Category `json:"category"`
	Country   string          `json:"country"`
	Language  crisis.Language `json:"language"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventFromPayload maps a guard log payload to an audit event.
func EventFromPayload(p crisis.LogPayload) AuditEvent {
	created := time.Now().UTC()
	if p.Timestamp > 0 {
		created = time.Unix(p.Timestamp, 0).UTC()
	}
	return AuditEvent{
		EventType: EventSafetyResponseIssued,
		Category:  p.Category,
		Country:   p.Country,
		Language:  p.Language,
		CreatedAt: created,
	}
}

// AuditService writes detections to Postgres.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// RecordDetection stores the payload of an issued safety response.
func (s *AuditService) RecordDetection(ctx context.Context, p crisis.LogPayload) error {
	return s.LogEvent(ctx, EventFromPayload(p))
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.EventType == "" {
		event.EventType = EventSafetyResponseIssued
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO crisis_audit_events (
			id, event_type, category, country, language, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Category,
		event.Country,
		nullString(string(event.Language)),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	Category  crisis.Category
	Country   string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents retrieves audit events with filters, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, category, country, language, created_at
		FROM crisis_audit_events
		WHERE 1 = 1
	`
	var args []interface{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Country != "" {
		query += fmt.Sprintf(" AND country = $%d", argIdx)
		args = append(args, filter.Country)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var language sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.Category, &e.Country, &language, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.Language = crisis.Language(language.String)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
