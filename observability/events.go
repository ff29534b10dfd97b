// Package observability persists operational telemetry into a dedicated
// SQLite database: pipeline stage events, an async HTTP request audit and a
// buffered metrics timeseries. A failing store never blocks the caller;
// write errors are logged and dropped.
package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/plume/idgen"
)

// BusinessEvent represents a domain-level event to record. For pipeline
// events, EntityID carries the goal hash and Action the stage name.
type BusinessEvent struct {
	EventType   string
	ServiceName string
	EntityType  string
	EntityID    string
	TraceID     string
	ClientID    string
	Action      string
	Details     string // optional JSON
	Success     bool
}

// EventLogger writes business events.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given observability database.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records a business event. Non-blocking: errors are logged via slog
// but do not propagate, so a failing observability store never blocks the app.
func (l *EventLogger) LogEvent(ctx context.Context, event BusinessEvent) {
	eventID := l.newID()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO business_event_logs (
			event_id, event_type, service_name, entity_type, entity_id,
			trace_id, client_id, action, details, success, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		eventID, event.EventType, event.ServiceName, event.EntityType, event.EntityID,
		event.TraceID, event.ClientID, event.Action, event.Details, event.Success,
		time.Now().Unix())
	if err != nil {
		slog.Error("observability event log failed", "error", err, "event_type", event.EventType)
	}
}

// LogStage is a convenience wrapper for pipeline stage outcomes.
func (l *EventLogger) LogStage(ctx context.Context, stage, goalHash, traceID, clientID string, success bool, detail string) {
	l.LogEvent(ctx, BusinessEvent{
		EventType:   "pipeline_stage",
		ServiceName: "plume",
		EntityType:  "generation",
		EntityID:    goalHash,
		TraceID:     traceID,
		ClientID:    clientID,
		Action:      stage,
		Details:     detail,
		Success:     success,
	})
}

// RetentionConfig specifies per-table retention in days. Zero means no cleanup.
type RetentionConfig struct {
	HTTPLogsDays   int
	EventLogsDays  int
	MetricsDays    int
	RunVacuumAfter bool
}

// Cleanup deletes records exceeding the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()

	type cleanupTarget struct {
		table  string
		column string
		days   int
	}
	targets := []cleanupTarget{
		{"http_request_logs", "created_at", cfg.HTTPLogsDays},
		{"business_event_logs", "created_at", cfg.EventLogsDays},
		{"metrics_timeseries", "created_at", cfg.MetricsDays},
	}

	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days*86400)
		// Table and column names come from the fixed list above, never from
		// external input.
		q := "DELETE FROM " + t.table + " WHERE " + t.column + " < ?"
		if _, err := db.ExecContext(ctx, q, cutoff); err != nil {
			return err
		}
	}

	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return err
		}
	}
	return nil
}
