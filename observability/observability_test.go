package observability

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazyhaar/plume/dbopen"
	_ "modernc.org/sqlite"
)

func setupObsDB(t *testing.T) *sql.DB {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return db
}

// WHAT: Init creates every observability table.
func TestInit_CreatesAllTables(t *testing.T) {
	db := setupObsDB(t)
	for _, table := range []string{
		"business_event_logs", "metrics_timeseries", "http_request_logs",
		"_observability_metadata",
	} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

// WHAT: stage events land in business_event_logs with trace correlation.
func TestEventLogger_LogStage(t *testing.T) {
	db := setupObsDB(t)
	l := NewEventLogger(db)

	l.LogStage(context.Background(), "drafting", "abcd1234", "tr_1", "203.0.113.9", true, "")
	l.LogStage(context.Background(), "refining", "abcd1234", "tr_1", "203.0.113.9", false, `{"error":"upstream"}`)

	var count int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM business_event_logs WHERE trace_id = 'tr_1'",
	).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}

	var success int
	if err := db.QueryRow(
		"SELECT success FROM business_event_logs WHERE action = 'refining'",
	).Scan(&success); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if success != 0 {
		t.Errorf("refining event should be recorded as failed")
	}
}

// WHAT: recorded metrics are queryable after Close flushes the buffer.
func TestMetricsManager_RecordAndQuery(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour) // flush only on Close

	mm.RecordDuration(MetricStageDurationMs, "drafting", 1200*time.Millisecond)
	mm.RecordSimple(MetricGenerationCount, 1, "count")
	if err := mm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := mm.Query(MetricStageDurationMs, nil, nil, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(got))
	}
	if got[0].Value != 1200 {
		t.Errorf("value = %v, want 1200", got[0].Value)
	}
	if got[0].Labels["stage"] != "drafting" {
		t.Errorf("labels = %v, want stage=drafting", got[0].Labels)
	}
}

// WHAT: the HTTP middleware records method, path and status for each request
// and the row is visible once the logger is closed.
func TestHTTPLogger_Middleware(t *testing.T) {
	db := setupObsDB(t)
	hl := NewHTTPLogger(db, 10)

	handler := hl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodPost, "/agent", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if err := hl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var method, path string
	var status int
	err := db.QueryRow(
		"SELECT method, path, status_code FROM http_request_logs LIMIT 1",
	).Scan(&method, &path, &status)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if method != "POST" || path != "/agent" || status != http.StatusTeapot {
		t.Errorf("logged %s %s %d, want POST /agent 418", method, path, status)
	}
}

// WHAT: Cleanup removes rows older than the retention threshold and keeps
// recent ones.
func TestCleanup_Retention(t *testing.T) {
	db := setupObsDB(t)
	old := time.Now().AddDate(0, 0, -40).Unix()
	now := time.Now().Unix()

	db.Exec("INSERT INTO http_request_logs (method, path, created_at) VALUES ('GET', '/old', ?)", old)
	db.Exec("INSERT INTO http_request_logs (method, path, created_at) VALUES ('GET', '/new', ?)", now)

	err := Cleanup(context.Background(), db, RetentionConfig{HTTPLogsDays: 30})
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM http_request_logs").Scan(&count)
	if count != 1 {
		t.Fatalf("expected 1 row after cleanup, got %d", count)
	}
}
