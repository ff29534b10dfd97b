package observability

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/plume/kit"
	"github.com/hazyhaar/plume/shield"
)

// RequestLog is one HTTP request audit row.
type RequestLog struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	TraceID    string
	IPAddress  string
	UserAgent  string
}

// HTTPLogger records requests asynchronously through a buffered channel. A
// full buffer drops the row with a warning rather than applying backpressure
// to request handling.
type HTTPLogger struct {
	db   *sql.DB
	ch   chan *RequestLog
	stop chan struct{}
	done chan struct{}
}

// NewHTTPLogger creates an async request logger. Recommended bufferSize: 1000.
func NewHTTPLogger(db *sql.DB, bufferSize int) *HTTPLogger {
	h := &HTTPLogger{
		db:   db,
		ch:   make(chan *RequestLog, bufferSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.flushLoop()
	return h
}

// LogAsync queues a request row for persistence.
func (h *HTTPLogger) LogAsync(entry *RequestLog) {
	select {
	case h.ch <- entry:
	default:
		slog.Warn("observability http log buffer full, dropping", "path", entry.Path)
	}
}

// Close drains pending rows and stops the background goroutine.
func (h *HTTPLogger) Close() error {
	close(h.stop)
	<-h.done
	return nil
}

// Middleware returns a chi-compatible middleware recording every request.
func (h *HTTPLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		h.LogAsync(&RequestLog{
			Method:     r.Method,
			Path:       r.URL.Path,
			StatusCode: sw.status,
			Duration:   time.Since(start),
			TraceID:    kit.GetTraceID(r.Context()),
			IPAddress:  shield.ExtractIP(r),
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *HTTPLogger) flushLoop() {
	defer close(h.done)
	for {
		select {
		case entry := <-h.ch:
			h.insert(entry)
		case <-h.stop:
			for {
				select {
				case entry := <-h.ch:
					h.insert(entry)
				default:
					return
				}
			}
		}
	}
}

func (h *HTTPLogger) insert(e *RequestLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO http_request_logs (
			method, path, status_code, duration_ms, trace_id, ip_address, user_agent, created_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		e.Method, e.Path, e.StatusCode, e.Duration.Milliseconds(),
		e.TraceID, e.IPAddress, e.UserAgent, time.Now().Unix())
	if err != nil {
		slog.Error("observability http log failed", "error", err, "path", e.Path)
	}
}
