// Package shield provides the HTTP protection middleware for the plume API:
// security headers, per-IP sliding-window rate limiting, body size caps,
// request tracing, and CORS for the browser frontend.
//
// Usage:
//
//	rl := shield.NewRateLimiter(15, time.Minute, "/health")
//	rl.StartGC(done)
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxBody(5 << 20))
//	r.Use(shield.TraceID)
//	r.Use(shield.CORS(origins))
//	r.Use(rl.Middleware)
package shield

import (
	"context"
	"log/slog"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
