package shield

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/plume/kit"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the client must wait for a slot to free up.
	// Only set when Allowed is false; always in (0, window].
	RetryAfter time.Duration
}

// RateLimiter admits or rejects requests per client using a sliding window
// of request timestamps. A client may make at most limit requests in any
// trailing window; the admission slot is consumed at admit time and is not
// refunded if the request is later cancelled.
//
// Windows for idle clients are removed on prune and by the background GC,
// so the map only holds recently-active clients.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	exclude []string // path prefixes excluded from rate limiting
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window per
// client. excludePrefixes lists URL path prefixes that bypass the limiter
// (health checks, static assets).
func NewRateLimiter(limit int, window time.Duration, excludePrefixes ...string) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		exclude: excludePrefixes,
		now:     time.Now,
	}
}

// Admit checks and consumes an admission slot for clientID at the current time.
func (rl *RateLimiter) Admit(clientID string) Decision {
	return rl.AdmitAt(clientID, rl.now())
}

// AdmitAt checks and consumes an admission slot for clientID at the given
// instant. The prune-then-append sequence runs under the limiter mutex so
// two concurrent requests can never both take the last slot.
func (rl *RateLimiter) AdmitAt(clientID string, now time.Time) Decision {
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w := rl.windows[clientID]
	i := 0
	for i < len(w) && !w[i].After(cutoff) {
		i++
	}
	if i > 0 {
		// Copy into a fresh backing array so pruned entries can be collected.
		w = append(w[:0:0], w[i:]...)
	}

	if len(w) < rl.limit {
		rl.windows[clientID] = append(w, now)
		return Decision{Allowed: true}
	}

	rl.windows[clientID] = w
	return Decision{
		Allowed:    false,
		RetryAfter: rl.window - now.Sub(w[0]),
	}
}

// Sweep prunes every client window and removes the ones that emptied.
func (rl *RateLimiter) Sweep() {
	cutoff := rl.now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, w := range rl.windows {
		i := 0
		for i < len(w) && !w[i].After(cutoff) {
			i++
		}
		if i == len(w) {
			delete(rl.windows, id)
		} else if i > 0 {
			rl.windows[id] = append(w[:0:0], w[i:]...)
		}
	}
}

// StartGC starts a background goroutine that sweeps idle client windows
// every window duration. Stops when done is closed.
func (rl *RateLimiter) StartGC(done <-chan struct{}) {
	t := time.NewTicker(rl.window)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				rl.Sweep()
			}
		}
	}()
}

// ActiveClients returns the number of clients with a live window.
// Used by tests and the status surface.
func (rl *RateLimiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Middleware enforces the rate limit before any handler work. Rejected
// requests get a 429 JSON body with a Retry-After header. The client ID is
// also stored in the request context for downstream correlation.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ExtractIP(r)
		ctx := kit.WithClientID(r.Context(), ip)

		dec := rl.Admit(ip)
		if !dec.Allowed {
			slog.Warn("ratelimit: request blocked",
				"ip", ip, "path", r.URL.Path, "retry_after_ms", dec.RetryAfter.Milliseconds())

			retrySecs := int(dec.RetryAfter.Seconds())
			if retrySecs < 1 {
				retrySecs = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySecs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "too many requests",
				"limit": fmt.Sprintf("%d/%s", rl.limit, windowLabel(rl.window)),
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func windowLabel(d time.Duration) string {
	if d == time.Minute {
		return "min"
	}
	return d.String()
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return strings.TrimSpace(xff[:i])
			}
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
