package llm

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Budget wraps a Client with a process-wide token bucket so the aggregate
// upstream spend stays bounded independently of per-client rate limits.
// Waiting for a slot respects the caller's deadline, so a saturated budget
// degrades into ErrTimeout/ErrUnavailable rather than unbounded queueing.
type Budget struct {
	inner Client
	lim   *rate.Limiter
}

// WithBudget caps the wrapped client at callsPerMinute sustained, allowing
// short bursts of burst calls.
func WithBudget(inner Client, callsPerMinute, burst int) *Budget {
	return &Budget{
		inner: inner,
		lim:   rate.NewLimiter(rate.Limit(callsPerMinute)/60.0, burst),
	}
}

// Generate waits for a budget slot, then delegates.
func (b *Budget) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := b.lim.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: budget wait: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: generation budget exhausted", ErrUnavailable)
	}
	return b.inner.Generate(ctx, prompt, maxTokens)
}
