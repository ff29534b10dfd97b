// Package llm defines the narrow capability interface over the remote
// generative-text service, so the draft and refine stages are independently
// testable against a scripted fake.
//
// The upstream is treated as opaque, slow, and possibly rate-limited: every
// call is context-bounded, and failures map to a small stable taxonomy.
// Provider error payloads never cross this package boundary verbatim.
package llm

import (
	"context"
	"errors"
	"time"
)

// Client generates text for a prompt, bounded by maxTokens.
type Client interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Failure taxonomy. Implementations wrap these sentinels so callers can
// classify with errors.Is without seeing provider details.
var (
	// ErrUnavailable covers transport, auth, quota, and server-side failures.
	ErrUnavailable = errors.New("llm: upstream unavailable")
	// ErrRejected covers content-policy refusals of the prompt or output.
	ErrRejected = errors.New("llm: upstream rejected request")
	// ErrTimeout covers deadline expiry, including caller cancellation.
	ErrTimeout = errors.New("llm: upstream deadline exceeded")
)

// Settings carries provider configuration resolved at startup.
type Settings struct {
	Model   string
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible gateways
	// Timeout bounds a single Generate call. Zero means the caller's
	// context deadline is the only bound.
	Timeout time.Duration
}
