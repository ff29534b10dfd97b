package llm

import (
	"context"
	"strings"
	"sync"
)

// FakeCall records one Generate invocation against a Fake.
type FakeCall struct {
	Prompt    string
	MaxTokens int
}

// FakeResult scripts the outcome of one Generate call.
type FakeResult struct {
	Text string
	Err  error
}

// Fake is a scripted Client for tests: each call pops the next FakeResult.
// When the script is exhausted, calls echo a canned completion so simple
// tests don't need a script at all.
type Fake struct {
	mu     sync.Mutex
	Script []FakeResult
	Calls  []FakeCall
}

func (f *Fake) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrTimeout
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, FakeCall{Prompt: prompt, MaxTokens: maxTokens})

	if len(f.Script) > 0 {
		next := f.Script[0]
		f.Script = f.Script[1:]
		return next.Text, next.Err
	}

	// Default canned output: the first prompt line, echoed.
	line, _, _ := strings.Cut(prompt, "\n")
	return "Generated: " + line, nil
}

// CallCount returns how many Generate calls the fake has seen.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
