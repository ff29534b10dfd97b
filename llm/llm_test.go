package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewOpenAI_Validation(t *testing.T) {
	if _, err := NewOpenAI(Settings{Model: "gpt-4o-mini"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewOpenAI(Settings{APIKey: "sk-test"}); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := NewOpenAI(Settings{APIKey: "sk-test", Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFake_Script(t *testing.T) {
	f := &Fake{Script: []FakeResult{
		{Text: "first"},
		{Err: ErrUnavailable},
	}}

	got, err := f.Generate(context.Background(), "p1", 100)
	if err != nil || got != "first" {
		t.Fatalf("first call: got %q, %v", got, err)
	}

	_, err = f.Generate(context.Background(), "p2", 100)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("second call: got %v, want ErrUnavailable", err)
	}

	if f.CallCount() != 2 {
		t.Fatalf("call count: got %d", f.CallCount())
	}
	if f.Calls[1].Prompt != "p2" {
		t.Fatalf("recorded prompt: got %q", f.Calls[1].Prompt)
	}
}

func TestFake_CancelledContext(t *testing.T) {
	f := &Fake{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Generate(ctx, "p", 10)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("got %v, want ErrTimeout", err)
	}
}

func TestBudget_PassesThrough(t *testing.T) {
	f := &Fake{Script: []FakeResult{{Text: "ok"}}}
	b := WithBudget(f, 60, 1)

	got, err := b.Generate(context.Background(), "p", 10)
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestBudget_ExhaustedMapsToTimeout(t *testing.T) {
	// WHAT: A saturated budget with an expiring deadline yields ErrTimeout,
	// not an indefinite wait.
	f := &Fake{}
	b := WithBudget(f, 1, 1)

	// Consume the single burst slot.
	if _, err := b.Generate(context.Background(), "p", 10); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Generate(ctx, "p", 10)
	if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want taxonomy error", err)
	}
	if f.CallCount() != 1 {
		t.Fatalf("inner client called %d times, want 1", f.CallCount())
	}
}
