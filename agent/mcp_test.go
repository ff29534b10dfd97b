package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/plume/llm"
)

var testMCPImpl = &mcp.Implementation{Name: "plume-test", Version: "0.1.0"}

func mcpSession(t *testing.T, fake *llm.Fake) *mcp.ClientSession {
	t.Helper()
	svc := testService(t, fake)
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

// WHAT: plume_signals classifies without invoking the generation client.
func TestMCP_Signals(t *testing.T) {
	fake := &llm.Fake{}
	session := mcpSession(t, fake)

	text := mcpCallTool(t, session, "plume_signals", map[string]any{
		"goal": "Launch of EcoBottle, playful tone, no URL",
	})

	var resp struct {
		Kind       string  `json:"kind"`
		Tone       string  `json:"tone"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Kind != "product_launch" || resp.Tone != "playful" {
		t.Errorf("signals = %s/%s", resp.Kind, resp.Tone)
	}
	if fake.CallCount() != 0 {
		t.Error("signals tool invoked generation")
	}
}

// WHAT: plume_generate runs the full pipeline and returns the outcome JSON.
func TestMCP_Generate(t *testing.T) {
	fake := &llm.Fake{Script: []llm.FakeResult{
		{Text: "draft"},
		{Text: "final copy"},
	}}
	session := mcpSession(t, fake)

	text := mcpCallTool(t, session, "plume_generate", map[string]any{
		"goal": "announce our annual conference",
	})

	var out Outcome
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Result != "final copy" {
		t.Errorf("result = %q", out.Result)
	}
	if out.Kind != "event" {
		t.Errorf("kind = %q, want event", out.Kind)
	}
}

// WHAT: validation failures surface as tool errors.
func TestMCP_Generate_InvalidGoal(t *testing.T) {
	session := mcpSession(t, &llm.Fake{})

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "plume_generate",
		Arguments: map[string]any{"goal": "ab"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for a two-character goal")
	}
}
