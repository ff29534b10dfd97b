package agent

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/plume/kit"
)

// RegisterMCP registers the generation tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerGenerateTool(srv)
	s.registerSignalsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// --- generate ---

type generateReq struct {
	Goal string `json:"goal"`
}

func (s *Service) registerGenerateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "plume_generate",
		Description: "Generate marketing copy for a goal. Pulls in a source page when the goal contains a URL.",
		InputSchema: inputSchema(map[string]any{
			"goal": map[string]any{"type": "string", "description": "What the content should achieve, optionally with a source URL"},
		}, []string{"goal"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*generateReq)
		parsed, err := NewRequest(r.Goal)
		if err != nil {
			return nil, err
		}
		return s.Run(ctx, parsed)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r generateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- signals ---

type signalsReq struct {
	Goal string `json:"goal"`
}

func (s *Service) registerSignalsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "plume_signals",
		Description: "Classify a content goal into kind and tone without generating.",
		InputSchema: inputSchema(map[string]any{
			"goal": map[string]any{"type": "string", "description": "Goal text to classify"},
		}, []string{"goal"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*signalsReq)
		parsed, err := NewRequest(r.Goal)
		if err != nil {
			return nil, err
		}
		sig := s.Detect(parsed.Goal)
		return map[string]any{
			"kind":       sig.Kind,
			"tone":       sig.Tone,
			"confidence": sig.Confidence,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r signalsReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
