package agent

import (
	"github.com/hazyhaar/plume/agent/internal/signals"
)

// GenerationRequest is a validated content request. SourceURL is the first
// http(s) URL found in the goal, empty when the goal names no page.
type GenerationRequest struct {
	Goal      string
	SourceURL string
}

// Draft is the raw first-pass text from the generative model.
type Draft struct {
	Text      string
	WordCount int
}

// Outcome is what a completed pipeline run hands back to the transport.
type Outcome struct {
	Result       string       `json:"result"`
	Kind         signals.Kind `json:"kind"`
	Tone         signals.Tone `json:"tone"`
	Confidence   float64      `json:"confidence"`
	Warnings     []string     `json:"warnings,omitempty"`
	ArtifactPath string       `json:"artifact,omitempty"`
	Degraded     bool         `json:"degraded,omitempty"`
}
