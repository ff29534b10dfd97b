package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minGoalLen = 3
	maxGoalLen = 2500
)

type requestBody struct {
	Goal string `json:"goal"`
}

// ParseRequest validates a raw JSON request body and extracts the optional
// source URL from the goal text. Length limits apply to the trimmed goal,
// counted in runes so multibyte scripts are not penalized.
func ParseRequest(body []byte) (GenerationRequest, error) {
	var req requestBody
	if err := json.Unmarshal(body, &req); err != nil {
		return GenerationRequest{}, fmt.Errorf("%w: malformed body", ErrMissingGoal)
	}
	return NewRequest(req.Goal)
}

// NewRequest validates a bare goal string. Transports that already decoded
// the body (MCP tools) call this directly.
func NewRequest(goal string) (GenerationRequest, error) {
	if !utf8.ValidString(goal) {
		return GenerationRequest{}, ErrInvalidEncoding
	}
	goal = strings.TrimSpace(goal)
	switch n := utf8.RuneCountInString(goal); {
	case n == 0:
		return GenerationRequest{}, ErrMissingGoal
	case n < minGoalLen:
		return GenerationRequest{}, ErrGoalTooShort
	case n > maxGoalLen:
		return GenerationRequest{}, ErrGoalTooLong
	}
	return GenerationRequest{Goal: goal, SourceURL: firstURL(goal)}, nil
}

// firstURL returns the first http(s):// substring of s, cut at the first
// whitespace or closing delimiter. Conservative: trailing punctuation that
// commonly ends a sentence is stripped.
func firstURL(s string) string {
	idx := strings.Index(s, "https://")
	if h := strings.Index(s, "http://"); h != -1 && (idx == -1 || h < idx) {
		idx = h
	}
	if idx == -1 {
		return ""
	}
	rest := s[idx:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\'' || r == '<' || r == '>' || r == ')'
	})
	if end != -1 {
		rest = rest[:end]
	}
	rest = strings.TrimRight(rest, ".,;:!?")
	// "http://" alone is not a URL.
	if rest == "http://" || rest == "https://" {
		return ""
	}
	return rest
}
