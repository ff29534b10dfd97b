package agent

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/plume/llm"
)

func testRouter(t *testing.T, fake *llm.Fake) chi.Router {
	t.Helper()
	svc := testService(t, fake)
	r := chi.NewRouter()
	svc.RegisterHTTP(r)
	return r
}

func postGoal(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// WHAT: a valid goal returns 200 with result, kind and tone.
func TestHandleGenerate_Success(t *testing.T) {
	fake := &llm.Fake{Script: []llm.FakeResult{
		{Text: "draft"},
		{Text: "final copy"},
	}}
	r := testRouter(t, fake)

	rec := postGoal(t, r, "/agent", `{"goal":"Launch of EcoBottle, playful tone, no URL"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var out Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result != "final copy" {
		t.Errorf("result = %q", out.Result)
	}
	if out.Kind != "product_launch" || out.Tone != "playful" {
		t.Errorf("signals = %s/%s", out.Kind, out.Tone)
	}
}

// WHAT: the legacy path serves the same handler.
func TestHandleGenerate_Alias(t *testing.T) {
	r := testRouter(t, &llm.Fake{})
	rec := postGoal(t, r, "/api/generate-content", `{"goal":"announce our new office"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

// WHAT: validation failures are 400 with the taxonomy message; nothing
// reaches the generation client.
func TestHandleGenerate_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing goal", `{}`, "goal is required"},
		{"too short", `{"goal":"ab"}`, "at least 3"},
		{"too long", `{"goal":"` + strings.Repeat("a", 2501) + `"}`, "at most 2500"},
		{"malformed", `{`, "goal is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fake := &llm.Fake{}
			r := testRouter(t, fake)
			rec := postGoal(t, r, "/agent", c.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			json.Unmarshal(rec.Body.Bytes(), &body)
			if !strings.Contains(body["error"], c.want) {
				t.Errorf("error = %q, want mention of %q", body["error"], c.want)
			}
			if fake.CallCount() != 0 {
				t.Error("generation client called for invalid request")
			}
		})
	}
}

// WHAT: a fatal generation failure maps to 502 without echoing upstream
// payloads.
func TestHandleGenerate_UpstreamFailure(t *testing.T) {
	fake := &llm.Fake{Script: []llm.FakeResult{
		{Err: llm.ErrUnavailable},
	}}
	r := testRouter(t, fake)

	rec := postGoal(t, r, "/agent", `{"goal":"announce our new office"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "content generation failed" {
		t.Errorf("error = %q", body["error"])
	}
	if body["details"] == "" {
		t.Error("missing details field")
	}
}

// WHAT: /health answers without touching the pipeline.
func TestHandleHealth(t *testing.T) {
	fake := &llm.Fake{}
	r := testRouter(t, fake)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["ts"] == "" {
		t.Errorf("body = %v", body)
	}
	if fake.CallCount() != 0 {
		t.Error("health check invoked the pipeline")
	}
}
