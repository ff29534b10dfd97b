package agent

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/plume/llm"
)

// RegisterHTTP mounts the service endpoints on a chi router. The
// /api/generate-content alias exists for clients of the previous API shape.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Post("/agent", s.handleGenerate)
	r.Post("/api/generate-content", s.handleGenerate)
	r.Get("/health", s.handleHealth)
}

func (s *Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body", "")
		return
	}

	req, err := ParseRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	outcome, err := s.Run(r.Context(), req)
	if err != nil {
		s.writeRunError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339),
	})
}

// writeRunError maps a pipeline failure to a response without echoing the
// upstream provider's payload.
func (s *Service) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *PipelineError
	if !errors.As(err, &perr) {
		s.logger.Error("pipeline internal fault", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	switch {
	case errors.Is(perr.Err, llm.ErrRejected):
		writeError(w, http.StatusBadGateway, "content generation failed",
			"the request was declined by the generation service")
	case errors.Is(perr.Err, llm.ErrTimeout):
		writeError(w, http.StatusBadGateway, "content generation failed",
			"the generation service timed out")
	case errors.Is(perr.Err, llm.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "content generation failed",
			"the generation service is unavailable")
	default:
		s.logger.Error("pipeline internal fault", "stage", perr.Stage, "error", perr.Err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
