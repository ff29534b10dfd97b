// Package agent runs the content-generation pipeline: validate the goal,
// optionally pull in a source page, classify intent, draft and refine copy
// through the generative-text client, and persist the result as a markdown
// artifact.
//
// Stage policy: only a failed draft kills a request. Extraction, refinement
// and persistence degrade instead, each adding a warning to the outcome.
package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/plume/agent/internal/artifact"
	"github.com/hazyhaar/plume/agent/internal/fetch"
	"github.com/hazyhaar/plume/agent/internal/signals"
	"github.com/hazyhaar/plume/extract"
	"github.com/hazyhaar/plume/kit"
	"github.com/hazyhaar/plume/llm"
	"github.com/hazyhaar/plume/observability"
)

// Pipeline stage names, used in logs and stage events.
const (
	StageExtracting = "extracting"
	StageDetecting  = "detecting"
	StageDrafting   = "drafting"
	StageRefining   = "refining"
	StagePersisting = "persisting"
)

// Service is the pipeline orchestrator. Construct with New; all fields are
// read-only after construction, so one Service serves concurrent requests.
type Service struct {
	cfg       *Config
	client    llm.Client
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	detector  *signals.Detector
	writer    *artifact.Writer
	logger    *slog.Logger

	events  *observability.EventLogger
	metrics *observability.MetricsManager
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEvents sets the business event logger.
func WithEvents(e *observability.EventLogger) Option {
	return func(s *Service) { s.events = e }
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *observability.MetricsManager) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFetcher overrides the source fetcher.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithDetector overrides the signal detector.
func WithDetector(d *signals.Detector) Option {
	return func(s *Service) { s.detector = d }
}

// New builds a Service from cfg. A nil cfg selects the defaults.
func New(cfg *Config, client llm.Client, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, errors.New("agent: llm client is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()

	var lex *signals.Lexicon
	if cfg.LexiconPath != "" {
		var err error
		lex, err = signals.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
	}

	s := &Service{
		cfg:       cfg,
		client:    client,
		fetcher:   fetch.New(fetch.Config{Timeout: cfg.FetchTimeout}),
		extractor: extract.New(cfg.MaxSourceChars),
		detector:  signals.NewDetector(lex),
		writer:    artifact.NewWriter(cfg.OutputDir),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run executes the pipeline for a validated request. A nil error with
// Outcome.Warnings set is a deliberate partial success; a non-nil error is
// always a *PipelineError from the drafting stage.
func (s *Service) Run(ctx context.Context, req GenerationRequest) (*Outcome, error) {
	goalHash := hashGoal(req.Goal)
	log := s.logger.With(
		"goal_hash", goalHash,
		"trace_id", kit.GetTraceID(ctx),
	)
	var warnings []string

	// Extraction: degraded, never fatal.
	var sourceText string
	if req.SourceURL != "" {
		start := time.Now()
		text, err := s.extractSource(ctx, req.SourceURL)
		s.recordStage(ctx, StageExtracting, goalHash, start, err)
		if err != nil {
			log.Warn("source extraction failed, continuing goal-only",
				"url", req.SourceURL, "error", err)
			warnings = append(warnings, "source page could not be used: "+degradeReason(err))
		} else {
			sourceText = text
		}
	}

	sig := s.detector.Detect(req.Goal, sourceText)
	s.recordStage(ctx, StageDetecting, goalHash, time.Now(), nil)
	log.Info("signals detected", "kind", sig.Kind, "tone", sig.Tone, "confidence", sig.Confidence)

	// Drafting: the one fatal stage.
	start := time.Now()
	draft, err := s.draft(ctx, req, sig, sourceText)
	s.recordStage(ctx, StageDrafting, goalHash, start, err)
	if err != nil {
		log.Error("draft generation failed", "error", err)
		return nil, &PipelineError{Stage: StageDrafting, Err: err}
	}

	// Refining: soft-fail back to the draft.
	start = time.Now()
	text, err := s.refine(ctx, draft, sig)
	s.recordStage(ctx, StageRefining, goalHash, start, err)
	if err != nil {
		log.Warn("refinement failed, returning unrefined draft", "error", err)
		warnings = append(warnings, "refinement unavailable, returning draft")
		text = draft.Text
	}

	// Persisting: soft-fail, content is still returned.
	start = time.Now()
	art, err := s.persist(ctx, req, sig, goalHash, text)
	s.recordStage(ctx, StagePersisting, goalHash, start, err)
	var artifactPath string
	if err != nil {
		log.Warn("artifact write failed", "error", err)
		warnings = append(warnings, "content could not be saved to disk")
	} else {
		artifactPath = art.Filename
	}

	if s.metrics != nil {
		s.metrics.RecordSimple(observability.MetricGenerationCount, 1, "count")
	}
	return &Outcome{
		Result:       text,
		Kind:         sig.Kind,
		Tone:         sig.Tone,
		Confidence:   sig.Confidence,
		Warnings:     warnings,
		ArtifactPath: artifactPath,
		Degraded:     len(warnings) > 0,
	}, nil
}

// Detect exposes classification without generation, for the signals tool.
func (s *Service) Detect(goal string) signals.Signals {
	return s.detector.Detect(goal, "")
}

func (s *Service) extractSource(ctx context.Context, url string) (string, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(page.ContentType, "text/plain") {
		return s.extractor.FromText(page.Body).Text, nil
	}
	res, err := s.extractor.FromHTML(page.Body, url)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (s *Service) draft(ctx context.Context, req GenerationRequest, sig signals.Signals, sourceText string) (Draft, error) {
	text, err := s.client.Generate(ctx, draftPrompt(req, sig, sourceText), s.cfg.DraftMaxTokens)
	if err != nil {
		return Draft{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Draft{}, fmt.Errorf("%w: empty draft", llm.ErrUnavailable)
	}
	return Draft{Text: text, WordCount: len(strings.Fields(text))}, nil
}

func (s *Service) refine(ctx context.Context, draft Draft, sig signals.Signals) (string, error) {
	text, err := s.client.Generate(ctx, refinePrompt(draft, sig, s.cfg.MaxContentChars), s.cfg.RefineMaxTokens)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty refinement", llm.ErrUnavailable)
	}
	return text, nil
}

func (s *Service) persist(ctx context.Context, req GenerationRequest, sig signals.Signals, goalHash, content string) (*artifact.Artifact, error) {
	return s.writer.Persist(ctx, artifact.Meta{
		GoalHash:  goalHash,
		Kind:      string(sig.Kind),
		Tone:      string(sig.Tone),
		SourceURL: req.SourceURL,
		TraceID:   kit.GetTraceID(ctx),
	}, req.Goal, content)
}

func (s *Service) recordStage(ctx context.Context, stage, goalHash string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDuration(observability.MetricStageDurationMs, stage, time.Since(start))
	}
	if s.events != nil {
		detail := ""
		if err != nil {
			detail = fmt.Sprintf(`{"error":%q}`, err.Error())
		}
		s.events.LogStage(ctx, stage, goalHash,
			kit.GetTraceID(ctx), kit.GetClientID(ctx), err == nil, detail)
	}
}

// degradeReason maps fetch/extract failures to a user-safe phrase.
func degradeReason(err error) string {
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return "the page took too long to respond"
	case errors.Is(err, fetch.ErrBadStatus):
		return "the page returned an error"
	case errors.Is(err, fetch.ErrUnsupportedType):
		return "the page is not text content"
	default:
		return "the page could not be reached"
	}
}

func hashGoal(goal string) string {
	h := sha256.Sum256([]byte(goal))
	return hex.EncodeToString(h[:4])
}
