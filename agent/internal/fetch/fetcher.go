// Package fetch retrieves source pages for the generation pipeline with
// hard bounds on time and size. Fetches are cancellable through the request
// context; a slow or hostile origin can never hold a pipeline slot past the
// deadline.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/plume/horosafe"
)

// Failure taxonomy for source fetching. All of these are recoverable at the
// pipeline level: the orchestrator degrades to goal-only generation.
var (
	ErrTimeout         = errors.New("fetch: deadline exceeded")
	ErrUnreachable     = errors.New("fetch: host unreachable")
	ErrBadStatus       = errors.New("fetch: non-2xx status")
	ErrUnsupportedType = errors.New("fetch: unsupported content type")
)

// Page is a successfully fetched source document.
type Page struct {
	URL         string
	Body        []byte
	ContentType string // media type without parameters, e.g. "text/html"
	Status      int
}

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // per-fetch deadline. Default: 8s.
	MaxBytes int64         // max response body size. Default: 2MB.
	// UserAgent sent with requests.
	UserAgent string
	// URLValidator validates URLs before fetch and on every redirect
	// (SSRF prevention). Default: horosafe.ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 2 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "plume/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
}

// Fetcher performs bounded HTTP GETs with SSRF protection on redirects.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves url within the configured deadline. Only text/html,
// application/xhtml+xml, and text/plain responses are accepted.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := f.config.URLValidator(url); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: http %d", ErrBadStatus, resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType != "" {
		if mt, _, mtErr := mime.ParseMediaType(mediaType); mtErr == nil {
			mediaType = mt
		}
	}
	if !supportedType(mediaType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mediaType)
	}

	// Oversized bodies are cut at MaxBytes, not rejected: the extractor
	// applies its own character cap with a truncation flag downstream.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}

	return &Page{
		URL:         url,
		Body:        body,
		ContentType: mediaType,
		Status:      resp.StatusCode,
	}, nil
}

func supportedType(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case "text/html", "application/xhtml+xml", "text/plain", "":
		return true
	}
	return false
}
