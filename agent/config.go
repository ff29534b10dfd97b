package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loadable from YAML. Zero values are
// filled by defaults(), so a partial file or none at all is fine.
type Config struct {
	OutputDir       string        `yaml:"output_dir"`
	LexiconPath     string        `yaml:"lexicon_path"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	MaxSourceChars  int           `yaml:"max_source_chars"`
	DraftMaxTokens  int           `yaml:"draft_max_tokens"`
	RefineMaxTokens int           `yaml:"refine_max_tokens"`
	MaxContentChars int           `yaml:"max_content_chars"`
	RateLimit       RateLimit     `yaml:"rate_limit"`
}

// RateLimit overrides the admission window. Consumed by cmd when building
// the shield middleware.
type RateLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

func (c *Config) defaults() {
	if c.OutputDir == "" {
		c.OutputDir = "generated-content"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 8 * time.Second
	}
	if c.MaxSourceChars <= 0 {
		c.MaxSourceChars = 20_000
	}
	if c.DraftMaxTokens <= 0 {
		c.DraftMaxTokens = 900
	}
	if c.RefineMaxTokens <= 0 {
		c.RefineMaxTokens = 700
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 2200
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = 15
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
	}
}

// LoadConfig reads a YAML config file. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.defaults()
	return &cfg, nil
}
