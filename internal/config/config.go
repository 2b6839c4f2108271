package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a docfactory configuration from the given YAML file
// path, then applies defaults to any fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the first
// one found. Search order: ./docfactory.yaml, ~/.docfactory/config.yaml.
// If none exists, a config with all defaults is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"docfactory.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".docfactory", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero-valued fields with the built-in defaults.
func applyDefaults(cfg *Config) {
	if cfg.Agent.Binary == "" {
		cfg.Agent.Binary = "claude"
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "claude-sonnet-4-5"
	}
	if cfg.Agent.Timeout == "" {
		cfg.Agent.Timeout = "15m"
	}

	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 2
	}
	if cfg.Pipeline.RetryBackoff == "" {
		cfg.Pipeline.RetryBackoff = "3s"
	}
	if cfg.Pipeline.PollInterval == "" {
		cfg.Pipeline.PollInterval = "10s"
	}
	if cfg.Pipeline.EarlyFailAfter == "" {
		cfg.Pipeline.EarlyFailAfter = "45s"
	}
	if cfg.Pipeline.StallTicks == 0 {
		cfg.Pipeline.StallTicks = 9
	}
	if cfg.Pipeline.WaitTimeout == "" {
		cfg.Pipeline.WaitTimeout = "600s"
	}
	if cfg.Pipeline.FallbackTasks == 0 {
		cfg.Pipeline.FallbackTasks = 3
	}

	if cfg.Renderer.Binary == "" {
		cfg.Renderer.Binary = "mmdc"
	}
	if cfg.Renderer.Theme == "" {
		cfg.Renderer.Theme = "neutral"
	}
	if cfg.Renderer.Background == "" {
		cfg.Renderer.Background = "white"
	}
	if cfg.Renderer.Scale == 0 {
		cfg.Renderer.Scale = 2
	}
	if cfg.Renderer.Timeout == "" {
		cfg.Renderer.Timeout = "60s"
	}

	if cfg.Site.Binary == "" {
		cfg.Site.Binary = "mkdocs"
	}
	if cfg.Site.Timeout == "" {
		cfg.Site.Timeout = "5m"
	}

	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = 8
	}
	if cfg.Analysis.Workers > 8 {
		cfg.Analysis.Workers = 8
	}
}

// Duration parses a duration field, returning fallback on empty or bad input.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
