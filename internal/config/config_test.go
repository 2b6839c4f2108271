package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docfactory.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  model: claude-opus-4-6
pipeline:
  max_retries: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Agent.Model != "claude-opus-4-6" {
		t.Errorf("Model = %q, want claude-opus-4-6", cfg.Agent.Model)
	}
	if cfg.Agent.Binary != "claude" {
		t.Errorf("Binary = %q, want claude (default)", cfg.Agent.Binary)
	}
	if cfg.Pipeline.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Pipeline.MaxRetries)
	}
	if cfg.Pipeline.PollInterval != "10s" {
		t.Errorf("PollInterval = %q, want 10s (default)", cfg.Pipeline.PollInterval)
	}
	if cfg.Pipeline.FallbackTasks != 3 {
		t.Errorf("FallbackTasks = %d, want 3 (default)", cfg.Pipeline.FallbackTasks)
	}
	if cfg.Renderer.Binary != "mmdc" {
		t.Errorf("Renderer.Binary = %q, want mmdc (default)", cfg.Renderer.Binary)
	}
	if cfg.Site.Binary != "mkdocs" {
		t.Errorf("Site.Binary = %q, want mkdocs (default)", cfg.Site.Binary)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "agent: [not: a: map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestWorkersCapped(t *testing.T) {
	path := writeConfig(t, `
analysis:
  workers: 32
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.Workers != 8 {
		t.Errorf("Workers = %d, want capped at 8", cfg.Analysis.Workers)
	}
}

func TestDuration(t *testing.T) {
	if d := Duration("45s", time.Minute); d != 45*time.Second {
		t.Errorf("Duration(45s) = %v", d)
	}
	if d := Duration("", time.Minute); d != time.Minute {
		t.Errorf("Duration(empty) = %v, want fallback", d)
	}
	if d := Duration("bogus", time.Minute); d != time.Minute {
		t.Errorf("Duration(bogus) = %v, want fallback", d)
	}
}
