package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ContextWindowTokens != 128000 {
		t.Errorf("ContextWindowTokens = %d, want 128000", cfg.ContextWindowTokens)
	}
	if cfg.SoftThreshold != 0.70 || cfg.HardThreshold != 0.90 {
		t.Errorf("thresholds = %v/%v", cfg.SoftThreshold, cfg.HardThreshold)
	}
	if cfg.Sleep.MaxSleepDurationSecs != 3600 {
		t.Errorf("MaxSleepDurationSecs = %d, want 3600", cfg.Sleep.MaxSleepDurationSecs)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ouro.yaml")
	content := "model: llama3\ncarryover_turns: 7\nsearch:\n  brave_api_key: test-key\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "llama3" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.CarryoverTurns != 7 {
		t.Errorf("CarryoverTurns = %d, want 7", cfg.CarryoverTurns)
	}
	if cfg.Search.BraveAPIKey != "test-key" {
		t.Errorf("BraveAPIKey = %q", cfg.Search.BraveAPIKey)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("OURO_MODEL", "env-model")
	defer os.Unsetenv("OURO_MODEL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "env-model" {
		t.Errorf("Model = %q, want env-model", cfg.Model)
	}
}
