// Package config loads the harness's recognized configuration keys (spec
// §6) via viper, adapted from the teacher's infrastructure/config package
// but narrowed to the spec's single optional config file plus env
// overrides (see DESIGN.md's config-scope open question).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// SearchConfig holds the web_search tool's provider settings.
type SearchConfig struct {
	DDGRateLimitSecs   float64 `mapstructure:"ddg_rate_limit_secs"`
	BraveAPIKey        string  `mapstructure:"brave_api_key"`
	BraveRateLimitSecs float64 `mapstructure:"brave_rate_limit_secs"`
}

// SleepConfig holds the sleep tool's safety cap.
type SleepConfig struct {
	MaxSleepDurationSecs int `mapstructure:"max_sleep_duration_secs"`
}

// CommandFilterConfig holds the safety layer's allow/deny command policy.
type CommandFilterConfig struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

// Config is exactly the set of recognized keys named in spec §6.
type Config struct {
	Model               string              `mapstructure:"model"`
	ContextWindowTokens int                 `mapstructure:"context_window_tokens"`
	SoftThreshold       float64             `mapstructure:"soft_threshold"`
	HardThreshold       float64             `mapstructure:"hard_threshold"`
	CarryoverTurns      int                 `mapstructure:"carryover_turns"`
	MaxRestarts         int                 `mapstructure:"max_restarts"`
	TurnDelayMs         int                 `mapstructure:"turn_delay_ms"`
	Search              SearchConfig        `mapstructure:"search"`
	Sleep               SleepConfig         `mapstructure:"sleep"`
	CommandFilter       CommandFilterConfig `mapstructure:"command_filter"`
	WorkspaceRoot       string              `mapstructure:"workspace_root"`
	OllamaHost          string              `mapstructure:"ollama_host"`
}

// setDefaults mirrors the spec's documented defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("context_window_tokens", 128000)
	v.SetDefault("soft_threshold", 0.70)
	v.SetDefault("hard_threshold", 0.90)
	v.SetDefault("carryover_turns", 4)
	v.SetDefault("max_restarts", 0) // 0 = unlimited
	v.SetDefault("turn_delay_ms", 0)
	v.SetDefault("search.ddg_rate_limit_secs", 2.0)
	v.SetDefault("search.brave_rate_limit_secs", 1.0)
	v.SetDefault("sleep.max_sleep_duration_secs", 3600)
	v.SetDefault("ollama_host", "http://localhost:11434")
}

// Load reads an optional ouro.yaml from configPath (if non-empty) or the
// current directory, applying OURO_-prefixed environment overrides on top.
// A missing config file is not an error — every key has a documented
// default.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ouro")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFoundType := err.(viper.ConfigFileNotFoundError)
		// An explicitly set config file that doesn't exist surfaces as a
		// plain os.ErrNotExist, not viper.ConfigFileNotFoundError (that type
		// is only produced by the search-by-name path). Treat both the same:
		// a missing config file is never fatal, per this function's contract.
		if !notFoundType && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("OURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only reaches keys viper already knows (defaults or the
	// config file); bind the keys without a default so Unmarshal sees them.
	for _, key := range []string{"model", "workspace_root", "search.brave_api_key"} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.WorkspaceRoot != "" {
		abs, err := filepath.Abs(cfg.WorkspaceRoot)
		if err == nil {
			cfg.WorkspaceRoot = abs
		}
	}

	return &cfg, nil
}
