// Package config loads the static tuning consumed by the selector and the
// resource pool. The core never reads files on its own; callers load a Config
// here and pass the pieces in.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds selection and pool tuning.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	// Aliases maps short engine names to canonical ones.
	Aliases map[string]string `json:"aliases" yaml:"aliases" toml:"aliases"`
	// Preference is the static fallback order, most capable first.
	Preference []string `json:"preference" yaml:"preference" toml:"preference"`
	// Priorities assigns pool priority tiers per engine.
	Priorities map[string]int `json:"priorities" yaml:"priorities" toml:"priorities"`
	// ProtectThreshold is the priority tier eviction never touches.
	ProtectThreshold int `json:"protect_threshold" yaml:"protect_threshold" toml:"protect_threshold"`
	// PressureRatio triggers optimization when utilization exceeds it.
	PressureRatio float64 `json:"pressure_ratio" yaml:"pressure_ratio" toml:"pressure_ratio"`
	// TargetFreeRatio is the capacity fraction to free under pressure.
	TargetFreeRatio float64 `json:"target_free_ratio" yaml:"target_free_ratio" toml:"target_free_ratio"`
	// IdleMinutes is the default idle threshold for cleanup.
	IdleMinutes int `json:"idle_minutes" yaml:"idle_minutes" toml:"idle_minutes"`
	// PoolBudgetMB caps resident footprint when no accelerator telemetry is
	// present. Zero means unlimited.
	PoolBudgetMB int `json:"pool_budget_mb" yaml:"pool_budget_mb" toml:"pool_budget_mb"`
	// RecencyPath enables persistence of per-key recency metadata.
	RecencyPath string `json:"recency_path" yaml:"recency_path" toml:"recency_path"`
	// DefaultLanguages hints engines when artifacts carry none.
	DefaultLanguages []string `json:"default_languages" yaml:"default_languages" toml:"default_languages"`
	// LogLevel and LogFormat configure the process logger.
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// Defaults applied by WithDefaults.
const (
	DefaultProtectThreshold = 8
	DefaultPressureRatio    = 0.85
	DefaultTargetFreeRatio  = 0.15
	DefaultIdleMinutes      = 30
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults returns a copy with unset fields replaced by package defaults.
func (c Config) WithDefaults() Config {
	if c.ProtectThreshold <= 0 {
		c.ProtectThreshold = DefaultProtectThreshold
	}
	if c.PressureRatio <= 0 || c.PressureRatio > 1 {
		c.PressureRatio = DefaultPressureRatio
	}
	if c.TargetFreeRatio <= 0 || c.TargetFreeRatio > 1 {
		c.TargetFreeRatio = DefaultTargetFreeRatio
	}
	if c.IdleMinutes <= 0 {
		c.IdleMinutes = DefaultIdleMinutes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	return c
}

// PriorityFor returns the configured tier for an engine, or the fallback.
func (c Config) PriorityFor(engine string, fallback int) int {
	if p, ok := c.Priorities[engine]; ok {
		return p
	}
	return fallback
}
