package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ocrd.yaml", `
aliases:
  tess: tesseract
preference: [paddleocr, tesseract]
priorities:
  tesseract: 9
protect_threshold: 7
pressure_ratio: 0.9
pool_budget_mb: 2048
default_languages: [eng, deu]
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Aliases["tess"] != "tesseract" {
		t.Fatalf("aliases not parsed: %+v", cfg.Aliases)
	}
	if len(cfg.Preference) != 2 || cfg.Preference[0] != "paddleocr" {
		t.Fatalf("preference not parsed: %v", cfg.Preference)
	}
	if cfg.Priorities["tesseract"] != 9 {
		t.Fatalf("priorities not parsed: %v", cfg.Priorities)
	}
	if cfg.ProtectThreshold != 7 || cfg.PressureRatio != 0.9 || cfg.PoolBudgetMB != 2048 {
		t.Fatalf("tuning not parsed: %+v", cfg)
	}
	if len(cfg.DefaultLanguages) != 2 || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "ocrd.json", `{
  "preference": ["easyocr"],
  "idle_minutes": 10,
  "recency_path": "/var/lib/ocrd/recency.json"
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Preference) != 1 || cfg.Preference[0] != "easyocr" {
		t.Fatalf("preference not parsed: %v", cfg.Preference)
	}
	if cfg.IdleMinutes != 10 || cfg.RecencyPath != "/var/lib/ocrd/recency.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "ocrd.toml", `
protect_threshold = 5
target_free_ratio = 0.2
log_format = "json"

[priorities]
paddleocr = 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProtectThreshold != 5 || cfg.TargetFreeRatio != 0.2 || cfg.LogFormat != "json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Priorities["paddleocr"] != 8 {
		t.Fatalf("priorities not parsed: %v", cfg.Priorities)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "ocrd.ini", "protect_threshold=5")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.ProtectThreshold != DefaultProtectThreshold {
		t.Fatalf("protect threshold default not applied: %d", cfg.ProtectThreshold)
	}
	if cfg.PressureRatio != DefaultPressureRatio || cfg.TargetFreeRatio != DefaultTargetFreeRatio {
		t.Fatalf("ratio defaults not applied: %+v", cfg)
	}
	if cfg.IdleMinutes != DefaultIdleMinutes {
		t.Fatalf("idle default not applied: %d", cfg.IdleMinutes)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Fatalf("logging defaults not applied: %+v", cfg)
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{ProtectThreshold: 3, PressureRatio: 0.5, LogLevel: "warn"}.WithDefaults()
	if cfg.ProtectThreshold != 3 || cfg.PressureRatio != 0.5 || cfg.LogLevel != "warn" {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestWithDefaultsRejectsOutOfRangeRatios(t *testing.T) {
	cfg := Config{PressureRatio: 1.4, TargetFreeRatio: -0.1}.WithDefaults()
	if cfg.PressureRatio != DefaultPressureRatio || cfg.TargetFreeRatio != DefaultTargetFreeRatio {
		t.Fatalf("out-of-range ratios must fall back to defaults: %+v", cfg)
	}
}

func TestPriorityFor(t *testing.T) {
	cfg := Config{Priorities: map[string]int{"tesseract": 9}}
	if got := cfg.PriorityFor("tesseract", 2); got != 9 {
		t.Fatalf("expected configured tier, got %d", got)
	}
	if got := cfg.PriorityFor("easyocr", 2); got != 2 {
		t.Fatalf("expected fallback tier, got %d", got)
	}
}
