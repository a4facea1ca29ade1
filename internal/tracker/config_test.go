package tracker

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := `
base_url: https://tracker.example.com/api
token_path: /tmp/token
timezone: UTC
timeout: 5s
max_retries: 1
window_days: 7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.BaseURL != "https://tracker.example.com/api" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 1 || cfg.WindowDays != 7 {
		t.Errorf("unexpected retries/window %d/%d", cfg.MaxRetries, cfg.WindowDays)
	}
	// Unset keys keep their defaults.
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("expected default retry delay, got %v", cfg.RetryDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"TRACKER_DUMP_PATH":   "/data/dump.json",
		"TRACKER_TIMEOUT":     "2s",
		"TRACKER_MAX_RETRIES": "9",
	}
	cfg := DefaultConfig()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	if cfg.DumpPath != "/data/dump.json" || cfg.Timeout != 2*time.Second || cfg.MaxRetries != 9 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestConfig_EnvOverrideInvalid(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "TRACKER_MAX_RETRIES" {
			return "many", true
		}
		return "", false
	})
	if err == nil {
		t.Error("expected error for non-numeric retries")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	cfg.BaseURL = "http://localhost"
	cfg.Timezone = "Not/AZone"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
