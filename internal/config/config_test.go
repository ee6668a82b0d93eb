package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ANALYTICS_BASE_URL", "LISTEN_ADDR", "BACKEND_LISTEN_ADDR", "SESSION_TTL_SEC", "REQUEST_TIMEOUT_SEC", "REPORT_MOVES"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnalyticsBaseURL != DefaultAnalyticsBaseURL {
		t.Fatalf("base url: got %q", cfg.AnalyticsBaseURL)
	}
	if cfg.SessionTTLSec != 3600 || cfg.RequestTimeoutSec != 30 {
		t.Fatalf("unexpected defaults: ttl=%d timeout=%d", cfg.SessionTTLSec, cfg.RequestTimeoutSec)
	}
	if cfg.ReportMoves {
		t.Fatalf("move reporting should default to off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANALYTICS_BASE_URL", "http://analytics.local:9000/")
	t.Setenv("SESSION_TTL_SEC", "120")
	t.Setenv("REQUEST_TIMEOUT_SEC", "nope")
	t.Setenv("REPORT_MOVES", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnalyticsBaseURL != "http://analytics.local:9000" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.AnalyticsBaseURL)
	}
	if cfg.SessionTTLSec != 120 {
		t.Fatalf("ttl: got %d", cfg.SessionTTLSec)
	}
	if cfg.RequestTimeoutSec != 30 {
		t.Fatalf("invalid timeout should keep default, got %d", cfg.RequestTimeoutSec)
	}
	if !cfg.ReportMoves {
		t.Fatalf("REPORT_MOVES=true not applied")
	}
}

func TestLoadRejectsBadBaseURL(t *testing.T) {
	t.Setenv("ANALYTICS_BASE_URL", "localhost:5000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for scheme-less base url")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("OPENINGQ_DOTENV_PROBE=yes\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("OPENINGQ_DOTENV_PROBE", "")
	os.Unsetenv("OPENINGQ_DOTENV_PROBE")
	LoadDotEnv(path, filepath.Join(dir, "missing.env"))
	if got := os.Getenv("OPENINGQ_DOTENV_PROBE"); got != "yes" {
		t.Fatalf("dotenv not loaded: %q", got)
	}
}
