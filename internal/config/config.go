package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const DefaultAnalyticsBaseURL = "http://localhost:5000"

type AppConfig struct {
	AnalyticsBaseURL string
	ListenAddr       string
	BackendAddr      string

	RedisURL    string
	DatabaseURL string

	SessionTTLSec     int
	RequestTimeoutSec int
	ReportMoves       bool

	CatalogOverrideDir string
	PlayersFile        string
}

// LoadDotEnv loads the given .env files, or ./.env when none are given.
// Missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AnalyticsBaseURL:  DefaultAnalyticsBaseURL,
		ListenAddr:        ":8080",
		BackendAddr:       ":5000",
		SessionTTLSec:     3600,
		RequestTimeoutSec: 30,
	}

	if v := strings.TrimSpace(os.Getenv("ANALYTICS_BASE_URL")); v != "" {
		cfg.AnalyticsBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("BACKEND_LISTEN_ADDR")); v != "" {
		cfg.BackendAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_MOVES")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.ReportMoves = b
		}
	}

	cfg.CatalogOverrideDir = strings.TrimSpace(os.Getenv("CATALOG_OVERRIDE_DIR"))
	cfg.PlayersFile = strings.TrimSpace(os.Getenv("PLAYERS_FILE"))

	if !strings.HasPrefix(cfg.AnalyticsBaseURL, "http://") && !strings.HasPrefix(cfg.AnalyticsBaseURL, "https://") {
		return nil, errors.New("ANALYTICS_BASE_URL must be an http(s) URL")
	}
	if cfg.ListenAddr == cfg.BackendAddr {
		return nil, errors.New("LISTEN_ADDR and BACKEND_LISTEN_ADDR must differ")
	}

	return cfg, nil
}
