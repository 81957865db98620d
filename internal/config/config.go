// Package config loads server configuration from the environment. A .env
// file is honored when present. The Gemini credential is the only required
// setting; everything else has a default.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey makes startup fail when no credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable not set")

type Config struct {
	// APIKey is the Gemini API credential. Required.
	APIKey string
	// Addr is the HTTP listen address.
	Addr string
	// DBPath is the sqlite file holding the history snapshot.
	DBPath string
	// SnapshotKey is the entry name the history is stored under.
	SnapshotKey string
	// StaticDir is served at the root path.
	StaticDir string
}

func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		Addr:        envOr("BRAGA_ADDR", ":8100"),
		DBPath:      envOr("BRAGA_DB_PATH", "braga-ia.db"),
		SnapshotKey: envOr("BRAGA_SNAPSHOT_KEY", "braga-ia-history"),
		StaticDir:   envOr("BRAGA_STATIC_DIR", "web"),
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
