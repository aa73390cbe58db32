// Package config loads legtrack configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all process-level configuration values. Run-time fetch
// settings (session code, max bills, batch delay, enabled flag) live in the
// database settings table and are resolved at trigger time, not here.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"db_url"`
	SurrealDBNamespace string `yaml:"db_namespace"`
	SurrealDBDatabase  string `yaml:"db_database"`
	SurrealDBUser      string `yaml:"db_user"`
	SurrealDBPass      string `yaml:"db_pass"`
	SurrealDBAuthLevel string `yaml:"db_auth_level"`

	// External catalog site
	CatalogBaseURL string `yaml:"catalog_base_url"`
	ClientLabel    string `yaml:"client_label"`

	// HTTP server
	ServerPort string `yaml:"server_port"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("LEGTRACK_DB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("LEGTRACK_DB_NAMESPACE", "legtrack"),
		SurrealDBDatabase:  getEnv("LEGTRACK_DB_DATABASE", "bills"),
		SurrealDBUser:      getEnv("LEGTRACK_DB_USER", "root"),
		SurrealDBPass:      getEnv("LEGTRACK_DB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("LEGTRACK_DB_AUTH_LEVEL", "root"),

		CatalogBaseURL: getEnv("LEGTRACK_CATALOG_URL", "https://capitol.state.tx.us"),
		ClientLabel:    getEnv("LEGTRACK_CLIENT_LABEL", "legtrack-sync/1.0"),

		ServerPort: getEnv("LEGTRACK_SERVER_PORT", "8585"),

		LogFile:  getEnv("LEGTRACK_LOG_FILE", "/tmp/legtrack.log"),
		LogLevel: parseLogLevel(getEnv("LEGTRACK_LOG_LEVEL", "INFO")),
	}
}

// LoadFile overlays values from a YAML file on top of cfg. Empty fields in
// the file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&cfg.SurrealDBURL, overlay.SurrealDBURL)
	merge(&cfg.SurrealDBNamespace, overlay.SurrealDBNamespace)
	merge(&cfg.SurrealDBDatabase, overlay.SurrealDBDatabase)
	merge(&cfg.SurrealDBUser, overlay.SurrealDBUser)
	merge(&cfg.SurrealDBPass, overlay.SurrealDBPass)
	merge(&cfg.SurrealDBAuthLevel, overlay.SurrealDBAuthLevel)
	merge(&cfg.CatalogBaseURL, overlay.CatalogBaseURL)
	merge(&cfg.ClientLabel, overlay.ClientLabel)
	merge(&cfg.ServerPort, overlay.ServerPort)
	merge(&cfg.LogFile, overlay.LogFile)

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
