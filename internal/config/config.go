package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port"`

	// Auth
	APIKey string `mapstructure:"api_key"`

	// Pathstore persistence; saving is disabled when the URL is empty.
	PathstoreURL    string `mapstructure:"pathstore_url"`
	PathstoreAPIKey string `mapstructure:"pathstore_api_key"`

	// Limits
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes"`
	MaxUploadBytes   int64 `mapstructure:"max_upload_bytes"`

	// Sessions
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	HistoryLimit int           `mapstructure:"history_limit"`

	StatsWindow time.Duration `mapstructure:"stats_window"`
	LogLevel    string        `mapstructure:"log_level"`

	// PDF
	PDFFallbackPdftotext bool `mapstructure:"pdf_fallback_pdftotext"`
}

const (
	defaultMaxDocumentBytes = 256 << 10
	defaultMaxUploadBytes   = 10 << 20
	defaultSessionTTL       = time.Hour
	defaultHistoryLimit     = 100
	defaultStatsWindow      = time.Hour
)

// New returns a viper instance with defaults, config file locations and the
// CVTREE_ environment prefix registered.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8090")
	v.SetDefault("api_key", "")
	v.SetDefault("pathstore_url", "")
	v.SetDefault("pathstore_api_key", "")
	v.SetDefault("max_document_bytes", defaultMaxDocumentBytes)
	v.SetDefault("max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("session_ttl", defaultSessionTTL)
	v.SetDefault("history_limit", defaultHistoryLimit)
	v.SetDefault("stats_window", defaultStatsWindow)
	v.SetDefault("log_level", "info")
	v.SetDefault("pdf_fallback_pdftotext", true)

	v.SetConfigName("cvtree")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "cvtree"))
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("CVTREE")
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes v into a Config. A missing
// config file is not an error; a malformed one is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = defaultStatsWindow
	}
	return cfg, nil
}

// Validate checks the settings the HTTP server needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("CVTREE_API_KEY is required")
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("CVTREE_PATHSTORE_API_KEY is required when CVTREE_PATHSTORE_URL is set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
