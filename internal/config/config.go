package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the bridge notifier service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// BridgeURL is the base URL of the cross-channel bridge. Empty disables
	// lifecycle notifications.
	BridgeURL           string
	BridgeNotifyTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// BridgeEnabled reports whether lifecycle notifications should be sent.
func (c Config) BridgeEnabled() bool {
	return c.BridgeURL != ""
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "bridgenotify"),
		AllowAnyOrigin:   false,
		BridgeURL:        stringsTrimSpace("BRIDGE_URL"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "console"),
		ShutdownTimeout:  15 * time.Second,
		// Calls routinely sit silent for minutes; expiry is a leak guard, not a policy.
		SessionInactivityTimeout: 10 * time.Minute,
		BridgeNotifyTimeout:      5 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BridgeNotifyTimeout, err = durationFromEnv("BRIDGE_NOTIFY_TIMEOUT", cfg.BridgeNotifyTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.BridgeNotifyTimeout <= 0 {
		return Config{}, fmt.Errorf("BRIDGE_NOTIFY_TIMEOUT must be positive")
	}
	if cfg.BridgeURL != "" {
		u, err := url.Parse(cfg.BridgeURL)
		if err != nil {
			return Config{}, fmt.Errorf("BRIDGE_URL parse error: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return Config{}, fmt.Errorf("BRIDGE_URL must be http or https, got %q", u.Scheme)
		}
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be console or json")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
