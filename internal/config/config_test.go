package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.BridgeEnabled() {
		t.Fatalf("BridgeEnabled() = true, want false without BRIDGE_URL")
	}
	if cfg.BridgeNotifyTimeout != 5*time.Second {
		t.Fatalf("BridgeNotifyTimeout = %v, want 5s", cfg.BridgeNotifyTimeout)
	}
	if cfg.LogFormat != "console" || cfg.LogLevel != "info" {
		t.Fatalf("log settings = %q/%q, want console/info", cfg.LogFormat, cfg.LogLevel)
	}
}

func TestLoadUsesExplicitBridgeURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("BRIDGE_URL", "  http://localhost:7777/echo/  ")
	t.Setenv("BRIDGE_NOTIFY_TIMEOUT", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BridgeURL != "http://localhost:7777/echo/" {
		t.Fatalf("BridgeURL = %q, want trimmed explicit value", cfg.BridgeURL)
	}
	if !cfg.BridgeEnabled() {
		t.Fatalf("BridgeEnabled() = false, want true")
	}
	if cfg.BridgeNotifyTimeout != 1500*time.Millisecond {
		t.Fatalf("BridgeNotifyTimeout = %v, want 1.5s", cfg.BridgeNotifyTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BRIDGE_URL":                     "ftp://bridge.example",
		"BRIDGE_NOTIFY_TIMEOUT":          "0s",
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"APP_SHUTDOWN_TIMEOUT":           "soon",
		"APP_ALLOW_ANY_ORIGIN":           "maybe",
		"LOG_FORMAT":                     "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() expected error for %s=%q", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"BRIDGE_URL",
		"BRIDGE_NOTIFY_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
