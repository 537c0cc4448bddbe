package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Alerts.HighThreshold != 5 || cfg.Alerts.MediumThreshold != 5 || cfg.Alerts.LowThreshold != 10 {
		t.Errorf("unexpected default thresholds: %+v", cfg.Alerts)
	}
	if cfg.Alerts.CombinedThreshold != 0 {
		t.Errorf("expected combined bucket disabled by default, got %d", cfg.Alerts.CombinedThreshold)
	}
	if cfg.Alerts.MaxSessions != 10000 || cfg.Alerts.MaxSessionReports != 500 {
		t.Errorf("unexpected default session limits: %+v", cfg.Alerts)
	}
	if cfg.Push.Store != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Push.Store)
	}
	if cfg.Ollama.Model != "gpt-oss:120b-cloud" {
		t.Errorf("unexpected default model %s", cfg.Ollama.Model)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("unexpected default origins: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALERT_THRESHOLD_LOW", "3")
	t.Setenv("ALERT_SESSION_TTL", "30m")
	t.Setenv("NEXT_PUBLIC_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SUBSCRIPTION_STORE", "SQLite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Alerts.LowThreshold != 3 {
		t.Errorf("expected low threshold 3, got %d", cfg.Alerts.LowThreshold)
	}
	if cfg.Alerts.SessionTTL != 30*time.Minute {
		t.Errorf("expected ttl 30m, got %v", cfg.Alerts.SessionTTL)
	}
	if cfg.Push.VAPIDPublicKey != "pub" {
		t.Errorf("expected public key from NEXT_PUBLIC_ variable, got %q", cfg.Push.VAPIDPublicKey)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Push.Store != "sqlite" {
		t.Errorf("expected store name lowercased, got %s", cfg.Push.Store)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "SERVER_PORT", "70000"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"store", "SUBSCRIPTION_STORE", "postgres"},
		{"threshold", "ALERT_THRESHOLD_HIGH", "0"},
		{"combined", "ALERT_THRESHOLD_COMBINED", "-1"},
		{"sweep", "ALERT_SWEEP_INTERVAL", "10ms"},
		{"telegram", "TELEGRAM_BOT_TOKEN", "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
