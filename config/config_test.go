package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/competitions?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	for _, key := range []string{
		"SERVER_PORT", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "VOTE_DAY_TIMEZONE",
		"ALLOW_NON_ATOMIC_COUNTERS", "STATUS_SCHEDULER_INTERVAL", "STRIPE_SECRET_KEY",
		"PAYMENT_CURRENCY", "R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY",
		"R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.VoteDayLocation != time.UTC {
		t.Errorf("VoteDayLocation = %v, want UTC", cfg.VoteDayLocation)
	}
	if cfg.AllowNonAtomicCounters {
		t.Error("non-atomic counters should be off by default")
	}
	if cfg.StatusSchedulerInterval != 30*time.Second {
		t.Errorf("StatusSchedulerInterval = %s", cfg.StatusSchedulerInterval)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.PaymentCurrency != "usd" {
		t.Errorf("PaymentCurrency = %q", cfg.PaymentCurrency)
	}
	if cfg.PaymentsConfigured() || cfg.R2.Configured() || cfg.UsesMemoryStore() {
		t.Error("optional collaborators should be unconfigured")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("VOTE_DAY_TIMEZONE", "America/New_York")
	t.Setenv("ALLOW_NON_ATOMIC_COUNTERS", "true")
	t.Setenv("STATUS_SCHEDULER_INTERVAL", "1m")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("PAYMENT_CURRENCY", "EUR")
	t.Setenv("R2_ACCOUNT_ID", "acc")
	t.Setenv("R2_ACCESS_KEY_ID", "key")
	t.Setenv("R2_SECRET_ACCESS_KEY", "secret")
	t.Setenv("R2_BUCKET_NAME", "ledgers")
	t.Setenv("R2_PUBLIC_BASE_URL", "https://cdn.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.UsesMemoryStore() {
		t.Error("memory:// should select the memory store")
	}
	if cfg.ServerPort != 9090 || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("port/level = %d/%v", cfg.ServerPort, cfg.LogLevel)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	if cfg.VoteDayLocation.String() != "America/New_York" {
		t.Errorf("VoteDayLocation = %v", cfg.VoteDayLocation)
	}
	if !cfg.AllowNonAtomicCounters || cfg.StatusSchedulerInterval != time.Minute {
		t.Error("bool/duration overrides not applied")
	}
	if !cfg.PaymentsConfigured() || cfg.PaymentCurrency != "eur" {
		t.Errorf("payments = %v/%q", cfg.PaymentsConfigured(), cfg.PaymentCurrency)
	}
	if !cfg.R2.Configured() || cfg.R2.PublicBaseURL != "https://cdn.example" {
		t.Errorf("R2 = %+v", cfg.R2)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing database url", "DATABASE_URL", ""},
		{"missing jwt secret", "JWT_SECRET_KEY", ""},
		{"bad port", "SERVER_PORT", "http"},
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad timezone", "VOTE_DAY_TIMEZONE", "Mars/Olympus"},
		{"bad bool", "ALLOW_NON_ATOMIC_COUNTERS", "maybe"},
		{"bad interval", "STATUS_SCHEDULER_INTERVAL", "soon"},
		{"negative interval", "STATUS_SCHEDULER_INTERVAL", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}
