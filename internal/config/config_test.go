package config

import (
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/matchmaking")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.RedisCachePrefix != "matchmaking" {
		t.Fatalf("expected default cache prefix, got %q", cfg.RedisCachePrefix)
	}
	if cfg.MomoTargetEnvironment != "sandbox" {
		t.Fatalf("expected sandbox default, got %q", cfg.MomoTargetEnvironment)
	}
	if cfg.MomoRequestTimeoutSeconds != 15 {
		t.Fatalf("expected default momo timeout 15, got %d", cfg.MomoRequestTimeoutSeconds)
	}
	if cfg.SubscriptionRenewalDays != 30 {
		t.Fatalf("expected default renewal period 30, got %d", cfg.SubscriptionRenewalDays)
	}
}

func TestLoadConfig_CoercesInvalidDurations(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/matchmaking")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MOMO_REQUEST_TIMEOUT_SECONDS", "-5")
	t.Setenv("SUBSCRIPTION_RENEWAL_DAYS", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.MomoRequestTimeoutSeconds != 15 {
		t.Fatalf("expected coerced momo timeout 15, got %d", cfg.MomoRequestTimeoutSeconds)
	}
	if cfg.SubscriptionRenewalDays != 30 {
		t.Fatalf("expected coerced renewal period 30, got %d", cfg.SubscriptionRenewalDays)
	}
}

func TestAllowedOrigins_SplitsAndTrims(t *testing.T) {
	cfg := Config{CORSAllowedOrigins: "https://app.example.com, https://admin.example.com ,"}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %d", len(origins))
	}
	if origins[0] != "https://app.example.com" || origins[1] != "https://admin.example.com" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestAllowedOrigins_EmptyDisablesCORS(t *testing.T) {
	cfg := Config{}
	if cfg.AllowedOrigins() != nil {
		t.Fatal("expected nil origins for empty configuration")
	}
}
