package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.JWTIssuer != "tap-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "tap-auth")
	}
	if cfg.JWTAudience != "tap-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "tap-api")
	}
	if cfg.SessionTTL != "720h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "720h")
	}
	if cfg.EmailTokenTTL != "24h" {
		t.Errorf("EmailTokenTTL = %q, want %q", cfg.EmailTokenTTL, "24h")
	}
	if cfg.MigrateOnStart {
		t.Error("MigrateOnStart should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BASE_URL", "https://admin.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BaseURL != "https://admin.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
}

func TestTTLDurations(t *testing.T) {
	cfg := &Config{SessionTTL: "12h", EmailTokenTTL: "30m", PruneInterval: "5m"}
	if got := cfg.SessionTTLDuration(); got != 12*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 12h", got)
	}
	if got := cfg.EmailTokenTTLDuration(); got != 30*time.Minute {
		t.Errorf("EmailTokenTTLDuration = %v, want 30m", got)
	}
	if got := cfg.PruneIntervalDuration(); got != 5*time.Minute {
		t.Errorf("PruneIntervalDuration = %v, want 5m", got)
	}

	bad := &Config{SessionTTL: "nope", EmailTokenTTL: "", PruneInterval: "-1h"}
	if got := bad.SessionTTLDuration(); got != 720*time.Hour {
		t.Errorf("SessionTTLDuration fallback = %v, want 720h", got)
	}
	if got := bad.EmailTokenTTLDuration(); got != 24*time.Hour {
		t.Errorf("EmailTokenTTLDuration fallback = %v, want 24h", got)
	}
	if got := bad.PruneIntervalDuration(); got != time.Hour {
		t.Errorf("PruneIntervalDuration fallback = %v, want 1h", got)
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "http://localhost:3000, https://admin.example.com ,"}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "http://localhost:3000" || got[1] != "https://admin.example.com" {
		t.Errorf("CORSAllowedOriginsList = %v", got)
	}
	empty := &Config{}
	if empty.CORSAllowedOriginsList() != nil {
		t.Error("empty config should return nil origins")
	}
}
