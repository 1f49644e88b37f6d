package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 3001 {
		t.Errorf("Expected default port 3001, got %d", cfg.Port)
	}
	if cfg.ResolutionDelay != 800*time.Millisecond {
		t.Errorf("Expected default resolution delay 800ms, got %v", cfg.ResolutionDelay)
	}
	if cfg.IdleThreshold != 30*time.Minute {
		t.Errorf("Expected default idle threshold 30m, got %v", cfg.IdleThreshold)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("Expected default cleanup interval 5m, got %v", cfg.CleanupInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("PORT", "9090")
	t.Setenv("RESOLUTION_DELAY_MS", "500")
	t.Setenv("SESSION_IDLE_MINUTES", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.ResolutionDelay != 500*time.Millisecond {
		t.Errorf("Expected resolution delay 500ms, got %v", cfg.ResolutionDelay)
	}
	if cfg.IdleThreshold != 10*time.Minute {
		t.Errorf("Expected idle threshold 10m, got %v", cfg.IdleThreshold)
	}
}

func TestLoad_RejectsBadTuning(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("RESOLUTION_DELAY_MS", "-5")

	if _, err := Load(); err == nil {
		t.Error("Expected error for negative resolution delay")
	}
}

func TestLoad_DefaultSecretAccepted(t *testing.T) {
	// Load itself never rejects the default secret: processes that
	// issue no tokens (statsd, logd) must start without one.
	t.Setenv("DEBUG", "false")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err != nil {
		t.Errorf("Expected load to succeed without a secret, got %v", err)
	}
}

func TestRequireJWTSecret(t *testing.T) {
	t.Setenv("DEBUG", "false")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Error("Expected error for default secret outside debug mode")
	}

	cfg.JWTSecret = "a-real-secret"
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Errorf("Expected explicit secret accepted, got %v", err)
	}

	// Debug mode tolerates the default, including when the debug flag
	// rather than the environment enabled it.
	cfg.JWTSecret = "dev-secret-change-me"
	cfg.Debug = true
	if err := cfg.RequireJWTSecret(); err != nil {
		t.Errorf("Expected default secret accepted in debug mode, got %v", err)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("DEBUG", "true")
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 3001 {
		t.Errorf("Expected fallback port 3001, got %d", cfg.Port)
	}
}
