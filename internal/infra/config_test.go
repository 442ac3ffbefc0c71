package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GatePermits != 1 {
		t.Fatalf("GatePermits = %d, want 1", cfg.GatePermits)
	}
	if cfg.BrandTimeout != 5*time.Minute {
		t.Fatalf("BrandTimeout = %s, want 5m", cfg.BrandTimeout)
	}
	if cfg.QuotaTimezone != "America/Los_Angeles" {
		t.Fatalf("QuotaTimezone = %q", cfg.QuotaTimezone)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestLaunchTime(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SLOT_TIMEZONE", "UTC")
	t.Setenv("LAUNCH_DATE", "2026-01-16")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	launch, err := cfg.LaunchTime()
	if err != nil {
		t.Fatalf("LaunchTime returned error: %v", err)
	}
	want := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	if !launch.Equal(want) {
		t.Fatalf("LaunchTime = %s, want %s", launch, want)
	}
}

func TestLaunchTimeUnset(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LAUNCH_DATE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	launch, err := cfg.LaunchTime()
	if err != nil {
		t.Fatalf("LaunchTime returned error: %v", err)
	}
	if !launch.IsZero() {
		t.Fatalf("LaunchTime = %s, want zero", launch)
	}
}
