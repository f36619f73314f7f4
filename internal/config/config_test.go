package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Matching.PickupRadiusKm != 3.0 {
		t.Errorf("expected pickup radius 3.0, got %v", cfg.Matching.PickupRadiusKm)
	}
	if cfg.Matching.LockTTL != 30*time.Second {
		t.Errorf("expected lock ttl 30s, got %v", cfg.Matching.LockTTL)
	}
	if cfg.Pricing.BaseFare != 50 || cfg.Pricing.RatePerKm != 12 || cfg.Pricing.DetourPenaltyFraction != 0.8 {
		t.Errorf("unexpected pricing defaults: %+v", cfg.Pricing)
	}
	if cfg.Tasks.MaxRetries != 3 || cfg.Tasks.RetryBackoff != 5*time.Second {
		t.Errorf("unexpected task defaults: %+v", cfg.Tasks)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no brokers by default, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "Memory")
	t.Setenv("MATCHING_PICKUP_RADIUS_KM", "4.5")
	t.Setenv("MATCHING_LOCK_WAIT", "2s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected 9090, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Matching.PickupRadiusKm != 4.5 {
		t.Errorf("expected 4.5, got %v", cfg.Matching.PickupRadiusKm)
	}
	if cfg.Matching.LockWait != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.Matching.LockWait)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Redis.Enabled {
		t.Error("expected redis disabled")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ridepool.env")
	if err := os.WriteFile(path, []byte("PRICING_BASE_FARE=40\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pricing.BaseFare != 40 {
		t.Errorf("expected base fare from file, got %v", cfg.Pricing.BaseFare)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env to win over file, got %s", cfg.Log.Level)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("MATCHING_PICKUP_RADIUS_KM", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "STORAGE_BACKEND") || !strings.Contains(msg, "MATCHING_PICKUP_RADIUS_KM") {
		t.Errorf("expected both problems reported, got %q", msg)
	}
}
