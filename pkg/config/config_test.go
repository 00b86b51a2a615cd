package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
api:
  addr: ":8080"
scheduler:
  process_due_every: 30m
  hard_timeout: 10m
retention:
  stale_alert_days: 14
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.API.Addr != ":8080" {
		t.Errorf("api addr = %q, want :8080", cfg.API.Addr)
	}
	if cfg.Scheduler.ProcessDueEvery.Std() != 30*time.Minute {
		t.Errorf("process_due_every = %v, want 30m", cfg.Scheduler.ProcessDueEvery.Std())
	}
	if cfg.Scheduler.HardTimeout.Std() != 10*time.Minute {
		t.Errorf("hard_timeout = %v, want 10m", cfg.Scheduler.HardTimeout.Std())
	}
	if cfg.Retention.StaleAlertDays != 14 {
		t.Errorf("stale_alert_days = %d, want 14", cfg.Retention.StaleAlertDays)
	}

	// Untouched keys keep their defaults.
	if cfg.Kafka.RecordCreatedTopic != "records.created" {
		t.Errorf("kafka topic = %q, want default", cfg.Kafka.RecordCreatedTopic)
	}
	if cfg.Scheduler.SoftTimeout.Std() != 25*time.Minute {
		t.Errorf("soft_timeout = %v, want default 25m", cfg.Scheduler.SoftTimeout.Std())
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  hard_timeout: soon\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for a non-duration value")
	}
}
