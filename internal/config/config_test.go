package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultPassesValidation(t *testing.T) {
	if err := validate.Struct(Default()); err != nil {
		t.Fatalf("Default() fails validation: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serverino.toml")
	body := `
address = ":9000"
max_request_time = "45s"
max_worker_idling = "2m"
max_worker_lifetime = "1h"
max_dynamic_worker_idling = "10s"
keep_alive = false
user = "www-data"
group = "www-data"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != ":9000" {
		t.Fatalf("Address = %q", cfg.Address)
	}
	if cfg.MaxRequestTime != 45*time.Second {
		t.Fatalf("MaxRequestTime = %v", cfg.MaxRequestTime)
	}
	if cfg.KeepAlive {
		t.Fatal("expected keep_alive override to false")
	}
	if cfg.User != "www-data" || cfg.Group != "www-data" {
		t.Fatalf("User/Group = %q/%q", cfg.User, cfg.Group)
	}
	if cfg.MetricsAddress != Default().MetricsAddress {
		t.Fatalf("MetricsAddress = %q, want default %q", cfg.MetricsAddress, Default().MetricsAddress)
	}
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "serverino.toml")
	if err := os.WriteFile(path, []byte(`max_request_time = "0s"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation failure for max_request_time = 0")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/serverino.toml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
