package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateRejectsInvalidValues(t *testing.T) {
	cfg := defaults()
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.BatchSize = 0

	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for batch-size")
	}

	cfg = defaults()
	cfg.APIKey = "key"
	cfg.APISecret = "secret"
	cfg.MinPrice = 50
	cfg.MaxPrice = 10

	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for inverted price bounds")
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	if err := validate(defaults()); err == nil {
		t.Fatalf("expected validation error for missing credentials")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	contents := `
scan_interval_seconds: 9
batch_size: 10
min_price: 2.5
api_key: file-key
api_secret: file-secret
`
	if err := os.WriteFile(configPath, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "")

	cfg, err := load([]string{"--config", configPath, "--batch-size", "7"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.BatchSize != 7 {
		t.Fatalf("expected batch size from CLI, got %d", cfg.BatchSize)
	}
	if cfg.ScanInterval != 9*time.Second {
		t.Fatalf("expected scan interval from file, got %s", cfg.ScanInterval)
	}
	if cfg.MinPrice != 2.5 {
		t.Fatalf("expected min price from file, got %v", cfg.MinPrice)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.APIKey)
	}
	if cfg.APISecret != "file-secret" {
		t.Fatalf("expected API secret from file, got %q", cfg.APISecret)
	}
	if cfg.MaxOpenPositions != 5 {
		t.Fatalf("expected default max positions, got %d", cfg.MaxOpenPositions)
	}
}

func TestLoadWithoutCredentialsFails(t *testing.T) {
	t.Setenv("APCA_API_KEY_ID", "")
	t.Setenv("APCA_API_SECRET_KEY", "")

	if _, err := load(nil); err == nil {
		t.Fatalf("expected error without credentials")
	}
}
