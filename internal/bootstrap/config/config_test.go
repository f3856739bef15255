package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RecordStore.Backend != BackendSQLite {
		t.Fatalf("backend = %q", cfg.RecordStore.Backend)
	}
	if cfg.Pipeline.Parallel != 4 || !cfg.Pipeline.HealthCheck {
		t.Fatalf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Alerts.Timeout != 5*time.Second {
		t.Fatalf("alerts.timeout = %v", cfg.Alerts.Timeout)
	}
}

func TestLoadFileAndLegacyEnv(t *testing.T) {
	t.Setenv("AIRTABLE_PAT", "pat-123")
	t.Setenv("AIRTABLE_BASE_ID", "appBASE")
	t.Setenv("ADT_PIPELINE_PARALLEL", "2")

	path := writeConfig(t, strings.Join([]string{
		"database:",
		"  dsn: \":memory:\"",
		"record_store:",
		"  backend: airtable",
		"alerts:",
		"  slack_webhook_url: https://hooks.example.test/slack",
	}, "\n"))

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.RecordStore.Airtable.Token != "pat-123" || cfg.RecordStore.Airtable.BaseID != "appBASE" {
		t.Fatalf("airtable = %+v", cfg.RecordStore.Airtable)
	}
	if cfg.Pipeline.Parallel != 2 {
		t.Fatalf("parallel = %d, want 2", cfg.Pipeline.Parallel)
	}
	if cfg.Alerts.SlackWebhookURL != "https://hooks.example.test/slack" {
		t.Fatalf("slack url = %q", cfg.Alerts.SlackWebhookURL)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Database:    DatabaseConfig{DSN: ":memory:"},
		RecordStore: RecordStoreConfig{Backend: BackendSQLite},
		Pipeline:    PipelineConfig{Parallel: 1},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	airtable := base
	airtable.RecordStore.Backend = BackendAirtable
	if err := airtable.Validate(); err == nil {
		t.Fatal("Validate(airtable without token) error = nil")
	}

	zero := base
	zero.Pipeline.Parallel = 0
	if err := zero.Validate(); err == nil {
		t.Fatal("Validate(parallel=0) error = nil")
	}

	unknown := base
	unknown.RecordStore.Backend = "postgres"
	if err := unknown.Validate(); err == nil {
		t.Fatal("Validate(postgres) error = nil")
	}
}
