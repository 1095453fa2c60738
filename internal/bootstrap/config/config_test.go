package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Loader.CommitEvery != 50 {
		t.Fatalf("Loader.CommitEvery = %d, want 50", cfg.Loader.CommitEvery)
	}
	if cfg.Geocoder.MinDelay != 100*time.Millisecond {
		t.Fatalf("Geocoder.MinDelay = %v, want 100ms", cfg.Geocoder.MinDelay)
	}
	if cfg.Geocoder.RefLat != 48.8534 || cfg.Geocoder.RefLon != 2.3488 {
		t.Fatalf("reference point = (%v, %v)", cfg.Geocoder.RefLat, cfg.Geocoder.RefLon)
	}
	if cfg.API.DefaultPageSize != 20 || cfg.API.MaxPageSize != 100 {
		t.Fatalf("API page sizes = %d/%d", cfg.API.DefaultPageSize, cfg.API.MaxPageSize)
	}
	if cfg.Metrics.PushgatewayURL != "" || cfg.Metrics.Job != "cultura" {
		t.Fatalf("Metrics = %+v, want no gateway and job cultura", cfg.Metrics)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
database:
  driver: sqlite
  dsn: file::memory:
loader:
  commit_every: 10
geocoder:
  min_delay: 250ms
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("CULTURA_LOADER_DEFAULT_CITY", "Lyon")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Loader.CommitEvery != 10 {
		t.Fatalf("Loader.CommitEvery = %d, want 10", cfg.Loader.CommitEvery)
	}
	if cfg.Geocoder.MinDelay != 250*time.Millisecond {
		t.Fatalf("Geocoder.MinDelay = %v, want 250ms", cfg.Geocoder.MinDelay)
	}
	if cfg.Loader.DefaultCity != "Lyon" {
		t.Fatalf("Loader.DefaultCity = %q, want Lyon", cfg.Loader.DefaultCity)
	}
}

func TestLoadRejectsInvalidPaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api:\n  default_page_size: 500\n  max_page_size: 100\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("Load() expected error for default_page_size > max_page_size")
	}
}

func TestLoadRequiresContext(t *testing.T) {
	if _, err := Load(nil, ""); err == nil {
		t.Fatalf("Load(nil) expected error")
	}
}
