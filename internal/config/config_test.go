package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxSize != 1000 || cfg.Cache.TTL != "10m" {
		t.Errorf("cache defaults wrong: %+v", cfg.Cache)
	}
	if cfg.Batch.Concurrency != 4 {
		t.Errorf("batch concurrency = %d, want 4", cfg.Batch.Concurrency)
	}
	if cfg.Audit.Enabled {
		t.Error("audit should default off")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rtb", "config.yaml")

	cfg := DefaultConfig()
	cfg.Cache.MaxSize = 42
	cfg.Watcher.Enabled = true
	cfg.Watcher.Dir = "site-templates"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Cache.MaxSize != 42 {
		t.Errorf("cache.max_size = %d, want 42", loaded.Cache.MaxSize)
	}
	if !loaded.Watcher.Enabled || loaded.Watcher.Dir != "site-templates" {
		t.Errorf("watcher section lost: %+v", loaded.Watcher)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RTB_CACHE_MAX_SIZE", "77")
	t.Setenv("RTB_CACHE_TTL", "1h")
	t.Setenv("RTB_BATCH_CONCURRENCY", "9")
	t.Setenv("RTB_AUDIT_DB", "/tmp/audit.db")
	t.Setenv("RTB_TEMPLATE_DIR", "/srv/templates")
	t.Setenv("RTB_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxSize != 77 {
		t.Errorf("RTB_CACHE_MAX_SIZE not applied: %d", cfg.Cache.MaxSize)
	}
	if cfg.Cache.TTLDuration() != time.Hour {
		t.Errorf("RTB_CACHE_TTL not applied: %s", cfg.Cache.TTL)
	}
	if cfg.Batch.Concurrency != 9 {
		t.Errorf("RTB_BATCH_CONCURRENCY not applied: %d", cfg.Batch.Concurrency)
	}
	if !cfg.Audit.Enabled || cfg.Audit.DatabasePath != "/tmp/audit.db" {
		t.Errorf("RTB_AUDIT_DB not applied: %+v", cfg.Audit)
	}
	if cfg.Watcher.Dir != "/srv/templates" {
		t.Errorf("RTB_TEMPLATE_DIR not applied: %s", cfg.Watcher.Dir)
	}
	if !cfg.Logging.DebugMode || cfg.Logging.Level != "debug" {
		t.Errorf("RTB_DEBUG not applied: %+v", cfg.Logging)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("RTB_CACHE_MAX_SIZE", "not-a-number")
	t.Setenv("RTB_BATCH_CONCURRENCY", "-3")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxSize != 1000 || cfg.Batch.Concurrency != 4 {
		t.Errorf("garbage overrides applied: cache=%d batch=%d",
			cfg.Cache.MaxSize, cfg.Batch.Concurrency)
	}
}

func TestDurationFallbacks(t *testing.T) {
	if d := (CacheConfig{TTL: "bogus"}).TTLDuration(); d != 10*time.Minute {
		t.Errorf("TTL fallback = %s", d)
	}
	if d := (BatchConfig{ItemTimeout: ""}).ItemTimeoutDuration(); d != 0 {
		t.Errorf("item timeout fallback = %s", d)
	}
	if d := (FunctionConfig{Timeout: "250ms"}).TimeoutDuration(); d != 250*time.Millisecond {
		t.Errorf("function timeout = %s", d)
	}
	if d := (WatcherConfig{Debounce: "-1s"}).DebounceDuration(); d != 500*time.Millisecond {
		t.Errorf("debounce fallback = %s", d)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Cache.MaxSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero cache size accepted")
	}

	cfg = DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("enabled audit without path accepted")
	}
}

func TestMain(m *testing.M) {
	// Keep ambient RTB_* variables from leaking into default-value tests.
	for _, k := range []string{
		"RTB_CACHE_MAX_SIZE", "RTB_CACHE_TTL", "RTB_BATCH_CONCURRENCY",
		"RTB_AUDIT_DB", "RTB_TEMPLATE_DIR", "RTB_DEBUG",
	} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}
