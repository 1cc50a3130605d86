package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Classifier.Endpoint != nil || cfg.History.Enabled != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `[classifier]
endpoint = "http://localhost:5000"
timeout = "3s"

[server]
listen = ":9000"

[history]
enabled = true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Classifier.Endpoint == nil || *cfg.Classifier.Endpoint != "http://localhost:5000" {
		t.Fatalf("unexpected endpoint: %v", cfg.Classifier.Endpoint)
	}
	if cfg.Classifier.Timeout == nil || *cfg.Classifier.Timeout != "3s" {
		t.Fatalf("unexpected timeout: %v", cfg.Classifier.Timeout)
	}
	if cfg.Server.Listen == nil || *cfg.Server.Listen != ":9000" {
		t.Fatalf("unexpected listen: %v", cfg.Server.Listen)
	}
	if cfg.Server.LogLevel != nil {
		t.Fatalf("expected unset log level")
	}
	if cfg.History.Enabled == nil || !*cfg.History.Enabled {
		t.Fatalf("expected history enabled")
	}
}

func TestLoadConfigRejectsEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "keymood", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "keymood", "history.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
