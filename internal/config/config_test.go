package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CHATVAULT_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.APIPort != 8080 {
		t.Errorf("Server.APIPort = %d, want 8080", cfg.Server.APIPort)
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("Server.APIKey = %q, want empty", cfg.Server.APIKey)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("Search.DefaultLimit = %d, want 20", cfg.Search.DefaultLimit)
	}
	if cfg.Data.DataDir != tmpDir {
		t.Errorf("Data.DataDir = %q, want %q", cfg.Data.DataDir, tmpDir)
	}
	want := filepath.Join(tmpDir, "chatvault.db")
	if got := cfg.DatabasePath(); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CHATVAULT_HOME", tmpDir)

	configContent := `
[server]
api_port = 9090
api_key = "test-secret-key"

[search]
default_limit = 50
highlight_start = "<mark>"
highlight_end = "</mark>"
`
	configPath := filepath.Join(tmpDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.APIPort != 9090 {
		t.Errorf("Server.APIPort = %d, want 9090", cfg.Server.APIPort)
	}
	if cfg.Server.APIKey != "test-secret-key" {
		t.Errorf("Server.APIKey = %q, want %q", cfg.Server.APIKey, "test-secret-key")
	}
	if cfg.Search.HighlightStart != "<mark>" || cfg.Search.HighlightEnd != "</mark>" {
		t.Errorf("highlight markers = %q/%q, want <mark>/</mark>",
			cfg.Search.HighlightStart, cfg.Search.HighlightEnd)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CHATVAULT_HOME", tmpDir)

	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.APIPort != 8080 {
		t.Errorf("Server.APIPort = %d, want default 8080", cfg.Server.APIPort)
	}
}

func TestEnsureHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CHATVAULT_HOME", filepath.Join(tmpDir, "nested", "home"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.EnsureHomeDir(); err != nil {
		t.Fatalf("EnsureHomeDir() error = %v", err)
	}
	if _, err := os.Stat(cfg.Data.DataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}
