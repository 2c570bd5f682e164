package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "cairn.db" {
		t.Fatalf("expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.Worker.Model == "" {
		t.Fatal("expected a default worker model")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cairn.json")
	if err := os.WriteFile(path, []byte(`{"database":{"path":"/tmp/other.db"},"worker":{"model":"custom-model"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Fatalf("expected file override, got %q", cfg.Database.Path)
	}
	if cfg.Worker.Model != "custom-model" {
		t.Fatalf("expected file override, got %q", cfg.Worker.Model)
	}
}

func TestLoad_EnvOverridesTakePrecedenceOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cairn.json")
	if err := os.WriteFile(path, []byte(`{"server":{"host":"127.0.0.1","port":9000}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CAIRN_SERVER_HOST", "10.0.0.1")
	t.Setenv("CAIRN_SERVER_PORT", "9999")
	t.Setenv("CAIRN_ANTHROPIC_API_KEY", "sk-test-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "10.0.0.1" {
		t.Fatalf("expected env override for host, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected env override for port, got %d", cfg.Server.Port)
	}
	if !cfg.HasAnyProvider() {
		t.Fatal("expected HasAnyProvider to be true once an API key env var is set")
	}
}

func TestSave_NeverPersistsSecretFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cairn.json")
	cfg := Default()
	cfg.Providers.Anthropic.APIKey = "sk-should-not-be-written"
	cfg.Server.Token = "also-secret"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if strings.Contains(string(raw), "sk-should-not-be-written") || strings.Contains(string(raw), "also-secret") {
		t.Fatal("expected secret fields to be excluded from the saved file")
	}
}
