package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Default returns a Config with sensible defaults, mirroring the
// teacher's config.Default().
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "cairn.db"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8790,
		},
		Worker: WorkerConfig{
			LogDir: "logs/workers",
			Model:  "claude-sonnet-4-5-20250929",
		},
	}
}

// Load reads config from a JSON file, then overlays env vars — exactly
// the teacher's Load(path): missing file is not an error, env overrides
// always apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays secret/credential env vars onto the config.
// Env vars take precedence over file values, matching the teacher's
// CAIRN_* analog of GOCLAW_*.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("CAIRN_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("CAIRN_ANTHROPIC_API_BASE", &c.Providers.Anthropic.APIBase)
	envStr("CAIRN_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("CAIRN_OPENAI_API_BASE", &c.Providers.OpenAI.APIBase)

	envStr("CAIRN_SERVER_TOKEN", &c.Server.Token)
	envStr("CAIRN_SERVER_HOST", &c.Server.Host)
	if v := os.Getenv("CAIRN_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	envStr("CAIRN_DB_PATH", &c.Database.Path)

	envStr("CAIRN_REPO_HOST_BASE_URL", &c.Tools.RepoHostBaseURL)
	envStr("CAIRN_REPO_HOST_TOKEN", &c.Tools.RepoHostToken)

	envStr("CAIRN_WORKER_MODEL", &c.Worker.Model)
}

// HasAnyProvider reports whether at least one LLM provider has a key,
// the same check the teacher's gateway start-up path makes before
// auto-onboarding.
func (c *Config) HasAnyProvider() bool {
	return c.Providers.Anthropic.APIKey != "" || c.Providers.OpenAI.APIKey != ""
}

// Save writes the config to a JSON file (secrets excluded via their
// `json:"-"` tags — never persisted).
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}
