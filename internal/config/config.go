// Package config loads the kernel's runtime configuration: a JSON file
// plus environment-variable overrides for anything secret, grounded on
// the teacher's internal/config/config.go + config_load.go layered-struct
// style (SPEC_FULL.md §4.J). Unlike the teacher, no third-party config
// parser is used here — the config file is small enough that the
// standard library's encoding/json is the right tool, and the teacher's
// own json5 dependency buys nothing this kernel's config shape needs
// (no comments, no trailing commas in its own generated file).
package config

// Config is the root configuration for the kernel.
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Providers ProvidersConfig `json:"providers"`
	Server    ServerConfig    `json:"server"`
	Tools     ToolsConfig     `json:"tools"`
	Worker    WorkerConfig    `json:"worker"`
}

// DatabaseConfig configures the Persistent Store's SQLite file.
type DatabaseConfig struct {
	Path string `json:"path"` // default "cairn.db"
}

// ProviderConfig is one LLM provider's credentials/endpoint.
type ProviderConfig struct {
	APIKey  string `json:"-"`                 // from env only, never persisted
	APIBase string `json:"api_base,omitempty"`
}

// ProvidersConfig maps provider name to its config, mirroring the
// teacher's ProvidersConfig shape in config_channels.go.
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
}

// ServerConfig configures the HTTP surface (SPEC_FULL.md §4.K).
type ServerConfig struct {
	Host  string `json:"host"`  // default "0.0.0.0"
	Port  int    `json:"port"`  // default 8790
	Token string `json:"-"`     // bearer token for authMiddleware, env only
}

// ToolsConfig configures the repo-host capability set the Toolbox uses.
type ToolsConfig struct {
	RepoHostBaseURL string `json:"repo_host_base_url,omitempty"`
	RepoHostToken   string `json:"-"` // env only
}

// WorkerConfig configures how the parent spawns child worker processes.
type WorkerConfig struct {
	// Exe is the path to this binary (os.Executable() at startup if empty).
	Exe     string   `json:"exe,omitempty"`
	Args    []string `json:"args,omitempty"` // argv prefix before "worker" <run_id>
	LogDir  string   `json:"log_dir"`        // default "logs/workers"
	Model   string   `json:"model"`          // default model name
}
