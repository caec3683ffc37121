// ABOUTME: Configuration loading and parsing for relay-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay-gateway configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Logging LoggingConfig `yaml:"logging"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// BackendConfig holds the text-generation backend configuration
type BackendConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	// Path is the conversation snapshot file
	Path string `yaml:"path"`
	// ThoughtLogPath is the sqlite database for the thought log
	ThoughtLogPath string `yaml:"thought_log_path"`
	// AgentLogPath is the append-only agent event log
	AgentLogPath string `yaml:"agent_log_path"`
	// MaxTurns caps the persisted turn history per conversation
	MaxTurns int `yaml:"max_turns"`
}

// PromptConfig holds prompt construction configuration
type PromptConfig struct {
	// RecentWindow is the number of most recent turns included verbatim;
	// older turns are summarized into a single context line
	RecentWindow int `yaml:"recent_window"`
	// TemplatePath optionally overrides the built-in mode instructions
	TemplatePath string `yaml:"template_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LimitsConfig holds per-client rate limits
type LimitsConfig struct {
	ChatPerMinute int `yaml:"chat_per_minute"`
	LogPerMinute  int `yaml:"log_per_minute"`
}

// Default returns a Config populated with working defaults for a local
// Ollama backend. Used when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr: "0.0.0.0:3001",
		},
		Backend: BackendConfig{
			Host:    "http://localhost:11434",
			Model:   "cogito",
			Timeout: 60 * time.Second,
		},
		Store: StoreConfig{
			Path:           "data/conversations.json",
			ThoughtLogPath: "data/thoughts.db",
			AgentLogPath:   "data/agent.log",
			MaxTurns:       50,
		},
		Prompt: PromptConfig{
			RecentWindow: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			ChatPerMinute: 60,
			LogPerMinute:  1000,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded. Fields left
// unset in the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Backend.Host == "" {
		return fmt.Errorf("backend.host is required")
	}
	if c.Backend.Model == "" {
		return fmt.Errorf("backend.model is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.MaxTurns <= 0 {
		return fmt.Errorf("store.max_turns must be positive")
	}

	if c.Prompt.RecentWindow <= 0 {
		return fmt.Errorf("prompt.recent_window must be positive")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Backend.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend.timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
		cfg.Backend.Timeout = timeout
	}

	return nil
}
