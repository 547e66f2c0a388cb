package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the goflux server.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`         // Listen address (default ":8080")
	LogLevel    string   `yaml:"log_level"`    // Log level: debug, info, warn, error
	LogFormat   string   `yaml:"log_format"`   // Log format: text, json
	DBPath      string   `yaml:"db_path"`      // SQLite history path (":memory:" for testing)
	WorkDir     string   `yaml:"work_dir"`     // Working directory for local command jobs
	EventBuffer int      `yaml:"event_buffer"` // Scheduler event channel capacity
	ScriptLibs  []string `yaml:"script_libs"`  // JavaScript snippets preloaded into script jobs
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        ":8080",
		LogLevel:    "info",
		LogFormat:   "text",
		EventBuffer: 64,
	}
}

// Load reads a YAML config file on top of the defaults. Unset fields
// keep their default values.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return cfg, nil
}
