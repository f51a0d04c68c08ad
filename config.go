package bufdb

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config describes an environment.
type Config struct {
	// Engine names a registered engine: "memory", "bolt" or "mdbx".
	Engine string `yaml:"engine"`

	// Path is the environment directory. The memory engine ignores it.
	Path string `yaml:"path"`

	MapSize   int64 `yaml:"map_size"`
	MaxTables int   `yaml:"max_tables"`
	PageSize  int   `yaml:"page_size"`
	NoSync    bool  `yaml:"no_sync"`
	ReadOnly  bool  `yaml:"read_only"`

	// LogLevel is a zap level name: debug, info, warn, error. Files parsed
	// by LoadConfig default to info; an empty level with no Logger logs
	// nothing.
	LogLevel string `yaml:"log_level"`

	// Logger overrides LogLevel when set.
	Logger *zap.Logger `yaml:"-"`
}

// DefaultConfig returns a configuration for an in-memory environment.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML configuration and fills in defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine == "" {
		c.Engine = DefaultEngine
	}
	if c.MapSize == 0 {
		c.MapSize = DefaultMapSize
	}
	if c.MaxTables == 0 {
		c.MaxTables = DefaultMaxTables
	}
}
