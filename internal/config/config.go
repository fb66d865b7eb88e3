// Package config holds the tunables of the runtime and the demo host.
// Use Default() to get sensible defaults, then override as needed, or Load()
// to read them from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mvukit/internal/channel"
)

// Config is the root configuration.
type Config struct {
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Theme     ThemeConfig     `mapstructure:"theme"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Inspector InspectorConfig `mapstructure:"inspector"`
	Log       LogConfig       `mapstructure:"log"`
}

// RuntimeConfig tunes message delivery and command execution.
type RuntimeConfig struct {
	InputCapacity         int           `mapstructure:"input_capacity"`          // 0 = unbounded (default: 128)
	Overflow              string        `mapstructure:"overflow"`                // block, drop-newest, drop-oldest (default: block)
	MaxConcurrentCommands int           `mapstructure:"max_concurrent_commands"` // 0 = unbounded, 1 = single worker (default: 0)
	CommandTimeout        time.Duration `mapstructure:"command_timeout"`         // 0 = none (default: 30s)
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"`        // wait for commands on close (default: 2s)
}

// ThemeConfig selects the look of rendered views.
type ThemeConfig struct {
	Density   string `mapstructure:"density"`   // compact, standard, spacious (default: standard)
	Accent    string `mapstructure:"accent"`    // hex colour (default: #7D56F4)
	Highlight string `mapstructure:"highlight"` // hex colour (default: #73F59F)
}

// MonitorConfig drives the system monitor component.
type MonitorConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`    // default: 1s
	HistoryCapacity int           `mapstructure:"history_capacity"` // default: 31
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`    // default: 2s
}

// JournalConfig controls the persistent event journal.
type JournalConfig struct {
	Enabled    bool   `mapstructure:"enabled"`     // default: false
	Path       string `mapstructure:"path"`        // duckdb file; empty = in-memory
	BufferSize int    `mapstructure:"buffer_size"` // default: 256
}

// InspectorConfig controls the MCP inspector server.
type InspectorConfig struct {
	Enabled bool   `mapstructure:"enabled"` // default: false
	Name    string `mapstructure:"name"`    // default: mvukit-inspector
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error (default: info)
	File  string `mapstructure:"file"`  // empty = stderr in headless mode, discard in the TUI
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			InputCapacity:         channel.DefaultCapacity,
			Overflow:              "block",
			MaxConcurrentCommands: 0,
			CommandTimeout:        30 * time.Second,
			ShutdownTimeout:       2 * time.Second,
		},
		Theme: ThemeConfig{
			Density:   "standard",
			Accent:    "#7D56F4",
			Highlight: "#73F59F",
		},
		Monitor: MonitorConfig{
			PollInterval:    1 * time.Second,
			HistoryCapacity: 31,
			ProbeTimeout:    2 * time.Second,
		},
		Journal: JournalConfig{
			BufferSize: 256,
		},
		Inspector: InspectorConfig{
			Name: "mvukit-inspector",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// WithInputCapacity returns a copy of the config with a modified input capacity.
func (c Config) WithInputCapacity(n int) Config {
	c.Runtime.InputCapacity = n
	return c
}

// WithOverflow returns a copy of the config with a modified overflow policy.
func (c Config) WithOverflow(policy string) Config {
	c.Runtime.Overflow = policy
	return c
}

// WithMaxConcurrentCommands returns a copy of the config with a modified command limit.
func (c Config) WithMaxConcurrentCommands(n int) Config {
	c.Runtime.MaxConcurrentCommands = n
	return c
}

// WithCommandTimeout returns a copy of the config with a modified per-command timeout.
func (c Config) WithCommandTimeout(d time.Duration) Config {
	c.Runtime.CommandTimeout = d
	return c
}

// WithJournal returns a copy of the config with the journal enabled at path.
func (c Config) WithJournal(path string) Config {
	c.Journal.Enabled = true
	c.Journal.Path = path
	return c
}

// WithInspector returns a copy of the config with the inspector enabled/disabled.
func (c Config) WithInspector(enabled bool) Config {
	c.Inspector.Enabled = enabled
	return c
}

// OverflowPolicy parses Runtime.Overflow.
func (c Config) OverflowPolicy() channel.Overflow {
	o, _ := channel.ParseOverflow(c.Runtime.Overflow)
	return o
}

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if c.Runtime.InputCapacity < 0 {
		return &ConfigError{Field: "runtime.input_capacity", Message: "must not be negative"}
	}
	if _, err := channel.ParseOverflow(c.Runtime.Overflow); err != nil {
		return &ConfigError{Field: "runtime.overflow", Message: "must be block, drop-newest or drop-oldest"}
	}
	if c.Runtime.MaxConcurrentCommands < 0 {
		return &ConfigError{Field: "runtime.max_concurrent_commands", Message: "must not be negative"}
	}
	if c.Runtime.CommandTimeout < 0 {
		return &ConfigError{Field: "runtime.command_timeout", Message: "must not be negative"}
	}
	if c.Runtime.ShutdownTimeout <= 0 {
		return &ConfigError{Field: "runtime.shutdown_timeout", Message: "must be positive"}
	}
	switch strings.ToLower(c.Theme.Density) {
	case "compact", "standard", "spacious":
	default:
		return &ConfigError{Field: "theme.density", Message: "must be compact, standard or spacious"}
	}
	if c.Monitor.PollInterval <= 0 {
		return &ConfigError{Field: "monitor.poll_interval", Message: "must be positive"}
	}
	if c.Monitor.HistoryCapacity < 2 {
		return &ConfigError{Field: "monitor.history_capacity", Message: "must be at least 2"}
	}
	if c.Journal.Enabled && c.Journal.BufferSize <= 0 {
		return &ConfigError{Field: "journal.buffer_size", Message: "must be positive"}
	}
	if c.Inspector.Enabled && c.Inspector.Name == "" {
		return &ConfigError{Field: "inspector.name", Message: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}

// Load reads configuration from file and env, then validates it. The file is
// MVUKIT_CONFIG if set, otherwise ~/.config/mvukit/config.toml when present.
// Env var overrides use prefix MVUKIT_, e.g. MVUKIT_RUNTIME_OVERFLOW.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("toml")

	cfgPath := os.Getenv("MVUKIT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "mvukit"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("MVUKIT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("runtime.input_capacity", d.Runtime.InputCapacity)
	v.SetDefault("runtime.overflow", d.Runtime.Overflow)
	v.SetDefault("runtime.max_concurrent_commands", d.Runtime.MaxConcurrentCommands)
	v.SetDefault("runtime.command_timeout", d.Runtime.CommandTimeout)
	v.SetDefault("runtime.shutdown_timeout", d.Runtime.ShutdownTimeout)
	v.SetDefault("theme.density", d.Theme.Density)
	v.SetDefault("theme.accent", d.Theme.Accent)
	v.SetDefault("theme.highlight", d.Theme.Highlight)
	v.SetDefault("monitor.poll_interval", d.Monitor.PollInterval)
	v.SetDefault("monitor.history_capacity", d.Monitor.HistoryCapacity)
	v.SetDefault("monitor.probe_timeout", d.Monitor.ProbeTimeout)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("journal.buffer_size", d.Journal.BufferSize)
	v.SetDefault("inspector.enabled", d.Inspector.Enabled)
	v.SetDefault("inspector.name", d.Inspector.Name)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}
