// Package config handles Leadline configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Leadline.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Server settings
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Engine settings
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global Leadline settings.
type GlobalConfig struct {
	// DataDir is where Leadline stores its data (default: ~/.local/share/leadline).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/leadline).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// ServerConfig contains lead store server settings.
type ServerConfig struct {
	// BaseURL is the lead store endpoint the engine polls.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Listen is the host:port the dev server binds.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// MeetingDueWindow is how long past its start a meeting stays due.
	MeetingDueWindow time.Duration `yaml:"meeting_due_window" mapstructure:"meeting_due_window"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// EngineConfig contains reminder engine settings.
type EngineConfig struct {
	// ReminderPollInterval is how often the reminder due set is polled.
	ReminderPollInterval time.Duration `yaml:"reminder_poll_interval" mapstructure:"reminder_poll_interval"`

	// MeetingPollInterval is how often the meeting due set is polled.
	MeetingPollInterval time.Duration `yaml:"meeting_poll_interval" mapstructure:"meeting_poll_interval"`

	// EscalationCheckInterval is how often the visible follow-up is
	// checked against the grace window.
	EscalationCheckInterval time.Duration `yaml:"escalation_check_interval" mapstructure:"escalation_check_interval"`

	// EscalationGrace is how far past its scheduled time an unanswered
	// visible follow-up may run before being marked missed.
	EscalationGrace time.Duration `yaml:"escalation_grace" mapstructure:"escalation_grace"`

	// SnoozeDefaultMinutes is the snooze duration when none is given.
	SnoozeDefaultMinutes int `yaml:"snooze_default_minutes" mapstructure:"snooze_default_minutes"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, dark, light).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows timestamps in the UI.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// Bell enables the terminal bell on admission.
	Bell bool `yaml:"bell" mapstructure:"bell"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "leadline"),
			ConfigDir: filepath.Join(homeDir, ".config", "leadline"),
		},
		Server: ServerConfig{
			BaseURL:          "http://127.0.0.1:8316",
			Listen:           "127.0.0.1:8316",
			MeetingDueWindow: 15 * time.Minute,
		},
		Database: DatabaseConfig{
			Path: "", // Will be set to DataDir/leadline.db
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Engine: EngineConfig{
			ReminderPollInterval:    5 * time.Second,
			MeetingPollInterval:     10 * time.Second,
			EscalationCheckInterval: 10 * time.Second,
			EscalationGrace:         5 * time.Minute,
			SnoozeDefaultMinutes:    10,
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
			Bell:           true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Engine.ReminderPollInterval < 100*time.Millisecond {
		return fmt.Errorf("engine.reminder_poll_interval must be at least 100ms")
	}

	if c.Engine.MeetingPollInterval < 100*time.Millisecond {
		return fmt.Errorf("engine.meeting_poll_interval must be at least 100ms")
	}

	if c.Engine.EscalationCheckInterval < 100*time.Millisecond {
		return fmt.Errorf("engine.escalation_check_interval must be at least 100ms")
	}

	if c.Engine.EscalationGrace < time.Second {
		return fmt.Errorf("engine.escalation_grace must be at least 1s")
	}

	if c.Engine.SnoozeDefaultMinutes < 1 {
		return fmt.Errorf("engine.snooze_default_minutes must be at least 1")
	}

	switch c.Logging.Format {
	case "json", "console":
		// ok
	default:
		return fmt.Errorf("logging.format must be json or console")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "leadline.db")
}
