package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// BridgeConfig holds settings for the local UI bridge.
type BridgeConfig struct {
	// Addr is the loopback address the bridge listens on.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// ReminderConfig holds settings for due-date reminders.
type ReminderConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalSec int  `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	// DataDir is the application-owned directory holding the database
	// file and the notes directory.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// DatabaseFile is the database file name, relative to DataDir.
	DatabaseFile string `mapstructure:"database_file" yaml:"database_file"`

	// NotesDir holds one file per note body, relative to DataDir unless
	// absolute.
	NotesDir string `mapstructure:"notes_dir" yaml:"notes_dir"`

	Bridge    BridgeConfig   `mapstructure:"bridge" yaml:"bridge"`
	Reminders ReminderConfig `mapstructure:"reminders" yaml:"reminders"`
}

// DatabasePath returns the absolute path of the database file.
func (c *AppConfig) DatabasePath() string {
	if filepath.IsAbs(c.DatabaseFile) {
		return c.DatabaseFile
	}
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// NotesPath returns the absolute path of the notes directory.
func (c *AppConfig) NotesPath() string {
	if filepath.IsAbs(c.NotesDir) {
		return c.NotesDir
	}
	return filepath.Join(c.DataDir, c.NotesDir)
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskboard", "config.yaml")
}

// DefaultDataDir returns ~/.local/share/taskboard.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "taskboard-data")
	}
	return filepath.Join(home, ".local", "share", "taskboard")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DataDir:      DefaultDataDir(),
		DatabaseFile: "taskboard.db",
		NotesDir:     "notes",
		Bridge: BridgeConfig{
			Addr: "127.0.0.1:7412",
		},
		Reminders: ReminderConfig{
			Enabled:     true,
			IntervalSec: 60,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// TASKBOARD_* environment variables override file values. If the file does
// not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("database_file", def.DatabaseFile)
	v.SetDefault("notes_dir", def.NotesDir)
	v.SetDefault("bridge.addr", def.Bridge.Addr)
	v.SetDefault("reminders.enabled", def.Reminders.Enabled)
	v.SetDefault("reminders.interval_sec", def.Reminders.IntervalSec)

	if err := v.ReadInConfig(); err != nil {
		_, pathErr := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !pathErr && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Reminders.IntervalSec <= 0 {
		cfg.Reminders.IntervalSec = def.Reminders.IntervalSec
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("data_dir", cfg.DataDir)
	v.Set("database_file", cfg.DatabaseFile)
	v.Set("notes_dir", cfg.NotesDir)
	v.Set("bridge.addr", cfg.Bridge.Addr)
	v.Set("reminders.enabled", cfg.Reminders.Enabled)
	v.Set("reminders.interval_sec", cfg.Reminders.IntervalSec)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
