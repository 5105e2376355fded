package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const appName = "echo-capture"

type Config struct {
	LogLevel string      `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
	Audio    AudioConfig `json:"audio" mapstructure:"audio" yaml:"audio"`
	Log      LogConfig   `json:"log" mapstructure:"log" yaml:"log"`
}

type AudioConfig struct {
	Origin         string `json:"origin" mapstructure:"origin" yaml:"origin"` // "microphone", "system" or "both"
	OutputDir      string `json:"output_dir" mapstructure:"output_dir" yaml:"output_dir"`
	PollIntervalMs int    `json:"poll_interval_ms" mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

type LogConfig struct {
	MaxSizeMB  int `json:"max_size_mb" mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `json:"max_backups" mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int `json:"max_age_days" mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Origin:         "microphone",
			OutputDir:      RecordingsPath(),
			PollIntervalMs: 10,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads the config file at path. A missing file yields defaults;
// ECHO_CAPTURE_* environment variables override both.
func LoadFrom(path string) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("ECHO_CAPTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("audio.origin", defaults.Audio.Origin)
	v.SetDefault("audio.output_dir", defaults.Audio.OutputDir)
	v.SetDefault("audio.poll_interval_ms", defaults.Audio.PollIntervalMs)
	v.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	v.SetDefault("log.max_age_days", defaults.Log.MaxAgeDays)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values the engine cannot recover from at runtime
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be trace, debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.Audio.Origin {
	case "microphone", "system", "both":
	default:
		return fmt.Errorf("audio.origin must be microphone, system or both, got %q", c.Audio.Origin)
	}
	if c.Audio.PollIntervalMs <= 0 {
		return fmt.Errorf("audio.poll_interval_ms must be positive, got %d", c.Audio.PollIntervalMs)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.SaveTo(configPath())
}

// SaveTo writes the config as indented JSON at path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the platform-specific config file path
func Path() string {
	return configPath()
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.json")
}

// RecordingsPath returns the platform-specific default recordings directory
func RecordingsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Music"
	case "windows":
		base = os.Getenv("USERPROFILE") + `\Music`
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName, "recordings")
}
