// Package config loads the presenter's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gastownhall/presenter-remote/internal/remote"
	"github.com/gastownhall/presenter-remote/internal/wsbase"
)

// EnvPrefix prefixes environment overrides, e.g. PRESENTER_REMOTE_LISTEN or
// PRESENTER_REMOTE_METER_SOURCE.
const EnvPrefix = "PRESENTER_REMOTE"

// Meter sources.
const (
	MeterSilent    = "silent"
	MeterSynthetic = "synthetic"
)

// Config is the top-level presenter configuration.
type Config struct {
	Listen         string        `mapstructure:"listen" yaml:"listen"`
	AuthToken      string        `mapstructure:"auth_token" yaml:"auth_token"`
	OriginPatterns []string      `mapstructure:"origin_patterns" yaml:"origin_patterns"`
	ContentFile    string        `mapstructure:"content_file" yaml:"content_file"`
	MaxFrameBytes  int64         `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	Meter          MeterConfig   `mapstructure:"meter" yaml:"meter"`
	Notices        NoticesConfig `mapstructure:"notices" yaml:"notices"`
}

// MeterConfig selects the recorder level source.
type MeterConfig struct {
	Source     string `mapstructure:"source" yaml:"source"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`
	IntervalMS int    `mapstructure:"interval_ms" yaml:"interval_ms"`
}

// Interval is the recorder status push period.
func (m MeterConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMS) * time.Millisecond
}

// NoticesConfig controls operator notifications.
type NoticesConfig struct {
	DisconnectDelaySeconds int `mapstructure:"disconnect_delay_seconds" yaml:"disconnect_delay_seconds"`
}

// DisconnectDelay is how long after the last controller leaves the operator
// is told. Zero disables the notice.
func (n NoticesConfig) DisconnectDelay() time.Duration {
	return time.Duration(n.DisconnectDelaySeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:        "127.0.0.1:8470",
		MaxFrameBytes: wsbase.DefaultReadLimit,
		Meter: MeterConfig{
			Source:     MeterSilent,
			Channels:   2,
			IntervalMS: 250,
		},
		Notices: NoticesConfig{
			DisconnectDelaySeconds: 10,
		},
	}
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "presenter-remote", "config.yaml"), nil
}

// Load reads configuration from path, applies PRESENTER_REMOTE_* environment
// overrides and validates the result. If path is empty, DefaultPath is used.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("auth_token", cfg.AuthToken)
	v.SetDefault("origin_patterns", cfg.OriginPatterns)
	v.SetDefault("content_file", cfg.ContentFile)
	v.SetDefault("max_frame_bytes", cfg.MaxFrameBytes)
	v.SetDefault("meter.source", cfg.Meter.Source)
	v.SetDefault("meter.channels", cfg.Meter.Channels)
	v.SetDefault("meter.interval_ms", cfg.Meter.IntervalMS)
	v.SetDefault("notices.disconnect_delay_seconds", cfg.Notices.DisconnectDelaySeconds)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.ContentFile = os.ExpandEnv(cfg.ContentFile)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen is required")
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("max_frame_bytes must be positive, got %d", c.MaxFrameBytes)
	}
	switch c.Meter.Source {
	case MeterSilent, MeterSynthetic:
	default:
		return fmt.Errorf("unsupported meter.source %q", c.Meter.Source)
	}
	if c.Meter.Channels < 0 || c.Meter.Channels > remote.MaxChannels {
		return fmt.Errorf("meter.channels must be between 0 and %d, got %d", remote.MaxChannels, c.Meter.Channels)
	}
	if c.Meter.IntervalMS <= 0 {
		return fmt.Errorf("meter.interval_ms must be positive, got %d", c.Meter.IntervalMS)
	}
	if c.Notices.DisconnectDelaySeconds < 0 {
		return fmt.Errorf("notices.disconnect_delay_seconds must not be negative, got %d", c.Notices.DisconnectDelaySeconds)
	}
	return nil
}

// Marshal renders c as YAML.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}
