// Package config loads binder tool configuration from .binder.yaml, BINDER_*
// environment variables and command line flags through viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. BINDER_SERVE_PORT
const EnvPrefix = "BINDER"

// Config represents the .binder.yaml configuration
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Binder BinderConfig `mapstructure:"binder"`
	Serve  ServeConfig  `mapstructure:"serve"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BinderConfig contains the options passed to every binder
type BinderConfig struct {
	// Target is the selector of the bound element
	Target            string        `mapstructure:"target"`
	TransitionClass   string        `mapstructure:"transition_class"`
	TransitionTimeout time.Duration `mapstructure:"transition_timeout"`
	AutoUpdate        bool          `mapstructure:"auto_update"`
}

// ServeConfig contains live preview server configuration
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WatchConfig contains file watching configuration
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Binder: BinderConfig{
			Target:            "body",
			TransitionTimeout: 600 * time.Millisecond,
			AutoUpdate:        true,
		},
		Serve: ServeConfig{Host: "localhost", Port: 5173},
		Watch: WatchConfig{Debounce: 100 * time.Millisecond},
	}
}

// SetDefaults registers the defaults on v so unset keys fall back to them
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("binder.target", d.Binder.Target)
	v.SetDefault("binder.transition_class", d.Binder.TransitionClass)
	v.SetDefault("binder.transition_timeout", d.Binder.TransitionTimeout)
	v.SetDefault("binder.auto_update", d.Binder.AutoUpdate)
	v.SetDefault("serve.host", d.Serve.Host)
	v.SetDefault("serve.port", d.Serve.Port)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Init prepares v: config file (explicit path or .binder.yaml in the
// working directory), BINDER_ environment overrides and defaults. A missing
// default config file is not an error.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".binder")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes the configuration held by v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the tools cannot use
func (c *Config) Validate() error {
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("invalid serve.port %d", c.Serve.Port)
	}
	if c.Binder.TransitionTimeout < 0 {
		return fmt.Errorf("invalid binder.transition_timeout %s", c.Binder.TransitionTimeout)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch.debounce %s", c.Watch.Debounce)
	}
	if strings.TrimSpace(c.Binder.Target) == "" {
		return fmt.Errorf("binder.target must not be empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q", c.Log.Format)
	}
	return nil
}

// Addr returns the serve listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Serve.Host, c.Serve.Port)
}
