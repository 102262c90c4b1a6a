package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	require.NoError(t, Init(v, ""))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "localhost:5173", cfg.Addr())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binder.yaml")
	content := `
log:
  level: debug
  format: json
binder:
  target: "#app"
  transition_class: flash
  transition_timeout: 250ms
  auto_update: false
serve:
  port: 8080
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "#app", cfg.Binder.Target)
	assert.Equal(t, "flash", cfg.Binder.TransitionClass)
	assert.Equal(t, 250*time.Millisecond, cfg.Binder.TransitionTimeout)
	assert.False(t, cfg.Binder.AutoUpdate)
	assert.Equal(t, 8080, cfg.Serve.Port)
	// unset keys keep their defaults
	assert.Equal(t, "localhost", cfg.Serve.Host)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
}

func TestMissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Init(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("BINDER_SERVE_PORT", "9000")
	t.Setenv("BINDER_BINDER_TRANSITION_CLASS", "glow")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Equal(t, "glow", cfg.Binder.TransitionClass)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Serve.Port = 70000 }},
		{"timeout", func(c *Config) { c.Binder.TransitionTimeout = -time.Second }},
		{"debounce", func(c *Config) { c.Watch.Debounce = -1 }},
		{"target", func(c *Config) { c.Binder.Target = " " }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}
