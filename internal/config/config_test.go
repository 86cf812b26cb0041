package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10, cfg.Query.DefaultLimit)
	assert.True(t, cfg.SignalLog.Enabled)
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  address: ":9090"
query:
  default_limit: 25
  max_limit: 100
`), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SERVER_ADDRESS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Production, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 25, cfg.Query.DefaultLimit)
}

func TestLoad_EnvironmentVariablesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: staging\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("QUERY_DEFAULT_LIMIT", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Production, cfg.Environment)
	assert.Equal(t, 42, cfg.Query.DefaultLimit)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "galaxy" }},
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"non-positive default limit", func(c *Config) { c.Query.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Query.MaxLimit = 1; c.Query.DefaultLimit = 5 }},
		{"signal log without path", func(c *Config) { c.SignalLog.Path = "" }},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
