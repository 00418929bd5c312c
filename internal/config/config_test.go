package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.AuthDisabled = true

	err := NewValidator().Validate(cfg)
	require.NoError(t, err)
}

func TestValidator_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid catalog source",
			mutate: func(c *Config) { c.Catalog.Source = "ftp" },
			want:   "catalog.source",
		},
		{
			name:   "max_k below default_k",
			mutate: func(c *Config) { c.Selector.MaxK = 2; c.Selector.DefaultK = 5 },
			want:   "selector.max_k",
		},
		{
			name:   "max timeout below default timeout",
			mutate: func(c *Config) { c.Runner.MaxTimeout = time.Second; c.Runner.DefaultTimeout = time.Minute },
			want:   "runner.max_timeout",
		},
		{
			name:   "invalid secret pattern",
			mutate: func(c *Config) { c.Runner.SecretPatterns = []string{"(unclosed"} },
			want:   "secret_patterns",
		},
		{
			name:   "audit auth enabled without secret",
			mutate: func(c *Config) { c.Audit.AuthDisabled = false; c.Audit.SharedSecret = "" },
			want:   "audit.shared_secret",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Audit.AuthDisabled = true
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9000
catalog:
  source: file
  path: /tmp/catalog
selector:
  default_k: 3
  always_include:
    - asset-query
    - service-status
  cache_ttl: 90s
audit:
  auth_disabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader := NewLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"asset-query", "service-status"}, cfg.Selector.AlwaysInclude)
	assert.Equal(t, 90*time.Second, cfg.Selector.CacheTTL)
	// Unspecified sections keep defaults.
	assert.Equal(t, DefaultConfig().Runner.MaxOutputBytes, cfg.Runner.MaxOutputBytes)
}

func TestLoader_EnvInterpolation(t *testing.T) {
	t.Setenv("TOOLENGINE_TEST_SECRET", "s3cret-value")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
catalog:
  source: file
  path: /tmp/catalog
audit:
  shared_secret: ${TOOLENGINE_TEST_SECRET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-value", cfg.Audit.SharedSecret)
}

func TestLoader_LoadWithDefaults_MissingFile(t *testing.T) {
	loader := NewLoader(noopValidator{})
	cfg, err := loader.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
}

func TestLoader_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: [unterminated"), 0o644))

	_, err := NewLoader(NewValidator()).Load(path)
	require.Error(t, err)
}

// noopValidator accepts any configuration, including the default one whose
// audit secret is intentionally unset.
type noopValidator struct{}

func (noopValidator) Validate(*Config) error { return nil }
