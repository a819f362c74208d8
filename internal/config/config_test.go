package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GITHUB_TOKEN", "GITHUB_API_URL", "GITHUB_HTTP_TIMEOUT", "GITHUB_STATS_ATTEMPTS",
		"GITHUB_STATS_DELAY", "STORAGE_TYPE", "SQLITE_PATH", "JWT_SECRET", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, 6, cfg.GitHubStatsAttempts)
	assert.Equal(t, 2*time.Second, cfg.GitHubStatsDelay)
	assert.Equal(t, 30*time.Second, cfg.GitHubHTTPTimeout)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GITHUB_STATS_ATTEMPTS", "3")
	t.Setenv("GITHUB_STATS_DELAY", "250ms")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("POSTGRES_URL", "postgres://localhost/skills")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.GitHubStatsAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.GitHubStatsDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("GITHUB_STATS_ATTEMPTS", "many")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "GITHUB_STATS_ATTEMPTS", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageType:         "sqlite",
			GitHubStatsAttempts: 6,
			GitHubStatsDelay:    2 * time.Second,
			LogFormat:           "text",
			JWTSecret:           "0123456789abcdef",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{name: "unknown storage", mutate: func(c *Config) { c.StorageType = "mongo" }, field: "STORAGE_TYPE"},
		{name: "postgres without url", mutate: func(c *Config) { c.StorageType = "postgres" }, field: "POSTGRES_URL"},
		{name: "zero attempts", mutate: func(c *Config) { c.GitHubStatsAttempts = 0 }, field: "GITHUB_STATS_ATTEMPTS"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, field: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("server requires a jwt secret", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.ValidateServer())
		cfg.JWTSecret = "short"
		assert.Error(t, cfg.ValidateServer())
	})
}
