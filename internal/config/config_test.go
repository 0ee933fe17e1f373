package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DB_PATH", "SERVER_PORT", "LOG_LEVEL", "RATING_FLOOR", "STANDINGS_CACHE_TTL", "MATCH_ID_PATTERN", "REDIS_DB"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "ledger.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.EnvFileLoaded)
	assert.Equal(t, time.Minute, cfg.StandingsCacheTTL)
	assert.Equal(t, 5, cfg.RatingFloor)
	assert.Equal(t, 5, cfg.RatingPolicy().Floor)
	assert.True(t, cfg.MatchIDPattern.MatchString("abcd1234"))
	assert.False(t, cfg.MatchIDPattern.MatchString("abc"))
	assert.False(t, cfg.MatchIDPattern.MatchString("has space"))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", DriverPostgres)
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("RATING_FLOOR", "8")
	t.Setenv("STANDINGS_CACHE_TTL", "30s")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MATCH_ID_PATTERN", `^\d+$`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 8, cfg.RatingPolicy().Floor)
	assert.Equal(t, 30*time.Second, cfg.StandingsCacheTTL)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.MatchIDPattern.MatchString("12345"))
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"postgres without url", "DB_DRIVER", DriverPostgres},
		{"floor not a number", "RATING_FLOOR", "five"},
		{"floor below one", "RATING_FLOOR", "0"},
		{"bad ttl", "STANDINGS_CACHE_TTL", "soon"},
		{"bad pattern", "MATCH_ID_PATTERN", "(["},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.key, test.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=warn\nRATING_FLOOR=7\n"), 0o600))
	t.Chdir(dir)

	for _, key := range []string{"LOG_LEVEL", "RATING_FLOOR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.EnvFileLoaded)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.RatingFloor)
}

func TestLogSummaryOmitsSecrets(t *testing.T) {
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("RESULTS_API_KEY", "sk-secret")

	cfg, err := Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	LogSummary(cfg, zerolog.New(&buf))

	assert.Contains(t, buf.String(), "configuration loaded")
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "sk-secret")
}
