// Package databasetest opens migrated databases for tests.
package databasetest

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"rating-ledger/internal/config"
	"rating-ledger/internal/database"
	"rating-ledger/internal/rating"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Config returns a configuration pointing at a fresh SQLite file in the
// test's temp dir.
func Config(t testing.TB) *config.Config {
	t.Helper()
	return &config.Config{
		DBDriver:    config.DriverSQLite,
		DBPath:      filepath.Join(t.TempDir(), "ledger.db"),
		ServerPort:  "0",
		LogLevel:    "disabled",
		RatingFloor: rating.DefaultFloor,
	}
}

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	db, err := database.New(Config(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

// PostgresURLEnv names the server NewPostgres connects to.
const PostgresURLEnv = "LEDGER_TEST_DATABASE_URL"

// NewPostgres opens a migrated database in a fresh schema on the server at
// PostgresURLEnv. The test is skipped when the variable is unset and the
// schema is dropped on cleanup.
func NewPostgres(t testing.TB) *sqlx.DB {
	t.Helper()

	base := os.Getenv(PostgresURLEnv)
	if base == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}

	admin, err := sqlx.Open(config.DriverPostgres, base)
	require.NoError(t, err)
	t.Cleanup(func() { admin.Close() })

	schema := "ledger_test_" + gonanoid.MustGenerate("abcdefghijklmnopqrstuvwxyz0123456789", 12)
	_, err = admin.Exec("CREATE SCHEMA " + schema)
	require.NoError(t, err)
	t.Cleanup(func() { admin.Exec("DROP SCHEMA " + schema + " CASCADE") })

	u, err := url.Parse(base)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	cfg := Config(t)
	cfg.DBDriver = config.DriverPostgres
	cfg.DatabaseURL = u.String()

	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}
