package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"rating-ledger/internal/rating"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Config struct {
	DBDriver    string
	DBPath      string
	DatabaseURL string
	ServerPort  string
	LogLevel    string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	StandingsCacheTTL time.Duration

	ResultsAPIURL string
	ResultsAPIKey string

	RatingFloor    int
	MatchIDPattern *regexp.Regexp

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// Load reads .env (if present) and the environment. It runs before the
// logger exists, since LOG_LEVEL may come from .env.
func Load() (*Config, error) {
	envErr := godotenv.Load()

	cfg := &Config{
		EnvFileLoaded: envErr == nil,
		DBDriver:      getEnv("DB_DRIVER", DriverSQLite),
		DBPath:        getEnv("DB_PATH", "ledger.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		ResultsAPIURL: getEnv("RESULTS_API_URL", ""),
		ResultsAPIKey: getEnv("RESULTS_API_KEY", ""),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RatingFloor, err = getEnvInt("RATING_FLOOR", rating.DefaultFloor); err != nil {
		return nil, err
	}
	if cfg.StandingsCacheTTL, err = getEnvDuration("STANDINGS_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}

	pattern := getEnv("MATCH_ID_PATTERN", `^[A-Za-z0-9_-]{4,64}$`)
	if cfg.MatchIDPattern, err = regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("MATCH_ID_PATTERN is invalid: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LogSummary logs the loaded configuration without secrets.
func LogSummary(cfg *Config, logger zerolog.Logger) {
	if !cfg.EnvFileLoaded {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	logger.Info().
		Str("db_driver", cfg.DBDriver).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("standings_cache", cfg.RedisAddr != "").
		Dur("standings_cache_ttl", cfg.StandingsCacheTTL).
		Bool("results_api", cfg.ResultsAPIURL != "").
		Int("rating_floor", cfg.RatingFloor).
		Str("match_id_pattern", cfg.MatchIDPattern.String()).
		Msg("configuration loaded")
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.RatingFloor < 1 {
		return fmt.Errorf("RATING_FLOOR must be at least 1, got %d", c.RatingFloor)
	}
	return nil
}

// RatingPolicy is the rating function configured for this deployment.
func (c *Config) RatingPolicy() rating.Policy {
	p := rating.DefaultPolicy()
	p.Floor = c.RatingFloor
	return p
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(LogSummary),
)
