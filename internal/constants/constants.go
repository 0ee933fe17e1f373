package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultTrendLength  = 10
	DefaultStreakLength = 3
)

const (
	SubmitMaxRetries   = 3
	SubmitRetryBackoff = 50 * time.Millisecond
)

const (
	StandingsCacheKey           = "ledger:standings:v1"
	StandingsGenerationCacheKey = "ledger:standings:v1:gen"
)
