package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rating-ledger/internal/config"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
)

// Generation identifies the cache contents between two invalidations. A
// list read from the store may only be cached under the generation observed
// before the read.
type Generation int64

// NoGeneration is returned when the current generation is unknown; Set
// ignores it.
const NoGeneration Generation = -1

// Standings caches the rendered standings list. It is a display cache only:
// misses and errors fall through to the player store, and every commit
// invalidates it.
type Standings interface {
	// Get returns the cached list on a hit. On a miss it returns the
	// generation that a following Set must carry.
	Get(ctx context.Context) ([]domain.Player, Generation, bool)
	// Set stores players under gen. Once Invalidate has run, lists stored
	// under an earlier generation are never returned.
	Set(ctx context.Context, gen Generation, players []domain.Player)
	Invalidate(ctx context.Context) error
	Close() error
}

// New returns a redis-backed cache when REDIS_ADDR is configured, otherwise a
// cache that never hits.
func New(cfg *config.Config, logger zerolog.Logger) Standings {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("standings cache disabled")
		return Noop{}
	}

	logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("standings cache enabled")
	return NewRedis(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), cfg.StandingsCacheTTL, logger)
}

// Redis keeps one list per generation under StandingsCacheKey:<gen>.
// Invalidate increments the generation counter, so a list written late by a
// reader that started before the invalidation lands under a key nobody
// reads any more and expires with the TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context) ([]domain.Player, Generation, bool) {
	gen, err := r.generation(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read standings generation")
		return nil, NoGeneration, false
	}

	data, err := r.client.Get(ctx, listKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read standings cache")
		return nil, NoGeneration, false
	}

	var players []domain.Player
	if err := json.Unmarshal(data, &players); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode standings cache")
		return nil, gen, false
	}
	return players, gen, true
}

func (r *Redis) Set(ctx context.Context, gen Generation, players []domain.Player) {
	if gen == NoGeneration {
		return
	}

	data, err := json.Marshal(players)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to encode standings")
		return
	}
	if err := r.client.Set(ctx, listKey(gen), data, r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("failed to write standings cache")
	}
}

func (r *Redis) Invalidate(ctx context.Context) error {
	gen, err := r.client.Incr(ctx, constants.StandingsGenerationCacheKey).Result()
	if err != nil {
		return fmt.Errorf("failed to bump standings generation: %w", err)
	}
	r.logger.Debug().Int64("generation", gen).Msg("standings cache invalidated")
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) generation(ctx context.Context) (Generation, error) {
	gen, err := r.client.Get(ctx, constants.StandingsGenerationCacheKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return NoGeneration, err
	}
	return Generation(gen), nil
}

func listKey(gen Generation) string {
	return fmt.Sprintf("%s:%d", constants.StandingsCacheKey, gen)
}

type Noop struct{}

func (Noop) Get(context.Context) ([]domain.Player, Generation, bool) { return nil, NoGeneration, false }
func (Noop) Set(context.Context, Generation, []domain.Player)        {}
func (Noop) Invalidate(context.Context) error                        { return nil }
func (Noop) Close() error                                            { return nil }
