package cache

import (
	"context"
	"testing"
	"time"

	"rating-ledger/internal/config"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	c := NewRedis(redis.NewClient(&redis.Options{Addr: srv.Addr()}), time.Minute, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	return c, srv
}

var testPlayers = []domain.Player{
	{ID: "a", DisplayName: "a", Rating: 1216, MatchesPlayed: 1},
	{ID: "b", DisplayName: "b", Rating: 1184, MatchesPlayed: 1},
}

func TestNewWithoutRedisIsNoop(t *testing.T) {
	c := New(&config.Config{}, zerolog.Nop())
	require.IsType(t, Noop{}, c)

	ctx := context.Background()
	c.Set(ctx, 0, testPlayers)
	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, NoGeneration, gen)
	assert.NoError(t, c.Invalidate(ctx))
	assert.NoError(t, c.Close())
}

func TestNewWithRedis(t *testing.T) {
	srv := miniredis.RunT(t)
	c := New(&config.Config{RedisAddr: srv.Addr(), StandingsCacheTTL: time.Minute}, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	require.IsType(t, &Redis{}, c)
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	_, gen, ok := c.Get(ctx)
	require.False(t, ok)
	assert.Equal(t, Generation(0), gen)

	c.Set(ctx, gen, testPlayers)

	cached, _, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, cached, 2)
	assert.Equal(t, "a", cached[0].ID)
	assert.Equal(t, 1184, cached[1].Rating)
	assert.Equal(t, time.Minute, srv.TTL(constants.StandingsCacheKey+":0"))

	require.NoError(t, c.Invalidate(ctx))
	_, gen, ok = c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, Generation(1), gen)
}

func TestRedisEntriesExpire(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	_, gen, _ := c.Get(ctx)
	c.Set(ctx, gen, testPlayers)

	srv.FastForward(time.Minute + time.Second)

	_, _, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisLateSetAfterInvalidateIsNeverServed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedis(t)

	// A reader misses and goes to the store.
	_, readerGen, ok := c.Get(ctx)
	require.False(t, ok)

	// A commit lands and invalidates before the reader writes back.
	require.NoError(t, c.Invalidate(ctx))
	c.Set(ctx, readerGen, testPlayers)

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Greater(t, gen, readerGen)

	fresh := []domain.Player{{ID: "a", DisplayName: "a", Rating: 1232, MatchesPlayed: 2}}
	c.Set(ctx, gen, fresh)

	cached, _, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, fresh, cached)
}

func TestRedisUnavailableFallsThrough(t *testing.T) {
	ctx := context.Background()
	c, srv := newTestRedis(t)

	_, gen, _ := c.Get(ctx)
	c.Set(ctx, gen, testPlayers)
	srv.Close()

	_, gen, ok := c.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, NoGeneration, gen)
	assert.Error(t, c.Invalidate(ctx))

	c.Set(ctx, gen, testPlayers)
}
