package service

import (
	"context"
	"testing"
	"time"

	"rating-ledger/internal/cache"
	"rating-ledger/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alias := "  ext-a "
	p, err := f.players.Register(ctx, "  alice ", &alias)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.DisplayName)
	require.NotNil(t, p.ExternalAlias)
	assert.Equal(t, "ext-a", *p.ExternalAlias)
	assert.Equal(t, domain.InitialRating, p.Rating)
	assert.Equal(t, 1, f.cache.invalidations)

	blank := "   "
	p, err = f.players.Register(ctx, "bob", &blank)
	require.NoError(t, err)
	assert.Nil(t, p.ExternalAlias)

	byName, err := f.players.GetByDisplayName(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)
}

func TestRegisterRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.players.Register(ctx, "   ", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.registerWithAlias(t, "alice", "ext-a")

	_, err = f.players.Register(ctx, "alice", nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	alias := "ext-a"
	_, err = f.players.Register(ctx, "alice2", &alias)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.players.Get(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStandingsUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t, "a")
	f.register(t, "b")

	first, err := f.players.Standings(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 0, f.cache.hits)

	second, err := f.players.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.cache.hits)

	f.register(t, "c")
	third, err := f.players.Standings(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 3)
}

// lateWriteBack runs beforeSet once, just before the cache write, so a commit
// lands while a standings read sits between its store query and its write.
type lateWriteBack struct {
	*cache.Redis
	beforeSet func()
}

func (c *lateWriteBack) Set(ctx context.Context, gen cache.Generation, players []domain.Player) {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.Redis.Set(ctx, gen, players)
}

func ratingOf(t *testing.T, players []domain.Player, id string) int {
	t.Helper()
	for _, p := range players {
		if p.ID == id {
			return p.Rating
		}
	}
	t.Fatalf("player %s missing from standings", id)
	return 0
}

func TestStandingsCommitDuringWriteBack(t *testing.T) {
	ctx := context.Background()

	srv := miniredis.RunT(t)
	redisCache := cache.NewRedis(redis.NewClient(&redis.Options{Addr: srv.Addr()}), time.Minute, zerolog.Nop())
	t.Cleanup(func() { redisCache.Close() })

	standings := &lateWriteBack{Redis: redisCache}
	f := newFixtureWithCache(t, standings)
	a := f.register(t, "a")
	b := f.register(t, "b")

	standings.beforeSet = func() { f.win(t, "match-1", a, b) }

	// Read before the commit; the list it caches is already outdated.
	before, err := f.players.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialRating, ratingOf(t, before, a.ID))

	// The commit has returned, so every later read must include it.
	for range 2 {
		after, err := f.players.Standings(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1216, ratingOf(t, after, a.ID))
		assert.Equal(t, 1184, ratingOf(t, after, b.ID))
	}
}
