package service

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"rating-ledger/internal/cache"
	"rating-ledger/internal/database/databasetest"
	"rating-ledger/internal/db"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	mu            sync.Mutex
	players       []domain.Player
	warm          bool
	gen           cache.Generation
	invalidations int
	hits          int
}

func (c *recordingCache) Get(context.Context) ([]domain.Player, cache.Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warm {
		c.hits++
	}
	return c.players, c.gen, c.warm
}

func (c *recordingCache) Set(_ context.Context, gen cache.Generation, players []domain.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.players, c.warm = players, true
}

func (c *recordingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players, c.warm = nil, false
	c.gen++
	c.invalidations++
	return nil
}

func (c *recordingCache) Close() error { return nil }

type fixture struct {
	players    *PlayerService
	ledger     *LedgerService
	analytics  *AnalyticsService
	playerRepo *repository.PlayerRepository
	ledgerRepo *repository.LedgerRepository
	cache      *recordingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &recordingCache{}
	f := newFixtureWithCache(t, c)
	f.cache = c
	return f
}

func newFixtureWithCache(t *testing.T, standings cache.Standings) *fixture {
	t.Helper()
	return newFixtureOn(t, databasetest.New(t), standings)
}

func newFixtureOn(t *testing.T, sqlDB *sqlx.DB, standings cache.Standings) *fixture {
	t.Helper()

	cfg := databasetest.Config(t)
	cfg.MatchIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)

	queries := db.New(sqlDB)
	logger := zerolog.Nop()

	playerRepo := repository.NewPlayerRepository(sqlDB, queries, logger)
	ledgerRepo := repository.NewLedgerRepository(sqlDB, queries, logger)

	return &fixture{
		players:    NewPlayerService(playerRepo, standings, logger),
		ledger:     NewLedgerService(ledgerRepo, playerRepo, standings, cfg, logger),
		analytics:  NewAnalyticsService(ledgerRepo, playerRepo, logger),
		playerRepo: playerRepo,
		ledgerRepo: ledgerRepo,
	}
}

func (f *fixture) register(t *testing.T, name string) *domain.Player {
	t.Helper()
	p, err := f.players.Register(context.Background(), name, nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) registerWithAlias(t *testing.T, name, alias string) *domain.Player {
	t.Helper()
	p, err := f.players.Register(context.Background(), name, &alias)
	require.NoError(t, err)
	return p
}

func (f *fixture) win(t *testing.T, matchID string, winner, loser *domain.Player) *domain.LedgerEntry {
	t.Helper()
	res, err := f.ledger.Submit(context.Background(), domain.Candidate{MatchID: matchID, WinnerID: winner.ID, LoserID: loser.ID})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCommitted, res.Status)
	return res.Entry
}

func (f *fixture) reload(t *testing.T, p *domain.Player) *domain.Player {
	t.Helper()
	fresh, err := f.players.Get(context.Background(), p.ID)
	require.NoError(t, err)
	return fresh
}
