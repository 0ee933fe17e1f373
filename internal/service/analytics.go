package service

import (
	"context"
	"fmt"
	"iter"

	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AnalyticsService derives read-only views from the ledger. It never writes.
type AnalyticsService struct {
	ledger  *repository.LedgerRepository
	players *repository.PlayerRepository
	logger  zerolog.Logger
}

func NewAnalyticsService(ledger *repository.LedgerRepository, players *repository.PlayerRepository, logger zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{ledger: ledger, players: players, logger: logger}
}

// Trend yields exactly n outcomes for the player's last n entries, most recent
// first, padded with domain.OutcomeNoData. The sequence can be ranged over
// any number of times.
func (s *AnalyticsService) Trend(ctx context.Context, playerID string, n int) (iter.Seq[domain.Outcome], error) {
	if n <= 0 {
		return nil, fmt.Errorf("trend length must be positive, got %d: %w", n, domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.players.Get(ctx, playerID); err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListRecentByPlayer(ctx, playerID, n)
	if err != nil {
		return nil, err
	}

	return func(yield func(domain.Outcome) bool) {
		for i := 0; i < n; i++ {
			outcome := domain.OutcomeNoData
			if i < len(entries) {
				outcome = outcomeFor(entries[i], playerID)
			}
			if !yield(outcome) {
				return
			}
		}
	}, nil
}

// Streak reports whether the player's last n entries are all wins.
func (s *AnalyticsService) Streak(ctx context.Context, playerID string, n int) (bool, error) {
	trend, err := s.Trend(ctx, playerID, n)
	if err != nil {
		return false, err
	}

	for outcome := range trend {
		if outcome != domain.OutcomeWin {
			return false, nil
		}
	}
	return true, nil
}

// WinRate is wins divided by matches played, 0 for a player without matches.
func (s *AnalyticsService) WinRate(ctx context.Context, playerID string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return 0, err
	}
	if player.MatchesPlayed == 0 {
		return 0, nil
	}

	entries, err := s.ledger.ListByPlayer(ctx, playerID)
	if err != nil {
		return 0, err
	}

	wins, _ := countResults(entries, playerID)
	return float64(wins) / float64(player.MatchesPlayed), nil
}

// RatingHistory replays the player's entries from the initial rating. The
// first point is the player's creation; the last equals the stored rating
// unless the store has drifted from the ledger.
func (s *AnalyticsService) RatingHistory(ctx context.Context, playerID string) ([]domain.HistoryPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	history := replay(player, entries)
	if last := history[len(history)-1]; last.Rating != player.Rating {
		s.logger.Error().
			Str("player_id", playerID).
			Int("stored_rating", player.Rating).
			Int("replayed_rating", last.Rating).
			Msg("stored rating differs from ledger replay")
	}
	return history, nil
}

// Stats gathers every view for one player concurrently.
func (s *AnalyticsService) Stats(ctx context.Context, playerID string) (*domain.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	player, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	stats := &domain.PlayerStats{Player: *player}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		trend, err := s.Trend(gCtx, playerID, constants.DefaultTrendLength)
		if err != nil {
			return err
		}
		for outcome := range trend {
			stats.Trend = append(stats.Trend, outcome)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		stats.Streak, err = s.Streak(gCtx, playerID, constants.DefaultStreakLength)
		return err
	})
	g.Go(func() error {
		var err error
		stats.WinRate, err = s.WinRate(gCtx, playerID)
		return err
	})
	g.Go(func() error {
		entries, err := s.ledger.ListByPlayer(gCtx, playerID)
		if err != nil {
			return err
		}
		stats.Wins, stats.Losses = countResults(entries, playerID)
		stats.History = replay(player, entries)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("player_id", playerID).Msg("failed to gather player stats")
		return nil, err
	}
	return stats, nil
}

// Verify replays the whole ledger and returns every player whose stored
// rating or match count differs from the replay.
func (s *AnalyticsService) Verify(ctx context.Context) ([]domain.Drift, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.List(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct{ rating, matches int }
	replayed := make(map[string]*tally, len(players))
	for _, p := range players {
		replayed[p.ID] = &tally{rating: domain.InitialRating}
	}
	for _, e := range entries {
		if w, ok := replayed[e.WinnerID]; ok {
			w.rating += e.Delta
			w.matches++
		}
		if l, ok := replayed[e.LoserID]; ok {
			l.rating -= e.Delta
			l.matches++
		}
	}

	var drifts []domain.Drift
	for _, p := range players {
		t := replayed[p.ID]
		if t.rating == p.Rating && t.matches == p.MatchesPlayed {
			continue
		}
		drifts = append(drifts, domain.Drift{
			PlayerID:              p.ID,
			DisplayName:           p.DisplayName,
			StoredRating:          p.Rating,
			ReplayedRating:        t.rating,
			StoredMatchesPlayed:   p.MatchesPlayed,
			ReplayedMatchesPlayed: t.matches,
		})
	}

	s.logger.Info().
		Int("players", len(players)).
		Int("entries", len(entries)).
		Int("drifts", len(drifts)).
		Msg("ledger verified")
	return drifts, nil
}

func replay(player *domain.Player, entries []domain.LedgerEntry) []domain.HistoryPoint {
	history := make([]domain.HistoryPoint, 0, len(entries)+1)
	history = append(history, domain.HistoryPoint{At: player.CreatedAt, Rating: domain.InitialRating})

	r := domain.InitialRating
	for _, e := range entries {
		if e.WinnerID == player.ID {
			r += e.Delta
		} else {
			r -= e.Delta
		}
		history = append(history, domain.HistoryPoint{At: e.RecordedAt, Rating: r, MatchID: e.MatchID})
	}
	return history
}

func outcomeFor(e domain.LedgerEntry, playerID string) domain.Outcome {
	if e.WinnerID == playerID {
		return domain.OutcomeWin
	}
	return domain.OutcomeLoss
}

func countResults(entries []domain.LedgerEntry, playerID string) (wins, losses int) {
	for _, e := range entries {
		if e.WinnerID == playerID {
			wins++
		} else if e.LoserID == playerID {
			losses++
		}
	}
	return wins, losses
}
