package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"rating-ledger/internal/cache"
	"rating-ledger/internal/config"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/rating"
	"rating-ledger/internal/repository"

	"github.com/rs/zerolog"
)

// LedgerService is the only write path for ratings. Submit takes a candidate
// outcome to exactly one of Committed, Rejected-Duplicate or
// Rejected-Invalid.
type LedgerService struct {
	ledger    *repository.LedgerRepository
	players   *repository.PlayerRepository
	standings cache.Standings
	policy    rating.Policy
	matchID   *regexp.Regexp
	logger    zerolog.Logger
}

func NewLedgerService(
	ledger *repository.LedgerRepository,
	players *repository.PlayerRepository,
	standings cache.Standings,
	cfg *config.Config,
	logger zerolog.Logger,
) *LedgerService {
	matchID := cfg.MatchIDPattern
	if matchID == nil {
		matchID = regexp.MustCompile(`^[A-Za-z0-9_-]{4,64}$`)
	}
	return &LedgerService{
		ledger:    ledger,
		players:   players,
		standings: standings,
		policy:    cfg.RatingPolicy(),
		matchID:   matchID,
		logger:    logger,
	}
}

// Submit applies the outcome at most once per match id.
//
// A duplicate match id is not an error: the result has status
// StatusRejectedDuplicate, carries the entry already on record and err is
// nil. Invalid input returns a StatusRejectedInvalid result together with an
// error wrapping domain.ErrInvalidInput or domain.ErrNotFound. Storage
// failures return a nil result and an error wrapping
// domain.ErrTransientStorage when retrying is safe.
func (s *LedgerService) Submit(ctx context.Context, c domain.Candidate) (*domain.CommitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	log := s.logger.With().
		Str("match_id", c.MatchID).
		Str("winner_id", c.WinnerID).
		Str("loser_id", c.LoserID).
		Logger()

	if err := s.validate(ctx, c); err != nil {
		if isRejection(err) {
			log.Info().Err(err).Msg("outcome rejected as invalid")
			return &domain.CommitResult{Status: domain.StatusRejectedInvalid, Reason: err.Error()}, err
		}
		log.Error().Err(err).Msg("failed to validate outcome")
		return nil, err
	}

	entry, err := s.ledger.Commit(ctx, c, func(winner, loser domain.Player) int {
		return s.policy.ComputeDelta(winner.Rating, loser.Rating, winner.MatchesPlayed, c.MarginData)
	})
	switch {
	case err == nil:
		if err := s.standings.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate standings cache")
		}
		log.Info().
			Int("delta", entry.Delta).
			Int("winner_rating", entry.WinnerRatingAfter).
			Int("loser_rating", entry.LoserRatingAfter).
			Msg("outcome committed")
		return &domain.CommitResult{Status: domain.StatusCommitted, Entry: entry}, nil

	case errors.Is(err, domain.ErrConflict):
		existing, getErr := s.ledger.Get(ctx, c.MatchID)
		if getErr != nil {
			log.Warn().Err(getErr).Msg("failed to load recorded entry for duplicate")
		} else if existing.WinnerID != c.WinnerID || existing.LoserID != c.LoserID {
			log.Warn().
				Str("recorded_winner_id", existing.WinnerID).
				Str("recorded_loser_id", existing.LoserID).
				Msg("duplicate submission disagrees with recorded outcome")
		}
		log.Info().Msg("outcome already recorded")
		return &domain.CommitResult{
			Status: domain.StatusRejectedDuplicate,
			Entry:  existing,
			Reason: "match already recorded",
		}, nil

	case isRejection(err):
		log.Info().Err(err).Msg("outcome rejected as invalid")
		return &domain.CommitResult{Status: domain.StatusRejectedInvalid, Reason: err.Error()}, err

	default:
		log.Error().Err(err).Msg("failed to commit outcome")
		return nil, err
	}
}

func (s *LedgerService) validate(ctx context.Context, c domain.Candidate) error {
	if c.MatchID == "" {
		return fmt.Errorf("match id is required: %w", domain.ErrInvalidInput)
	}
	if !s.matchID.MatchString(c.MatchID) {
		return fmt.Errorf("match id %q is malformed: %w", c.MatchID, domain.ErrInvalidInput)
	}
	if c.WinnerID == "" || c.LoserID == "" {
		return fmt.Errorf("winner and loser are required: %w", domain.ErrInvalidInput)
	}
	if c.WinnerID == c.LoserID {
		return fmt.Errorf("a player cannot beat themselves: %w", domain.ErrInvalidInput)
	}
	if m := c.MarginData; m != nil {
		if m.WinnerScore < 0 || m.LoserScore < 0 {
			return fmt.Errorf("scores cannot be negative: %w", domain.ErrInvalidInput)
		}
		if m.WinnerScore < m.LoserScore {
			return fmt.Errorf("winner score %d is below loser score %d: %w", m.WinnerScore, m.LoserScore, domain.ErrInvalidInput)
		}
	}

	if _, err := s.players.Get(ctx, c.WinnerID); err != nil {
		return err
	}
	if _, err := s.players.Get(ctx, c.LoserID); err != nil {
		return err
	}
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound)
}
