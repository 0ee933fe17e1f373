package service

import (
	"context"
	"fmt"
	"strings"

	"rating-ledger/internal/cache"
	"rating-ledger/internal/constants"
	"rating-ledger/internal/domain"
	"rating-ledger/internal/repository"

	"github.com/rs/zerolog"
)

type PlayerService struct {
	repo      *repository.PlayerRepository
	standings cache.Standings
	logger    zerolog.Logger
}

func NewPlayerService(repo *repository.PlayerRepository, standings cache.Standings, logger zerolog.Logger) *PlayerService {
	return &PlayerService{repo: repo, standings: standings, logger: logger}
}

// Register creates a player at the initial rating.
func (s *PlayerService) Register(ctx context.Context, displayName string, externalAlias *string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("display name is required: %w", domain.ErrInvalidInput)
	}
	if externalAlias != nil {
		alias := strings.TrimSpace(*externalAlias)
		if alias == "" {
			externalAlias = nil
		} else {
			externalAlias = &alias
		}
	}

	player, err := s.repo.Create(ctx, displayName, externalAlias)
	if err != nil {
		s.logger.Info().Err(err).Str("display_name", displayName).Msg("registration rejected")
		return nil, err
	}

	if err := s.standings.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate standings cache")
	}

	s.logger.Info().Str("player_id", player.ID).Str("display_name", player.DisplayName).Msg("player registered")
	return player, nil
}

func (s *PlayerService) Get(ctx context.Context, id string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.Get(ctx, id)
}

func (s *PlayerService) GetByDisplayName(ctx context.Context, name string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repo.GetByDisplayName(ctx, name)
}

// Standings lists every player by rating, from the cache when it is warm.
func (s *PlayerService) Standings(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	players, gen, ok := s.standings.Get(ctx)
	if ok {
		s.logger.Debug().Int("count", len(players)).Msg("returning cached standings")
		return players, nil
	}

	players, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list standings")
		return nil, err
	}

	s.standings.Set(ctx, gen, players)
	return players, nil
}
