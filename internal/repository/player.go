package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rating-ledger/internal/database"
	"rating-ledger/internal/db"
	"rating-ledger/internal/domain"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sqlx.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sqlx.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Create registers a player at the initial rating. A taken display name or
// external alias yields domain.ErrConflict.
func (r *PlayerRepository) Create(ctx context.Context, displayName string, externalAlias *string) (*domain.Player, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	alias := sql.NullString{}
	if externalAlias != nil {
		alias = sql.NullString{String: *externalAlias, Valid: true}
	}

	player, err := r.queries.CreatePlayer(ctx, db.CreatePlayerParams{
		ID:            id,
		DisplayName:   displayName,
		ExternalAlias: alias,
		Rating:        domain.InitialRating,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		r.logger.Debug().Err(err).Str("display_name", displayName).Msg("failed to create player")
		return nil, fmt.Errorf("failed to create player %q: %w", displayName, database.Classify(err))
	}

	return toDomainPlayer(player), nil
}

func (r *PlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	player, err := r.queries.GetPlayer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", id, database.Classify(err))
	}
	return toDomainPlayer(player), nil
}

func (r *PlayerRepository) GetByDisplayName(ctx context.Context, name string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByDisplayName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %q: %w", name, database.Classify(err))
	}
	return toDomainPlayer(player), nil
}

func (r *PlayerRepository) GetByAlias(ctx context.Context, alias string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("failed to get player with alias %q: %w", alias, database.Classify(err))
	}
	return toDomainPlayer(player), nil
}

// List returns all players ordered by rating, highest first.
func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	players, err := r.queries.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", database.Classify(err))
	}

	result := make([]domain.Player, len(players))
	for i, p := range players {
		result[i] = *toDomainPlayer(p)
	}
	return result, nil
}

func toDomainPlayer(p db.Player) *domain.Player {
	player := &domain.Player{
		ID:            p.ID,
		DisplayName:   p.DisplayName,
		Rating:        int(p.Rating),
		MatchesPlayed: int(p.MatchesPlayed),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.ExternalAlias.Valid {
		alias := p.ExternalAlias.String
		player.ExternalAlias = &alias
	}
	return player
}
