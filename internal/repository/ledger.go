package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"rating-ledger/internal/database"
	"rating-ledger/internal/db"
	"rating-ledger/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// DeltaFunc computes the rating transfer for an outcome from the players as
// they stand inside the commit.
type DeltaFunc func(winner, loser domain.Player) int

type LedgerRepository struct {
	queries *db.Queries
	db      *sqlx.DB
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLedgerRepository(sqlDB *sqlx.DB, queries *db.Queries, logger zerolog.Logger) *LedgerRepository {
	return &LedgerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
		now:     time.Now,
	}
}

// Commit records the outcome and applies it to both players in one
// transaction. The ledger row is claimed first; if match_id already exists
// the store rejects the insert and Commit returns domain.ErrConflict with no
// player touched. Any other failure rolls everything back.
func (r *LedgerRepository) Commit(ctx context.Context, c domain.Candidate, computeDelta DeltaFunc) (*domain.LedgerEntry, error) {
	margin, err := encodeMargin(c.MarginData)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", database.Classify(err))
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	claimedAt := r.now().UTC().Truncate(time.Microsecond)
	err = qtx.ClaimLedgerEntry(ctx, db.ClaimLedgerEntryParams{
		MatchID:    c.MatchID,
		WinnerID:   c.WinnerID,
		LoserID:    c.LoserID,
		MarginData: margin,
		RecordedAt: claimedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim match %s: %w", c.MatchID, database.Classify(err))
	}

	locked, err := qtx.LockPlayers(ctx, c.WinnerID, c.LoserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock players: %w", database.Classify(err))
	}
	if len(locked) != 2 {
		return nil, fmt.Errorf("match %s references unknown players: %w", c.MatchID, domain.ErrNotFound)
	}

	var winner, loser *domain.Player
	for _, p := range locked {
		switch p.ID {
		case c.WinnerID:
			winner = toDomainPlayer(p)
		case c.LoserID:
			loser = toDomainPlayer(p)
		}
	}

	delta := computeDelta(*winner, *loser)

	recordedAt := claimedAt
	last, ok, err := qtx.LatestRecordedAt(ctx, c.WinnerID, c.LoserID, c.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest entry: %w", database.Classify(err))
	}
	if ok && !recordedAt.After(last) {
		recordedAt = last.UTC().Add(time.Microsecond)
	}

	winnerAfter, loserAfter, err := qtx.ApplyResult(ctx, db.ApplyResultParams{
		WinnerID:  c.WinnerID,
		LoserID:   c.LoserID,
		Delta:     int64(delta),
		UpdatedAt: recordedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply result: %w", database.Classify(err))
	}

	err = qtx.FinalizeLedgerEntry(ctx, db.FinalizeLedgerEntryParams{
		MatchID:           c.MatchID,
		Delta:             int64(delta),
		WinnerRatingAfter: winnerAfter,
		LoserRatingAfter:  loserAfter,
		RecordedAt:        recordedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize match %s: %w", c.MatchID, database.Classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match %s: %w", c.MatchID, database.Classify(err))
	}

	r.logger.Debug().
		Str("match_id", c.MatchID).
		Int("delta", delta).
		Int64("winner_rating_after", winnerAfter).
		Int64("loser_rating_after", loserAfter).
		Time("recorded_at", recordedAt).
		Msg("ledger entry committed")

	return &domain.LedgerEntry{
		MatchID:           c.MatchID,
		WinnerID:          c.WinnerID,
		LoserID:           c.LoserID,
		Delta:             delta,
		WinnerRatingAfter: int(winnerAfter),
		LoserRatingAfter:  int(loserAfter),
		MarginData:        c.MarginData,
		RecordedAt:        recordedAt,
	}, nil
}

func (r *LedgerRepository) Get(ctx context.Context, matchID string) (*domain.LedgerEntry, error) {
	entry, err := r.queries.GetLedgerEntry(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", matchID, database.Classify(err))
	}
	return toDomainEntry(entry)
}

// ListByPlayer returns every entry referencing the player, oldest first.
func (r *LedgerRepository) ListByPlayer(ctx context.Context, playerID string) ([]domain.LedgerEntry, error) {
	entries, err := r.queries.ListLedgerEntriesByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for %s: %w", playerID, database.Classify(err))
	}
	return toDomainEntries(entries)
}

// ListRecentByPlayer returns at most limit entries referencing the player,
// most recent first.
func (r *LedgerRepository) ListRecentByPlayer(ctx context.Context, playerID string, limit int) ([]domain.LedgerEntry, error) {
	entries, err := r.queries.ListRecentLedgerEntriesByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent entries for %s: %w", playerID, database.Classify(err))
	}
	return toDomainEntries(entries)
}

// List returns the whole ledger, oldest first.
func (r *LedgerRepository) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	entries, err := r.queries.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", database.Classify(err))
	}
	return toDomainEntries(entries)
}

func encodeMargin(m *domain.MarginData) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal margin data: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func toDomainEntry(e db.LedgerEntry) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{
		MatchID:           e.MatchID,
		WinnerID:          e.WinnerID,
		LoserID:           e.LoserID,
		Delta:             int(e.Delta),
		WinnerRatingAfter: int(e.WinnerRatingAfter),
		LoserRatingAfter:  int(e.LoserRatingAfter),
		RecordedAt:        e.RecordedAt,
	}
	if e.MarginData.Valid {
		var m domain.MarginData
		if err := json.Unmarshal([]byte(e.MarginData.String), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal margin data for %s: %w", e.MatchID, err)
		}
		entry.MarginData = &m
	}
	return entry, nil
}

func toDomainEntries(entries []db.LedgerEntry) ([]domain.LedgerEntry, error) {
	result := make([]domain.LedgerEntry, len(entries))
	for i, e := range entries {
		entry, err := toDomainEntry(e)
		if err != nil {
			return nil, err
		}
		result[i] = *entry
	}
	return result, nil
}
