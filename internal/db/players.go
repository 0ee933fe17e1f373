package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Player struct {
	ID            string         `db:"id"`
	DisplayName   string         `db:"display_name"`
	ExternalAlias sql.NullString `db:"external_alias"`
	Rating        int64          `db:"rating"`
	MatchesPlayed int64          `db:"matches_played"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

const playerColumns = `id, display_name, external_alias, rating, matches_played, created_at, updated_at`

type CreatePlayerParams struct {
	ID            string
	DisplayName   string
	ExternalAlias sql.NullString
	Rating        int64
	CreatedAt     time.Time
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	_, err := q.db.ExecContext(ctx, q.rebind(`
		INSERT INTO players (id, display_name, external_alias, rating, matches_played, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`), arg.ID, arg.DisplayName, arg.ExternalAlias, arg.Rating, arg.CreatedAt, arg.CreatedAt)
	if err != nil {
		return Player{}, err
	}
	return q.GetPlayer(ctx, arg.ID)
}

func (q *Queries) GetPlayer(ctx context.Context, id string) (Player, error) {
	var p Player
	err := sqlx.GetContext(ctx, q.db, &p, q.rebind(`SELECT `+playerColumns+` FROM players WHERE id = ?`), id)
	return p, err
}

func (q *Queries) GetPlayerByDisplayName(ctx context.Context, displayName string) (Player, error) {
	var p Player
	err := sqlx.GetContext(ctx, q.db, &p, q.rebind(`SELECT `+playerColumns+` FROM players WHERE display_name = ?`), displayName)
	return p, err
}

func (q *Queries) GetPlayerByAlias(ctx context.Context, alias string) (Player, error) {
	var p Player
	err := sqlx.GetContext(ctx, q.db, &p, q.rebind(`SELECT `+playerColumns+` FROM players WHERE external_alias = ?`), alias)
	return p, err
}

// ListPlayers returns every player ordered for the standings table.
func (q *Queries) ListPlayers(ctx context.Context) ([]Player, error) {
	players := []Player{}
	err := sqlx.SelectContext(ctx, q.db, &players, `SELECT `+playerColumns+` FROM players ORDER BY rating DESC, display_name`)
	return players, err
}

// LockPlayers reads the given players and holds their rows until the
// surrounding transaction ends. Rows come back ordered by id so concurrent
// lockers acquire them in the same order.
func (q *Queries) LockPlayers(ctx context.Context, ids ...string) ([]Player, error) {
	query, args, err := sqlx.In(`SELECT `+playerColumns+` FROM players WHERE id IN (?) ORDER BY id`+q.lockClause(), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to expand player ids: %w", err)
	}

	players := []Player{}
	err = sqlx.SelectContext(ctx, q.db, &players, q.rebind(query), args...)
	return players, err
}

type ApplyResultParams struct {
	WinnerID  string
	LoserID   string
	Delta     int64
	UpdatedAt time.Time
}

// ApplyResult moves delta from the loser to the winner and counts the match
// for both. It must only run inside the transaction that records the
// corresponding ledger entry.
func (q *Queries) ApplyResult(ctx context.Context, arg ApplyResultParams) (winnerAfter, loserAfter int64, err error) {
	const query = `
		UPDATE players
		   SET rating = rating + ?,
		       matches_played = matches_played + 1,
		       updated_at = ?
		 WHERE id = ?
		RETURNING rating
	`

	if err = q.db.QueryRowxContext(ctx, q.rebind(query), arg.Delta, arg.UpdatedAt, arg.WinnerID).Scan(&winnerAfter); err != nil {
		return 0, 0, fmt.Errorf("failed to update winner %s: %w", arg.WinnerID, err)
	}
	if err = q.db.QueryRowxContext(ctx, q.rebind(query), -arg.Delta, arg.UpdatedAt, arg.LoserID).Scan(&loserAfter); err != nil {
		return 0, 0, fmt.Errorf("failed to update loser %s: %w", arg.LoserID, err)
	}
	return winnerAfter, loserAfter, nil
}
