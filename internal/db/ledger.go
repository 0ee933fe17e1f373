package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type LedgerEntry struct {
	MatchID           string         `db:"match_id"`
	WinnerID          string         `db:"winner_id"`
	LoserID           string         `db:"loser_id"`
	Delta             int64          `db:"delta"`
	WinnerRatingAfter int64          `db:"winner_rating_after"`
	LoserRatingAfter  int64          `db:"loser_rating_after"`
	MarginData        sql.NullString `db:"margin_data"`
	RecordedAt        time.Time      `db:"recorded_at"`
}

const ledgerColumns = `match_id, winner_id, loser_id, delta, winner_rating_after, loser_rating_after, margin_data, recorded_at`

type ClaimLedgerEntryParams struct {
	MatchID    string
	WinnerID   string
	LoserID    string
	MarginData sql.NullString
	RecordedAt time.Time
}

// ClaimLedgerEntry inserts the row for match_id with empty rating fields. The
// primary key on match_id makes a second insert for the same match fail in
// the store, so this is the first write of every commit.
func (q *Queries) ClaimLedgerEntry(ctx context.Context, arg ClaimLedgerEntryParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(`
		INSERT INTO match_ledger (match_id, winner_id, loser_id, delta, winner_rating_after, loser_rating_after, margin_data, recorded_at)
		VALUES (?, ?, ?, 0, 0, 0, ?, ?)
	`), arg.MatchID, arg.WinnerID, arg.LoserID, arg.MarginData, arg.RecordedAt)
	return err
}

type FinalizeLedgerEntryParams struct {
	MatchID           string
	Delta             int64
	WinnerRatingAfter int64
	LoserRatingAfter  int64
	RecordedAt        time.Time
}

// FinalizeLedgerEntry fills in the computed fields of a row claimed in the
// same transaction.
func (q *Queries) FinalizeLedgerEntry(ctx context.Context, arg FinalizeLedgerEntryParams) error {
	_, err := q.db.ExecContext(ctx, q.rebind(`
		UPDATE match_ledger
		   SET delta = ?,
		       winner_rating_after = ?,
		       loser_rating_after = ?,
		       recorded_at = ?
		 WHERE match_id = ?
	`), arg.Delta, arg.WinnerRatingAfter, arg.LoserRatingAfter, arg.RecordedAt, arg.MatchID)
	return err
}

// LatestRecordedAt returns the newest recorded_at among entries referencing
// either player, ignoring excludeMatchID.
func (q *Queries) LatestRecordedAt(ctx context.Context, playerA, playerB, excludeMatchID string) (time.Time, bool, error) {
	var at time.Time
	err := q.db.QueryRowxContext(ctx, q.rebind(`
		SELECT recorded_at
		  FROM match_ledger
		 WHERE (winner_id IN (?, ?) OR loser_id IN (?, ?))
		   AND match_id <> ?
		 ORDER BY recorded_at DESC
		 LIMIT 1
	`), playerA, playerB, playerA, playerB, excludeMatchID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

func (q *Queries) GetLedgerEntry(ctx context.Context, matchID string) (LedgerEntry, error) {
	var e LedgerEntry
	err := sqlx.GetContext(ctx, q.db, &e, q.rebind(`SELECT `+ledgerColumns+` FROM match_ledger WHERE match_id = ?`), matchID)
	return e, err
}

// ListLedgerEntriesByPlayer returns the player's entries in replay order.
func (q *Queries) ListLedgerEntriesByPlayer(ctx context.Context, playerID string) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	err := sqlx.SelectContext(ctx, q.db, &entries, q.rebind(`
		SELECT `+ledgerColumns+`
		  FROM match_ledger
		 WHERE winner_id = ? OR loser_id = ?
		 ORDER BY recorded_at, match_id
	`), playerID, playerID)
	return entries, err
}

// ListRecentLedgerEntriesByPlayer returns at most limit entries, most recent
// first.
func (q *Queries) ListRecentLedgerEntriesByPlayer(ctx context.Context, playerID string, limit int) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	err := sqlx.SelectContext(ctx, q.db, &entries, q.rebind(`
		SELECT `+ledgerColumns+`
		  FROM match_ledger
		 WHERE winner_id = ? OR loser_id = ?
		 ORDER BY recorded_at DESC, match_id DESC
		 LIMIT ?
	`), playerID, playerID, limit)
	return entries, err
}

func (q *Queries) ListLedgerEntries(ctx context.Context) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	err := sqlx.SelectContext(ctx, q.db, &entries, `SELECT `+ledgerColumns+` FROM match_ledger ORDER BY recorded_at, match_id`)
	return entries, err
}
