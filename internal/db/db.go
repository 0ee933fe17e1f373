package db

import (
	"github.com/jmoiron/sqlx"
)

type Queries struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sqlx.Tx) *Queries {
	return &Queries{db: tx}
}

func (q *Queries) rebind(query string) string {
	return q.db.Rebind(query)
}

// lockClause returns the row locking suffix for SELECTs that must hold the
// selected rows until commit. SQLite transactions are opened with
// _txlock=immediate and already hold the database write lock.
//
// On Postgres the claimed ledger row already holds FOR KEY SHARE on both
// players through its foreign keys. FOR UPDATE conflicts with that lock and
// deadlocks two commits sharing a player; FOR NO KEY UPDATE does not.
func (q *Queries) lockClause() string {
	if q.db.DriverName() == "pgx" {
		return " FOR NO KEY UPDATE"
	}
	return ""
}
