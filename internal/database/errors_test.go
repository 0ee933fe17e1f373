package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"rating-ledger/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{{
		"no rows",
		sql.ErrNoRows,
		domain.ErrNotFound,
	}, {
		"sqlite unique",
		sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique},
		domain.ErrConflict,
	}, {
		"sqlite primary key",
		sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey},
		domain.ErrConflict,
	}, {
		"sqlite foreign key",
		sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey},
		domain.ErrNotFound,
	}, {
		"sqlite check",
		sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck},
		domain.ErrInvalidInput,
	}, {
		"sqlite busy",
		sqlite3.Error{Code: sqlite3.ErrBusy},
		domain.ErrTransientStorage,
	}, {
		"postgres unique",
		&pgconn.PgError{Code: "23505"},
		domain.ErrConflict,
	}, {
		"postgres serialization failure",
		&pgconn.PgError{Code: "40001"},
		domain.ErrTransientStorage,
	}, {
		"postgres connection failure",
		&pgconn.PgError{Code: "08006"},
		domain.ErrTransientStorage,
	}, {
		"bad connection",
		fmt.Errorf("exec: %w", driver.ErrBadConn),
		domain.ErrTransientStorage,
	}, {
		"deadline",
		context.DeadlineExceeded,
		domain.ErrTransientStorage,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Classify(test.err)
			assert.ErrorIs(t, err, test.expected)
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestClassifyLeavesUnknownErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, Classify(err))
	assert.NoError(t, Classify(nil))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "42P01"}))
}
