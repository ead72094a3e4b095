package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// PostgreSQL SQLSTATEs for transactions the server aborted to break a lock
// cycle or a serialization anomaly.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// dialect captures the few places where SQLite and PostgreSQL differ.
type dialect struct {
	driver string

	// pragmas run once per Open.
	pragmas []string

	// lockSuffix is appended to validation reads inside the commit transaction.
	lockSuffix string

	// numbered placeholders ($1, $2) instead of ?.
	numbered bool

	// maxOpenConns limits the pool; 0 means unlimited.
	maxOpenConns int
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite", "":
		return dialect{
			driver: DriverSQLite,
			pragmas: []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA synchronous = NORMAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA foreign_keys = ON",
			},
			maxOpenConns: 1,
		}, nil
	case DriverPostgres, "postgres", "postgresql":
		return dialect{
			driver:     DriverPostgres,
			lockSuffix: " FOR SHARE",
			numbered:   true,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind rewrites ? placeholders for drivers that need numbered ones.
// Queries in this package never contain a literal '?' inside a string.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isTransient reports whether err is a lock or serialization failure that a
// fresh attempt can get past. On PostgreSQL the FOR SHARE validation reads
// can deadlock with a concurrent commit's conditional UPDATEs; SQLite reports
// BUSY or LOCKED once busy_timeout runs out.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}
