// Package store provides durable document storage for products and orders.
//
// Products and orders are stored as JSON documents, each with a version
// column. All mutation goes through RunTx, an optimistic transaction:
//
//   - Reads inside the callback record the version they observed.
//   - Writes are buffered until the callback returns.
//   - Commit re-checks every observed version inside one SQL transaction and
//     applies writes with UPDATE ... WHERE version = ?.
//   - Any mismatch rolls back and the callback runs again from a fresh read,
//     up to MaxAttempts times, after which model.ErrTransactionConflict is returned.
//
// No lock is held while the callback runs, so the callback must be a pure
// function of what it read: no network calls, no side effects before commit.
//
// # Idempotency Tables
//
//   - delivered_units: PRIMARY KEY(token); a unit can be attached once.
//   - payment_events: PRIMARY KEY(id) on a content hash; redelivered events
//     are detected inside the same transaction that applies them.
//   - allocation_runs: append-only audit of committed allocation reports.
//
// # Database Configuration
//
// SQLite (default, github.com/mattn/go-sqlite3):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite allows one writer
//
// PostgreSQL (driver "pgx", github.com/jackc/pgx/v5/stdlib): the same schema;
// validation reads take FOR SHARE row locks inside the commit transaction.
package store
