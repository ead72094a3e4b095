package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on payment_events.order_id
const currentSchemaVersion = 1

// DefaultMaxAttempts bounds how often RunTx re-executes a conflicting callback.
const DefaultMaxAttempts = 5

// Store provides durable storage for the product and order documents.
type Store struct {
	db          *sql.DB
	dialect     dialect
	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts sets the retry bound of RunTx. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for retry and migration diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	return OpenDriver(DriverSQLite, path, opts...)
}

// OpenDriver opens a database through the named database/sql driver
// ("sqlite3" or "pgx") and applies the schema.
func OpenDriver(driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if d.maxOpenConns > 0 {
		// SQLite only supports one writer at a time
		db.SetMaxOpenConns(d.maxOpenConns)
		db.SetMaxIdleConns(d.maxOpenConns)
	}

	s := &Store{
		db:          db,
		dialect:     d,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := s.applySchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// MaxAttempts reports the retry bound of RunTx.
func (s *Store) MaxAttempts() int {
	return s.maxAttempts
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) applyPragmas() error {
	for _, pragma := range s.dialect.pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func (s *Store) applySchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations recorded in schema_meta.
func (s *Store) runMigrations() error {
	ctx := context.Background()

	var version int
	err := s.queryRow(ctx, `SELECT value FROM schema_meta WHERE name = 'schema_version'`).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("get schema_version: %w", err)
	}

	if version < 1 {
		if _, err := s.exec(ctx, `
			CREATE INDEX IF NOT EXISTS idx_payment_events_order
			ON payment_events(order_id)
		`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
		s.logger.Debug("applied migration", "version", 1)
	}

	_, err = s.exec(ctx, `
		INSERT INTO schema_meta (name, value) VALUES ('schema_version', ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, currentSchemaVersion)
	if err != nil {
		return fmt.Errorf("set schema_version: %w", err)
	}
	return nil
}
