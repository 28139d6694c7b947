package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createRateLimitTableSQL = `
CREATE TABLE IF NOT EXISTS ai_rate_limits (
    identity VARCHAR(255) NOT NULL,
    window_start TIMESTAMP NOT NULL,
    request_count BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (identity)
);

CREATE INDEX IF NOT EXISTS idx_ai_rate_limits_window_start ON ai_rate_limits(window_start);
`

// SQLStore is a SQL-based implementation of Store.
// It supports Postgres, MySQL, and SQLite, so multiple gateway instances
// can share per-user quotas.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates a new SQL-based store.
// Supported dialects: "postgres", "mysql", "sqlite".
func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, createRateLimitTableSQL); err != nil {
		return fmt.Errorf("failed to create ai_rate_limits table: %w", err)
	}
	return nil
}

// Get returns the record for an identity, or nil if none exists.
func (s *SQLStore) Get(ctx context.Context, identity string) (*Record, error) {
	query := `SELECT identity, window_start, request_count FROM ai_rate_limits WHERE identity = ?`
	if s.dialect == "postgres" {
		query = `SELECT identity, window_start, request_count FROM ai_rate_limits WHERE identity = $1`
	}

	record := &Record{}
	err := s.db.QueryRowContext(ctx, query, identity).Scan(&record.Identity, &record.WindowStart, &record.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limit record: %w", err)
	}
	return record, nil
}

// Put upserts the record for record.Identity.
func (s *SQLStore) Put(ctx context.Context, record *Record) error {
	now := time.Now()

	var query string
	switch s.dialect {
	case "postgres":
		query = `INSERT INTO ai_rate_limits (identity, window_start, request_count, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (identity) DO UPDATE SET window_start = $2, request_count = $3, updated_at = $4`
	case "mysql":
		query = `INSERT INTO ai_rate_limits (identity, window_start, request_count, updated_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE window_start = VALUES(window_start), request_count = VALUES(request_count), updated_at = VALUES(updated_at)`
	default: // sqlite
		query = `INSERT INTO ai_rate_limits (identity, window_start, request_count, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (identity) DO UPDATE SET window_start = excluded.window_start, request_count = excluded.request_count, updated_at = excluded.updated_at`
	}

	if _, err := s.db.ExecContext(ctx, query, record.Identity, record.WindowStart, record.Count, now); err != nil {
		return fmt.Errorf("failed to upsert rate limit record: %w", err)
	}
	return nil
}

// Delete removes the record for an identity.
func (s *SQLStore) Delete(ctx context.Context, identity string) error {
	query := `DELETE FROM ai_rate_limits WHERE identity = ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM ai_rate_limits WHERE identity = $1`
	}

	if _, err := s.db.ExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("failed to delete rate limit record: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose window started before cutoff.
func (s *SQLStore) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	query := `DELETE FROM ai_rate_limits WHERE window_start < ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM ai_rate_limits WHERE window_start < $1`
	}

	if _, err := s.db.ExecContext(ctx, query, cutoff); err != nil {
		return fmt.Errorf("failed to delete expired rate limit records: %w", err)
	}
	return nil
}

// Close is a no-op: the connection's lifetime is owned by the pool that
// handed it out.
func (s *SQLStore) Close() error {
	return nil
}
