package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createCacheTableSQL = `
CREATE TABLE IF NOT EXISTS ai_response_cache (
    cache_key VARCHAR(512) NOT NULL,
    payload BLOB NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (cache_key)
);

CREATE INDEX IF NOT EXISTS idx_ai_response_cache_expires_at ON ai_response_cache(expires_at);
`

// postgres has no BLOB type.
const createCacheTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS ai_response_cache (
    cache_key VARCHAR(512) NOT NULL,
    payload BYTEA NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (cache_key)
);

CREATE INDEX IF NOT EXISTS idx_ai_response_cache_expires_at ON ai_response_cache(expires_at);
`

// SQLStore is a SQL-based implementation of Store.
// It supports Postgres, MySQL, and SQLite so cached responses survive
// restarts and can be shared between gateway instances.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithSQLClock overrides the time source for tests.
func WithSQLClock(now func() time.Time) SQLOption {
	return func(s *SQLStore) {
		s.now = now
	}
}

// NewSQLStore creates a new SQL-based cache store.
// Supported dialects: "postgres", "mysql", "sqlite".
func NewSQLStore(db *sql.DB, dialect string, opts ...SQLOption) (*SQLStore, error) {
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
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := createCacheTableSQL
	if s.dialect == "postgres" {
		schema = createCacheTablePostgresSQL
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ai_response_cache table: %w", err)
	}
	return nil
}

// Get returns the payload for key if it has not expired.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT payload, expires_at FROM ai_response_cache WHERE cache_key = ?`
	if s.dialect == "postgres" {
		query = `SELECT payload, expires_at FROM ai_response_cache WHERE cache_key = $1`
	}

	var payload []byte
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query cache entry: %w", err)
	}

	if !expiresAt.After(s.now()) {
		return nil, false, nil
	}
	return payload, true, nil
}

// Put upserts the payload under key with expiry now + ttl.
func (s *SQLStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := s.now()
	expiresAt := now.Add(ttl)

	var query string
	switch s.dialect {
	case "postgres":
		query = `INSERT INTO ai_response_cache (cache_key, payload, expires_at, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cache_key) DO UPDATE SET payload = $2, expires_at = $3, updated_at = $4`
	case "mysql":
		query = `INSERT INTO ai_response_cache (cache_key, payload, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE payload = VALUES(payload), expires_at = VALUES(expires_at), updated_at = VALUES(updated_at)`
	default: // sqlite
		query = `INSERT INTO ai_response_cache (cache_key, payload, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at, updated_at = excluded.updated_at`
	}

	if _, err := s.db.ExecContext(ctx, query, key, payload, expiresAt, now); err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM ai_response_cache WHERE cache_key = ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM ai_response_cache WHERE cache_key = $1`
	}

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// PurgeExpired removes entries that already expired.
func (s *SQLStore) PurgeExpired(ctx context.Context) error {
	query := `DELETE FROM ai_response_cache WHERE expires_at <= ?`
	if s.dialect == "postgres" {
		query = `DELETE FROM ai_response_cache WHERE expires_at <= $1`
	}

	if _, err := s.db.ExecContext(ctx, query, s.now()); err != nil {
		return fmt.Errorf("failed to purge expired cache entries: %w", err)
	}
	return nil
}

// Close is a no-op: the connection's lifetime is owned by the pool that
// handed it out.
func (s *SQLStore) Close() error {
	return nil
}
