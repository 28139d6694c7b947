package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const createAnalyticsTablesSQL = `
CREATE TABLE IF NOT EXISTS ai_usage_events (
    id VARCHAR(64) NOT NULL,
    user_id VARCHAR(255),
    event_type VARCHAR(32) NOT NULL,
    feature VARCHAR(32) NOT NULL,
    success BOOLEAN NOT NULL,
    cached BOOLEAN NOT NULL,
    latency_ms BIGINT NOT NULL DEFAULT 0,
    error_code VARCHAR(128),
    metadata TEXT,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_ai_usage_events_created_at ON ai_usage_events(created_at);
CREATE INDEX IF NOT EXISTS idx_ai_usage_events_user_id ON ai_usage_events(user_id);

CREATE TABLE IF NOT EXISTS ai_usage_daily (
    day VARCHAR(10) NOT NULL,
    feature VARCHAR(32) NOT NULL,
    total_requests BIGINT NOT NULL DEFAULT 0,
    success_count BIGINT NOT NULL DEFAULT 0,
    error_count BIGINT NOT NULL DEFAULT 0,
    cache_hits BIGINT NOT NULL DEFAULT 0,
    rate_limit_count BIGINT NOT NULL DEFAULT 0,
    unique_users BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (day, feature)
);

CREATE TABLE IF NOT EXISTS ai_usage_daily_users (
    day VARCHAR(10) NOT NULL,
    feature VARCHAR(32) NOT NULL,
    user_id VARCHAR(255) NOT NULL,
    PRIMARY KEY (day, feature, user_id)
);
`

// SQLRecorder is a SQL-based implementation of Recorder.
// Each Track writes the event row, the unique-user membership row, and
// the rollup increment in a single transaction, so the aggregate never
// drifts from the log by more than a failed transaction.
type SQLRecorder struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// SQLOption configures a SQLRecorder.
type SQLOption func(*SQLRecorder)

// WithSQLClock overrides the time source for tests.
func WithSQLClock(now func() time.Time) SQLOption {
	return func(r *SQLRecorder) {
		r.now = now
	}
}

// NewSQLRecorder creates a new SQL-based recorder.
// Supported dialects: "postgres", "mysql", "sqlite".
func NewSQLRecorder(db *sql.DB, dialect string, opts ...SQLOption) (*SQLRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	r := &SQLRecorder{
		db:      db,
		dialect: dialect,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return r, nil
}

func (r *SQLRecorder) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, createAnalyticsTablesSQL); err != nil {
		return fmt.Errorf("failed to create analytics tables: %w", err)
	}
	return nil
}

// Track appends one event and folds it into the daily aggregate.
func (r *SQLRecorder) Track(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := r.insertEvent(ctx, tx, &event); err != nil {
		return err
	}

	newUser := false
	if event.UserID != "" {
		newUser, err = r.insertDayUser(ctx, tx, &event)
		if err != nil {
			return err
		}
	}

	if err := r.upsertAggregate(ctx, tx, &event, newUser); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analytics write: %w", err)
	}
	return nil
}

func (r *SQLRecorder) insertEvent(ctx context.Context, tx *sql.Tx, event *Event) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	query := `INSERT INTO ai_usage_events (id, user_id, event_type, feature, success, cached, latency_ms, error_code, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if r.dialect == "postgres" {
		query = `INSERT INTO ai_usage_events (id, user_id, event_type, feature, success, cached, latency_ms, error_code, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}

	_, err = tx.ExecContext(ctx, query,
		event.ID, nullString(event.UserID), string(event.Type), string(event.Feature),
		event.Success, event.Cached, event.LatencyMs, nullString(event.ErrorCode),
		string(metadata), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}
	return nil
}

// insertDayUser records (day, feature, user) membership and reports
// whether this is the user's first event for that day and feature.
func (r *SQLRecorder) insertDayUser(ctx context.Context, tx *sql.Tx, event *Event) (bool, error) {
	var query string
	switch r.dialect {
	case "postgres":
		query = `INSERT INTO ai_usage_daily_users (day, feature, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	case "mysql":
		query = `INSERT IGNORE INTO ai_usage_daily_users (day, feature, user_id) VALUES (?, ?, ?)`
	default: // sqlite
		query = `INSERT OR IGNORE INTO ai_usage_daily_users (day, feature, user_id) VALUES (?, ?, ?)`
	}

	result, err := tx.ExecContext(ctx, query, DayKey(event.CreatedAt), string(event.Feature), event.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to insert daily user row: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLRecorder) upsertAggregate(ctx context.Context, tx *sql.Tx, event *Event, newUser bool) error {
	delta := DailyAggregate{Day: DayKey(event.CreatedAt), Feature: event.Feature}
	delta.apply(event)
	if newUser {
		delta.UniqueUsers = 1
	}

	var query string
	switch r.dialect {
	case "postgres":
		query = `INSERT INTO ai_usage_daily (day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (day, feature) DO UPDATE SET
    total_requests = ai_usage_daily.total_requests + excluded.total_requests,
    success_count = ai_usage_daily.success_count + excluded.success_count,
    error_count = ai_usage_daily.error_count + excluded.error_count,
    cache_hits = ai_usage_daily.cache_hits + excluded.cache_hits,
    rate_limit_count = ai_usage_daily.rate_limit_count + excluded.rate_limit_count,
    unique_users = ai_usage_daily.unique_users + excluded.unique_users`
	case "mysql":
		query = `INSERT INTO ai_usage_daily (day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    total_requests = total_requests + VALUES(total_requests),
    success_count = success_count + VALUES(success_count),
    error_count = error_count + VALUES(error_count),
    cache_hits = cache_hits + VALUES(cache_hits),
    rate_limit_count = rate_limit_count + VALUES(rate_limit_count),
    unique_users = unique_users + VALUES(unique_users)`
	default: // sqlite
		query = `INSERT INTO ai_usage_daily (day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (day, feature) DO UPDATE SET
    total_requests = total_requests + excluded.total_requests,
    success_count = success_count + excluded.success_count,
    error_count = error_count + excluded.error_count,
    cache_hits = cache_hits + excluded.cache_hits,
    rate_limit_count = rate_limit_count + excluded.rate_limit_count,
    unique_users = unique_users + excluded.unique_users`
	}

	_, err := tx.ExecContext(ctx, query,
		delta.Day, string(delta.Feature), delta.TotalRequests, delta.SuccessCount,
		delta.ErrorCount, delta.CacheHits, delta.RateLimitCount, delta.UniqueUsers)
	if err != nil {
		return fmt.Errorf("failed to upsert daily aggregate: %w", err)
	}
	return nil
}

// DailySummary returns aggregates for days in [from, to], inclusive.
func (r *SQLRecorder) DailySummary(ctx context.Context, from, to time.Time) ([]DailyAggregate, error) {
	query := `SELECT day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users
FROM ai_usage_daily WHERE day >= ? AND day <= ? ORDER BY day, feature`
	if r.dialect == "postgres" {
		query = `SELECT day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users
FROM ai_usage_daily WHERE day >= $1 AND day <= $2 ORDER BY day, feature`
	}

	rows, err := r.db.QueryContext(ctx, query, DayKey(from), DayKey(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily aggregates: %w", err)
	}
	defer rows.Close()

	var result []DailyAggregate
	for rows.Next() {
		var agg DailyAggregate
		var feature string
		if err := rows.Scan(&agg.Day, &feature, &agg.TotalRequests, &agg.SuccessCount,
			&agg.ErrorCount, &agg.CacheHits, &agg.RateLimitCount, &agg.UniqueUsers); err != nil {
			return nil, fmt.Errorf("failed to scan daily aggregate: %w", err)
		}
		agg.Feature = Feature(feature)
		result = append(result, agg)
	}
	return result, rows.Err()
}

// Rebuild recomputes one day's aggregates from the event log.
func (r *SQLRecorder) Rebuild(ctx context.Context, day time.Time) error {
	dayStr := DayKey(day)
	dayStart := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteDaily := `DELETE FROM ai_usage_daily WHERE day = ?`
	deleteUsers := `DELETE FROM ai_usage_daily_users WHERE day = ?`
	selectEvents := `SELECT user_id, event_type, feature, success, cached FROM ai_usage_events WHERE created_at >= ? AND created_at < ?`
	if r.dialect == "postgres" {
		deleteDaily = `DELETE FROM ai_usage_daily WHERE day = $1`
		deleteUsers = `DELETE FROM ai_usage_daily_users WHERE day = $1`
		selectEvents = `SELECT user_id, event_type, feature, success, cached FROM ai_usage_events WHERE created_at >= $1 AND created_at < $2`
	}

	if _, err := tx.ExecContext(ctx, deleteDaily, dayStr); err != nil {
		return fmt.Errorf("failed to clear daily aggregates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteUsers, dayStr); err != nil {
		return fmt.Errorf("failed to clear daily user rows: %w", err)
	}

	rows, err := tx.QueryContext(ctx, selectEvents, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to scan event log: %w", err)
	}

	aggregates := make(map[Feature]*DailyAggregate)
	users := make(map[Feature]map[string]bool)
	for rows.Next() {
		var userID sql.NullString
		var eventType, feature string
		var event Event
		if err := rows.Scan(&userID, &eventType, &feature, &event.Success, &event.Cached); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan event row: %w", err)
		}
		event.Type = EventType(eventType)
		event.Feature = Feature(feature)
		event.UserID = userID.String

		agg := aggregates[event.Feature]
		if agg == nil {
			agg = &DailyAggregate{Day: dayStr, Feature: event.Feature}
			aggregates[event.Feature] = agg
			users[event.Feature] = make(map[string]bool)
		}
		agg.apply(&event)
		if event.UserID != "" && !users[event.Feature][event.UserID] {
			users[event.Feature][event.UserID] = true
			agg.UniqueUsers++
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to iterate event log: %w", err)
	}
	rows.Close()

	insertDaily := `INSERT INTO ai_usage_daily (day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertUser := `INSERT INTO ai_usage_daily_users (day, feature, user_id) VALUES (?, ?, ?)`
	if r.dialect == "postgres" {
		insertDaily = `INSERT INTO ai_usage_daily (day, feature, total_requests, success_count, error_count, cache_hits, rate_limit_count, unique_users)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		insertUser = `INSERT INTO ai_usage_daily_users (day, feature, user_id) VALUES ($1, $2, $3)`
	}

	for feature, agg := range aggregates {
		if _, err := tx.ExecContext(ctx, insertDaily,
			agg.Day, string(agg.Feature), agg.TotalRequests, agg.SuccessCount,
			agg.ErrorCount, agg.CacheHits, agg.RateLimitCount, agg.UniqueUsers); err != nil {
			return fmt.Errorf("failed to insert rebuilt aggregate: %w", err)
		}
		for userID := range users[feature] {
			if _, err := tx.ExecContext(ctx, insertUser, dayStr, string(feature), userID); err != nil {
				return fmt.Errorf("failed to insert rebuilt user row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}
	return nil
}

// Close is a no-op: the connection's lifetime is owned by the pool that
// handed it out.
func (r *SQLRecorder) Close() error {
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
