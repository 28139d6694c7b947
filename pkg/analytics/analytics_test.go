package analytics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func sampleEvents() []Event {
	return []Event{
		{UserID: "u1", Type: EventQuery, Feature: FeatureQA, Success: true, Cached: false, LatencyMs: 120, CreatedAt: testDay},
		{UserID: "u1", Type: EventQuery, Feature: FeatureQA, Success: true, Cached: true, CreatedAt: testDay.Add(time.Minute)},
		{UserID: "u2", Type: EventQuery, Feature: FeatureQA, Success: true, Cached: false, LatencyMs: 80, CreatedAt: testDay.Add(2 * time.Minute)},
		{UserID: "u2", Type: EventRateLimited, Feature: FeatureQA, Success: false, CreatedAt: testDay.Add(3 * time.Minute)},
		{UserID: "u1", Type: EventContentGen, Feature: FeatureContent, Success: true, CreatedAt: testDay.Add(4 * time.Minute)},
		{UserID: "u3", Type: EventError, Feature: FeatureQuiz, Success: false, ErrorCode: "notebook_not_found", CreatedAt: testDay.Add(5 * time.Minute)},
	}
}

func assertQAAggregate(t *testing.T, agg DailyAggregate) {
	t.Helper()
	assert.Equal(t, "2025-06-01", agg.Day)
	assert.Equal(t, int64(4), agg.TotalRequests)
	assert.Equal(t, int64(3), agg.SuccessCount)
	assert.Equal(t, int64(1), agg.ErrorCount)
	assert.Equal(t, int64(1), agg.CacheHits)
	assert.Equal(t, int64(1), agg.RateLimitCount)
	assert.Equal(t, int64(2), agg.UniqueUsers)
}

func TestMemoryRecorder_DailyRollup(t *testing.T) {
	recorder := NewMemoryRecorder()
	ctx := context.Background()

	for _, event := range sampleEvents() {
		require.NoError(t, recorder.Track(ctx, event))
	}

	aggs, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, aggs, 3)

	// Ordered by day then feature: CONTENT, QA, QUIZ.
	assert.Equal(t, FeatureContent, aggs[0].Feature)
	assert.Equal(t, int64(1), aggs[0].TotalRequests)

	assertQAAggregate(t, aggs[1])

	assert.Equal(t, FeatureQuiz, aggs[2].Feature)
	assert.Equal(t, int64(1), aggs[2].ErrorCount)
}

func TestMemoryRecorder_FillsIDAndTimestamp(t *testing.T) {
	recorder := NewMemoryRecorder()

	require.NoError(t, recorder.Track(context.Background(), Event{
		Type: EventQuery, Feature: FeatureQA, Success: true,
	}))

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestMemoryRecorder_RebuildMatchesIncremental(t *testing.T) {
	recorder := NewMemoryRecorder()
	ctx := context.Background()

	for _, event := range sampleEvents() {
		require.NoError(t, recorder.Track(ctx, event))
	}

	before, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)

	require.NoError(t, recorder.Rebuild(ctx, testDay))

	after, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rebuild from the log must reproduce the incremental rollup")
}

func newSQLRecorder(t *testing.T) (*SQLRecorder, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	recorder, err := NewSQLRecorder(db, "sqlite")
	require.NoError(t, err)
	return recorder, db
}

func TestSQLRecorder_DailyRollup(t *testing.T) {
	recorder, db := newSQLRecorder(t)
	ctx := context.Background()

	for _, event := range sampleEvents() {
		require.NoError(t, recorder.Track(ctx, event))
	}

	var eventCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ai_usage_events`).Scan(&eventCount))
	assert.Equal(t, 6, eventCount, "every attempt gets one event row")

	aggs, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	assertQAAggregate(t, aggs[1])
}

func TestSQLRecorder_UniqueUsersCountOncePerDay(t *testing.T) {
	recorder, _ := newSQLRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, recorder.Track(ctx, Event{
			UserID: "u1", Type: EventQuery, Feature: FeatureQA, Success: true,
			CreatedAt: testDay.Add(time.Duration(i) * time.Minute),
		}))
	}

	aggs, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, int64(5), aggs[0].TotalRequests)
	assert.Equal(t, int64(1), aggs[0].UniqueUsers)
}

func TestSQLRecorder_AnonymousEventsSkipUniqueUsers(t *testing.T) {
	recorder, _ := newSQLRecorder(t)
	ctx := context.Background()

	require.NoError(t, recorder.Track(ctx, Event{
		Type: EventFallback, Feature: FeatureQA, Success: true, Cached: true,
		CreatedAt: testDay,
	}))

	aggs, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, int64(0), aggs[0].UniqueUsers)
}

func TestSQLRecorder_RebuildFromLog(t *testing.T) {
	recorder, db := newSQLRecorder(t)
	ctx := context.Background()

	for _, event := range sampleEvents() {
		require.NoError(t, recorder.Track(ctx, event))
	}

	// Corrupt the rollup, then rebuild from the authoritative log.
	_, err := db.Exec(`UPDATE ai_usage_daily SET total_requests = 999, unique_users = 999`)
	require.NoError(t, err)

	require.NoError(t, recorder.Rebuild(ctx, testDay))

	aggs, err := recorder.DailySummary(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Len(t, aggs, 3)
	assertQAAggregate(t, aggs[1])
}

func TestSQLRecorder_MetadataRoundTrip(t *testing.T) {
	recorder, db := newSQLRecorder(t)

	require.NoError(t, recorder.Track(context.Background(), Event{
		UserID: "u1", Type: EventQuery, Feature: FeatureQA, Success: true,
		Metadata:  Metadata{NotebookID: "nb-1", QuestionChars: 42},
		CreatedAt: testDay,
	}))

	var metadata string
	require.NoError(t, db.QueryRow(`SELECT metadata FROM ai_usage_events`).Scan(&metadata))
	assert.JSONEq(t, `{"notebook_id":"nb-1","question_chars":42}`, metadata)
}
