package analytics

import (
	"time"
)

// EventType classifies what happened on a gateway invocation attempt.
type EventType string

const (
	EventQuery       EventType = "QUERY"
	EventContentGen  EventType = "CONTENT_GEN"
	EventQuizGen     EventType = "QUIZ_GEN"
	EventRateLimited EventType = "RATE_LIMITED"
	EventError       EventType = "ERROR"
	EventFallback    EventType = "FALLBACK"
)

// Feature names the product surface an event belongs to.
type Feature string

const (
	FeatureQA      Feature = "QA"
	FeatureContent Feature = "CONTENT"
	FeatureQuiz    Feature = "QUIZ"
	FeatureTTS     Feature = "TTS"
)

// Metadata is the structured per-event payload. Fields are typed rather
// than an opaque map so each event type gets compile-time coverage of
// what it is expected to carry.
type Metadata struct {
	NotebookID    string `json:"notebook_id,omitempty"`
	LessonID      string `json:"lesson_id,omitempty"`
	Topic         string `json:"topic,omitempty"`
	Mode          string `json:"mode,omitempty"`
	QuestionChars int    `json:"question_chars,omitempty"`
}

// Event is one row of the append-only usage log. One event is recorded
// per gateway invocation attempt, including rejected and failed ones.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Type      EventType `json:"event_type"`
	Feature   Feature   `json:"feature"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyAggregate is the materialized rollup for one calendar date and one
// feature. It is rebuildable from the event log; the log stays the source
// of truth.
type DailyAggregate struct {
	Day            string  `json:"day"` // YYYY-MM-DD, UTC
	Feature        Feature `json:"feature"`
	TotalRequests  int64   `json:"total_requests"`
	SuccessCount   int64   `json:"success_count"`
	ErrorCount     int64   `json:"error_count"`
	CacheHits      int64   `json:"cache_hits"`
	RateLimitCount int64   `json:"rate_limit_count"`
	UniqueUsers    int64   `json:"unique_users"`
}

// DayKey formats a timestamp as the aggregate day key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// apply folds one event into the aggregate counters (unique-user handling
// is the store's job, since it needs membership state).
func (a *DailyAggregate) apply(event *Event) {
	a.TotalRequests++
	if event.Success {
		a.SuccessCount++
	} else {
		a.ErrorCount++
	}
	if event.Cached {
		a.CacheHits++
	}
	if event.Type == EventRateLimited {
		a.RateLimitCount++
	}
}
