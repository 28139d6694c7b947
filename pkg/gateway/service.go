// Package gateway composes the rate limiter, response cache, backend
// client, and analytics recorder into the three public operations:
// Ask, GetContent, and GetQuiz.
//
// Failure policy: only rate-limit rejections and unknown notebooks
// escape as errors. Backend flakiness is degraded inside the client,
// cache failures count as misses, and analytics failures are logged
// and dropped.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/coursekit/aigateway/pkg/analytics"
	"github.com/coursekit/aigateway/pkg/backend"
	"github.com/coursekit/aigateway/pkg/cache"
	"github.com/coursekit/aigateway/pkg/citations"
	"github.com/coursekit/aigateway/pkg/logger"
	"github.com/coursekit/aigateway/pkg/ratelimit"
)

const defaultCacheTTL = 24 * time.Hour

// AnswerResult is the response to Ask.
type AnswerResult struct {
	Answer             string               `json:"answer"`
	Citations          []citations.Citation `json:"citations"`
	Cached             bool                 `json:"cached"`
	Degraded           bool                 `json:"degraded"`
	RateLimitRemaining int64                `json:"rate_limit_remaining"`
}

// ContentResult is the response to GetContent.
type ContentResult struct {
	Content  string `json:"content"`
	Topic    string `json:"topic"`
	Cached   bool   `json:"cached"`
	Degraded bool   `json:"degraded"`
}

// QuizResult is the response to GetQuiz.
type QuizResult struct {
	Questions []backend.QuizQuestion `json:"questions"`
	Topic     string                 `json:"topic"`
	Cached    bool                   `json:"cached"`
	Degraded  bool                   `json:"degraded"`
}

// ContentParams identifies one content-generation request.
type ContentParams struct {
	UserID          string
	LessonID        string
	NotebookID      string
	Topic           string
	ForceRegenerate bool
}

// Service is the gateway orchestrator. Construct one per process at
// the composition root and share it across request handlers; all
// methods are safe for concurrent use.
type Service struct {
	limiter   ratelimit.Limiter
	cache     cache.Store // nil means caching disabled
	backend   *backend.Client
	analytics analytics.Recorder
	metrics   *Metrics

	flight   singleflight.Group
	cacheTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

// WithCacheTTL overrides the 24h response cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = ttl
	}
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(limiter ratelimit.Limiter, store cache.Store, client *backend.Client, recorder analytics.Recorder, opts ...Option) *Service {
	s := &Service{
		limiter:   limiter,
		cache:     store,
		backend:   client,
		analytics: recorder,
		cacheTTL:  defaultCacheTTL,
		now:       time.Now,
	}
	if s.analytics == nil {
		s.analytics = analytics.NoopRecorder{}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend exposes the underlying client for status and notebook
// management.
func (s *Service) Backend() *backend.Client {
	return s.backend
}

// GetStatus reports the backend connection state.
func (s *Service) GetStatus() backend.ConnectionStatus {
	return s.backend.Status()
}

// DailyUsage returns the analytics rollup for days in [from, to].
func (s *Service) DailyUsage(ctx context.Context, from, to time.Time) ([]analytics.DailyAggregate, error) {
	return s.analytics.DailySummary(ctx, from, to)
}

// Ask answers a user question, consulting the response cache first.
// The rate limiter is consulted on every call, cache hit or not:
// consuming the cache still counts as a user-initiated query.
func (s *Service) Ask(ctx context.Context, userID, question, notebookID string) (*AnswerResult, error) {
	rl, err := s.checkQuota(ctx, userID)
	if err != nil {
		s.metrics.observeRequest("ask", outcomeRateLimited)
		s.track(ctx, analytics.Event{
			UserID:    userID,
			Type:      analytics.EventRateLimited,
			Feature:   analytics.FeatureQA,
			Success:   false,
			ErrorCode: "RATE_LIMIT_EXCEEDED",
			Metadata:  analytics.Metadata{NotebookID: notebookID},
		})
		return nil, err
	}

	notebook, err := s.backend.Registry().Resolve(notebookID)
	if err != nil {
		s.metrics.observeRequest("ask", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    userID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureQA,
			Success:   false,
			ErrorCode: "NOTEBOOK_NOT_FOUND",
			Metadata:  analytics.Metadata{NotebookID: notebookID},
		})
		return nil, err
	}

	key := qaCacheKey(question, notebook.ID)
	if answer, ok := s.cachedAnswer(ctx, key); ok {
		s.metrics.observeRequest("ask", outcomeCached)
		s.track(ctx, analytics.Event{
			UserID:  userID,
			Type:    analytics.EventQuery,
			Feature: analytics.FeatureQA,
			Success: true,
			Cached:  true,
			Metadata: analytics.Metadata{
				NotebookID:    notebook.ID,
				QuestionChars: len(question),
			},
		})
		return s.answerResult(answer, true, remaining(rl)), nil
	}

	started := s.now()
	answer, err := s.queryOnce(ctx, key, backend.QueryRequest{Question: question, NotebookID: notebook.ID})
	latency := s.now().Sub(started)
	if err != nil {
		s.metrics.observeRequest("ask", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    userID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureQA,
			Success:   false,
			LatencyMs: latency.Milliseconds(),
			ErrorCode: "BACKEND_ERROR",
			Metadata:  analytics.Metadata{NotebookID: notebook.ID},
		})
		return nil, err
	}
	s.metrics.observeBackend("ask", latency)

	eventType := analytics.EventQuery
	outcome := outcomeOK
	if answer.Degraded {
		// Never cache synthesized fallbacks; a real answer should
		// replace them as soon as the backend recovers.
		eventType = analytics.EventFallback
		outcome = outcomeDegraded
	} else {
		s.putCached(ctx, key, answer)
	}

	s.metrics.observeRequest("ask", outcome)
	s.track(ctx, analytics.Event{
		UserID:    userID,
		Type:      eventType,
		Feature:   analytics.FeatureQA,
		Success:   true,
		Cached:    answer.Cached,
		LatencyMs: latency.Milliseconds(),
		Metadata: analytics.Metadata{
			NotebookID:    notebook.ID,
			Mode:          s.backend.Status().Mode,
			QuestionChars: len(question),
		},
	})

	return s.answerResult(answer, answer.Cached, remaining(rl)), nil
}

// queryOnce collapses concurrent identical questions into a single
// backend call. Every caller still pays rate limit quota before
// joining the flight.
func (s *Service) queryOnce(ctx context.Context, key string, req backend.QueryRequest) (*backend.Answer, error) {
	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		return s.backend.Query(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*backend.Answer), nil
}

func (s *Service) answerResult(answer *backend.Answer, cached bool, rateLimitRemaining int64) *AnswerResult {
	parsed := citations.Parse(answer.Text, answer.SourceDocuments)
	cits := parsed.Citations
	if cits == nil {
		cits = []citations.Citation{}
	}
	return &AnswerResult{
		Answer:             parsed.CleanText,
		Citations:          cits,
		Cached:             cached,
		Degraded:           answer.Degraded,
		RateLimitRemaining: rateLimitRemaining,
	}
}

// checkQuota consumes one rate limit slot. A limiter storage failure
// fails open: the request proceeds and the failure is logged.
func (s *Service) checkQuota(ctx context.Context, userID string) (*ratelimit.Result, error) {
	result, err := s.limiter.Check(ctx, userID)
	if err != nil {
		logger.Get().Warn("rate limiter unavailable, failing open", "user", userID, "error", err)
		return nil, nil
	}
	if !result.Allowed {
		return nil, ratelimit.NewRateLimitError(result)
	}
	return result, nil
}

func remaining(result *ratelimit.Result) int64 {
	if result == nil {
		return -1
	}
	return result.Remaining
}

func (s *Service) cachedAnswer(ctx context.Context, key string) (*backend.Answer, bool) {
	payload, ok := s.cachedPayload(ctx, "ask", key)
	if !ok {
		return nil, false
	}
	var answer backend.Answer
	if err := json.Unmarshal(payload, &answer); err != nil {
		logger.Get().Warn("corrupt cache entry, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &answer, true
}

// cachedPayload reads the cache, treating every failure as a miss.
func (s *Service) cachedPayload(ctx context.Context, operation, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Get().Warn("cache read failed, treating as miss", "key", key, "error", err)
		s.metrics.observeCache(operation, "error")
		return nil, false
	}
	if !ok {
		s.metrics.observeCache(operation, "miss")
		return nil, false
	}
	s.metrics.observeCache(operation, "hit")
	return payload, true
}

func (s *Service) putCached(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Get().Warn("failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Put(ctx, key, payload, s.cacheTTL); err != nil {
		logger.Get().Warn("cache write failed", "key", key, "error", err)
	}
}

// track records an analytics event, logging and discarding failures.
// Analytics must never fail a user-facing request.
func (s *Service) track(ctx context.Context, event analytics.Event) {
	if err := s.analytics.Track(ctx, event); err != nil {
		logger.Get().Warn("analytics write failed", "event", string(event.Type), "error", err)
	}
}
