package gateway

import (
	"context"
	"encoding/json"

	"github.com/coursekit/aigateway/pkg/analytics"
	"github.com/coursekit/aigateway/pkg/backend"
	"github.com/coursekit/aigateway/pkg/logger"
)

// GetContent serves generated teaching content for a lesson, refreshed
// at most once per cache TTL. ForceRegenerate skips the freshness check
// and always calls the backend.
func (s *Service) GetContent(ctx context.Context, params ContentParams) (*ContentResult, error) {
	notebook, err := s.backend.Registry().Resolve(params.NotebookID)
	if err != nil {
		s.metrics.observeRequest("content", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    params.UserID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureContent,
			Success:   false,
			ErrorCode: "NOTEBOOK_NOT_FOUND",
			Metadata:  analytics.Metadata{NotebookID: params.NotebookID, LessonID: params.LessonID},
		})
		return nil, err
	}

	key := contentCacheKey(params.LessonID, params.Topic, notebook.ID)
	if !params.ForceRegenerate {
		if content, ok := s.cachedContent(ctx, key); ok {
			s.metrics.observeRequest("content", outcomeCached)
			s.trackGeneration(ctx, params, notebook.ID, analytics.EventContentGen, analytics.FeatureContent, true, 0)
			return &ContentResult{Content: content.Text, Topic: content.Topic, Cached: true}, nil
		}
	} else {
		s.metrics.observeCache("content", "bypass")
	}

	started := s.now()
	content, err := s.backend.GenerateContent(ctx, backend.ContentRequest{
		Topic:      params.Topic,
		LessonID:   params.LessonID,
		NotebookID: notebook.ID,
	})
	latency := s.now().Sub(started)
	if err != nil {
		s.metrics.observeRequest("content", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    params.UserID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureContent,
			Success:   false,
			LatencyMs: latency.Milliseconds(),
			ErrorCode: "BACKEND_ERROR",
			Metadata:  analytics.Metadata{NotebookID: notebook.ID, LessonID: params.LessonID, Topic: params.Topic},
		})
		return nil, err
	}
	s.metrics.observeBackend("content", latency)

	outcome := outcomeOK
	eventType := analytics.EventContentGen
	if content.Degraded {
		outcome = outcomeDegraded
		eventType = analytics.EventFallback
	} else {
		s.putCached(ctx, key, content)
	}

	s.metrics.observeRequest("content", outcome)
	s.trackGeneration(ctx, params, notebook.ID, eventType, analytics.FeatureContent, content.Cached, latency.Milliseconds())

	return &ContentResult{
		Content:  content.Text,
		Topic:    content.Topic,
		Cached:   content.Cached,
		Degraded: content.Degraded,
	}, nil
}

// GetQuiz mirrors GetContent with its own cache namespace. A degraded
// quiz has zero questions and is never cached.
func (s *Service) GetQuiz(ctx context.Context, params ContentParams) (*QuizResult, error) {
	notebook, err := s.backend.Registry().Resolve(params.NotebookID)
	if err != nil {
		s.metrics.observeRequest("quiz", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    params.UserID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureQuiz,
			Success:   false,
			ErrorCode: "NOTEBOOK_NOT_FOUND",
			Metadata:  analytics.Metadata{NotebookID: params.NotebookID, LessonID: params.LessonID},
		})
		return nil, err
	}

	key := quizCacheKey(params.LessonID, params.Topic, notebook.ID)
	if !params.ForceRegenerate {
		if quiz, ok := s.cachedQuiz(ctx, key); ok {
			s.metrics.observeRequest("quiz", outcomeCached)
			s.trackGeneration(ctx, params, notebook.ID, analytics.EventQuizGen, analytics.FeatureQuiz, true, 0)
			return &QuizResult{Questions: quiz.Questions, Topic: quiz.Topic, Cached: true}, nil
		}
	} else {
		s.metrics.observeCache("quiz", "bypass")
	}

	started := s.now()
	quiz, err := s.backend.GenerateQuiz(ctx, backend.QuizRequest{
		Topic:      params.Topic,
		LessonID:   params.LessonID,
		NotebookID: notebook.ID,
	})
	latency := s.now().Sub(started)
	if err != nil {
		s.metrics.observeRequest("quiz", outcomeError)
		s.track(ctx, analytics.Event{
			UserID:    params.UserID,
			Type:      analytics.EventError,
			Feature:   analytics.FeatureQuiz,
			Success:   false,
			LatencyMs: latency.Milliseconds(),
			ErrorCode: "BACKEND_ERROR",
			Metadata:  analytics.Metadata{NotebookID: notebook.ID, LessonID: params.LessonID, Topic: params.Topic},
		})
		return nil, err
	}
	s.metrics.observeBackend("quiz", latency)

	outcome := outcomeOK
	eventType := analytics.EventQuizGen
	if quiz.Degraded {
		outcome = outcomeDegraded
		eventType = analytics.EventFallback
	} else {
		s.putCached(ctx, key, quiz)
	}

	s.metrics.observeRequest("quiz", outcome)
	s.trackGeneration(ctx, params, notebook.ID, eventType, analytics.FeatureQuiz, false, latency.Milliseconds())

	return &QuizResult{
		Questions: quiz.Questions,
		Topic:     quiz.Topic,
		Degraded:  quiz.Degraded,
	}, nil
}

func (s *Service) trackGeneration(ctx context.Context, params ContentParams, notebookID string, eventType analytics.EventType, feature analytics.Feature, cached bool, latencyMs int64) {
	s.track(ctx, analytics.Event{
		UserID:    params.UserID,
		Type:      eventType,
		Feature:   feature,
		Success:   true,
		Cached:    cached,
		LatencyMs: latencyMs,
		Metadata: analytics.Metadata{
			NotebookID: notebookID,
			LessonID:   params.LessonID,
			Topic:      params.Topic,
		},
	})
}

func (s *Service) cachedContent(ctx context.Context, key string) (*backend.Content, bool) {
	payload, ok := s.cachedPayload(ctx, "content", key)
	if !ok {
		return nil, false
	}
	var content backend.Content
	if err := json.Unmarshal(payload, &content); err != nil {
		logger.Get().Warn("corrupt cache entry, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &content, true
}

func (s *Service) cachedQuiz(ctx context.Context, key string) (*backend.Quiz, bool) {
	payload, ok := s.cachedPayload(ctx, "quiz", key)
	if !ok {
		return nil, false
	}
	var quiz backend.Quiz
	if err := json.Unmarshal(payload, &quiz); err != nil {
		logger.Get().Warn("corrupt cache entry, treating as miss", "key", key, "error", err)
		return nil, false
	}
	return &quiz, true
}
