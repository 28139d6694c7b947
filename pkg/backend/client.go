package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coursekit/aigateway/pkg/config"
	"github.com/coursekit/aigateway/pkg/httpclient"
	"github.com/coursekit/aigateway/pkg/logger"
)

// Client mediates all calls to the remote knowledge assistant.
//
// Connection state moves once, at Initialize time: remote when the
// health check passes, offline otherwise. A mid-session outage is
// absorbed per call by the fallback path, not by flipping the global
// state.
type Client struct {
	cfg      config.BackendConfig
	registry *Registry
	http     *httpclient.Client

	mu     sync.RWMutex
	status ConnectionStatus

	now func() time.Time
}

type Option func(*Client)

// WithHTTPClient overrides the RPC transport, mainly for tests.
func WithHTTPClient(client *httpclient.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithClock overrides the time source used for status stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(cfg config.BackendConfig, notebooks []config.NotebookConfig, opts ...Option) *Client {
	c := &Client{
		cfg:      cfg,
		registry: NewRegistryFromConfig(notebooks),
		now:      time.Now,
		status: ConnectionStatus{
			Mode:     config.ModeOffline,
			Endpoint: cfg.Endpoint,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = httpclient.New(
			httpclient.WithTimeout(cfg.RequestTimeout),
			httpclient.WithoutRetries(),
		)
	}

	return c
}

// Registry exposes the notebook registry for callers that manage
// notebooks at runtime.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Initialize establishes the connection mode in priority order:
// remote, local automation, offline fallback. It returns true only
// when the remote health check succeeded. Offline always succeeds as
// a mode, with Connected=false.
func (c *Client) Initialize(ctx context.Context) bool {
	checkedAt := c.now()

	tryRemote := c.cfg.Mode == config.ModeAuto || c.cfg.Mode == config.ModeRemote
	if tryRemote && c.cfg.Endpoint != "" {
		err := c.healthCheck(ctx)
		if err == nil {
			c.setStatus(ConnectionStatus{
				Connected:     true,
				Mode:          config.ModeRemote,
				Endpoint:      c.cfg.Endpoint,
				LastCheckedAt: checkedAt,
			})
			logger.Get().Info("backend connected", "mode", config.ModeRemote, "endpoint", c.cfg.Endpoint)
			return true
		}

		logger.Get().Warn("backend health check failed, falling back",
			"endpoint", c.cfg.Endpoint, "error", err)
		c.setStatus(ConnectionStatus{
			Connected:     false,
			Mode:          config.ModeOffline,
			Endpoint:      c.cfg.Endpoint,
			LastCheckedAt: checkedAt,
			Error:         err.Error(),
		})
		return false
	}

	if c.cfg.Mode == config.ModeLocal {
		// Local automation needs manual external setup. Until someone
		// wires it up it is recorded as unavailable.
		c.setStatus(ConnectionStatus{
			Connected:     false,
			Mode:          config.ModeOffline,
			LastCheckedAt: checkedAt,
			Error:         "local automation mode is not available",
		})
		return false
	}

	errMsg := ""
	if tryRemote {
		errMsg = "no backend endpoint configured"
	}
	c.setStatus(ConnectionStatus{
		Connected:     false,
		Mode:          config.ModeOffline,
		Endpoint:      c.cfg.Endpoint,
		LastCheckedAt: checkedAt,
		Error:         errMsg,
	})
	return false
}

func (c *Client) healthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// Status returns the connection state from the last Initialize run.
func (c *Client) Status() ConnectionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status.Connected
}

// Query asks a question against the resolved notebook. Backend
// failures degrade to a synthesized answer; only notebook resolution
// can fail the call.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	notebook, err := c.registry.Resolve(req.NotebookID)
	if err != nil {
		return nil, err
	}

	if !c.connected() {
		return fallbackAnswer(req.Question, notebook.ID), nil
	}

	var result struct {
		Answer          string   `json:"answer"`
		SourceDocuments []string `json:"source_documents"`
		Confidence      float64  `json:"confidence"`
	}
	params := map[string]string{
		"notebook_id": notebook.ID,
		"question":    req.Question,
	}
	if err := c.call(ctx, methodQuery, params, &result); err != nil {
		logger.Get().Warn("query failed, serving fallback answer",
			"notebook", notebook.ID, "error", err)
		return fallbackAnswer(req.Question, notebook.ID), nil
	}

	return &Answer{
		Text:            result.Answer,
		SourceDocuments: result.SourceDocuments,
		Confidence:      result.Confidence,
		NotebookID:      notebook.ID,
	}, nil
}

// GenerateContent produces teaching content for a topic, degrading to
// a static study scaffold when the backend cannot serve.
func (c *Client) GenerateContent(ctx context.Context, req ContentRequest) (*Content, error) {
	notebook, err := c.registry.Resolve(req.NotebookID)
	if err != nil {
		return nil, err
	}

	if !c.connected() {
		return fallbackContent(req.Topic, notebook.ID), nil
	}

	var result struct {
		Content string `json:"content"`
	}
	params := map[string]string{
		"notebook_id": notebook.ID,
		"topic":       req.Topic,
		"lesson_id":   req.LessonID,
	}
	if err := c.call(ctx, methodGenerateContent, params, &result); err != nil {
		logger.Get().Warn("content generation failed, serving fallback",
			"notebook", notebook.ID, "topic", req.Topic, "error", err)
		return fallbackContent(req.Topic, notebook.ID), nil
	}

	return &Content{
		Text:       result.Content,
		Topic:      req.Topic,
		NotebookID: notebook.ID,
	}, nil
}

// GenerateQuiz produces a quiz for a topic. On backend failure the
// question list is empty; an invented quiz would mislead learners.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (*Quiz, error) {
	notebook, err := c.registry.Resolve(req.NotebookID)
	if err != nil {
		return nil, err
	}

	if !c.connected() {
		return fallbackQuiz(req.Topic, notebook.ID), nil
	}

	var result struct {
		Questions []QuizQuestion `json:"questions"`
	}
	params := map[string]interface{}{
		"notebook_id": notebook.ID,
		"topic":       req.Topic,
		"lesson_id":   req.LessonID,
	}
	if req.QuestionCount > 0 {
		params["question_count"] = req.QuestionCount
	}
	if err := c.call(ctx, methodGenerateQuiz, params, &result); err != nil {
		logger.Get().Warn("quiz generation failed, serving empty quiz",
			"notebook", notebook.ID, "topic", req.Topic, "error", err)
		return fallbackQuiz(req.Topic, notebook.ID), nil
	}

	if result.Questions == nil {
		result.Questions = []QuizQuestion{}
	}
	return &Quiz{
		Questions:  result.Questions,
		Topic:      req.Topic,
		NotebookID: notebook.ID,
	}, nil
}

func fallbackAnswer(question, notebookID string) *Answer {
	question = strings.TrimSpace(question)
	text := fmt.Sprintf(
		"The AI assistant is currently unavailable, so this is a placeholder response to your question: %q. "+
			"Please review the lesson materials directly, or try again once the assistant is back online.",
		question)

	return &Answer{
		Text:       text,
		Confidence: 0,
		NotebookID: notebookID,
		Cached:     true,
		Degraded:   true,
	}
}

func fallbackContent(topic, notebookID string) *Content {
	text := fmt.Sprintf(
		"# %s\n\nGenerated content for this topic is temporarily unavailable. "+
			"In the meantime: review the lesson's source materials, note the key terms you encounter, "+
			"and write down questions to ask once the assistant is back online.",
		strings.TrimSpace(topic))

	return &Content{
		Text:       text,
		Topic:      topic,
		NotebookID: notebookID,
		Cached:     true,
		Degraded:   true,
	}
}

func fallbackQuiz(topic, notebookID string) *Quiz {
	return &Quiz{
		Questions:  []QuizQuestion{},
		Topic:      topic,
		NotebookID: notebookID,
		Degraded:   true,
	}
}
