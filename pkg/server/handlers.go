package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coursekit/aigateway/pkg/backend"
	"github.com/coursekit/aigateway/pkg/gateway"
	"github.com/coursekit/aigateway/pkg/logger"
	"github.com/coursekit/aigateway/pkg/ratelimit"
)

// Handler holds the API route handlers.
type Handler struct {
	svc *gateway.Service
}

func NewHandler(svc *gateway.Service) *Handler {
	return &Handler{svc: svc}
}

// Ask handles POST /v1/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("user_id is required"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("question is required"))
		return
	}

	result, err := h.svc.Ask(r.Context(), req.UserID, req.Question, req.NotebookID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetContent handles POST /v1/lessons/{lessonID}/content.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	params, ok := h.generateParams(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetContent(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetQuiz handles POST /v1/lessons/{lessonID}/quiz.
func (h *Handler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	params, ok := h.generateParams(w, r)
	if !ok {
		return
	}

	result, err := h.svc.GetQuiz(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) generateParams(w http.ResponseWriter, r *http.Request) (gateway.ContentParams, bool) {
	lessonID := chi.URLParam(r, "lessonID")
	if lessonID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("lesson id is required"))
		return gateway.ContentParams{}, false
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return gateway.ContentParams{}, false
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic is required"))
		return gateway.ContentParams{}, false
	}

	return gateway.ContentParams{
		UserID:          req.UserID,
		LessonID:        lessonID,
		NotebookID:      req.NotebookID,
		Topic:           req.Topic,
		ForceRegenerate: req.ForceRegenerate,
	}, true
}

// Status handles GET /v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetStatus())
}

// Notebooks handles GET /v1/notebooks.
func (h *Handler) Notebooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Backend().Registry().List())
}

// DailyUsage handles GET /v1/usage/daily. Defaults to the trailing
// seven days when no range is given.
func (h *Handler) DailyUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -6)

	var err error
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid 'from' date, want YYYY-MM-DD"))
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid 'to' date, want YYYY-MM-DD"))
			return
		}
	}
	if to.Before(from) {
		writeJSON(w, http.StatusBadRequest, errorBody("'to' must not precede 'from'"))
		return
	}

	aggregates, err := h.svc.DailyUsage(r.Context(), from, to)
	if err != nil {
		logger.Get().Error("daily usage query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("usage data unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, aggregates)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps gateway errors to HTTP. Rate limits become 429 with
// Retry-After, unknown notebooks 404; anything else is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var rlErr *ratelimit.RateLimitError
	if errors.As(err, &rlErr) {
		retryAfter := rlErr.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, RateLimitedResponse{
			Error:             rlErr.Error(),
			RetryAfterSeconds: retryAfter,
		})
		return
	}

	if backend.IsNotebookNotFound(err) {
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}

	logger.Get().Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
