package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursekit/aigateway/pkg/gateway"
	"github.com/coursekit/aigateway/pkg/logger"
)

// NewRouter mounts all API routes. gatherer may be nil to disable the
// /metrics endpoint.
func NewRouter(svc *gateway.Service, gatherer prometheus.Gatherer) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/ask", h.Ask)
		r.Post("/lessons/{lessonID}/content", h.GetContent)
		r.Post("/lessons/{lessonID}/quiz", h.GetQuiz)
		r.Get("/status", h.Status)
		r.Get("/notebooks", h.Notebooks)
		r.Get("/usage/daily", h.DailyUsage)
	})

	r.Get("/healthz", h.Healthz)

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Get().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
