// Package http assembles the chi router for the analytics API.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tripmind-backend/internal/config"
	"tripmind-backend/internal/infrastructure/observability"
	"tripmind-backend/internal/interfaces/http/handlers"
	"tripmind-backend/internal/middleware"
)

// NewRouter wires middleware and routes. The middleware order matters:
// request IDs first so every later log line can carry one, recovery before
// anything that can panic, then timeout and the circuit breaker guarding
// the handlers.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
	analytics *handlers.AnalyticsHandler,
	health *handlers.HealthHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api"), logger))
	r.Use(metricsMiddleware(metrics))

	if cfg.Server.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/signals", analytics.IngestSignal)
		r.Post("/signals/batch", analytics.IngestBatch)

		r.Route("/analytics", func(r chi.Router) {
			r.Post("/query", analytics.ExecuteQuery)
			r.Get("/failing-intents", analytics.FailingIntents)
			r.Get("/breaking-content", analytics.BreakingContent)
			r.Get("/high-value-paths", analytics.HighValuePaths)
			r.Get("/drop-off-points", analytics.DropOffPoints)
			r.Get("/conversion-paths", analytics.ConversionPaths)
			r.Get("/intent-flow", analytics.IntentFlow)
		})

		r.Route("/graph", func(r chi.Router) {
			r.Get("/stats", analytics.GraphStats)
			r.Post("/clear", analytics.ClearGraph)
		})

		r.Get("/sessions/{sessionID}/journey", analytics.SessionJourney)
	})

	return r
}

func metricsMiddleware(metrics *observability.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
