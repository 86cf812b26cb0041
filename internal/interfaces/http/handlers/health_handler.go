package handlers

import (
	"net/http"
	"time"

	"tripmind-backend/internal/application/query"
	"tripmind-backend/pkg/api"
)

// HealthHandler reports process liveness and a few graph-level gauges that
// make a health probe useful in dashboards.
type HealthHandler struct {
	engine      *query.Engine
	environment string
	startedAt   time.Time
}

func NewHealthHandler(engine *query.Engine, environment string) *HealthHandler {
	return &HealthHandler{
		engine:      engine,
		environment: environment,
		startedAt:   time.Now(),
	}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	api.Success(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"environment": h.environment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"graph": map[string]interface{}{
			"nodes":      stats.Nodes,
			"edges":      stats.Edges,
			"sessions":   stats.Sessions,
			"generation": stats.Generation,
		},
	})
}

// Ready handles GET /ready. The engine is memory-resident, so readiness
// only confirms the wiring is alive.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}
