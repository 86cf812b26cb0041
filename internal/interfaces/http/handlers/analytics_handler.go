// Package handlers implements the HTTP handlers of the analytics API: one
// ingestion surface feeding the graph builder and one query surface reading
// through the query engine.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tripmind-backend/internal/application/query"
	"tripmind-backend/internal/infrastructure/observability"
	"tripmind-backend/internal/infrastructure/signallog"
	"tripmind-backend/internal/infrastructure/tracing"
	"tripmind-backend/internal/interfaces/http/dto"
	"tripmind-backend/internal/interfaces/http/validation"
	"tripmind-backend/pkg/api"
	pkgerrors "tripmind-backend/pkg/errors"
)

// AnalyticsHandler serves signal ingestion and analytic queries.
type AnalyticsHandler struct {
	engine    *query.Engine
	metrics   *observability.Collector
	signalLog *signallog.Store
	tracer    *tracing.TracerProvider
	logger    *zap.Logger
	maxLimit  int
}

// NewAnalyticsHandler creates the handler. signalLog and tracer may be nil
// when the durable log or tracing is disabled.
func NewAnalyticsHandler(
	engine *query.Engine,
	metrics *observability.Collector,
	signalLog *signallog.Store,
	tracer *tracing.TracerProvider,
	logger *zap.Logger,
	maxLimit int,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		engine:    engine,
		metrics:   metrics,
		signalLog: signalLog,
		tracer:    tracer,
		logger:    logger,
		maxLimit:  maxLimit,
	}
}

// IngestSignal handles POST /api/v1/signals.
func (h *AnalyticsHandler) IngestSignal(w http.ResponseWriter, r *http.Request) {
	var req dto.SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Get().Struct(req); err != nil {
		h.metrics.SignalsRejected.WithLabelValues(req.Type).Inc()
		api.Error(w, http.StatusBadRequest, validation.Describe(err))
		return
	}

	if err := h.ingest(r, req); err != nil {
		h.metrics.SignalsRejected.WithLabelValues(req.Type).Inc()
		h.respondError(w, err)
		return
	}
	api.Success(w, http.StatusAccepted, map[string]interface{}{
		"status":     "accepted",
		"generation": h.engine.Builder().Generation(),
	})
}

// IngestBatch handles POST /api/v1/signals/batch. Items are processed in
// order; a rejected item is counted and skipped, it does not abort the
// batch.
func (h *AnalyticsHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Get().Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, validation.Describe(err))
		return
	}

	resp := dto.BatchSignalResponse{}
	for _, item := range req.Signals {
		if err := h.ingest(r, item); err != nil {
			h.metrics.SignalsRejected.WithLabelValues(item.Type).Inc()
			resp.Rejected++
			resp.Errors = append(resp.Errors, err.Error())
			continue
		}
		resp.Accepted++
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *AnalyticsHandler) ingest(r *http.Request, req dto.SignalRequest) error {
	sig := req.ToSignal()
	if err := h.engine.Builder().ProcessSignal(sig); err != nil {
		return err
	}
	h.metrics.SignalsIngested.WithLabelValues(req.Type).Inc()

	// The graph stays authoritative: log failures are observed, never
	// surfaced to the instrumentation caller.
	if h.signalLog != nil {
		if err := h.signalLog.Append(r.Context(), sig); err != nil {
			h.metrics.SignalLogErrors.Inc()
			h.logger.Warn("signal log append failed", zap.Error(err))
		}
	}
	return nil
}

// ExecuteQuery handles POST /api/v1/analytics/query, the generic dispatch
// entry point.
func (h *AnalyticsHandler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req dto.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Get().Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, validation.Describe(err))
		return
	}
	h.respondQuery(w, r, req.Type, func() query.Result {
		return h.engine.Execute(req.ToQuery(h.maxLimit))
	})
}

// FailingIntents handles GET /api/v1/analytics/failing-intents.
func (h *AnalyticsHandler) FailingIntents(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeFailingIntents), func() query.Result {
		return h.engine.GetFailingIntents(h.limitParam(r))
	})
}

// BreakingContent handles GET /api/v1/analytics/breaking-content.
func (h *AnalyticsHandler) BreakingContent(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeBreakingContent), func() query.Result {
		return h.engine.GetBreakingContent(h.limitParam(r))
	})
}

// HighValuePaths handles GET /api/v1/analytics/high-value-paths.
func (h *AnalyticsHandler) HighValuePaths(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeHighValuePaths), func() query.Result {
		return h.engine.GetHighValuePaths(h.limitParam(r))
	})
}

// DropOffPoints handles GET /api/v1/analytics/drop-off-points.
func (h *AnalyticsHandler) DropOffPoints(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeDropOffPoints), func() query.Result {
		return h.engine.GetDropOffPoints(h.limitParam(r))
	})
}

// ConversionPaths handles GET /api/v1/analytics/conversion-paths.
func (h *AnalyticsHandler) ConversionPaths(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeConversionPaths), func() query.Result {
		return h.engine.GetConversionPaths(h.limitParam(r))
	})
}

// IntentFlow handles GET /api/v1/analytics/intent-flow with an optional
// ?intent= filter.
func (h *AnalyticsHandler) IntentFlow(w http.ResponseWriter, r *http.Request) {
	h.respondQuery(w, r, string(query.TypeIntentFlow), func() query.Result {
		return h.engine.GetIntentFlow(r.URL.Query().Get("intent"), h.limitParam(r))
	})
}

// GraphStats handles GET /api/v1/graph/stats.
func (h *AnalyticsHandler) GraphStats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.engine.Stats())
}

// SessionJourney handles GET /api/v1/sessions/{sessionID}/journey.
func (h *AnalyticsHandler) SessionJourney(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	seq, ok := h.engine.Builder().Graph().Journey(sessionID)
	if !ok {
		api.Error(w, http.StatusNotFound, "Unknown session")
		return
	}
	labels := make([]string, len(seq))
	for i, ref := range seq {
		labels[i] = ref.String()
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"sessionId": sessionID,
		"journey":   labels,
	})
}

// ClearGraph handles POST /api/v1/graph/clear: full engine reset plus
// truncation of the durable log so a later replay does not resurrect the
// cleared signals.
func (h *AnalyticsHandler) ClearGraph(w http.ResponseWriter, r *http.Request) {
	h.engine.Builder().Clear()
	h.engine.Scorer().ClearCache()
	if h.signalLog != nil {
		if err := h.signalLog.Truncate(r.Context()); err != nil {
			h.logger.Warn("signal log truncate failed", zap.Error(err))
		}
	}
	h.logger.Info("journey graph cleared")
	api.Success(w, http.StatusOK, map[string]interface{}{
		"status":     "cleared",
		"generation": h.engine.Builder().Generation(),
	})
}

// respondQuery executes the query, wrapped in a span when tracing is on,
// records its metrics, and writes the result envelope.
func (h *AnalyticsHandler) respondQuery(w http.ResponseWriter, r *http.Request, queryType string, run func() query.Result) {
	var res query.Result
	if h.tracer != nil {
		h.tracer.TraceQuery(r.Context(), queryType, func(context.Context) {
			res = run()
		})
	} else {
		res = run()
	}
	h.metrics.RecordQuery(string(res.Query.Type), time.Duration(res.Duration*float64(time.Millisecond)))
	api.Success(w, http.StatusOK, res)
}

func (h *AnalyticsHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case pkgerrors.IsValidation(err):
		api.Error(w, http.StatusBadRequest, err.Error())
	case pkgerrors.IsNotFound(err):
		api.Error(w, http.StatusNotFound, err.Error())
	case pkgerrors.IsConflict(err):
		api.Error(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("unexpected handler error", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AnalyticsHandler) limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0 // engine applies its default
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	if h.maxLimit > 0 && limit > h.maxLimit {
		return h.maxLimit
	}
	return limit
}
