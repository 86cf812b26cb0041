// Package dto defines the request bodies accepted by the analytics API and
// their mapping onto domain signals and queries.
package dto

import (
	"time"

	"tripmind-backend/internal/application/query"
	"tripmind-backend/internal/domain/journey"
)

// SignalRequest is the body for POST /api/v1/signals. Field requirements
// depend on the signal type: visits need intent and content, conversions an
// outcome; bounces only a session.
type SignalRequest struct {
	Type      string    `json:"type" validate:"required,oneof=visit conversion bounce"`
	SessionID string    `json:"sessionId" validate:"required"`
	Intent    string    `json:"intent" validate:"required_if=Type visit"`
	Source    string    `json:"source"`
	ContentID string    `json:"contentId" validate:"required_if=Type visit"`
	Outcome   string    `json:"outcome" validate:"required_if=Type conversion"`
	Value     float64   `json:"value" validate:"gte=0"`
	Timestamp time.Time `json:"timestamp"`
}

// ToSignal converts the request into the corresponding domain signal. A
// missing timestamp defaults to the ingestion time.
func (r SignalRequest) ToSignal() journey.Signal {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	switch r.Type {
	case "conversion":
		return journey.Conversion{
			SessionID: r.SessionID,
			Outcome:   r.Outcome,
			Value:     r.Value,
			Timestamp: ts,
		}
	case "bounce":
		return journey.Bounce{
			SessionID: r.SessionID,
			Outcome:   r.Outcome,
			Timestamp: ts,
		}
	default:
		return journey.Visit{
			SessionID: r.SessionID,
			Intent:    r.Intent,
			Source:    r.Source,
			ContentID: r.ContentID,
			Timestamp: ts,
		}
	}
}

// BatchSignalRequest is the body for POST /api/v1/signals/batch.
type BatchSignalRequest struct {
	Signals []SignalRequest `json:"signals" validate:"required,min=1,dive"`
}

// BatchSignalResponse reports per-item ingestion results.
type BatchSignalResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// QueryRequest is the body for POST /api/v1/analytics/query, mirroring the
// engine's tagged query object.
type QueryRequest struct {
	Type   string `json:"type" validate:"required"`
	Limit  int    `json:"limit" validate:"gte=0"`
	Intent string `json:"intent"`
}

// ToQuery converts the request into an engine query, clamping the limit to
// maxLimit.
func (r QueryRequest) ToQuery(maxLimit int) query.Query {
	limit := r.Limit
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return query.Query{
		Type:   query.Type(r.Type),
		Limit:  limit,
		Intent: r.Intent,
	}
}
