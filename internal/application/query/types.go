// Package query exposes the analytic read surface of the journey graph: a
// fixed catalogue of named queries plus one generic dispatch entry point,
// combined behind an Engine that reads through the scorer's memoized
// statistics.
package query

import (
	"time"
)

// Type tags the query variants the engine dispatches on. The set is closed;
// anything else maps to TypeUnrecognized and the documented empty result.
type Type string

const (
	TypeFailingIntents  Type = "failing_intents"
	TypeBreakingContent Type = "breaking_content"
	TypeHighValuePaths  Type = "high_value_paths"
	TypeDropOffPoints   Type = "drop_off_points"
	TypeConversionPaths Type = "conversion_paths"
	TypeIntentFlow      Type = "intent_flow"
	TypeUnrecognized    Type = ""
)

// ParseType maps a raw tag to a known query type, or TypeUnrecognized.
func ParseType(raw string) Type {
	switch Type(raw) {
	case TypeFailingIntents, TypeBreakingContent, TypeHighValuePaths,
		TypeDropOffPoints, TypeConversionPaths, TypeIntentFlow:
		return Type(raw)
	default:
		return TypeUnrecognized
	}
}

// Query is the tagged query object accepted by Execute. Limit caps the
// result set; Intent filters intent_flow to one intent's journeys.
type Query struct {
	Type   Type   `json:"type"`
	Limit  int    `json:"limit,omitempty"`
	Intent string `json:"intent,omitempty"`
}

// Result is the envelope every query returns. Results is always a non-nil,
// query-specific slice; Duration is wall-clock execution time in
// milliseconds; Metadata carries auxiliary counts such as the total
// sessions considered.
type Result struct {
	Results    interface{}            `json:"results"`
	Duration   float64                `json:"duration"`
	Query      Query                  `json:"query"`
	ExecutedAt time.Time              `json:"executedAt"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// IntentFailure is one row of a failing_intents result.
type IntentFailure struct {
	Intent      string  `json:"intent"`
	FailureRate float64 `json:"failureRate"`
	Sessions    int     `json:"sessions"`
}

// ContentBreak is one row of a breaking_content result.
type ContentBreak struct {
	ContentID string  `json:"contentId"`
	BreakRate float64 `json:"breakRate"`
	Sessions  int     `json:"sessions"`
}

// PathStat is one row of a high_value_paths or conversion_paths result: a
// distinct journey ending in a conversion outcome, with its aggregate value
// and traversal frequency.
type PathStat struct {
	Path  []string `json:"path"`
	Value float64  `json:"value"`
	Count int      `json:"count"`
}

// DropOffPoint is one row of a drop_off_points result.
type DropOffPoint struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	DropOffRate float64 `json:"dropOffRate"`
}

// FlowEdge is one row of an intent_flow result, shaped for Sankey-style
// rendering.
type FlowEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int64  `json:"value"`
}
