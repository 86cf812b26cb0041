package query

import (
	"sort"
	"time"

	"tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/application/scorer"
	"tripmind-backend/internal/domain/journey"
)

// DefaultLimit caps result sets when a query carries no explicit limit.
const DefaultLimit = 10

// Engine is the stateless analytic façade over a builder/scorer pair. It
// owns no graph state of its own: mutation belongs to the builder, cached
// derived values to the scorer. All methods are safe for concurrent use.
//
// Query errors never propagate to callers: an internal fault degrades to an
// empty result with an error flag in the metadata, so one broken widget
// cannot fail a whole dashboard.
type Engine struct {
	builder      *builder.Builder
	scorer       *scorer.Scorer
	defaultLimit int
}

// NewEngine creates a query engine over the given builder and scorer.
func NewEngine(b *builder.Builder, s *scorer.Scorer) *Engine {
	return &Engine{builder: b, scorer: s, defaultLimit: DefaultLimit}
}

// WithDefaultLimit overrides the limit applied when a query carries none
// and returns the engine. Non-positive values keep the built-in default.
func (e *Engine) WithDefaultLimit(limit int) *Engine {
	if limit > 0 {
		e.defaultLimit = limit
	}
	return e
}

// Builder returns the builder feeding this engine's graph.
func (e *Engine) Builder() *builder.Builder { return e.builder }

// Scorer returns the scorer this engine reads through.
func (e *Engine) Scorer() *scorer.Scorer { return e.scorer }

// Execute dispatches a tagged query object to the matching named query. An
// unrecognized type returns an empty result set rather than an error, which
// keeps dashboards resilient to schema drift.
func (e *Engine) Execute(q Query) Result {
	switch ParseType(string(q.Type)) {
	case TypeFailingIntents:
		return e.GetFailingIntents(q.Limit)
	case TypeBreakingContent:
		return e.GetBreakingContent(q.Limit)
	case TypeHighValuePaths:
		return e.GetHighValuePaths(q.Limit)
	case TypeDropOffPoints:
		return e.GetDropOffPoints(q.Limit)
	case TypeConversionPaths:
		return e.GetConversionPaths(q.Limit)
	case TypeIntentFlow:
		return e.GetIntentFlow(q.Intent, q.Limit)
	default:
		return e.run(q, func(*journey.Snapshot) (interface{}, map[string]interface{}) {
			return []interface{}{}, map[string]interface{}{
				"unrecognizedType": string(q.Type),
			}
		})
	}
}

// GetFailingIntents returns intent nodes ranked by failure rate descending;
// ties break by session volume descending, then node id ascending.
func (e *Engine) GetFailingIntents(limit int) Result {
	q := Query{Type: TypeFailingIntents, Limit: limit}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		rows := []IntentFailure{}
		for _, n := range snap.Nodes {
			if n.Ref.Kind != journey.KindIntent {
				continue
			}
			rows = append(rows, IntentFailure{
				Intent:      n.Ref.ID,
				FailureRate: e.scorer.FailureRateAt(snap, n.Ref),
				Sessions:    sessionsWithIntent(snap, n.Ref),
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].FailureRate != rows[j].FailureRate {
				return rows[i].FailureRate > rows[j].FailureRate
			}
			if rows[i].Sessions != rows[j].Sessions {
				return rows[i].Sessions > rows[j].Sessions
			}
			return rows[i].Intent < rows[j].Intent
		})
		return truncateIntent(rows, e.normalizeLimit(limit)), nil
	})
}

// GetBreakingContent returns content nodes ranked by break rate descending,
// with the same tie-break rule as GetFailingIntents.
func (e *Engine) GetBreakingContent(limit int) Result {
	q := Query{Type: TypeBreakingContent, Limit: limit}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		rows := []ContentBreak{}
		for _, n := range snap.Nodes {
			if n.Ref.Kind != journey.KindContent {
				continue
			}
			rows = append(rows, ContentBreak{
				ContentID: n.Ref.ID,
				BreakRate: e.scorer.BreakRateAt(snap, n.Ref),
				Sessions:  sessionsVisiting(snap, n.Ref),
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].BreakRate != rows[j].BreakRate {
				return rows[i].BreakRate > rows[j].BreakRate
			}
			if rows[i].Sessions != rows[j].Sessions {
				return rows[i].Sessions > rows[j].Sessions
			}
			return rows[i].ContentID < rows[j].ContentID
		})
		return truncateContent(rows, e.normalizeLimit(limit)), nil
	})
}

// GetHighValuePaths returns distinct journeys ending in a conversion
// outcome, ranked by aggregate path value descending.
func (e *Engine) GetHighValuePaths(limit int) Result {
	q := Query{Type: TypeHighValuePaths, Limit: limit}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		rows := e.conversionPathStats(snap)
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Value != rows[j].Value {
				return rows[i].Value > rows[j].Value
			}
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			return pathLabel(rows[i].Path) < pathLabel(rows[j].Path)
		})
		return truncatePaths(rows, e.normalizeLimit(limit)), nil
	})
}

// GetConversionPaths returns distinct journeys ending in a conversion
// outcome, ranked by traversal frequency descending (frequency, not value).
func (e *Engine) GetConversionPaths(limit int) Result {
	q := Query{Type: TypeConversionPaths, Limit: limit}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		rows := e.conversionPathStats(snap)
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			if rows[i].Value != rows[j].Value {
				return rows[i].Value > rows[j].Value
			}
			return pathLabel(rows[i].Path) < pathLabel(rows[j].Path)
		})
		return truncatePaths(rows, e.normalizeLimit(limit)), nil
	})
}

// GetDropOffPoints returns edges ranked by drop-off rate descending; ties
// break by traversal count descending, then edge label ascending.
func (e *Engine) GetDropOffPoints(limit int) Result {
	q := Query{Type: TypeDropOffPoints, Limit: limit}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		type scored struct {
			row   DropOffPoint
			count int64
			key   string
		}
		scoredRows := make([]scored, 0, len(snap.Edges))
		for _, edge := range snap.Edges {
			scoredRows = append(scoredRows, scored{
				row: DropOffPoint{
					From:        edge.Key.From.String(),
					To:          edge.Key.To.String(),
					DropOffRate: e.scorer.DropOffRateAt(snap, edge.Key),
				},
				count: edge.Count,
				key:   edge.Key.String(),
			})
		}
		sort.Slice(scoredRows, func(i, j int) bool {
			if scoredRows[i].row.DropOffRate != scoredRows[j].row.DropOffRate {
				return scoredRows[i].row.DropOffRate > scoredRows[j].row.DropOffRate
			}
			if scoredRows[i].count != scoredRows[j].count {
				return scoredRows[i].count > scoredRows[j].count
			}
			return scoredRows[i].key < scoredRows[j].key
		})
		rows := []DropOffPoint{}
		for i, sr := range scoredRows {
			if i >= e.normalizeLimit(limit) {
				break
			}
			rows = append(rows, sr.row)
		}
		return rows, nil
	})
}

// GetIntentFlow returns a Sankey-style edge list over the whole graph, or,
// when an intent is given, only the edges traversed by that intent's
// sessions.
func (e *Engine) GetIntentFlow(intent string, limit int) Result {
	q := Query{Type: TypeIntentFlow, Limit: limit, Intent: intent}
	return e.run(q, func(snap *journey.Snapshot) (interface{}, map[string]interface{}) {
		counts := make(map[journey.EdgeKey]int64)
		if intent == "" {
			for _, edge := range snap.Edges {
				counts[edge.Key] = edge.Count
			}
		} else {
			ref := journey.IntentRef(intent)
			for _, sess := range snap.Sessions {
				if sess.Intent != ref {
					continue
				}
				seq := sess.Journey()
				for i := 0; i+1 < len(seq); i++ {
					counts[journey.EdgeKey{From: seq[i], To: seq[i+1]}]++
				}
			}
		}

		rows := []FlowEdge{}
		for key, count := range counts {
			rows = append(rows, FlowEdge{
				Source: key.From.String(),
				Target: key.To.String(),
				Value:  count,
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Value != rows[j].Value {
				return rows[i].Value > rows[j].Value
			}
			if rows[i].Source != rows[j].Source {
				return rows[i].Source < rows[j].Source
			}
			return rows[i].Target < rows[j].Target
		})
		if max := e.normalizeLimit(limit); len(rows) > max {
			rows = rows[:max]
		}
		return rows, map[string]interface{}{"filtered": intent != ""}
	})
}

// Stats returns current graph volume counters for dashboards.
func (e *Engine) Stats() journey.Stats {
	return e.builder.Graph().Stats()
}

// run measures one query execution and wraps it in the result envelope. A
// panic inside the computation degrades to an empty result with an error
// flag instead of crashing the caller.
func (e *Engine) run(q Query, fn func(snap *journey.Snapshot) (interface{}, map[string]interface{})) Result {
	start := time.Now()
	res := Result{
		Query:      q,
		ExecutedAt: start,
		Metadata:   map[string]interface{}{},
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Results = []interface{}{}
				res.Metadata["error"] = true
			}
		}()
		snap := e.builder.Graph().Snapshot()
		results, meta := fn(snap)
		res.Results = results
		for k, v := range meta {
			res.Metadata[k] = v
		}
		res.Metadata["generation"] = snap.Generation
		res.Metadata["totalSessions"] = len(snap.Sessions)
	}()

	res.Duration = float64(time.Since(start).Microseconds()) / 1000.0
	return res
}

// conversionPathStats groups closed, converted sessions into distinct
// journeys. Path equality is exact node-sequence equality.
func (e *Engine) conversionPathStats(snap *journey.Snapshot) []PathStat {
	type group struct {
		path  []journey.NodeRef
		count int
	}
	groups := make(map[string]*group)
	for _, sess := range snap.Sessions {
		if !sess.Closed || sess.Bounced {
			continue
		}
		seq := sess.Journey()
		key := journey.PathKey(seq)
		g, ok := groups[key]
		if !ok {
			g = &group{path: seq}
			groups[key] = g
		}
		g.count++
	}

	rows := make([]PathStat, 0, len(groups))
	for _, g := range groups {
		labels := make([]string, len(g.path))
		for i, ref := range g.path {
			labels[i] = ref.String()
		}
		rows = append(rows, PathStat{
			Path:  labels,
			Value: e.scorer.PathValueAt(snap, g.path),
			Count: g.count,
		})
	}
	return rows
}

func sessionsWithIntent(snap *journey.Snapshot, intent journey.NodeRef) int {
	var n int
	for _, sess := range snap.Sessions {
		if sess.Intent == intent {
			n++
		}
	}
	return n
}

func sessionsVisiting(snap *journey.Snapshot, ref journey.NodeRef) int {
	var n int
	for _, sess := range snap.Sessions {
		for _, p := range sess.Path {
			if p == ref {
				n++
				break
			}
		}
	}
	return n
}

func (e *Engine) normalizeLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	return limit
}

func pathLabel(path []string) string {
	label := ""
	for i, p := range path {
		if i > 0 {
			label += "|"
		}
		label += p
	}
	return label
}

func truncateIntent(rows []IntentFailure, max int) []IntentFailure {
	if len(rows) > max {
		return rows[:max]
	}
	return rows
}

func truncateContent(rows []ContentBreak, max int) []ContentBreak {
	if len(rows) > max {
		return rows[:max]
	}
	return rows
}

func truncatePaths(rows []PathStat, max int) []PathStat {
	if len(rows) > max {
		return rows[:max]
	}
	return rows
}
