// Package scorer computes derived statistics over the journey graph:
// failure rate, break rate, drop-off rate, and aggregate path value. Every
// statistic is memoized keyed by (statistic, target, generation), so a
// graph mutation invalidates all cached values implicitly — no key ever
// matches the new generation.
package scorer

import (
	"sync"

	"tripmind-backend/internal/domain/journey"
)

const (
	statFailureRate = "failureRate"
	statBreakRate   = "breakRate"
	statDropOffRate = "dropOffRate"
	statPathValue   = "pathValue"
)

type cacheKey struct {
	stat       string
	target     string
	generation uint64
}

// CacheHooks receives cache hit/miss notifications; used to feed metrics.
// Implementations must be safe for concurrent use.
type CacheHooks interface {
	CacheHit(stat string)
	CacheMiss(stat string)
}

type nopHooks struct{}

func (nopHooks) CacheHit(string)  {}
func (nopHooks) CacheMiss(string) {}

// Scorer computes and memoizes statistics over a graph. All methods are
// safe to call concurrently with each other and with graph mutation; rates
// with a zero denominator resolve to 0 by contract, never NaN.
type Scorer struct {
	graph *journey.Graph
	hooks CacheHooks

	mu    sync.Mutex
	cache map[cacheKey]float64
}

// New creates a scorer over the given graph.
func New(graph *journey.Graph) *Scorer {
	return &Scorer{
		graph: graph,
		hooks: nopHooks{},
		cache: make(map[cacheKey]float64),
	}
}

// WithHooks attaches cache observation hooks and returns the scorer.
func (s *Scorer) WithHooks(hooks CacheHooks) *Scorer {
	if hooks != nil {
		s.hooks = hooks
	}
	return s
}

// ClearCache empties the memoization cache without touching the graph or
// its generation counter.
func (s *Scorer) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[cacheKey]float64)
}

// FailureRate is the fraction of sessions with the given intent that
// terminated in a bounce.
func (s *Scorer) FailureRate(intent journey.NodeRef) float64 {
	return s.FailureRateAt(s.graph.Snapshot(), intent)
}

// FailureRateAt computes FailureRate against an already-taken snapshot, so
// multi-node queries pay for one snapshot instead of one per node.
func (s *Scorer) FailureRateAt(snap *journey.Snapshot, intent journey.NodeRef) float64 {
	return s.memoized(statFailureRate, intent.String(), snap.Generation, func() float64 {
		var total, bounced int
		for _, sess := range snap.Sessions {
			if sess.Intent != intent {
				continue
			}
			total++
			if sess.Closed && sess.Bounced {
				bounced++
			}
		}
		return ratio(bounced, total)
	})
}

// BreakRate is the fraction of sessions that visited the given content node
// at all whose last visited content node before termination was this node
// and whose outcome was a bounce.
func (s *Scorer) BreakRate(content journey.NodeRef) float64 {
	return s.BreakRateAt(s.graph.Snapshot(), content)
}

// BreakRateAt computes BreakRate against an already-taken snapshot.
func (s *Scorer) BreakRateAt(snap *journey.Snapshot, content journey.NodeRef) float64 {
	return s.memoized(statBreakRate, content.String(), snap.Generation, func() float64 {
		var visited, broke int
		for _, sess := range snap.Sessions {
			if !pathContains(sess.Path, content) {
				continue
			}
			visited++
			if sess.Closed && sess.Bounced && sess.Path[len(sess.Path)-1] == content {
				broke++
			}
		}
		return ratio(broke, visited)
	})
}

// DropOffRate is the fraction of sessions traversing the given edge that
// terminated in a bounce rather than continuing toward conversion.
func (s *Scorer) DropOffRate(edge journey.EdgeKey) float64 {
	return s.DropOffRateAt(s.graph.Snapshot(), edge)
}

// DropOffRateAt computes DropOffRate against an already-taken snapshot.
func (s *Scorer) DropOffRateAt(snap *journey.Snapshot, edge journey.EdgeKey) float64 {
	return s.memoized(statDropOffRate, edge.String(), snap.Generation, func() float64 {
		var traversed, dropped int
		for _, sess := range snap.Sessions {
			if !journeyTraverses(sess.Journey(), edge) {
				continue
			}
			traversed++
			if sess.Closed && sess.Bounced {
				dropped++
			}
		}
		return ratio(dropped, traversed)
	})
}

// PathValue is the total conversion value attributed to sessions that
// followed this exact node sequence to a conversion outcome. Path equality
// is node-sequence equality over (kind, id) pairs.
func (s *Scorer) PathValue(path []journey.NodeRef) float64 {
	return s.PathValueAt(s.graph.Snapshot(), path)
}

// PathValueAt computes PathValue against an already-taken snapshot.
func (s *Scorer) PathValueAt(snap *journey.Snapshot, path []journey.NodeRef) float64 {
	key := journey.PathKey(path)
	return s.memoized(statPathValue, key, snap.Generation, func() float64 {
		var value float64
		for _, sess := range snap.Sessions {
			if !sess.Closed || sess.Bounced {
				continue
			}
			if journey.PathKey(sess.Journey()) == key {
				value += sess.Value
			}
		}
		return value
	})
}

// memoized returns the cached value for (stat, target, generation) or
// computes, stores, and returns it.
func (s *Scorer) memoized(stat, target string, generation uint64, compute func() float64) float64 {
	key := cacheKey{stat: stat, target: target, generation: generation}

	s.mu.Lock()
	if v, ok := s.cache[key]; ok {
		s.mu.Unlock()
		s.hooks.CacheHit(stat)
		return v
	}
	s.mu.Unlock()

	s.hooks.CacheMiss(stat)
	v := compute()

	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()
	return v
}

// ratio divides num by den, resolving a zero denominator to 0.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func pathContains(path []journey.NodeRef, ref journey.NodeRef) bool {
	for _, p := range path {
		if p == ref {
			return true
		}
	}
	return false
}

func journeyTraverses(seq []journey.NodeRef, edge journey.EdgeKey) bool {
	for i := 0; i+1 < len(seq); i++ {
		if seq[i] == edge.From && seq[i+1] == edge.To {
			return true
		}
	}
	return false
}
