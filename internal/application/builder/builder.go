// Package builder translates behavioral signals into journey graph
// mutations. It owns the write side of the graph: ProcessSignal and Clear
// are the only paths that mutate it.
package builder

import (
	"sync"

	"tripmind-backend/internal/domain/journey"
	pkgerrors "tripmind-backend/pkg/errors"
)

// Builder consumes signals and applies them to the graph one atomic
// mutation at a time. Writers are serialized by the builder's own mutex so
// a visit and a terminal signal for the same session can never interleave.
type Builder struct {
	mu    sync.Mutex
	graph *journey.Graph
}

// New creates a builder over the given graph.
func New(graph *journey.Graph) *Builder {
	return &Builder{graph: graph}
}

// Graph returns the graph this builder mutates.
func (b *Builder) Graph() *journey.Graph {
	return b.graph
}

// ProcessSignal applies one signal to the graph. The mutation is
// all-or-nothing: a malformed signal, or one addressed to a session in a
// state it cannot transition from, is rejected and the graph (generation
// included) is left unchanged. Rejections are local and non-fatal; logging
// them is the caller's concern.
func (b *Builder) ProcessSignal(sig journey.Signal) error {
	if sig == nil {
		return pkgerrors.NewValidation("nil signal")
	}
	if err := sig.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch s := sig.(type) {
	case journey.Visit:
		return b.applyVisit(s)
	case journey.Conversion:
		return b.applyConversion(s)
	case journey.Bounce:
		return b.applyBounce(s)
	default:
		return pkgerrors.NewValidation("unknown signal type")
	}
}

// Clear resets the graph to empty. Idempotent apart from the generation
// increment.
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graph.Clear()
}

// Generation returns the graph's current generation counter.
func (b *Builder) Generation() uint64 {
	return b.graph.Generation()
}

func (b *Builder) applyVisit(v journey.Visit) error {
	intent := journey.IntentRef(v.Intent)
	content := journey.ContentRef(v.ContentID)

	return b.graph.Update(func(tx *journey.Tx) error {
		sess, ok := tx.Session(v.SessionID)
		if ok && sess.Closed() {
			return pkgerrors.NewConflict("session already closed: " + v.SessionID)
		}

		tx.ResolveNode(intent)
		tx.ResolveNode(content)

		if !ok {
			// First visit: the intent node is the session's entry point, so
			// the first traversed edge runs intent -> content.
			sess = tx.CreateSession(v.SessionID, intent, v.Source, v.Timestamp)
			sess.Path = append(sess.Path, intent, content)
			tx.BumpEdge(intent, content, 0)
			return nil
		}

		last := sess.Last()
		sess.Path = append(sess.Path, content)
		tx.BumpEdge(last, content, 0)
		return nil
	})
}

func (b *Builder) applyConversion(c journey.Conversion) error {
	outcome := journey.OutcomeRef(c.Outcome)
	return b.terminate(c.SessionID, outcome, c.Value, false, c)
}

func (b *Builder) applyBounce(bo journey.Bounce) error {
	outcome := journey.OutcomeRef(bo.BounceOutcome())
	return b.terminate(bo.SessionID, outcome, 0, true, bo)
}

// terminate closes a session with the given outcome node, adding the
// terminal edge from the session's last visited node.
func (b *Builder) terminate(sessionID string, outcome journey.NodeRef, value float64, bounced bool, sig journey.Signal) error {
	return b.graph.Update(func(tx *journey.Tx) error {
		sess, ok := tx.Session(sessionID)
		if !ok {
			return pkgerrors.NewNotFound("session has no recorded visits: " + sessionID)
		}
		if sess.Closed() {
			return pkgerrors.NewConflict("session already closed: " + sessionID)
		}

		tx.ResolveNode(outcome)
		tx.BumpEdge(sess.Last(), outcome, value)

		sess.State = journey.SessionClosed
		sess.Outcome = outcome
		sess.Bounced = bounced
		sess.Value = value
		sess.EndedAt = sig.When()
		return nil
	})
}
