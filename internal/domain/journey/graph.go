package journey

import (
	"sort"
	"sync"
	"time"
)

// Graph is the in-memory journey graph store: nodes, weighted edges, and
// per-session path state, guarded by a read-write lock. It has no behavior
// beyond storage and mutation primitives; signal translation is the
// builder's job and derived statistics are the scorer's.
//
// Every successful mutation bumps the generation counter exactly once, which
// is what lets the scorer invalidate memoized aggregates without re-walking
// the graph on every query.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[NodeRef]*Node
	edges      map[EdgeKey]*Edge
	sessions   map[string]*Session
	generation uint64
}

// NewGraph creates an empty journey graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[NodeRef]*Node),
		edges:    make(map[EdgeKey]*Edge),
		sessions: make(map[string]*Session),
	}
}

// Tx exposes the mutation primitives to an Update closure. All primitives
// run under the graph's write lock; a closure must perform every
// precondition check before its first mutating call so a rejected signal
// leaves the graph untouched.
type Tx struct {
	g   *Graph
	now time.Time
}

// ResolveNode returns the node for ref, creating it on first reference.
func (tx *Tx) ResolveNode(ref NodeRef) *Node {
	if n, ok := tx.g.nodes[ref]; ok {
		return n
	}
	n := &Node{Ref: ref, FirstSeen: tx.now}
	tx.g.nodes[ref] = n
	return n
}

// BumpEdge increments the traversal count of the (from, to) edge, creating
// it if needed, and accumulates value into its value sum.
func (tx *Tx) BumpEdge(from, to NodeRef, value float64) *Edge {
	key := EdgeKey{From: from, To: to}
	e, ok := tx.g.edges[key]
	if !ok {
		e = &Edge{Key: key}
		tx.g.edges[key] = e
	}
	e.Count++
	e.ValueSum += value
	return e
}

// Session looks up an existing session.
func (tx *Tx) Session(id string) (*Session, bool) {
	s, ok := tx.g.sessions[id]
	return s, ok
}

// CreateSession registers a new open session.
func (tx *Tx) CreateSession(id string, intent NodeRef, source string, at time.Time) *Session {
	s := &Session{
		ID:        id,
		Intent:    intent,
		Source:    source,
		State:     SessionOpen,
		StartedAt: at,
	}
	tx.g.sessions[id] = s
	return s
}

// Update runs fn under the write lock and bumps the generation counter if
// it succeeds. When fn returns an error the closure must not have mutated
// anything; the generation is left unchanged so cached scores stay valid.
func (g *Graph) Update(fn func(tx *Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := fn(&Tx{g: g, now: time.Now()}); err != nil {
		return err
	}
	g.generation++
	return nil
}

// Clear resets nodes, edges, and sessions to empty and bumps the generation
// counter. Clearing an already-empty graph is a no-op other than the
// generation increment.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[NodeRef]*Node)
	g.edges = make(map[EdgeKey]*Edge)
	g.sessions = make(map[string]*Session)
	g.generation++
}

// Generation returns the current generation counter.
func (g *Graph) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// SessionSnapshot is the read-only copy of one session published in a
// Snapshot.
type SessionSnapshot struct {
	ID      string
	Intent  NodeRef
	Source  string
	Path    []NodeRef
	Closed  bool
	Outcome NodeRef
	Bounced bool
	Value   float64
}

// Journey returns the full node sequence the session traced: the visited
// path plus, for a closed session, its outcome node.
func (s SessionSnapshot) Journey() []NodeRef {
	if !s.Closed {
		return s.Path
	}
	j := make([]NodeRef, 0, len(s.Path)+1)
	j = append(j, s.Path...)
	j = append(j, s.Outcome)
	return j
}

// Snapshot is a consistent, immutable copy of the graph taken under the
// read lock. Slices are sorted so every walk over a snapshot of the same
// generation is deterministic.
type Snapshot struct {
	Generation uint64
	Nodes      []Node
	Edges      []Edge
	Sessions   []SessionSnapshot
}

// Snapshot copies the current graph state along with its generation.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{
		Generation: g.generation,
		Nodes:      make([]Node, 0, len(g.nodes)),
		Edges:      make([]Edge, 0, len(g.edges)),
		Sessions:   make([]SessionSnapshot, 0, len(g.sessions)),
	}
	for _, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, *n)
	}
	for _, e := range g.edges {
		snap.Edges = append(snap.Edges, *e)
	}
	for _, s := range g.sessions {
		path := make([]NodeRef, len(s.Path))
		copy(path, s.Path)
		snap.Sessions = append(snap.Sessions, SessionSnapshot{
			ID:      s.ID,
			Intent:  s.Intent,
			Source:  s.Source,
			Path:    path,
			Closed:  s.Closed(),
			Outcome: s.Outcome,
			Bounced: s.Bounced,
			Value:   s.Value,
		})
	}

	sort.Slice(snap.Nodes, func(i, j int) bool {
		return snap.Nodes[i].Ref.String() < snap.Nodes[j].Ref.String()
	})
	sort.Slice(snap.Edges, func(i, j int) bool {
		return snap.Edges[i].Key.String() < snap.Edges[j].Key.String()
	})
	sort.Slice(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].ID < snap.Sessions[j].ID
	})
	return snap
}

// Stats summarizes graph volume for dashboards and query metadata.
type Stats struct {
	Generation     uint64 `json:"generation"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	Sessions       int    `json:"sessions"`
	OpenSessions   int    `json:"openSessions"`
	ClosedSessions int    `json:"closedSessions"`
	Conversions    int    `json:"conversions"`
	Bounces        int    `json:"bounces"`
}

// Stats counts nodes, edges, and sessions by state.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{
		Generation: g.generation,
		Nodes:      len(g.nodes),
		Edges:      len(g.edges),
		Sessions:   len(g.sessions),
	}
	for _, s := range g.sessions {
		if s.Closed() {
			st.ClosedSessions++
			if s.Bounced {
				st.Bounces++
			} else {
				st.Conversions++
			}
		} else {
			st.OpenSessions++
		}
	}
	return st
}

// Journey returns the node sequence traced by one session, outcome
// included for closed sessions.
func (g *Graph) Journey(sessionID string) ([]NodeRef, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, false
	}
	j := make([]NodeRef, 0, len(s.Path)+1)
	j = append(j, s.Path...)
	if s.Closed() {
		j = append(j, s.Outcome)
	}
	return j, true
}
