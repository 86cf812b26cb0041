// Package journey contains the intent/journey graph: the directed multigraph
// of intents, content, and outcomes traced by visitor sessions, plus the
// behavioral signals that mutate it. It is the storage layer of the analytics
// engine; derived statistics live in the scorer and query packages.
package journey

import (
	"time"
)

// NodeKind distinguishes the three node categories in the journey graph.
type NodeKind string

const (
	// KindIntent is a declared visitor goal (e.g. "search", "browse").
	KindIntent NodeKind = "intent"
	// KindContent is a piece of content a session visited.
	KindContent NodeKind = "content"
	// KindOutcome is a terminal result: a conversion type or a bounce.
	KindOutcome NodeKind = "outcome"
)

// NodeRef identifies a node by (kind, id). It is comparable and used as the
// map key for node and edge lookups.
type NodeRef struct {
	Kind NodeKind `json:"kind"`
	ID   string   `json:"id"`
}

// IntentRef builds a NodeRef for an intent node.
func IntentRef(id string) NodeRef { return NodeRef{Kind: KindIntent, ID: id} }

// ContentRef builds a NodeRef for a content node.
func ContentRef(id string) NodeRef { return NodeRef{Kind: KindContent, ID: id} }

// OutcomeRef builds a NodeRef for an outcome node.
func OutcomeRef(id string) NodeRef { return NodeRef{Kind: KindOutcome, ID: id} }

// String returns the canonical "kind:id" label for the node.
func (r NodeRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// IsZero reports whether the ref is the zero value.
func (r NodeRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// Node is a vertex in the journey graph. Nodes are created on first
// reference and removed only by Clear.
type Node struct {
	Ref       NodeRef
	FirstSeen time.Time
}
