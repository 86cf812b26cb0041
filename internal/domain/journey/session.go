package journey

import (
	"time"
)

// SessionState is the lifecycle state of a tracked session.
type SessionState string

const (
	// SessionOpen means the session has visits but no terminal signal yet.
	SessionOpen SessionState = "open"
	// SessionClosed means a conversion or bounce has been recorded. A closed
	// session is immutable for scoring purposes.
	SessionClosed SessionState = "closed"
)

// Session is the per-visitor unit of journey tracking. It holds the ordered
// node path the session traced through the graph and, once closed, the
// terminal outcome. A session has at most one terminal outcome.
type Session struct {
	ID      string
	Intent  NodeRef
	Source  string
	Path    []NodeRef
	State   SessionState
	Outcome NodeRef
	Bounced bool
	Value   float64

	StartedAt time.Time
	EndedAt   time.Time
}

// Closed reports whether a terminal signal has been recorded.
func (s *Session) Closed() bool {
	return s.State == SessionClosed
}

// Last returns the most recently visited node.
func (s *Session) Last() NodeRef {
	if len(s.Path) == 0 {
		return NodeRef{}
	}
	return s.Path[len(s.Path)-1]
}
