package journey

import (
	"time"

	pkgerrors "tripmind-backend/pkg/errors"
)

// Signal is one observed behavioral event, tagged with a session id and
// timestamp. The concrete types form a closed union: Visit, Conversion,
// Bounce.
type Signal interface {
	// Session returns the id of the session the signal belongs to.
	Session() string
	// When returns the signal timestamp.
	When() time.Time
	// Validate checks the signal's own shape, independent of graph state.
	Validate() error

	isSignal()
}

// Visit records a session viewing a piece of content in pursuit of an
// intent. A visit never terminates a session.
type Visit struct {
	SessionID string
	Intent    string
	Source    string
	ContentID string
	Timestamp time.Time
}

// Conversion records a session reaching a valuable terminal outcome.
type Conversion struct {
	SessionID string
	Outcome   string
	Value     float64
	Timestamp time.Time
}

// Bounce records a session abandoning its journey. Outcome is optional and
// defaults to the shared "bounce" outcome node.
type Bounce struct {
	SessionID string
	Outcome   string
	Timestamp time.Time
}

func (v Visit) Session() string      { return v.SessionID }
func (c Conversion) Session() string { return c.SessionID }
func (b Bounce) Session() string     { return b.SessionID }

func (v Visit) When() time.Time      { return v.Timestamp }
func (c Conversion) When() time.Time { return c.Timestamp }
func (b Bounce) When() time.Time     { return b.Timestamp }

func (Visit) isSignal()      {}
func (Conversion) isSignal() {}
func (Bounce) isSignal()     {}

// Validate checks required visit fields.
func (v Visit) Validate() error {
	if v.SessionID == "" {
		return pkgerrors.NewValidation("visit signal missing session id")
	}
	if v.Intent == "" {
		return pkgerrors.NewValidation("visit signal missing intent")
	}
	if v.ContentID == "" {
		return pkgerrors.NewValidation("visit signal missing content id")
	}
	return nil
}

// Validate checks required conversion fields.
func (c Conversion) Validate() error {
	if c.SessionID == "" {
		return pkgerrors.NewValidation("conversion signal missing session id")
	}
	if c.Outcome == "" {
		return pkgerrors.NewValidation("conversion signal missing outcome")
	}
	if c.Value < 0 {
		return pkgerrors.NewValidation("conversion value cannot be negative")
	}
	return nil
}

// Validate checks required bounce fields.
func (b Bounce) Validate() error {
	if b.SessionID == "" {
		return pkgerrors.NewValidation("bounce signal missing session id")
	}
	return nil
}

// DefaultBounceOutcome is the outcome node id used when a bounce signal
// carries no explicit outcome.
const DefaultBounceOutcome = "bounce"

// BounceOutcome returns the effective outcome id for a bounce signal.
func (b Bounce) BounceOutcome() string {
	if b.Outcome != "" {
		return b.Outcome
	}
	return DefaultBounceOutcome
}
