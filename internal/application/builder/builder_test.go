package builder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmind-backend/internal/domain/journey"
	pkgerrors "tripmind-backend/pkg/errors"
)

func visit(session, intent, content string) journey.Visit {
	return journey.Visit{
		SessionID: session,
		Intent:    intent,
		Source:    "organic",
		ContentID: content,
		Timestamp: time.Now(),
	}
}

func TestProcessSignal_FirstVisitOpensSession(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "paris-hotels")))

	snap := g.Snapshot()
	require.Len(t, snap.Sessions, 1)
	sess := snap.Sessions[0]
	assert.False(t, sess.Closed)
	assert.Equal(t, journey.IntentRef("search"), sess.Intent)
	assert.Equal(t, []journey.NodeRef{
		journey.IntentRef("search"),
		journey.ContentRef("paris-hotels"),
	}, sess.Path)

	// First traversed edge runs from the intent entry point to the content.
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, journey.IntentRef("search"), snap.Edges[0].Key.From)
	assert.Equal(t, journey.ContentRef("paris-hotels"), snap.Edges[0].Key.To)
	assert.EqualValues(t, 1, snap.Edges[0].Count)
}

func TestProcessSignal_LaterVisitsExtendPath(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "paris-hotels")))
	require.NoError(t, b.ProcessSignal(visit("s1", "search", "eiffel-tower")))

	seq, ok := g.Journey("s1")
	require.True(t, ok)
	assert.Equal(t, []journey.NodeRef{
		journey.IntentRef("search"),
		journey.ContentRef("paris-hotels"),
		journey.ContentRef("eiffel-tower"),
	}, seq)

	snap := g.Snapshot()
	assert.Len(t, snap.Edges, 2)
}

func TestProcessSignal_ConversionClosesSession(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "paris-hotels")))
	require.NoError(t, b.ProcessSignal(journey.Conversion{
		SessionID: "s1",
		Outcome:   "booking",
		Value:     120,
		Timestamp: time.Now(),
	}))

	snap := g.Snapshot()
	sess := snap.Sessions[0]
	assert.True(t, sess.Closed)
	assert.False(t, sess.Bounced)
	assert.Equal(t, journey.OutcomeRef("booking"), sess.Outcome)
	assert.EqualValues(t, 120, sess.Value)

	var terminal *journey.Edge
	for i := range snap.Edges {
		if snap.Edges[i].Key.To == journey.OutcomeRef("booking") {
			terminal = &snap.Edges[i]
		}
	}
	require.NotNil(t, terminal)
	assert.Equal(t, journey.ContentRef("paris-hotels"), terminal.Key.From)
	assert.EqualValues(t, 120, terminal.ValueSum)
}

func TestProcessSignal_BounceDefaultsOutcome(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "browse", "blog-post")))
	require.NoError(t, b.ProcessSignal(journey.Bounce{SessionID: "s1", Timestamp: time.Now()}))

	snap := g.Snapshot()
	sess := snap.Sessions[0]
	assert.True(t, sess.Closed)
	assert.True(t, sess.Bounced)
	assert.Equal(t, journey.OutcomeRef(journey.DefaultBounceOutcome), sess.Outcome)
}

func TestProcessSignal_BounceHonorsExplicitOutcome(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "browse", "blog-post")))
	require.NoError(t, b.ProcessSignal(journey.Bounce{
		SessionID: "s1",
		Outcome:   "rage-quit",
		Timestamp: time.Now(),
	}))

	assert.Equal(t, journey.OutcomeRef("rage-quit"), g.Snapshot().Sessions[0].Outcome)
}

func TestProcessSignal_MalformedSignalLeavesGraphUntouched(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	tests := []struct {
		name string
		sig  journey.Signal
	}{
		{"visit missing session", journey.Visit{Intent: "search", ContentID: "paris"}},
		{"visit missing intent", journey.Visit{SessionID: "s1", ContentID: "paris"}},
		{"visit missing content", journey.Visit{SessionID: "s1", Intent: "search"}},
		{"conversion missing session", journey.Conversion{Outcome: "booking"}},
		{"conversion missing outcome", journey.Conversion{SessionID: "s1"}},
		{"conversion negative value", journey.Conversion{SessionID: "s1", Outcome: "booking", Value: -1}},
		{"bounce missing session", journey.Bounce{}},
		{"nil signal", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.ProcessSignal(tt.sig)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
			assert.EqualValues(t, 0, g.Generation())
			assert.Equal(t, 0, g.Stats().Nodes)
		})
	}
}

func TestProcessSignal_TerminalSignalWithoutVisitsRejected(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	err := b.ProcessSignal(journey.Conversion{SessionID: "ghost", Outcome: "booking"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.EqualValues(t, 0, g.Generation())
}

func TestProcessSignal_ClosedSessionRejectsFurtherSignals(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "paris-hotels")))
	require.NoError(t, b.ProcessSignal(journey.Bounce{SessionID: "s1"}))
	gen := g.Generation()

	for _, sig := range []journey.Signal{
		visit("s1", "search", "eiffel-tower"),
		journey.Conversion{SessionID: "s1", Outcome: "booking", Value: 5},
		journey.Bounce{SessionID: "s1"},
	} {
		err := b.ProcessSignal(sig)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsConflict(err))
	}

	// Rejected signals never advance the generation.
	assert.Equal(t, gen, g.Generation())
}

func TestProcessSignal_GenerationBumpsOncePerAppliedSignal(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "a")))
	require.NoError(t, b.ProcessSignal(visit("s1", "search", "b")))
	require.NoError(t, b.ProcessSignal(journey.Conversion{SessionID: "s1", Outcome: "booking"}))
	assert.EqualValues(t, 3, b.Generation())
}

func TestClear_EmptiesGraph(t *testing.T) {
	g := journey.NewGraph()
	b := New(g)

	require.NoError(t, b.ProcessSignal(visit("s1", "search", "a")))
	gen := g.Generation()

	b.Clear()
	st := g.Stats()
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, 0, st.Nodes)
	assert.Equal(t, gen+1, g.Generation())
}
