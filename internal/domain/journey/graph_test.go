package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRef_Identity(t *testing.T) {
	assert.Equal(t, IntentRef("search"), NodeRef{Kind: KindIntent, ID: "search"})
	assert.NotEqual(t, IntentRef("search"), ContentRef("search"))
	assert.Equal(t, "intent:search", IntentRef("search").String())
	assert.True(t, NodeRef{}.IsZero())
	assert.False(t, IntentRef("search").IsZero())
}

func TestGraph_UpdateBumpsGenerationOncePerMutation(t *testing.T) {
	g := NewGraph()
	require.EqualValues(t, 0, g.Generation())

	err := g.Update(func(tx *Tx) error {
		tx.ResolveNode(IntentRef("search"))
		tx.ResolveNode(ContentRef("paris"))
		tx.BumpEdge(IntentRef("search"), ContentRef("paris"), 0)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, g.Generation())

	err = g.Update(func(tx *Tx) error {
		tx.BumpEdge(IntentRef("search"), ContentRef("paris"), 0)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, g.Generation())
}

func TestGraph_UpdateErrorLeavesGenerationUnchanged(t *testing.T) {
	g := NewGraph()
	err := g.Update(func(tx *Tx) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.EqualValues(t, 0, g.Generation())
}

func TestGraph_NodesCreatedOnFirstReference(t *testing.T) {
	g := NewGraph()
	_ = g.Update(func(tx *Tx) error {
		first := tx.ResolveNode(IntentRef("search"))
		second := tx.ResolveNode(IntentRef("search"))
		assert.Same(t, first, second)
		return nil
	})
	assert.Equal(t, 1, g.Stats().Nodes)
}

func TestGraph_EdgeCountsMonotonic(t *testing.T) {
	g := NewGraph()
	for i := 0; i < 3; i++ {
		_ = g.Update(func(tx *Tx) error {
			tx.BumpEdge(ContentRef("a"), OutcomeRef("booking"), 25)
			return nil
		})
	}
	snap := g.Snapshot()
	require.Len(t, snap.Edges, 1)
	assert.EqualValues(t, 3, snap.Edges[0].Count)
	assert.EqualValues(t, 75, snap.Edges[0].ValueSum)
}

func TestGraph_ClearResetsEverythingAndBumpsGeneration(t *testing.T) {
	g := NewGraph()
	_ = g.Update(func(tx *Tx) error {
		sess := tx.CreateSession("s1", IntentRef("search"), "organic", time.Now())
		sess.Path = append(sess.Path, IntentRef("search"), ContentRef("paris"))
		tx.ResolveNode(IntentRef("search"))
		tx.ResolveNode(ContentRef("paris"))
		tx.BumpEdge(IntentRef("search"), ContentRef("paris"), 0)
		return nil
	})
	gen := g.Generation()

	g.Clear()
	st := g.Stats()
	assert.Equal(t, 0, st.Nodes)
	assert.Equal(t, 0, st.Edges)
	assert.Equal(t, 0, st.Sessions)
	assert.Equal(t, gen+1, g.Generation())

	// Clearing again is a no-op apart from the generation increment.
	g.Clear()
	assert.Equal(t, gen+2, g.Generation())
	assert.Equal(t, 0, g.Stats().Nodes)
}

func TestGraph_SnapshotIsDeterministicAndIsolated(t *testing.T) {
	g := NewGraph()
	_ = g.Update(func(tx *Tx) error {
		for _, id := range []string{"zeta", "alpha", "mid"} {
			tx.ResolveNode(ContentRef(id))
		}
		tx.BumpEdge(ContentRef("zeta"), ContentRef("alpha"), 0)
		tx.BumpEdge(ContentRef("alpha"), ContentRef("mid"), 0)
		return nil
	})

	first := g.Snapshot()
	second := g.Snapshot()
	assert.Equal(t, first, second)

	// Mutating a snapshot's slices must not leak back into the graph.
	first.Edges[0].Count = 999
	assert.EqualValues(t, 1, g.Snapshot().Edges[0].Count)
}

func TestGraph_JourneyIncludesOutcomeForClosedSessions(t *testing.T) {
	g := NewGraph()
	_ = g.Update(func(tx *Tx) error {
		sess := tx.CreateSession("s1", IntentRef("search"), "", time.Now())
		sess.Path = append(sess.Path, IntentRef("search"), ContentRef("paris"))
		return nil
	})

	seq, ok := g.Journey("s1")
	require.True(t, ok)
	assert.Equal(t, []NodeRef{IntentRef("search"), ContentRef("paris")}, seq)

	_ = g.Update(func(tx *Tx) error {
		sess, _ := tx.Session("s1")
		sess.State = SessionClosed
		sess.Outcome = OutcomeRef("booking")
		return nil
	})

	seq, ok = g.Journey("s1")
	require.True(t, ok)
	assert.Equal(t, OutcomeRef("booking"), seq[len(seq)-1])

	_, ok = g.Journey("missing")
	assert.False(t, ok)
}

func TestPathKey_ExactSequenceEquality(t *testing.T) {
	a := []NodeRef{IntentRef("search"), ContentRef("paris"), OutcomeRef("booking")}
	b := []NodeRef{IntentRef("search"), ContentRef("paris"), OutcomeRef("booking")}
	withLoop := []NodeRef{IntentRef("search"), ContentRef("paris"), ContentRef("paris"), OutcomeRef("booking")}

	assert.Equal(t, PathKey(a), PathKey(b))
	assert.NotEqual(t, PathKey(a), PathKey(withLoop))
	assert.Equal(t, "", PathKey(nil))
}
