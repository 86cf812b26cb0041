package scorer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbuilder "tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/domain/journey"
	"tripmind-backend/tests/fixtures"
)

type countingHooks struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (h *countingHooks) CacheHit(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hits++
}

func (h *countingHooks) CacheMiss(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.misses++
}

func newScoredGraph(t *testing.T) (*journey.Graph, *appbuilder.Builder, *Scorer) {
	t.Helper()
	g := journey.NewGraph()
	b := appbuilder.New(g)
	return g, b, New(g)
}

func TestFailureRate_SearchVsBrowse(t *testing.T) {
	_, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)

	assert.Equal(t, 0.0, s.FailureRate(journey.IntentRef("search")))
	assert.Equal(t, 1.0, s.FailureRate(journey.IntentRef("browse")))
}

func TestFailureRate_ZeroDenominatorResolvesToZero(t *testing.T) {
	_, _, s := newScoredGraph(t)
	assert.Equal(t, 0.0, s.FailureRate(journey.IntentRef("never-seen")))
}

func TestFailureRate_AlwaysInUnitInterval(t *testing.T) {
	_, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)
	fixtures.MustProcess(b,
		fixtures.NewVisitBuilder().WithSession("open-1").WithIntent("search").Build(),
	)

	for _, intent := range []string{"search", "browse", "missing"} {
		rate := s.FailureRate(journey.IntentRef(intent))
		assert.GreaterOrEqual(t, rate, 0.0, intent)
		assert.LessOrEqual(t, rate, 1.0, intent)
	}
}

func TestFailureRate_OpenSessionsCountTowardVolume(t *testing.T) {
	_, b, s := newScoredGraph(t)
	// One bounced session and one still-open session for the same intent.
	fixtures.MustProcess(b,
		fixtures.NewVisitBuilder().WithSession("s1").WithIntent("browse").WithContent("blog").Build(),
		fixtures.NewBounceBuilder().WithSession("s1").Build(),
		fixtures.NewVisitBuilder().WithSession("s2").WithIntent("browse").WithContent("blog").Build(),
	)
	assert.Equal(t, 0.5, s.FailureRate(journey.IntentRef("browse")))
}

func TestBreakRate_LastContentBeforeBounce(t *testing.T) {
	_, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)

	assert.Equal(t, 1.0, s.BreakRate(journey.ContentRef("blog-post")))
	assert.Equal(t, 0.0, s.BreakRate(journey.ContentRef("paris-hotels")))
}

func TestBreakRate_OnlyLastVisitedNodeBreaks(t *testing.T) {
	_, b, s := newScoredGraph(t)
	// Session walks a -> b then bounces; a was visited but is not the break
	// point.
	fixtures.MustProcess(b,
		fixtures.NewVisitBuilder().WithSession("s1").WithIntent("browse").WithContent("a").Build(),
		fixtures.NewVisitBuilder().WithSession("s1").WithIntent("browse").WithContent("b").Build(),
		fixtures.NewBounceBuilder().WithSession("s1").Build(),
	)

	assert.Equal(t, 0.0, s.BreakRate(journey.ContentRef("a")))
	assert.Equal(t, 1.0, s.BreakRate(journey.ContentRef("b")))
}

func TestDropOffRate_BouncedVsConverted(t *testing.T) {
	_, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)

	bounceEdge := journey.EdgeKey{
		From: journey.ContentRef("blog-post"),
		To:   journey.OutcomeRef(journey.DefaultBounceOutcome),
	}
	convertEdge := journey.EdgeKey{
		From: journey.IntentRef("search"),
		To:   journey.ContentRef("paris-hotels"),
	}
	assert.Equal(t, 1.0, s.DropOffRate(bounceEdge))
	assert.Equal(t, 0.0, s.DropOffRate(convertEdge))
	assert.Equal(t, 0.0, s.DropOffRate(journey.EdgeKey{
		From: journey.ContentRef("nowhere"),
		To:   journey.ContentRef("else"),
	}))
}

func TestPathValue_ExactSequenceOnly(t *testing.T) {
	_, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)

	converted := []journey.NodeRef{
		journey.IntentRef("search"),
		journey.ContentRef("paris-hotels"),
		journey.OutcomeRef("booking"),
	}
	assert.Equal(t, 200.0, s.PathValue(converted))

	// A prefix of the journey is a different path and carries no value.
	assert.Equal(t, 0.0, s.PathValue(converted[:2]))

	bounced := []journey.NodeRef{
		journey.IntentRef("browse"),
		journey.ContentRef("blog-post"),
		journey.OutcomeRef(journey.DefaultBounceOutcome),
	}
	assert.Equal(t, 0.0, s.PathValue(bounced))
}

func TestScorer_CacheHitSkipsRecomputation(t *testing.T) {
	_, b, _ := newScoredGraph(t)
	hooks := &countingHooks{}
	s := New(b.Graph()).WithHooks(hooks)
	fixtures.SearchVsBrowse(b)

	first := s.FailureRate(journey.IntentRef("browse"))
	second := s.FailureRate(journey.IntentRef("browse"))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, hooks.misses)
	assert.Equal(t, 1, hooks.hits)
}

func TestScorer_GenerationChangeInvalidatesImplicitly(t *testing.T) {
	_, b, _ := newScoredGraph(t)
	hooks := &countingHooks{}
	s := New(b.Graph()).WithHooks(hooks)
	fixtures.SearchVsBrowse(b)

	assert.Equal(t, 1.0, s.FailureRate(journey.IntentRef("browse")))

	// A new browse session that converts halves the failure rate. No cache
	// clear needed: the old entry is keyed to the old generation.
	fixtures.MustProcess(b,
		fixtures.NewVisitBuilder().WithSession("late").WithIntent("browse").WithContent("blog-post").Build(),
		fixtures.NewConversionBuilder().WithSession("late").WithOutcome("booking").WithValue(10).Build(),
	)
	assert.Equal(t, 0.75, s.FailureRate(journey.IntentRef("browse")))
	assert.Equal(t, 2, hooks.misses)
}

func TestClearCache_RecomputesIdentically(t *testing.T) {
	g, b, s := newScoredGraph(t)
	fixtures.SearchVsBrowse(b)

	cached := s.FailureRate(journey.IntentRef("browse"))
	gen := g.Generation()

	s.ClearCache()
	assert.Equal(t, gen, g.Generation(), "ClearCache must not touch the generation")
	assert.Equal(t, cached, s.FailureRate(journey.IntentRef("browse")))
}

func TestScorer_AtVariantsShareCacheWithSnapshot(t *testing.T) {
	_, b, _ := newScoredGraph(t)
	hooks := &countingHooks{}
	s := New(b.Graph()).WithHooks(hooks)
	fixtures.SearchVsBrowse(b)

	snap := b.Graph().Snapshot()
	require.Equal(t, 1.0, s.FailureRateAt(snap, journey.IntentRef("browse")))
	require.Equal(t, 1.0, s.FailureRate(journey.IntentRef("browse")))
	assert.Equal(t, 1, hooks.misses)
	assert.Equal(t, 1, hooks.hits)
}
