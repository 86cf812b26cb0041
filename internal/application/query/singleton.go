package query

import (
	"sync"

	"tripmind-backend/internal/application/builder"
	"tripmind-backend/internal/application/scorer"
	"tripmind-backend/internal/domain/journey"
)

// The package-level engine serves callers that have no DI container handle,
// such as lightweight instrumentation hooks. Production wiring constructs
// its own Engine through internal/di and passes it by reference; tests that
// touch the default instance must call Reset for isolation.

var (
	defaultMu     sync.Mutex
	defaultEngine *Engine
)

// Default returns the process-wide engine, constructing it lazily over a
// fresh graph on first use.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		graph := journey.NewGraph()
		defaultEngine = NewEngine(builder.New(graph), scorer.New(graph))
	}
	return defaultEngine
}

// Reset discards the process-wide engine along with its builder, scorer,
// and graph. The next Default call constructs a fresh instance.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultEngine = nil
}
