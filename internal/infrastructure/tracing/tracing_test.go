package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordedProvider(t *testing.T) (*TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tp := New(provider, "test")
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return tp, recorder
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTraceQuery_RecordsTypedSpan(t *testing.T) {
	tp, recorder := newRecordedProvider(t)

	ran := false
	tp.TraceQuery(context.Background(), "failing_intents", func(context.Context) {
		ran = true
	})

	require.True(t, ran)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "query.execute", spans[0].Name())

	v, ok := attrValue(spans[0], "query.type")
	require.True(t, ok)
	assert.Equal(t, "failing_intents", v.AsString())
}

func TestTraceReplay_RecordsAppliedCount(t *testing.T) {
	tp, recorder := newRecordedProvider(t)

	tp.TraceReplay(context.Background(), func(context.Context) int {
		return 7
	})

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "signallog.replay", spans[0].Name())

	v, ok := attrValue(spans[0], "signals.applied")
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt64())
}

func TestStartSpan_EndsCleanly(t *testing.T) {
	tp, recorder := newRecordedProvider(t)

	_, span := tp.StartSpan(context.Background(), "ingest")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingest", spans[0].Name())
}
