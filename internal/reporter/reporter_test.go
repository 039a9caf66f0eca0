package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestReporter(cfg Config) (*Reporter, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	return New(log, cfg), hook
}

func span(name string, d time.Duration) sdktrace.ReadOnlySpan {
	return tracetest.SpanStub{
		Name:      name,
		StartTime: epoch,
		EndTime:   epoch.Add(d),
	}.Snapshot()
}

func TestReporter_DefaultSpanName(t *testing.T) {
	r, _ := newTestReporter(Config{})
	assert.Equal(t, "sload", r.SpanName())

	r, _ = newTestReporter(Config{SpanName: "decode"})
	assert.Equal(t, "decode", r.SpanName())
}

func TestReporter_LogsMatchingSpans(t *testing.T) {
	r, hook := newTestReporter(Config{})

	err := r.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		span("sload", 1500*time.Nanosecond),
		span("sstore", time.Millisecond),
		span("sload", 2*time.Microsecond),
	})
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, logrus.InfoLevel, first.Level)
	assert.Equal(t, "span_reporter", first.Data["component"])
	assert.Equal(t, "sload", first.Data["name"])
	assert.Equal(t, int64(1500), first.Data["duration_ns"])

	assert.Equal(t, int64(2000), entries[1].Data["duration_ns"])

	assert.Equal(t, int64(2), r.Summary().Count)
}

func TestReporter_IgnoresOtherSpans(t *testing.T) {
	r, hook := newTestReporter(Config{})

	err := r.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		span("call", time.Millisecond),
		span("SLOAD", time.Millisecond),
	})
	require.NoError(t, err)

	assert.Empty(t, hook.AllEntries())
	assert.Equal(t, Summary{}, r.Summary())
}

func TestReporter_Summary(t *testing.T) {
	r, _ := newTestReporter(Config{})

	spans := make([]sdktrace.ReadOnlySpan, 0, 100)
	for i := 1; i <= 100; i++ {
		spans = append(spans, span("sload", time.Duration(i)*time.Millisecond))
	}

	require.NoError(t, r.ExportSpans(context.Background(), spans))

	s := r.Summary()
	assert.Equal(t, int64(100), s.Count)
	assert.Zero(t, s.Dropped)
	assert.InEpsilon(t, float64(time.Millisecond), float64(s.Min), 0.01)
	assert.InEpsilon(t, float64(100*time.Millisecond), float64(s.Max), 0.01)
	assert.InEpsilon(t, float64(50*time.Millisecond), float64(s.P50), 0.01)
	assert.InEpsilon(t, float64(90*time.Millisecond), float64(s.P90), 0.01)
	assert.InEpsilon(t, float64(99*time.Millisecond), float64(s.P99), 0.01)
	assert.InEpsilon(t, float64(50500*time.Microsecond), float64(s.Mean), 0.01)
}

func TestReporter_DropsOutOfRange(t *testing.T) {
	r, hook := newTestReporter(Config{})

	require.NoError(t, r.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		span("sload", 2*time.Hour),
	}))

	s := r.Summary()
	assert.Zero(t, s.Count)
	assert.Equal(t, int64(1), s.Dropped)

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.DebugLevel, last.Level)
}

func TestReporter_Shutdown(t *testing.T) {
	r, hook := newTestReporter(Config{})

	require.NoError(t, r.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		span("sload", time.Microsecond),
	}))
	require.NoError(t, r.Shutdown(context.Background()))

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, "Span summary", last.Message)
	assert.Equal(t, int64(1), last.Data["count"])

	hook.Reset()

	// Spans after shutdown are discarded.
	require.NoError(t, r.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		span("sload", time.Microsecond),
	}))
	assert.Empty(t, hook.AllEntries())
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestReporter_ExportHonoursContext(t *testing.T) {
	r, _ := newTestReporter(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.ExportSpans(ctx, []sdktrace.ReadOnlySpan{span("sload", time.Microsecond)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestReporter_WithTracerProvider(t *testing.T) {
	r, hook := newTestReporter(Config{})

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(r))
	tracer := tp.Tracer("opmetrics")

	_, s := tracer.Start(context.Background(), "sload")
	s.End()

	_, s = tracer.Start(context.Background(), "call")
	s.End()

	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Equal(t, int64(1), r.Summary().Count)

	var names []string
	for _, e := range hook.AllEntries() {
		names = append(names, e.Message)
	}

	assert.Equal(t, []string{"Span completed", "Span summary"}, names)
}
