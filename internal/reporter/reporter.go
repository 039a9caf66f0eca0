// Package reporter forwards completed timing spans to the log and keeps a
// latency summary of the ones it recognises.
package reporter

import (
	"context"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultSpanName is the tag emitted around storage loads.
const DefaultSpanName = "sload"

const (
	histogramMin      = 1
	histogramMax      = int64(time.Minute)
	histogramSigFigs  = 3
	componentLogField = "span_reporter"
)

// Config configures the span reporter.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	SpanName string `yaml:"span_name"`
}

// Summary describes the span durations seen so far.
type Summary struct {
	Count   int64
	Dropped int64
	Min     time.Duration
	Max     time.Duration
	Mean    time.Duration
	P50     time.Duration
	P90     time.Duration
	P99     time.Duration
}

// Reporter is an sdktrace.SpanExporter. Spans whose name matches the
// configured tag are logged with their duration; all others are ignored.
type Reporter struct {
	log      logrus.FieldLogger
	spanName string

	// hdrhistogram is not safe for concurrent use.
	mu      sync.Mutex
	hist    *hdrhistogram.Histogram
	dropped int64
	closed  bool
}

var _ sdktrace.SpanExporter = (*Reporter)(nil)

// New creates a span reporter.
func New(log logrus.FieldLogger, cfg Config) *Reporter {
	name := cfg.SpanName
	if name == "" {
		name = DefaultSpanName
	}

	return &Reporter{
		log:      log.WithField("component", componentLogField),
		spanName: name,
		hist:     hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
	}
}

// SpanName returns the tag this reporter listens for.
func (r *Reporter) SpanName() string {
	return r.spanName
}

// ExportSpans logs every matching span.
func (r *Reporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	for _, span := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}

		if span.Name() != r.spanName {
			continue
		}

		duration := span.EndTime().Sub(span.StartTime())

		r.log.WithFields(logrus.Fields{
			"name":        span.Name(),
			"duration_ns": duration.Nanoseconds(),
		}).Info("Span completed")

		if err := r.hist.RecordValue(duration.Nanoseconds()); err != nil {
			r.dropped++

			r.log.WithError(err).WithField("duration", duration).
				Debug("Span duration outside histogram range")
		}
	}

	return nil
}

// Shutdown logs the summary and stops accepting spans.
func (r *Reporter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true

	s := r.summaryLocked()
	if s.Count == 0 {
		return ctx.Err()
	}

	r.log.WithFields(logrus.Fields{
		"name":    r.spanName,
		"count":   s.Count,
		"dropped": s.Dropped,
		"min":     s.Min,
		"mean":    s.Mean,
		"p50":     s.P50,
		"p90":     s.P90,
		"p99":     s.P99,
		"max":     s.Max,
	}).Info("Span summary")

	return ctx.Err()
}

// Summary returns the durations recorded so far.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.summaryLocked()
}

func (r *Reporter) summaryLocked() Summary {
	s := Summary{
		Count:   r.hist.TotalCount(),
		Dropped: r.dropped,
	}

	if s.Count == 0 {
		return s
	}

	s.Min = time.Duration(r.hist.Min())
	s.Max = time.Duration(r.hist.Max())
	s.Mean = time.Duration(r.hist.Mean())
	s.P50 = time.Duration(r.hist.ValueAtQuantile(50))
	s.P90 = time.Duration(r.hist.ValueAtQuantile(90))
	s.P99 = time.Duration(r.hist.ValueAtQuantile(99))

	return s
}
