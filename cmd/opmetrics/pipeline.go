package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/opmetrics/internal/aggregator"
	"github.com/ethpandaops/opmetrics/internal/codec"
	"github.com/ethpandaops/opmetrics/internal/config"
	"github.com/ethpandaops/opmetrics/internal/cycles"
	"github.com/ethpandaops/opmetrics/internal/metrics"
	"github.com/ethpandaops/opmetrics/internal/reporter"
)

// decodeSpanName names the span emitted around each input file.
const decodeSpanName = "decode"

// errConvertedInput is returned for an input that is no longer in cycles.
var errConvertedInput = errors.New("input record already converted to time")

// aggregateFiles decodes every path concurrently and merges the records
// through a single aggregator. The result is still in cycles.
func aggregateFiles(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *config.Config,
	paths []string,
) (*metrics.Record, error) {
	tracer, shutdown := newTracer(log, cfg.Reporter)
	defer shutdown()

	agg := aggregator.New(log, cfg.Aggregator, prometheus.NewRegistry())
	if err := agg.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting aggregator: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, path := range paths {
		g.Go(func() error {
			rec, err := decodeFile(gctx, tracer, path)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"path":    path,
				"updated": rec.HasData(),
			}).Debug("Decoded record")

			return agg.Submit(gctx, rec)
		})
	}

	werr := g.Wait()

	rec, err := agg.Stop()
	if err != nil {
		return nil, fmt.Errorf("stopping aggregator: %w", err)
	}

	if werr != nil {
		return nil, werr
	}

	return rec, nil
}

func decodeFile(ctx context.Context, tracer trace.Tracer, path string) (*metrics.Record, error) {
	_, span := tracer.Start(ctx, decodeSpanName,
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rec, err := codec.Read(f, codec.CompressionFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if rec.Unit() != cycles.Cycles {
		return nil, fmt.Errorf("%s: %w (%s)", path, errConvertedInput, rec.Unit())
	}

	return rec, nil
}

// newTracer returns a tracer feeding the span reporter when enabled and a
// no-op tracer otherwise.
func newTracer(log logrus.FieldLogger, cfg reporter.Config) (trace.Tracer, func()) {
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer("opmetrics"), func() {}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(reporter.New(log, cfg)),
	)

	return tp.Tracer("opmetrics"), func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("Tracer shutdown failed")
		}
	}
}
