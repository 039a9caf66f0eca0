// Package aggregator reduces records produced by independent execution
// passes into a single aggregate owned by one goroutine.
package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/opmetrics/internal/metrics"
)

// DefaultQueueSize is used when Config.QueueSize is not positive.
const DefaultQueueSize = 64

var (
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("aggregator not started")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("aggregator stopped")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("aggregator already started")
)

// Config configures the merge coordinator.
type Config struct {
	// QueueSize bounds the number of records waiting to be merged.
	QueueSize int `yaml:"queue_size"`
}

// Aggregator owns the target record. Records handed to Submit are merged in
// arrival order by a single goroutine, so the target is never merged
// concurrently.
type Aggregator struct {
	log     logrus.FieldLogger
	metrics *Metrics

	target *metrics.Record
	queue  chan *metrics.Record
	done   chan struct{}

	mu      sync.RWMutex
	started bool
	stopped bool
	senders sync.WaitGroup

	merged  uint64
	skipped uint64
}

// New creates an aggregator. reg may be nil.
func New(log logrus.FieldLogger, cfg Config, reg prometheus.Registerer) *Aggregator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	a := &Aggregator{
		log:     log.WithField("component", "aggregator"),
		metrics: NewMetrics(reg),
		target:  &metrics.Record{},
		queue:   make(chan *metrics.Record, cfg.QueueSize),
		done:    make(chan struct{}),
	}

	a.metrics.QueueCapacity.Set(float64(cfg.QueueSize))

	return a
}

// Start launches the merge loop.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	a.started = true

	go a.runLoop()

	a.log.WithField("queue_size", cap(a.queue)).Debug("Aggregator started")

	return nil
}

// Submit hands rec to the aggregator. The caller must not touch rec
// afterwards. Submit blocks while the queue is full and returns ctx.Err()
// if ctx ends first.
func (a *Aggregator) Submit(ctx context.Context, rec *metrics.Record) error {
	a.mu.RLock()

	switch {
	case !a.started:
		a.mu.RUnlock()

		return ErrNotStarted
	case a.stopped:
		a.mu.RUnlock()

		return ErrStopped
	}

	a.senders.Add(1)
	a.mu.RUnlock()

	defer a.senders.Done()

	select {
	case a.queue <- rec:
		a.metrics.QueueLength.Set(float64(len(a.queue)))

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains every queued record and returns the aggregate. The returned
// record is still denominated in cycles.
func (a *Aggregator) Stop() (*metrics.Record, error) {
	a.mu.Lock()

	if !a.started {
		a.mu.Unlock()

		return nil, ErrNotStarted
	}

	if a.stopped {
		a.mu.Unlock()

		return nil, ErrStopped
	}

	a.stopped = true
	a.mu.Unlock()

	// No new senders can register once stopped is set.
	a.senders.Wait()
	close(a.queue)
	<-a.done

	a.log.WithFields(logrus.Fields{
		"merged":  a.merged,
		"skipped": a.skipped,
	}).Info("Aggregator stopped")

	return a.target, nil
}

func (a *Aggregator) runLoop() {
	defer close(a.done)

	for rec := range a.queue {
		a.metrics.QueueLength.Set(float64(len(a.queue)))
		a.merge(rec)
	}
}

func (a *Aggregator) merge(rec *metrics.Record) {
	if rec == nil || !rec.HasData() {
		a.skipped++
		a.metrics.RecordsSkipped.Inc()

		return
	}

	start := time.Now()

	a.target.Merge(rec)

	a.merged++
	a.metrics.RecordsMerged.Inc()
	a.metrics.MergeDuration.Observe(time.Since(start).Seconds())
}
