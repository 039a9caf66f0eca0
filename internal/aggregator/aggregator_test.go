package aggregator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/opmetrics/internal/metrics"
)

func testLog() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	return log
}

func opcodeRecord(count uint64) *metrics.Record {
	rec := &metrics.Record{}
	for i := uint64(0); i < count; i++ {
		rec.RecordOpcode(0x01, 100, 3)
	}

	rec.RecordCacheHit(metrics.CacheStorage)

	return rec
}

func startAggregator(t *testing.T, cfg Config, reg prometheus.Registerer) *Aggregator {
	t.Helper()

	a := New(testLog(), cfg, reg)
	require.NoError(t, a.Start(context.Background()))

	return a
}

func TestAggregator_MergesSubmittedRecords(t *testing.T) {
	a := startAggregator(t, Config{QueueSize: 2}, nil)
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, a.Submit(ctx, opcodeRecord(i)))
	}

	agg, err := a.Stop()
	require.NoError(t, err)
	require.NotNil(t, agg.Opcodes)

	stat := agg.Opcodes.Opcodes[0x01]
	assert.Equal(t, uint64(15), stat.Count)
	assert.Equal(t, uint64(1500), stat.Cycles)
	assert.Equal(t, int64(45), stat.Gas)
	assert.Equal(t, uint64(5), agg.Cache.Hits.Get(metrics.CacheStorage))
	assert.True(t, agg.HasData())
}

func TestAggregator_ConcurrentSubmitters(t *testing.T) {
	a := startAggregator(t, Config{QueueSize: 4}, nil)
	ctx := context.Background()

	const workers = 8

	const perWorker = 25

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < perWorker; i++ {
				assert.NoError(t, a.Submit(ctx, opcodeRecord(1)))
			}
		}()
	}

	wg.Wait()

	agg, err := a.Stop()
	require.NoError(t, err)
	assert.Equal(t, uint64(workers*perWorker), agg.Opcodes.TotalCount())
}

func TestAggregator_MatchesFold(t *testing.T) {
	a := startAggregator(t, Config{}, nil)
	ctx := context.Background()

	var expected []*metrics.Record

	for i := uint64(1); i <= 3; i++ {
		expected = append(expected, opcodeRecord(i))
		require.NoError(t, a.Submit(ctx, opcodeRecord(i)))
	}

	agg, err := a.Stop()
	require.NoError(t, err)
	assert.Equal(t, metrics.Fold(expected...), agg)
}

func TestAggregator_EmptyRecordsSkipped(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := startAggregator(t, Config{}, reg)
	ctx := context.Background()

	require.NoError(t, a.Submit(ctx, &metrics.Record{}))
	require.NoError(t, a.Submit(ctx, nil))
	require.NoError(t, a.Submit(ctx, opcodeRecord(1)))

	agg, err := a.Stop()
	require.NoError(t, err)
	assert.True(t, agg.HasData())

	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.RecordsMerged))
	assert.Equal(t, float64(2), testutil.ToFloat64(a.metrics.RecordsSkipped))
	assert.Equal(t, float64(DefaultQueueSize), testutil.ToFloat64(a.metrics.QueueCapacity))

	count, err := testutil.GatherAndCount(reg, "opmetrics_aggregator_merge_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAggregator_NothingSubmitted(t *testing.T) {
	a := startAggregator(t, Config{}, nil)

	agg, err := a.Stop()
	require.NoError(t, err)
	assert.False(t, agg.HasData())
	assert.Nil(t, agg.Opcodes)
}

func TestAggregator_Lifecycle(t *testing.T) {
	a := New(testLog(), Config{}, nil)
	ctx := context.Background()

	require.ErrorIs(t, a.Submit(ctx, opcodeRecord(1)), ErrNotStarted)

	_, err := a.Stop()
	require.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, a.Start(ctx))
	require.ErrorIs(t, a.Start(ctx), ErrAlreadyStarted)

	_, err = a.Stop()
	require.NoError(t, err)

	require.ErrorIs(t, a.Submit(ctx, opcodeRecord(1)), ErrStopped)

	_, err = a.Stop()
	require.ErrorIs(t, err, ErrStopped)
}

func TestAggregator_SubmitHonoursContext(t *testing.T) {
	a := New(testLog(), Config{QueueSize: 1}, nil)

	// Mark started without running the loop so the queue never drains.
	a.started = true

	require.NoError(t, a.Submit(context.Background(), opcodeRecord(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := a.Submit(ctx, opcodeRecord(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
