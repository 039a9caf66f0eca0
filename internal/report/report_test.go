package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/opmetrics/internal/cycles"
	"github.com/ethpandaops/opmetrics/internal/metrics"
)

func sampleRecord() *metrics.Record {
	conv := cycles.MustConverter(1_000_000_000)
	rec := &metrics.Record{}

	rec.RecordOpcode(0x01, 3_000, 9)
	rec.RecordOpcode(0x54, 1_200_000, 2_100)
	rec.RecordOpcode(0x55, 900_000, -4_800)
	rec.RecordSload(conv, 5_000)
	rec.RecordLoopCycles(2_500_000)
	rec.RecordCacheHit(metrics.CacheStorage)
	rec.RecordCacheHit(metrics.CacheStorage)
	rec.RecordCacheHit(metrics.CacheStorage)
	rec.RecordCacheMiss(conv, metrics.CacheStorage, 15_000_000)
	rec.RecordHostCall(metrics.HostSLoad, 400_000)

	return rec
}

func render(t *testing.T, rec *metrics.Record, opts Options) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rec, opts))

	return buf.String()
}

func TestRender_Sections(t *testing.T) {
	out := render(t, sampleRecord(), Options{})

	for _, want := range []string{
		"Summary", "Opcodes", "SLOAD latency", "Cache", "Miss penalty", "Host calls",
		"SLOAD", "SSTORE", "ADD",
		"1,200,000", "-4,800",
		"75.00%", "<= 10us", "<= 15ms",
		"sload", "400,000",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRender_OpcodeOrderAndLimit(t *testing.T) {
	out := render(t, sampleRecord(), Options{TopOpcodes: 2})

	assert.Contains(t, out, "SLOAD")
	assert.Contains(t, out, "SSTORE")
	assert.NotContains(t, out, " ADD ")
	assert.Less(t, strings.Index(out, "SSTORE"), strings.Index(out, "SLOAD latency"))

	all := render(t, sampleRecord(), Options{TopOpcodes: -1})
	assert.Contains(t, all, " ADD ")
}

func TestRender_ConvertedUnit(t *testing.T) {
	rec := sampleRecord()
	require.NoError(t, rec.ConvertCyclesToTime(cycles.MustConverter(1_000_000_000), cycles.Microsecond))

	out := render(t, rec, Options{})
	assert.Contains(t, out, "time unit")
	assert.Contains(t, out, "penalty (us)")
	assert.Contains(t, out, "15,000")
}

func TestRender_EmptyRecord(t *testing.T) {
	out := render(t, &metrics.Record{}, Options{})

	assert.Contains(t, out, "not instrumented")
	assert.Contains(t, out, "Cache")
	assert.NotContains(t, out, "Opcodes")
	assert.NotContains(t, out, "Miss penalty")
	assert.NotContains(t, out, "Host calls")
}

func TestBucketLabel(t *testing.T) {
	assert.Equal(t, "<= 100us", bucketLabel(100, "us"))
	assert.Equal(t, "> max", bucketLabel(math.MaxUint64, "ms"))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "1,234,567", formatCount(1_234_567))
	assert.Equal(t, "18446744073709551615", formatCount(math.MaxUint64))
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "-", formatRate(0, false))
	assert.Equal(t, "50.00%", formatRate(0.5, true))
}
