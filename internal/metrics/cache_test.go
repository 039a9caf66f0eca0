package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCategory_String(t *testing.T) {
	assert.Equal(t, "block_hash", CacheBlockHash.String())
	assert.Equal(t, "basic", CacheBasic.String())
	assert.Equal(t, "storage", CacheStorage.String())
	assert.Equal(t, "code_by_hash", CacheCodeByHash.String())
	assert.Equal(t, "load_account", CacheLoadAccount.String())
	assert.Equal(t, "unknown(9)", CacheCategory(9).String())
	assert.Len(t, CacheCategories(), NumCacheCategories)
}

func TestCacheCounters_Update(t *testing.T) {
	var a, b CacheCounters

	a.Add(CacheBasic, 3)
	a.Inc(CacheStorage)
	b.Add(CacheBasic, 4)
	b.Add(CacheLoadAccount, 10)

	a.Update(&b)

	assert.Equal(t, uint64(7), a.Get(CacheBasic))
	assert.Equal(t, uint64(1), a.Get(CacheStorage))
	assert.Equal(t, uint64(10), a.Get(CacheLoadAccount))
	assert.Equal(t, uint64(0), a.Get(CacheBlockHash))
	assert.Equal(t, uint64(18), a.Total())

	// Source is untouched.
	assert.Equal(t, uint64(14), b.Total())
}

func TestCacheCounters_UnknownCategoryIgnored(t *testing.T) {
	var c CacheCounters

	c.Add(CacheCategory(200), 5)
	assert.Equal(t, uint64(0), c.Total())
	assert.Equal(t, uint64(0), c.Get(CacheCategory(200)))
}

func TestCacheCounters_UpdateOverflow(t *testing.T) {
	var a, b CacheCounters

	a[CacheBasic] = math.MaxUint64 - 1
	b[CacheBasic] = 5

	requireOverflow(t, func() { a.Update(&b) })
}

func TestCacheCounters_AddOverflow(t *testing.T) {
	var c CacheCounters

	c[CacheStorage] = math.MaxUint64

	requireOverflow(t, func() { c.Inc(CacheStorage) })
}

func TestCacheRecord_DerivedTotals(t *testing.T) {
	var r CacheRecord

	conv := testConverter()

	r.Hits.Add(CacheBasic, 8)
	r.Misses.Add(CacheBasic, 2)
	r.Hits.Add(CacheStorage, 1)
	r.Misses.Add(CacheStorage, 3)
	r.Penalty.Record(conv, CacheStorage, ms(2))
	r.Penalty.Record(conv, CacheBasic, ms(5))

	assert.Equal(t, uint64(10), r.TotalAccesses(CacheBasic))
	assert.Equal(t, uint64(4), r.TotalAccesses(CacheStorage))
	assert.Equal(t, uint64(0), r.TotalAccesses(CacheBlockHash))
	assert.Equal(t, uint64(9), r.TotalHits())
	assert.Equal(t, uint64(5), r.TotalMisses())
	assert.Equal(t, ms(7), r.TotalPenalty())

	rate, ok := r.HitRate(CacheBasic)
	require.True(t, ok)
	assert.InDelta(t, 0.8, rate, 1e-9)

	rate, ok = r.HitRate(CacheStorage)
	require.True(t, ok)
	assert.InDelta(t, 0.25, rate, 1e-9)

	_, ok = r.HitRate(CacheCodeByHash)
	assert.False(t, ok, "never accessed")

	rate, ok = r.OverallHitRate()
	require.True(t, ok)
	assert.InDelta(t, 9.0/14.0, rate, 1e-9)
}

func TestCacheRecord_DerivedTotalsFollowUpdates(t *testing.T) {
	var a, b CacheRecord

	a.Hits.Inc(CacheBasic)
	assert.Equal(t, uint64(1), a.TotalHits())

	b.Hits.Add(CacheBasic, 2)
	b.Misses.Inc(CacheCodeByHash)
	a.Update(&b)

	assert.Equal(t, uint64(3), a.TotalHits())
	assert.Equal(t, uint64(1), a.TotalMisses())
	assert.Equal(t, uint64(1), a.TotalAccesses(CacheCodeByHash))
}

func TestCacheRecord_OverallHitRateEmpty(t *testing.T) {
	var r CacheRecord

	_, ok := r.OverallHitRate()
	assert.False(t, ok)
}

func TestHostTimes(t *testing.T) {
	var a, b HostTimes

	a.Add(HostSLoad, 100)
	a.Add(HostCall, 50)
	b.Add(HostSLoad, 25)
	b.Add(HostOp(99), 1000)

	a.Update(&b)

	assert.Equal(t, uint64(125), a.Get(HostSLoad))
	assert.Equal(t, uint64(50), a.Get(HostCall))
	assert.Equal(t, uint64(175), a.Total())
	assert.Equal(t, "self_destruct", HostSelfDestruct.String())
	assert.Equal(t, "unknown(99)", HostOp(99).String())
	assert.Len(t, HostOps(), NumHostOps)
}

func TestHostTimes_Overflow(t *testing.T) {
	var a, b HostTimes

	a[HostSStore] = math.MaxUint64
	b[HostSStore] = 1

	requireOverflow(t, func() { a.Update(&b) })
}
