package metrics

import (
	"math"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// PenaltyBuckets counts cache-miss penalty events per millisecond bucket.
// Index i covers (threshold[i-1], threshold[i]]; the last index catches
// everything above PenaltyMaxMs.
type PenaltyBuckets [PenaltyBucketCount]uint64

// PenaltyHistogram records the extra latency paid on cache misses: a running
// total per category plus a latency distribution.
type PenaltyHistogram struct {
	// Totals are in the owning record's unit (cycles until converted).
	Totals  CacheCounters  `json:"totals"`
	Buckets PenaltyBuckets `json:"percentile"`
}

// Record attributes a miss penalty of n cycles to cat and files it in the
// bucket matching its duration in milliseconds.
func (p *PenaltyHistogram) Record(conv cycles.Converter, cat CacheCategory, n uint64) {
	p.Totals.Add(cat, n)
	p.RecordLatencyBucket(conv.ToMilliseconds(n))
}

// RecordLatencyBucket increments the first bucket whose threshold is >= ms.
func (p *PenaltyHistogram) RecordLatencyBucket(ms uint64) {
	idx, ok := Thresholds(penaltyThresholds[:]).Index(ms)
	if !ok {
		return
	}

	p.Buckets[idx] = checkedAdd(p.Buckets[idx], 1, "penalty bucket")
}

// Update adds other into p.
func (p *PenaltyHistogram) Update(other *PenaltyHistogram) {
	p.Totals.Update(&other.Totals)

	for i := range p.Buckets {
		p.Buckets[i] = checkedAdd(p.Buckets[i], other.Buckets[i], "penalty bucket")
	}
}

// Count returns the number of penalty events recorded.
func (p *PenaltyHistogram) Count() uint64 {
	var total uint64
	for _, c := range p.Buckets {
		total = checkedAdd(total, c, "penalty count")
	}

	return total
}

// Percentile returns the upper bound, in milliseconds, of the bucket holding
// the q-th percentile event (0 < q <= 100). The sentinel bucket reports
// math.MaxUint64. ok is false when nothing was recorded.
func (p *PenaltyHistogram) Percentile(q float64) (ms uint64, ok bool) {
	total := p.Count()
	if total == 0 {
		return 0, false
	}

	q = math.Min(math.Max(q, 0), 100)

	rank := uint64(math.Ceil(q / 100 * float64(total)))
	if rank == 0 {
		rank = 1
	}

	var seen uint64
	for i, c := range p.Buckets {
		seen += c
		if seen >= rank {
			return penaltyThresholds[i], true
		}
	}

	return math.MaxUint64, true
}
