package metrics

import (
	"fmt"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// CacheCategory identifies the state-cache accessor an event belongs to.
type CacheCategory uint8

const (
	CacheBlockHash CacheCategory = iota
	CacheBasic
	CacheStorage
	CacheCodeByHash
	CacheLoadAccount

	// NumCacheCategories is the size of the closed category set.
	NumCacheCategories = 5
)

var cacheCategoryNames = [NumCacheCategories]string{
	CacheBlockHash:   "block_hash",
	CacheBasic:       "basic",
	CacheStorage:     "storage",
	CacheCodeByHash:  "code_by_hash",
	CacheLoadAccount: "load_account",
}

// String returns the category name used in reports and encodings.
func (c CacheCategory) String() string {
	if int(c) >= NumCacheCategories {
		return fmt.Sprintf("unknown(%d)", c)
	}

	return cacheCategoryNames[c]
}

// CacheCategories lists every category in index order.
func CacheCategories() []CacheCategory {
	cats := make([]CacheCategory, NumCacheCategories)
	for i := range cats {
		cats[i] = CacheCategory(i)
	}

	return cats
}

// CacheCounters holds one accumulator per CacheCategory.
type CacheCounters [NumCacheCategories]uint64

// Add adds n to the category's accumulator. Unknown categories are ignored.
func (c *CacheCounters) Add(cat CacheCategory, n uint64) {
	if int(cat) >= NumCacheCategories {
		return
	}

	c[cat] = checkedAdd(c[cat], n, cat.String())
}

// Inc adds one to the category's accumulator.
func (c *CacheCounters) Inc(cat CacheCategory) {
	c.Add(cat, 1)
}

// Get returns the category's accumulator.
func (c *CacheCounters) Get(cat CacheCategory) uint64 {
	if int(cat) >= NumCacheCategories {
		return 0
	}

	return c[cat]
}

// Update adds other into c category by category.
func (c *CacheCounters) Update(other *CacheCounters) {
	for i := range c {
		c[i] = checkedAdd(c[i], other[i], CacheCategory(i).String())
	}
}

// Total sums all categories.
func (c *CacheCounters) Total() uint64 {
	var total uint64
	for i := range c {
		total = checkedAdd(total, c[i], "cache total")
	}

	return total
}

func (c *CacheCounters) convert(conv cycles.Converter, unit cycles.Unit) {
	for i := range c {
		c[i] = conv.Convert(c[i], unit)
	}
}

// CacheRecord describes state-cache behaviour during execution.
type CacheRecord struct {
	Hits    CacheCounters    `json:"hits"`
	Misses  CacheCounters    `json:"misses"`
	Penalty PenaltyHistogram `json:"penalty"`
}

// Update adds other into r.
func (r *CacheRecord) Update(other *CacheRecord) {
	r.Hits.Update(&other.Hits)
	r.Misses.Update(&other.Misses)
	r.Penalty.Update(&other.Penalty)
}

// TotalAccesses returns hits plus misses for one category.
func (r *CacheRecord) TotalAccesses(cat CacheCategory) uint64 {
	return checkedAdd(r.Hits.Get(cat), r.Misses.Get(cat), cat.String()+" accesses")
}

// TotalHits returns the hit count across all categories.
func (r *CacheRecord) TotalHits() uint64 {
	return r.Hits.Total()
}

// TotalMisses returns the miss count across all categories.
func (r *CacheRecord) TotalMisses() uint64 {
	return r.Misses.Total()
}

// TotalPenalty returns the accumulated miss penalty across all categories,
// in the owning record's unit.
func (r *CacheRecord) TotalPenalty() uint64 {
	return r.Penalty.Totals.Total()
}

// HitRate returns hits / accesses for a category. ok is false when the
// category was never accessed.
func (r *CacheRecord) HitRate(cat CacheCategory) (rate float64, ok bool) {
	total := r.TotalAccesses(cat)
	if total == 0 {
		return 0, false
	}

	return float64(r.Hits.Get(cat)) / float64(total), true
}

// OverallHitRate returns hits / accesses across all categories.
func (r *CacheRecord) OverallHitRate() (rate float64, ok bool) {
	hits := r.TotalHits()

	total := checkedAdd(hits, r.TotalMisses(), "cache accesses")
	if total == 0 {
		return 0, false
	}

	return float64(hits) / float64(total), true
}
