package metrics

import (
	"fmt"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// Record is the complete performance record of one execution context, or the
// aggregate of several. The zero value is an empty record ready for use.
//
// A record is owned by exactly one execution context until it is handed to
// Merge, after which the source must not be used again.
type Record struct {
	// Opcodes is nil when no opcode timing was collected, which is distinct
	// from a table of zeroes.
	Opcodes *OpcodeHistogram `json:"opcodes"`
	Cache   CacheRecord      `json:"cache"`
	Host    HostTimes        `json:"host"`
	// TimeUnit is empty or cycles.Cycles until ConvertCyclesToTime runs.
	TimeUnit cycles.Unit `json:"time_unit,omitempty"`
	Updated  bool        `json:"is_updated"`
}

// HasData reports whether anything was ever recorded. A record that recorded
// only zero values still has data.
func (r *Record) HasData() bool {
	return r.Updated
}

// Unit returns the unit every time-denominated field is expressed in.
func (r *Record) Unit() cycles.Unit {
	if r.TimeUnit == "" {
		return cycles.Cycles
	}

	return r.TimeUnit
}

func (r *Record) opcodes() *OpcodeHistogram {
	if r.Opcodes == nil {
		r.Opcodes = new(OpcodeHistogram)
	}

	return r.Opcodes
}

// RecordOpcode adds one execution of op.
func (r *Record) RecordOpcode(op Opcode, cycles uint64, gas int64) {
	r.opcodes().Record(op, cycles, gas)
	r.Updated = true
}

// RecordSload files one SLOAD execution into the latency histogram.
func (r *Record) RecordSload(conv cycles.Converter, n uint64) {
	r.opcodes().RecordSload(conv, n)
	r.Updated = true
}

// RecordLoopCycles adds time measured around the dispatch loop.
func (r *Record) RecordLoopCycles(n uint64) {
	h := r.opcodes()
	h.LoopCycles = checkedAdd(h.LoopCycles, n, "loop cycles")
	r.Updated = true
}

// RecordCacheHit counts a cache hit.
func (r *Record) RecordCacheHit(cat CacheCategory) {
	r.Cache.Hits.Inc(cat)
	r.Updated = true
}

// RecordCacheMiss counts a cache miss that cost penalty cycles.
func (r *Record) RecordCacheMiss(conv cycles.Converter, cat CacheCategory, penalty uint64) {
	r.Cache.Misses.Inc(cat)
	r.Cache.Penalty.Record(conv, cat, penalty)
	r.Updated = true
}

// RecordHostCall adds time spent in a host operation.
func (r *Record) RecordHostCall(op HostOp, n uint64) {
	r.Host.Add(op, n)
	r.Updated = true
}

// Merge folds other into r and consumes other.
//
// An empty other, or r itself, is ignored. An empty r takes over other's
// contents without copying the opcode table, which is equivalent to adding
// other to a zero record. Otherwise every field is added with overflow checks.
func (r *Record) Merge(other *Record) {
	if other == nil || other == r || !other.Updated {
		return
	}

	if !r.Updated {
		*r = *other
		*other = Record{}

		return
	}

	r.add(other)
	*other = Record{}
}

func (r *Record) add(other *Record) {
	if r.Unit() != other.Unit() {
		panic(fmt.Errorf("%w: %s into %s", ErrUnitMismatch, other.Unit(), r.Unit()))
	}

	switch {
	case other.Opcodes == nil:
	case r.Opcodes == nil:
		r.Opcodes = other.Opcodes
		other.Opcodes = nil
	default:
		r.Opcodes.Update(other.Opcodes)
	}

	r.Cache.Update(&other.Cache)
	r.Host.Update(&other.Host)
	r.Updated = true
}

// ConvertCyclesToTime rewrites every cycle-denominated field in unit. It must
// run once, after all merges: bucket counts are unaffected, totals are
// truncated per field.
func (r *Record) ConvertCyclesToTime(conv cycles.Converter, unit cycles.Unit) error {
	if !unit.IsTime() {
		return fmt.Errorf("%w: cannot convert to %q", cycles.ErrInvalidUnit, unit)
	}

	if !conv.Valid() {
		return fmt.Errorf("%w: converter has no frequency", cycles.ErrInvalidFrequency)
	}

	if r.Unit() != cycles.Cycles {
		return fmt.Errorf("%w: record is in %s", ErrAlreadyConverted, r.Unit())
	}

	if r.Opcodes != nil {
		r.Opcodes.convert(conv, unit)
	}

	r.Cache.Penalty.Totals.convert(conv, unit)
	r.Host.convert(conv, unit)
	r.TimeUnit = unit

	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Opcodes != nil {
		h := *r.Opcodes
		c.Opcodes = &h
	}

	return &c
}

// Fold merges records, in order, into a new aggregate. Every input is
// consumed.
func Fold(records ...*Record) *Record {
	agg := &Record{}
	for _, rec := range records {
		agg.Merge(rec)
	}

	return agg
}
