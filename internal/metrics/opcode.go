package metrics

import (
	"cmp"
	"slices"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// Opcode is a single interpreter instruction code.
type Opcode uint8

// NumOpcodes is the size of the opcode table.
const NumOpcodes = 256

// OpcodeStat accumulates the executions of one opcode.
type OpcodeStat struct {
	Count  uint64 `json:"count"`
	Cycles uint64 `json:"cycles"`
	// Gas is signed: refunds make per-opcode deltas negative.
	Gas int64 `json:"gas"`
}

// OpcodeTable is indexed by opcode.
type OpcodeTable [NumOpcodes]OpcodeStat

// SloadBuckets counts SLOAD executions per latency bucket (microseconds).
type SloadBuckets [SloadBucketCount]uint64

// OpcodeHistogram is the per-opcode execution profile of one or more
// interpreter runs.
type OpcodeHistogram struct {
	Opcodes OpcodeTable  `json:"opcodes"`
	Sload   SloadBuckets `json:"sload_latency"`
	// LoopCycles is measured around the whole dispatch loop and includes
	// dispatch overhead, so it is not the sum of per-opcode cycles.
	LoopCycles uint64 `json:"loop_cycles"`
}

// Record adds one execution of op.
func (h *OpcodeHistogram) Record(op Opcode, cycles uint64, gas int64) {
	s := &h.Opcodes[op]
	s.Count = checkedAdd(s.Count, 1, "opcode count")
	s.Cycles = checkedAdd(s.Cycles, cycles, "opcode cycles")
	s.Gas = checkedAddInt64(s.Gas, gas, "opcode gas")
}

// RecordLatencyBucket files one SLOAD execution of us microseconds.
func (h *OpcodeHistogram) RecordLatencyBucket(us uint64) {
	idx, ok := Thresholds(sloadThresholds[:]).Index(us)
	if !ok {
		return
	}

	h.Sload[idx] = checkedAdd(h.Sload[idx], 1, "sload bucket")
}

// RecordSload files one SLOAD execution measured in cycles.
func (h *OpcodeHistogram) RecordSload(conv cycles.Converter, n uint64) {
	h.RecordLatencyBucket(conv.ToMicroseconds(n))
}

// Update adds other into h. Count, cycles and gas are checked independently.
func (h *OpcodeHistogram) Update(other *OpcodeHistogram) {
	for i := range h.Opcodes {
		s, o := &h.Opcodes[i], &other.Opcodes[i]
		s.Count = checkedAdd(s.Count, o.Count, "opcode count")
		s.Cycles = checkedAdd(s.Cycles, o.Cycles, "opcode cycles")
		s.Gas = checkedAddInt64(s.Gas, o.Gas, "opcode gas")
	}

	for i := range h.Sload {
		h.Sload[i] = checkedAdd(h.Sload[i], other.Sload[i], "sload bucket")
	}

	h.LoopCycles = checkedAdd(h.LoopCycles, other.LoopCycles, "loop cycles")
}

// TotalCount returns the number of instructions executed.
func (h *OpcodeHistogram) TotalCount() uint64 {
	var total uint64
	for i := range h.Opcodes {
		total = checkedAdd(total, h.Opcodes[i].Count, "total count")
	}

	return total
}

// TotalCycles returns the time attributed to individual opcodes.
func (h *OpcodeHistogram) TotalCycles() uint64 {
	var total uint64
	for i := range h.Opcodes {
		total = checkedAdd(total, h.Opcodes[i].Cycles, "total cycles")
	}

	return total
}

// TotalGas returns the net gas charged across all opcodes.
func (h *OpcodeHistogram) TotalGas() int64 {
	var total int64
	for i := range h.Opcodes {
		total = checkedAddInt64(total, h.Opcodes[i].Gas, "total gas")
	}

	return total
}

// SloadCount returns the number of SLOAD executions filed into buckets.
func (h *OpcodeHistogram) SloadCount() uint64 {
	var total uint64
	for _, c := range h.Sload {
		total = checkedAdd(total, c, "sload count")
	}

	return total
}

// OpcodeEntry pairs an opcode with its statistics.
type OpcodeEntry struct {
	Op Opcode
	OpcodeStat
}

// Top returns up to n executed opcodes ordered by time, highest first. Ties
// are broken by count, then by opcode.
func (h *OpcodeHistogram) Top(n int) []OpcodeEntry {
	entries := make([]OpcodeEntry, 0, 32)

	for i := range h.Opcodes {
		if h.Opcodes[i].Count == 0 {
			continue
		}

		entries = append(entries, OpcodeEntry{Op: Opcode(i), OpcodeStat: h.Opcodes[i]})
	}

	slices.SortFunc(entries, func(a, b OpcodeEntry) int {
		if c := cmp.Compare(b.Cycles, a.Cycles); c != 0 {
			return c
		}

		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}

		return cmp.Compare(a.Op, b.Op)
	})

	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}

	return entries
}

func (h *OpcodeHistogram) convert(conv cycles.Converter, unit cycles.Unit) {
	for i := range h.Opcodes {
		h.Opcodes[i].Cycles = conv.Convert(h.Opcodes[i].Cycles, unit)
	}

	h.LoopCycles = conv.Convert(h.LoopCycles, unit)
}
