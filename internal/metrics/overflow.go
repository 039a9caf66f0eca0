// Package metrics holds the per-execution performance record of the
// interpreter: opcode histograms, state cache counters, cache-miss penalties
// and host-call times, together with the merge protocol that folds records
// from independent execution contexts into one aggregate.
//
// Records are single-writer. The context that owns a record mutates it without
// locking; records are combined afterwards by exactly one coordinator.
//
// All accumulation uses checked arithmetic. Exceeding an accumulator's range
// panics with an error wrapping ErrOverflow: totals are only meaningful when
// exact.
package metrics

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrOverflow is the panic value (wrapped) raised when an accumulator
	// would exceed its range.
	ErrOverflow = errors.New("metrics accumulator overflow")
	// ErrUnitMismatch is the panic value (wrapped) raised when records
	// expressed in different units are merged.
	ErrUnitMismatch = errors.New("metrics unit mismatch")
	// ErrAlreadyConverted is returned when converting a record that is no
	// longer denominated in cycles.
	ErrAlreadyConverted = errors.New("record already converted to time")
	// ErrInvalidEncoding is returned when a serialized record does not match
	// the fixed layout.
	ErrInvalidEncoding = errors.New("invalid record encoding")
)

func checkedAdd(a, b uint64, field string) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		panic(fmt.Errorf("%w: %s: %d + %d", ErrOverflow, field, a, b))
	}

	return sum
}

func checkedAddInt64(a, b int64, field string) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		panic(fmt.Errorf("%w: %s: %d + %d", ErrOverflow, field, a, b))
	}

	return sum
}
