package metrics

import (
	"fmt"
	"math"
)

// Thresholds is an ascending list of inclusive bucket upper bounds. A value
// belongs to the first bucket whose threshold is >= the value. Tables end with
// a math.MaxUint64 sentinel so every value has a bucket.
type Thresholds []uint64

// Index returns the bucket for value. ok is false only for tables without a
// sentinel, which indicates a misconfigured table.
func (t Thresholds) Index(value uint64) (idx int, ok bool) {
	for i, th := range t {
		if value <= th {
			return i, true
		}
	}

	return 0, false
}

// Validate checks that the thresholds are strictly ascending and end with the
// math.MaxUint64 sentinel.
func (t Thresholds) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("empty threshold table")
	}

	for i := 1; i < len(t); i++ {
		if t[i] <= t[i-1] {
			return fmt.Errorf("threshold %d (%d) not above threshold %d (%d)", i, t[i], i-1, t[i-1])
		}
	}

	if t[len(t)-1] != math.MaxUint64 {
		return fmt.Errorf("threshold table missing sentinel")
	}

	return nil
}

const (
	// PenaltyStepMs is the width of each penalty bucket in milliseconds.
	PenaltyStepMs = 1
	// PenaltyMaxMs is the last bounded penalty threshold in milliseconds.
	PenaltyMaxMs = 200
	// PenaltyBucketCount is the number of penalty buckets: one per
	// millisecond up to PenaltyMaxMs plus the sentinel bucket.
	PenaltyBucketCount = PenaltyMaxMs/PenaltyStepMs + 1

	// SloadBucketCount is the number of SLOAD latency buckets.
	SloadBucketCount = 4
)

// penaltyThresholds are 1ms, 2ms, ..., 200ms, +inf.
var penaltyThresholds = func() [PenaltyBucketCount]uint64 {
	var th [PenaltyBucketCount]uint64
	for i := 0; i < PenaltyBucketCount-1; i++ {
		th[i] = uint64(i+1) * PenaltyStepMs
	}

	th[PenaltyBucketCount-1] = math.MaxUint64

	return th
}()

// sloadThresholds are in microseconds: 1us, 10us, 100us, +inf.
var sloadThresholds = [SloadBucketCount]uint64{1, 10, 100, math.MaxUint64}

// PenaltyThresholds returns the penalty bucket upper bounds in milliseconds.
func PenaltyThresholds() Thresholds {
	th := penaltyThresholds

	return th[:]
}

// SloadThresholds returns the SLOAD latency bucket upper bounds in
// microseconds.
func SloadThresholds() Thresholds {
	th := sloadThresholds

	return th[:]
}
