package metrics

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Fixed-size tables encode as JSON arrays of exactly their length so that the
// index-to-opcode and index-to-bucket mapping stays implicit. Counter groups
// encode as objects keyed by category name.

// UnmarshalJSON requires exactly NumOpcodes entries.
func (t *OpcodeTable) UnmarshalJSON(data []byte) error {
	return unmarshalFixed(data, t[:], "opcode table")
}

// UnmarshalJSON requires exactly PenaltyBucketCount entries.
func (b *PenaltyBuckets) UnmarshalJSON(data []byte) error {
	return unmarshalFixed(data, b[:], "penalty buckets")
}

// UnmarshalJSON requires exactly SloadBucketCount entries.
func (b *SloadBuckets) UnmarshalJSON(data []byte) error {
	return unmarshalFixed(data, b[:], "sload buckets")
}

// MarshalJSON encodes the counters keyed by category name.
func (c CacheCounters) MarshalJSON() ([]byte, error) {
	return marshalNamed(cacheCategoryNames[:], c[:])
}

// UnmarshalJSON rejects unknown category names.
func (c *CacheCounters) UnmarshalJSON(data []byte) error {
	return unmarshalNamed(data, cacheCategoryNames[:], c[:], "cache counters")
}

// MarshalJSON encodes the times keyed by host operation name.
func (h HostTimes) MarshalJSON() ([]byte, error) {
	return marshalNamed(hostOpNames[:], h[:])
}

// UnmarshalJSON rejects unknown host operation names.
func (h *HostTimes) UnmarshalJSON(data []byte) error {
	return unmarshalNamed(data, hostOpNames[:], h[:], "host times")
}

func unmarshalFixed[T any](data []byte, dst []T, what string) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decoding %s: %w", what, err)
	}

	if len(items) != len(dst) {
		return fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidEncoding, what, len(items), len(dst))
	}

	copy(dst, items)

	return nil
}

func marshalNamed(names []string, values []uint64) ([]byte, error) {
	m := make(map[string]uint64, len(names))
	for i, name := range names {
		m[name] = values[i]
	}

	return json.Marshal(m)
}

func unmarshalNamed(data []byte, names []string, values []uint64, what string) error {
	var m map[string]uint64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decoding %s: %w", what, err)
	}

	clear(values)

	for name, v := range m {
		idx := slices.Index(names, name)
		if idx < 0 {
			return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidEncoding, what, name)
		}

		values[idx] = v
	}

	return nil
}
