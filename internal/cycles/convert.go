// Package cycles converts raw CPU cycle counts into wall-clock units.
//
// Conversion is lossy and one-directional: a value converted once must never
// be converted again. Results are truncated toward zero.
package cycles

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrInvalidFrequency is returned for a zero, negative or malformed
	// CPU frequency.
	ErrInvalidFrequency = errors.New("invalid cpu frequency")
	// ErrInvalidUnit is returned for an unknown or unsuitable time unit.
	ErrInvalidUnit = errors.New("invalid time unit")
	// ErrOverflow is raised (via panic) when a converted value does not fit
	// in 64 bits.
	ErrOverflow = errors.New("cycle conversion overflow")
)

// Unit is the unit a cycle-denominated value is expressed in.
type Unit string

const (
	Cycles      Unit = "cycles"
	Nanosecond  Unit = "ns"
	Microsecond Unit = "us"
	Millisecond Unit = "ms"
	Second      Unit = "s"
)

// PerSecond returns how many of u make up one second. Cycles has no fixed
// rate and returns 0.
func (u Unit) PerSecond() uint64 {
	switch u {
	case Nanosecond:
		return 1_000_000_000
	case Microsecond:
		return 1_000_000
	case Millisecond:
		return 1_000
	case Second:
		return 1
	default:
		return 0
	}
}

// IsTime reports whether u is a wall-clock unit.
func (u Unit) IsTime() bool {
	return u.PerSecond() != 0
}

// ParseUnit parses a unit name. An empty string yields Cycles.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case "":
		return Cycles, nil
	case Cycles, Nanosecond, Microsecond, Millisecond, Second:
		return u, nil
	case "µs":
		return Microsecond, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}

// Converter maps cycle counts to time units for a fixed CPU frequency.
type Converter struct {
	hz uint64
}

// NewConverter creates a Converter for a CPU running at hz cycles per second.
func NewConverter(hz uint64) (Converter, error) {
	if hz == 0 {
		return Converter{}, fmt.Errorf("%w: frequency must be positive", ErrInvalidFrequency)
	}

	return Converter{hz: hz}, nil
}

// MustConverter is like NewConverter but panics on an invalid frequency.
// Intended for tests and compile-time constants.
func MustConverter(hz uint64) Converter {
	c, err := NewConverter(hz)
	if err != nil {
		panic(err)
	}

	return c
}

// Frequency returns the configured frequency in Hz.
func (c Converter) Frequency() uint64 {
	return c.hz
}

// Valid reports whether the converter was built from a positive frequency.
func (c Converter) Valid() bool {
	return c.hz != 0
}

// Convert returns cycles expressed in unit, truncated toward zero.
// Converting to Cycles returns the input unchanged. A zero-value Converter
// or a quotient wider than 64 bits panics.
func (c Converter) Convert(cycles uint64, unit Unit) uint64 {
	if unit == Cycles {
		return cycles
	}

	if c.hz == 0 {
		panic(fmt.Errorf("%w: converter has no frequency", ErrInvalidFrequency))
	}

	perSecond := unit.PerSecond()
	if perSecond == 0 {
		panic(fmt.Errorf("%w: %q", ErrInvalidUnit, unit))
	}

	hi, lo := bits.Mul64(cycles, perSecond)
	if hi >= c.hz {
		panic(fmt.Errorf("%w: %d cycles at %d Hz in %s", ErrOverflow, cycles, c.hz, unit))
	}

	quo, _ := bits.Div64(hi, lo, c.hz)

	return quo
}

// ToMilliseconds converts cycles to milliseconds.
func (c Converter) ToMilliseconds(cycles uint64) uint64 {
	return c.Convert(cycles, Millisecond)
}

// ToMicroseconds converts cycles to microseconds.
func (c Converter) ToMicroseconds(cycles uint64) uint64 {
	return c.Convert(cycles, Microsecond)
}

// ParseFrequency parses a CPU frequency such as "3.2GHz", "3200 MHz" or
// "3200000000" into Hz.
func ParseFrequency(s string) (uint64, error) {
	value, unit, err := humanize.ParseSI(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidFrequency, s, err)
	}

	if unit != "" && !strings.EqualFold(unit, "hz") {
		return 0, fmt.Errorf("%w: %q: unexpected unit %q", ErrInvalidFrequency, s, unit)
	}

	if value < 1 {
		return 0, fmt.Errorf("%w: %q: frequency must be positive", ErrInvalidFrequency, s)
	}

	if value >= 1<<63 {
		return 0, fmt.Errorf("%w: %q: frequency out of range", ErrInvalidFrequency, s)
	}

	return uint64(math.Round(value)), nil
}
