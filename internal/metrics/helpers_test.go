package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// 3 GHz: 3_000_000 cycles per millisecond, 3_000 per microsecond.
const testHz = 3_000_000_000

func testConverter() cycles.Converter {
	return cycles.MustConverter(testHz)
}

func ms(n uint64) uint64 { return n * 3_000_000 }

func us(n uint64) uint64 { return n * 3_000 }

func requireOverflow(t *testing.T, fn func()) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected overflow panic")

		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, ErrOverflow), "unexpected panic: %v", err)
	}()

	fn()
}
