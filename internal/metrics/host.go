package metrics

import (
	"fmt"

	"github.com/ethpandaops/opmetrics/internal/cycles"
)

// HostOp identifies an interpreter call out to the host (state) interface.
type HostOp uint8

const (
	HostBalance HostOp = iota
	HostExtCodeSize
	HostExtCodeHash
	HostExtCodeCopy
	HostBlockHash
	HostSLoad
	HostSStore
	HostTLoad
	HostTStore
	HostLog
	HostCall
	HostCreate
	HostSelfDestruct

	// NumHostOps is the size of the closed host operation set.
	NumHostOps = 13
)

var hostOpNames = [NumHostOps]string{
	HostBalance:      "balance",
	HostExtCodeSize:  "ext_code_size",
	HostExtCodeHash:  "ext_code_hash",
	HostExtCodeCopy:  "ext_code_copy",
	HostBlockHash:    "block_hash",
	HostSLoad:        "sload",
	HostSStore:       "sstore",
	HostTLoad:        "tload",
	HostTStore:       "tstore",
	HostLog:          "log",
	HostCall:         "call",
	HostCreate:       "create",
	HostSelfDestruct: "self_destruct",
}

func (op HostOp) String() string {
	if int(op) >= NumHostOps {
		return fmt.Sprintf("unknown(%d)", op)
	}

	return hostOpNames[op]
}

// HostOps lists every host operation in index order.
func HostOps() []HostOp {
	ops := make([]HostOp, NumHostOps)
	for i := range ops {
		ops[i] = HostOp(i)
	}

	return ops
}

// HostTimes accumulates time spent inside each host operation. Values are in
// cycles until the owning record is converted.
type HostTimes [NumHostOps]uint64

// Add adds n to the operation's accumulator. Unknown operations are ignored.
func (h *HostTimes) Add(op HostOp, n uint64) {
	if int(op) >= NumHostOps {
		return
	}

	h[op] = checkedAdd(h[op], n, "host "+op.String())
}

// Get returns the operation's accumulator.
func (h *HostTimes) Get(op HostOp) uint64 {
	if int(op) >= NumHostOps {
		return 0
	}

	return h[op]
}

// Update adds other into h.
func (h *HostTimes) Update(other *HostTimes) {
	for i := range h {
		h[i] = checkedAdd(h[i], other[i], "host "+HostOp(i).String())
	}
}

// Total sums all host operations.
func (h *HostTimes) Total() uint64 {
	var total uint64
	for i := range h {
		total = checkedAdd(total, h[i], "host total")
	}

	return total
}

func (h *HostTimes) convert(conv cycles.Converter, unit cycles.Unit) {
	for i := range h {
		h[i] = conv.Convert(h[i], unit)
	}
}
