// Package memctrl implements a multi-fidelity DRAM memory controller core:
// per-bank JEDEC timing state machines, a family of request schedulers
// (FIFO, FR-FCFS, FR-FCFS with read/write grouping), and a refresh manager,
// all driven by an externally clocked four-phase tick. It is a library, not
// a simulator: callers own the clock and call Tick once per cycle.
package memctrl

import "github.com/swmemsim/memctrl/internal/timing"

// RequestID uniquely identifies a submitted Request. IDs are assigned
// monotonically by the Controller starting at 1; they are plain counters,
// not derived from any external ID generator, since request identity only
// needs to be unique within one controller's lifetime.
type RequestID uint64

// RequestKind distinguishes reads from writes.
type RequestKind uint8

// The two request kinds a Controller accepts.
const (
	Read RequestKind = iota
	Write
)

// String renders a RequestKind for logs.
func (k RequestKind) String() string {
	if k == Write {
		return "WRITE"
	}
	return "READ"
}

// Priority is a request's scheduling priority. The FIFO and FR-FCFS
// policies ignore it; it exists for callers layering QoS policy on top of
// this package's schedulers.
type Priority uint8

// The four priority levels a Request can carry.
const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityRealtime
)

// Fidelity selects how faithfully the controller models DRAM timing.
type Fidelity uint8

// The three fidelity levels a Builder can be configured with. Only
// CycleAccurate is implemented by this package; Behavioral and Transactional
// are accepted by ControllerConfig only to be rejected by Builder.Build with
// a ConfigError naming "fidelity", so callers get one consistent error
// surface across fidelity levels rather than a type assertion failure.
const (
	Behavioral Fidelity = iota
	Transactional
	CycleAccurate
)

// String renders a Fidelity for error messages.
func (f Fidelity) String() string {
	switch f {
	case Behavioral:
		return "BEHAVIORAL"
	case Transactional:
		return "TRANSACTIONAL"
	case CycleAccurate:
		return "CYCLE_ACCURATE"
	default:
		return "UNKNOWN"
	}
}

// Request is a single memory access submitted to a Controller.
type Request struct {
	ID       RequestID
	Address  uint64
	Size     uint32
	Kind     RequestKind
	Priority Priority

	// SubmitCycle is filled in by Submit: the earliest cycle this request
	// can be acted on, one past the cycle Submit was called during. Callers
	// do not set it.
	SubmitCycle timing.Cycle

	// Callback, if non-nil, is invoked with the completion latency in
	// cycles when the request finishes.
	Callback func(latency uint64)

	// Channel, Rank, BankGroup, Bank, Row, Column are filled in by Submit
	// from the configured address mapper.
	Channel   uint16
	Rank      uint16
	BankGroup uint16
	Bank      uint16
	Row       uint32
	Column    uint32
}

// Violation records one invariant check failure, produced only when
// invariant checking is enabled.
type Violation struct {
	Cycle       timing.Cycle
	InvariantID string
	Message     string
	Channel     uint16
	Bank        uint16
}

// CompletionDetail is the value a Controller passes as hooking.Ctx.Detail
// at hooking.PosRequestComplete, carrying the accounting a hook observer
// needs beyond the raw latency.
type CompletionDetail struct {
	Latency      uint64
	PageHit      bool
	PageConflict bool
}
