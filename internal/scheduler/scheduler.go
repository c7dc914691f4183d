// Package scheduler implements the request buffer and command selection
// policies for a memory controller: FIFO, FR-FCFS, and FR-FCFS with
// read/write grouping, all behind one Scheduler contract. It is
// grounded on the reference IScheduler interface and its three concrete
// policies (FifoScheduler, FrFcfsScheduler, FrFcfsGrpScheduler), adapted to
// Go's value-oriented idioms: rather than storing pointers into a Request
// arena the buffers hold small Entry values (an arena-plus-stable-index
// design, since Go slices reallocate and a stored pointer into one would
// dangle across an append).
package scheduler

import "github.com/swmemsim/memctrl/internal/timing"

// Kind distinguishes reads from writes for scheduling purposes. It mirrors
// stats.RequestKind but lives in this package to keep scheduler free of a
// dependency on stats.
type Kind uint8

// The two request kinds a scheduler distinguishes.
const (
	Read Kind = iota
	Write
)

// Entry is the lightweight record a scheduler buffers: enough to make
// scheduling decisions without holding a pointer into the Request arena the
// controller owns. ID is the stable key the controller uses to look up the
// full Request once the scheduler selects it.
type Entry struct {
	ID      uint64
	Bank    uint32
	Row     uint32
	Kind    Kind
	Address uint64
	Arrival timing.Cycle
}

// Policy names one of the three scheduling policies this package
// implements.
type Policy uint8

// The scheduling policies this package implements.
const (
	FIFO Policy = iota
	FRFCFS
	FRFCFSGrouping
)

// Config parameterizes a Scheduler's buffer.
type Config struct {
	Policy     Policy
	NumBanks   uint32
	BufferSize uint32
}

// Scheduler is the contract every policy implements: a per-bank request
// buffer plus a selection rule for which entry to issue next.
type Scheduler interface {
	// HasSpace reports whether count more entries fit in the buffer.
	HasSpace(count uint32) bool

	// Store admits an entry into the buffer.
	Store(e Entry)

	// Remove drops the entry with the given ID from its bank's buffer. It
	// is a no-op if no such entry exists.
	Remove(bank uint32, id uint64)

	// Occupancy reports the total number of buffered entries.
	Occupancy() uint32

	// BufferDepth reports the number of buffered entries for one bank.
	BufferDepth(bank uint32) uint32

	// GetNext selects the next entry to issue for a bank, given the row
	// currently open in that bank (rowOpen false if the bank is
	// precharged) and the kind of the last command issued by the
	// controller. It returns the zero Entry and false if nothing is
	// available.
	GetNext(bank uint32, openRow uint32, rowOpen bool, lastCmd Kind) (Entry, bool)

	// HasRowHit reports whether any buffered entry targets the given
	// bank/row. FIFO does not track row hits and always reports false.
	HasRowHit(bank, row uint32) bool

	// HasPending reports whether any entry of the given kind is buffered
	// for a bank. Note this is "at least one", not "at least two" — the
	// reference implementation's size()>=2 check is a documented bug.
	HasPending(bank uint32, kind Kind) bool

	// HasAnyPending reports whether the buffer holds any entry at all.
	HasAnyPending() bool

	// RequestsSelected reports the lifetime count of GetNext selections
	// that returned an entry.
	RequestsSelected() uint64

	// RowHitsSelected reports the lifetime count of selections that were
	// row hits.
	RowHitsSelected() uint64

	// GroupingDecisions reports the lifetime count of selections made by
	// preferring a same-kind row hit over the oldest one. Always zero for
	// FIFO and FR-FCFS.
	GroupingDecisions() uint64

	// Reset clears all buffered entries and lifetime counters.
	Reset()
}

// New builds a Scheduler for the given policy.
func New(cfg Config) Scheduler {
	switch cfg.Policy {
	case FRFCFS:
		return newFRFCFS(cfg)
	case FRFCFSGrouping:
		return newFRFCFSGrouping(cfg)
	default:
		return newFIFO(cfg)
	}
}

// buffers is the shared per-bank storage every policy in this package
// builds on: a slice of entry slices, plus a running total occupancy.
type buffers struct {
	cfg   Config
	banks [][]Entry
	total uint32
}

func newBuffers(cfg Config) buffers {
	return buffers{cfg: cfg, banks: make([][]Entry, cfg.NumBanks)}
}

func (b *buffers) hasSpace(count uint32) bool {
	return b.total+count <= b.cfg.BufferSize
}

func (b *buffers) store(e Entry) {
	b.banks[e.Bank] = append(b.banks[e.Bank], e)
	b.total++
}

func (b *buffers) remove(bank uint32, id uint64) {
	bucket := b.banks[bank]
	for i, e := range bucket {
		if e.ID == id {
			b.banks[bank] = append(bucket[:i], bucket[i+1:]...)
			b.total--
			return
		}
	}
}

func (b *buffers) occupancy() uint32 {
	return b.total
}

func (b *buffers) bufferDepth(bank uint32) uint32 {
	return uint32(len(b.banks[bank]))
}

func (b *buffers) hasPending(bank uint32, kind Kind) bool {
	for _, e := range b.banks[bank] {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func (b *buffers) hasAnyPending() bool {
	return b.total > 0
}

func (b *buffers) hasRowHit(bank, row uint32) bool {
	for _, e := range b.banks[bank] {
		if e.Row == row {
			return true
		}
	}
	return false
}

func (b *buffers) reset() {
	for i := range b.banks {
		b.banks[i] = nil
	}
	b.total = 0
}
