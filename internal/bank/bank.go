// Package bank implements the per-bank JEDEC timing state machine. It is
// grounded on two sources: the shape of the
// Bank interface in the reference dram package (GetReadyCommand /
// StartCommand / UpdateTiming / Tick), generalized here into a concrete
// struct rather than a mocked interface since a single implementation
// covers every technology preset, and the per-cycle update rules of the
// reference LPDDR5 controller's update_bank_states/issue_commands pair,
// corrected per the documented timing defects: precharge readiness now
// updates on both activation and write completion, not activation alone.
package bank

import "github.com/swmemsim/memctrl/internal/timing"

// State is a bank's position in the JEDEC state machine.
type State uint8

// The seven bank states this state machine cycles through.
const (
	Idle State = iota
	Activating
	Active
	Reading
	Writing
	Precharging
	Refreshing
)

// String renders a State for logs and diagnostics.
func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Activating:
		return "ACTIVATING"
	case Active:
		return "ACTIVE"
	case Reading:
		return "READING"
	case Writing:
		return "WRITING"
	case Precharging:
		return "PRECHARGING"
	case Refreshing:
		return "REFRESHING"
	default:
		return "UNKNOWN"
	}
}

// CommandKind names the five bank-facing commands the controller can issue.
type CommandKind uint8

// The command kinds a Bank accepts.
const (
	CmdActivate CommandKind = iota
	CmdRead
	CmdWrite
	CmdPrecharge
	CmdRefresh
)

// Bank is one JEDEC bank's timing state. Row is the currently open row and
// is only meaningful while State == Active, Reading, or Writing.
type Bank struct {
	state State
	row   uint32

	stateUntil timing.Cycle

	nextAct  timing.Cycle
	nextRd   timing.Cycle
	nextWr   timing.Cycle
	nextPre  timing.Cycle
	nextRef  timing.Cycle

	params timing.Params
}

// New returns an idle bank governed by the given timing parameters.
func New(params timing.Params) *Bank {
	return &Bank{params: params}
}

// State reports the bank's current JEDEC state.
func (b *Bank) State() State { return b.state }

// OpenRow reports the currently open row. Its value is only meaningful when
// IsRowOpen is true.
func (b *Bank) OpenRow() uint32 { return b.row }

// IsRowOpen reports whether the bank has an activated row, i.e. is in
// Active, Reading, or Writing.
func (b *Bank) IsRowOpen() bool {
	switch b.state {
	case Active, Reading, Writing:
		return true
	default:
		return false
	}
}

// Tick advances the bank's state machine by one cycle. now is the cycle
// that just began. It returns true if the bank completed a state transition
// this cycle (useful for stats bookkeeping by the caller).
func (b *Bank) Tick(now timing.Cycle) bool {
	if now < b.stateUntil {
		return false
	}

	switch b.state {
	case Activating:
		b.state = Active
	case Precharging:
		b.state = Idle
	case Reading, Writing:
		b.state = Active
	case Refreshing:
		b.state = Idle
	default:
		return false
	}

	return true
}

// CanActivate reports whether ACT may legally issue this cycle. The bank
// must be idle and past its next_act constraint.
func (b *Bank) CanActivate(now timing.Cycle) bool {
	return b.state == Idle && now >= b.nextAct
}

// CanAccess reports whether a read or write to the given row may legally
// issue this cycle. The bank must be active with that row open, and past
// the appropriate next_rd/next_wr constraint.
func (b *Bank) CanAccess(now timing.Cycle, row uint32, isRead bool) bool {
	if b.state != Active || b.row != row {
		return false
	}
	if isRead {
		return now >= b.nextRd
	}
	return now >= b.nextWr
}

// IsRowConflict reports whether the bank is active with a different row
// open than the one requested, meaning a precharge is required first.
func (b *Bank) IsRowConflict(row uint32) bool {
	return b.IsRowOpen() && b.row != row
}

// CanPrecharge reports whether PRE may legally issue this cycle.
func (b *Bank) CanPrecharge(now timing.Cycle) bool {
	return b.IsRowOpen() && now >= b.nextPre
}

// CanRefresh reports whether the bank may accept a refresh command this
// cycle: it must be idle and past any pending activate/precharge
// constraint, since REF implicitly closes any open row.
func (b *Bank) CanRefresh(now timing.Cycle) bool {
	return b.state == Idle && now >= b.nextAct
}

// Activate issues ACT for the given row starting at cycle now, opening the
// row and updating every timing constraint that ACT affects, mirroring
// issue_commands' IDLE branch in the reference implementation.
func (b *Bank) Activate(now timing.Cycle, row uint32) {
	p := b.params
	b.state = Activating
	b.row = row
	b.stateUntil = now + timing.Cycle(p.TRCD)
	b.nextAct = now + timing.Cycle(p.TRC)
	b.nextRd = now + timing.Cycle(p.TRCD)
	b.nextWr = now + timing.Cycle(p.TRCD)
	b.nextPre = now + timing.Cycle(p.TRAS)
}

// Read issues RD starting at cycle now. sameBankGroup selects between
// tCCD_L and tCCD_S for the next read; the next write waits tRTW either way.
func (b *Bank) Read(now timing.Cycle, sameBankGroup bool) {
	p := b.params
	b.state = Reading
	b.stateUntil = now + timing.Cycle(p.TBurst)

	if sameBankGroup {
		b.nextRd = now + timing.Cycle(p.TCCDL)
	} else {
		b.nextRd = now + timing.Cycle(p.TCCDS)
	}
	b.nextWr = now + timing.Cycle(p.TRTW)
	b.nextPre = maxCycle(b.nextPre, now+timing.Cycle(p.TRTP))
}

// Write issues WR starting at cycle now. sameBankGroup selects between the
// tCCD_L/tCCD_S and tWTR_L/tWTR_S constraint pairs. Unlike the reference
// implementation, Write also advances next_pre so a precharge issued right
// after a write cannot violate tWL+tBurst+tWR.
func (b *Bank) Write(now timing.Cycle, sameBankGroup bool) {
	p := b.params
	b.state = Writing
	b.stateUntil = now + timing.Cycle(p.TBurst)

	if sameBankGroup {
		b.nextWr = now + timing.Cycle(p.TCCDL)
	} else {
		b.nextWr = now + timing.Cycle(p.TCCDS)
	}
	if sameBankGroup {
		b.nextRd = now + timing.Cycle(p.TWTRL)
	} else {
		b.nextRd = now + timing.Cycle(p.TWTRS)
	}

	writeComplete := now + timing.Cycle(p.TWL) + timing.Cycle(p.TBurst) + timing.Cycle(p.TWR)
	b.nextPre = maxCycle(b.nextPre, writeComplete)
}

// Precharge issues PRE starting at cycle now, closing the open row.
func (b *Bank) Precharge(now timing.Cycle) {
	p := b.params
	b.state = Precharging
	b.stateUntil = now + timing.Cycle(p.TRP)
	b.nextAct = maxCycle(b.nextAct, now+timing.Cycle(p.TRP))
}

// Refresh issues REF starting at cycle now, using rfc as the refresh
// recovery time (tRFC for all-bank refresh, tRFCpb/tRFCsb for the
// per-bank variants).
func (b *Bank) Refresh(now timing.Cycle, rfc uint32) {
	b.state = Refreshing
	b.row = 0
	b.stateUntil = now + timing.Cycle(rfc)
	b.nextAct = maxCycle(b.nextAct, now+timing.Cycle(rfc))
}

// Reset returns the bank to its power-on state.
func (b *Bank) Reset() {
	*b = Bank{params: b.params}
}

func maxCycle(a, b timing.Cycle) timing.Cycle {
	if a > b {
		return a
	}
	return b
}
