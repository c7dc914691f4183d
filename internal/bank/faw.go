package bank

import "github.com/swmemsim/memctrl/internal/timing"

// FAWTracker enforces the Four-Activate Window: no more than four ACT
// commands may issue within any tFAW-cycle sliding window, per rank.
// It is a small ring buffer of the last four activation cycles, grounded
// on the tFAW field the reference LPDDR5Timing carries but the reference
// controller never actually enforces; this tracker closes that gap.
type FAWTracker struct {
	window timing.Cycle
	times  [4]timing.Cycle
	count  int
	next   int
}

// NewFAWTracker returns a tracker for the given tFAW window.
func NewFAWTracker(window uint32) *FAWTracker {
	return &FAWTracker{window: timing.Cycle(window)}
}

// CanActivate reports whether a fifth activation may legally issue at cycle
// now without violating the Four-Activate Window.
func (f *FAWTracker) CanActivate(now timing.Cycle) bool {
	if f.count < 4 {
		return true
	}
	oldest := f.times[f.next]
	return now >= oldest+f.window
}

// RecordActivate records that an ACT issued at cycle now, evicting the
// oldest recorded activation if the ring is full.
func (f *FAWTracker) RecordActivate(now timing.Cycle) {
	f.times[f.next] = now
	f.next = (f.next + 1) % len(f.times)
	if f.count < len(f.times) {
		f.count++
	}
}

// Reset clears all recorded activations.
func (f *FAWTracker) Reset() {
	*f = FAWTracker{window: f.window}
}
