package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func cfg(policy Policy) Config {
	return Config{Policy: policy, NumBanks: 4, BufferSize: 16}
}

func TestFIFOServesOldestRegardlessOfRowHit(t *testing.T) {
	s := New(cfg(FIFO))

	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read, Arrival: 0})
	s.Store(Entry{ID: 2, Bank: 0, Row: 9, Kind: Read, Arrival: 1})

	e, ok := s.GetNext(0, 9, true, Read)
	require.True(t, ok)
	require.EqualValues(t, 1, e.ID)
}

func TestFIFOHasPendingIsTrueForOneEntry(t *testing.T) {
	s := New(cfg(FIFO))
	s.Store(Entry{ID: 1, Bank: 0, Kind: Read})

	require.True(t, s.HasPending(0, Read))
	require.False(t, s.HasPending(0, Write))
}

func TestFIFORemoveDropsEntry(t *testing.T) {
	s := New(cfg(FIFO))
	s.Store(Entry{ID: 1, Bank: 0})
	s.Remove(0, 1)

	require.False(t, s.HasAnyPending())
	require.EqualValues(t, 0, s.Occupancy())
}

func TestFRFCFSPrefersRowHitOverOlderEntry(t *testing.T) {
	s := New(cfg(FRFCFS))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read, Arrival: 0})
	s.Store(Entry{ID: 2, Bank: 0, Row: 9, Kind: Read, Arrival: 1})

	e, ok := s.GetNext(0, 9, true, Read)
	require.True(t, ok)
	require.EqualValues(t, 2, e.ID)
	require.EqualValues(t, 1, s.RowHitsSelected())
}

func TestFRFCFSFallsBackToOldestWhenNoRowHit(t *testing.T) {
	s := New(cfg(FRFCFS))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read, Arrival: 0})

	e, ok := s.GetNext(0, 9, true, Read)
	require.True(t, ok)
	require.EqualValues(t, 1, e.ID)
}

func TestFRFCFSFallsBackWhenBankPrecharged(t *testing.T) {
	s := New(cfg(FRFCFS))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read})

	e, ok := s.GetNext(0, 0, false, Read)
	require.True(t, ok)
	require.EqualValues(t, 1, e.ID)
}

func TestGroupingPrefersSameKindRowHit(t *testing.T) {
	s := New(cfg(FRFCFSGrouping))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read, Address: 100, Arrival: 0})
	s.Store(Entry{ID: 2, Bank: 0, Row: 5, Kind: Write, Address: 200, Arrival: 1})

	e, ok := s.GetNext(0, 5, true, Write)
	require.True(t, ok)
	require.EqualValues(t, 2, e.ID)
	require.EqualValues(t, 1, s.GroupingDecisions())
}

func TestGroupingAvoidsAddressHazard(t *testing.T) {
	s := New(cfg(FRFCFSGrouping))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Write, Address: 100, Arrival: 0})
	s.Store(Entry{ID: 2, Bank: 0, Row: 5, Kind: Read, Address: 100, Arrival: 1})

	// last command was Read, so the grouping preference is for the read at
	// ID 2, but it shares an address with the earlier write at ID 1: a
	// hazard, so grouping must skip it and fall back to the first row hit.
	e, ok := s.GetNext(0, 5, true, Read)
	require.True(t, ok)
	require.EqualValues(t, 1, e.ID)
}

func TestGroupingFallsBackToFirstRowHitWithoutMatchingKind(t *testing.T) {
	s := New(cfg(FRFCFSGrouping))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Write, Address: 100, Arrival: 0})

	e, ok := s.GetNext(0, 5, true, Read)
	require.True(t, ok)
	require.EqualValues(t, 1, e.ID)
}

func TestFRFCFSHasRowHit(t *testing.T) {
	s := New(cfg(FRFCFS))
	s.Store(Entry{ID: 1, Bank: 2, Row: 7})

	require.True(t, s.HasRowHit(2, 7))
	require.False(t, s.HasRowHit(2, 8))
}

func TestResetClearsBuffersAndCounters(t *testing.T) {
	s := New(cfg(FRFCFSGrouping))
	s.Store(Entry{ID: 1, Bank: 0, Row: 5, Kind: Read})
	s.GetNext(0, 5, true, Read)

	s.Reset()

	require.False(t, s.HasAnyPending())
	require.EqualValues(t, 0, s.RequestsSelected())
}

func TestHasSpaceRespectsBufferSize(t *testing.T) {
	s := New(Config{Policy: FIFO, NumBanks: 1, BufferSize: 1})
	require.True(t, s.HasSpace(1))
	s.Store(Entry{ID: 1, Bank: 0})
	require.False(t, s.HasSpace(1))
}
