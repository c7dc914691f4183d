package bank

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swmemsim/memctrl/internal/timing"
)

func testParams() timing.Params {
	return timing.Preset("LPDDR5", 6400)
}

func TestNewBankStartsIdle(t *testing.T) {
	b := New(testParams())

	require.Equal(t, Idle, b.State())
	require.False(t, b.IsRowOpen())
}

func TestActivateThenTickReachesActive(t *testing.T) {
	b := New(testParams())
	p := testParams()

	require.True(t, b.CanActivate(0))
	b.Activate(0, 5)
	require.Equal(t, Activating, b.State())

	advanced := b.Tick(timing.Cycle(p.TRCD) - 1)
	require.False(t, advanced)
	require.Equal(t, Activating, b.State())

	advanced = b.Tick(timing.Cycle(p.TRCD))
	require.True(t, advanced)
	require.Equal(t, Active, b.State())
	require.EqualValues(t, 5, b.OpenRow())
}

func TestRowHitAllowsAccessAfterTRCD(t *testing.T) {
	b := New(testParams())
	p := testParams()
	b.Activate(0, 5)
	b.Tick(timing.Cycle(p.TRCD))

	require.True(t, b.CanAccess(timing.Cycle(p.TRCD), 5, true))
	require.False(t, b.CanAccess(timing.Cycle(p.TRCD), 6, true))
}

func TestRowConflictDetected(t *testing.T) {
	b := New(testParams())
	p := testParams()
	b.Activate(0, 5)
	b.Tick(timing.Cycle(p.TRCD))

	require.True(t, b.IsRowConflict(6))
	require.False(t, b.IsRowConflict(5))
}

func TestWriteAdvancesPrechargeReadiness(t *testing.T) {
	b := New(testParams())
	p := testParams()
	b.Activate(0, 5)
	now := timing.Cycle(p.TRCD)
	b.Tick(now)

	b.Write(now, true)

	writeComplete := now + timing.Cycle(p.TWL) + timing.Cycle(p.TBurst) + timing.Cycle(p.TWR)
	require.False(t, b.CanPrecharge(writeComplete-1))
	require.True(t, b.CanPrecharge(writeComplete))
}

func TestPrechargeReturnsToIdle(t *testing.T) {
	b := New(testParams())
	p := testParams()
	b.Activate(0, 5)
	now := timing.Cycle(p.TRCD)
	b.Tick(now)

	require.True(t, b.CanPrecharge(now+timing.Cycle(p.TRAS)))
	b.Precharge(now + timing.Cycle(p.TRAS))
	require.Equal(t, Precharging, b.State())

	b.Tick(now + timing.Cycle(p.TRAS) + timing.Cycle(p.TRP))
	require.Equal(t, Idle, b.State())
}

func TestRefreshClosesOpenRowAndBlocksActivate(t *testing.T) {
	b := New(testParams())
	p := testParams()
	b.Activate(0, 5)
	now := timing.Cycle(p.TRCD)
	b.Tick(now)
	b.Precharge(now + timing.Cycle(p.TRAS))
	b.Tick(now + timing.Cycle(p.TRAS) + timing.Cycle(p.TRP))

	refreshAt := now + timing.Cycle(p.TRAS) + timing.Cycle(p.TRP)
	require.True(t, b.CanRefresh(refreshAt))
	b.Refresh(refreshAt, p.TRFCpb)

	b.Tick(refreshAt + timing.Cycle(p.TRFCpb) - 1)
	require.False(t, b.CanActivate(refreshAt+timing.Cycle(p.TRFCpb)-1))
	b.Tick(refreshAt + timing.Cycle(p.TRFCpb))
	require.True(t, b.CanActivate(refreshAt+timing.Cycle(p.TRFCpb)))
}

func TestResetReturnsToPowerOnState(t *testing.T) {
	b := New(testParams())
	b.Activate(0, 5)

	b.Reset()

	require.Equal(t, Idle, b.State())
	require.False(t, b.IsRowOpen())
	require.True(t, b.CanActivate(0))
}

func TestFAWTrackerBlocksFifthActivateWithinWindow(t *testing.T) {
	f := NewFAWTracker(32)

	for i := timing.Cycle(0); i < 4; i++ {
		require.True(t, f.CanActivate(i))
		f.RecordActivate(i)
	}

	require.False(t, f.CanActivate(10))
	require.True(t, f.CanActivate(32))
}

func TestFAWTrackerResetClearsHistory(t *testing.T) {
	f := NewFAWTracker(32)
	for i := timing.Cycle(0); i < 4; i++ {
		f.RecordActivate(i)
	}

	f.Reset()

	require.True(t, f.CanActivate(0))
}
