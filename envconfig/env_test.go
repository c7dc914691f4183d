package envconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swmemsim/memctrl"
)

func TestApplyEnvOverridesTechnologyAndSpeed(t *testing.T) {
	t.Setenv(EnvTechnology, "DDR5")
	t.Setenv(EnvSpeedMTs, "5600")
	t.Setenv(EnvQueueDepth, "8")
	t.Setenv(EnvSchedulerPolicy, "FIFO")
	t.Setenv(EnvRefreshPolicy, "NONE")

	b := ApplyEnv(memctrl.MakeBuilder())
	c, err := b.Build("env-applied")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestParseTechnologyRecognizesAllPresets(t *testing.T) {
	cases := map[string]memctrl.Technology{
		"IDEAL":   memctrl.Ideal,
		"DDR5":    memctrl.DDR5,
		"LPDDR5":  memctrl.LPDDR5,
		"LPDDR5X": memctrl.LPDDR5X,
		"LPDDR6":  memctrl.LPDDR6,
		"HBM3":    memctrl.HBM3,
		"HBM3E":   memctrl.HBM3E,
		"HBM4":    memctrl.HBM4,
		"GDDR6":   memctrl.GDDR6,
		"GDDR7":   memctrl.GDDR7,
	}
	for name, want := range cases {
		got, _, ok := parseTechnology(name)
		require.True(t, ok, name)
		require.Equal(t, want, got, name)
	}

	_, _, ok := parseTechnology("NOT_A_TECHNOLOGY")
	require.False(t, ok)
}

func TestParseSchedulerPolicyRejectsUnknown(t *testing.T) {
	p, ok := parseSchedulerPolicy("FR_FCFS")
	require.True(t, ok)
	require.Equal(t, memctrl.FRFCFS, p)

	_, ok = parseSchedulerPolicy("BOGUS")
	require.False(t, ok)
}

func TestParseRefreshPolicyRejectsUnknown(t *testing.T) {
	p, ok := parseRefreshPolicy("SAME_BANK")
	require.True(t, ok)
	require.Equal(t, memctrl.RefreshSameBank, p)

	_, ok = parseRefreshPolicy("BOGUS")
	require.False(t, ok)
}

func TestApplyEnvLeavesBuilderUnchangedWhenUnset(t *testing.T) {
	b := memctrl.MakeBuilder()
	got := ApplyEnv(b)
	_, err1 := b.Build("baseline")
	_, err2 := got.Build("env-applied")
	require.Equal(t, err1, err2)
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	require.NoError(t, LoadDotEnv("/nonexistent/path/.env"))
}
