// Package envconfig loads Builder overrides from environment variables and
// an optional .env file, following the MEMCTRL_* naming convention this
// codebase's tracing config uses for its own AKITA_TRACE_* variables.
package envconfig

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/swmemsim/memctrl"
)

// The environment variables ApplyEnv reads.
const (
	EnvTechnology      = "MEMCTRL_TECHNOLOGY"
	EnvSpeedMTs        = "MEMCTRL_SPEED_MT_S"
	EnvQueueDepth      = "MEMCTRL_QUEUE_DEPTH"
	EnvSchedulerPolicy = "MEMCTRL_SCHEDULER_POLICY"
	EnvRefreshPolicy   = "MEMCTRL_REFRESH_POLICY"
)

// LoadDotEnv loads variables from a .env file at path into the process
// environment, if the file exists. A missing file is not an error; any
// other read failure is returned.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields on b with values found in the process
// environment, leaving b unchanged where a variable is unset or
// unrecognized. It never overrides WithTiming or WithOrganization, which
// carry too much structure for a single environment variable.
func ApplyEnv(b memctrl.Builder) memctrl.Builder {
	tech, speed, changed := memctrl.LPDDR5, uint32(6400), false
	if v, ok := os.LookupEnv(EnvTechnology); ok {
		if t, defaultSpeed, ok := parseTechnology(v); ok {
			tech, speed, changed = t, defaultSpeed, true
		}
	}
	if v, ok := os.LookupEnv(EnvSpeedMTs); ok {
		if s, err := strconv.ParseUint(v, 10, 32); err == nil {
			speed, changed = uint32(s), true
		}
	}
	if changed {
		b = b.WithTechnology(tech, speed)
	}
	if v, ok := os.LookupEnv(EnvQueueDepth); ok {
		if depth, err := strconv.ParseUint(v, 10, 32); err == nil {
			b = b.WithQueueDepth(uint32(depth))
		}
	}
	if v, ok := os.LookupEnv(EnvSchedulerPolicy); ok {
		if p, ok := parseSchedulerPolicy(v); ok {
			b = b.WithSchedulerPolicy(p)
		}
	}
	if v, ok := os.LookupEnv(EnvRefreshPolicy); ok {
		if p, ok := parseRefreshPolicy(v); ok {
			b = b.WithRefreshPolicy(p)
		}
	}
	return b
}

func parseTechnology(v string) (memctrl.Technology, uint32, bool) {
	switch v {
	case "IDEAL":
		return memctrl.Ideal, 0, true
	case "DDR5":
		return memctrl.DDR5, 6400, true
	case "LPDDR5":
		return memctrl.LPDDR5, 6400, true
	case "LPDDR5X":
		return memctrl.LPDDR5X, 8533, true
	case "LPDDR6":
		return memctrl.LPDDR6, 10667, true
	case "HBM3":
		return memctrl.HBM3, 6400, true
	case "HBM3E":
		return memctrl.HBM3E, 9600, true
	case "HBM4":
		return memctrl.HBM4, 8000, true
	case "GDDR6":
		return memctrl.GDDR6, 16000, true
	case "GDDR7":
		return memctrl.GDDR7, 32000, true
	default:
		return 0, 0, false
	}
}

func parseSchedulerPolicy(v string) (memctrl.SchedulerPolicy, bool) {
	switch v {
	case "FIFO":
		return memctrl.FIFO, true
	case "FR_FCFS":
		return memctrl.FRFCFS, true
	case "FR_FCFS_GRP":
		return memctrl.FRFCFSGrouping, true
	default:
		return 0, false
	}
}

func parseRefreshPolicy(v string) (memctrl.RefreshPolicy, bool) {
	switch v {
	case "NONE":
		return memctrl.RefreshNone, true
	case "ALL_BANK":
		return memctrl.RefreshAllBank, true
	case "PER_BANK":
		return memctrl.RefreshPerBank, true
	case "SAME_BANK":
		return memctrl.RefreshSameBank, true
	case "PER_2_BANK":
		return memctrl.RefreshPer2Bank, true
	case "FINE_GRANULARITY":
		return memctrl.RefreshFineGranularity, true
	default:
		return 0, false
	}
}
