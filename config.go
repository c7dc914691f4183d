package memctrl

import (
	"fmt"

	"github.com/swmemsim/memctrl/internal/addrmap"
	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/internal/timing"
)

// Technology names a memory technology the timing package ships a preset
// for, plus placeholders reserved for future JEDEC generations.
type Technology uint8

// The technologies a Builder can select.
const (
	Ideal Technology = iota
	DDR5
	LPDDR5
	LPDDR5X
	LPDDR6
	HBM3
	HBM3E
	HBM4
	GDDR6
	GDDR7
)

// String renders a Technology into the name internal/timing.Preset expects.
func (t Technology) String() string {
	switch t {
	case DDR5:
		return "DDR5"
	case LPDDR5:
		return "LPDDR5"
	case LPDDR5X:
		return "LPDDR5X"
	case LPDDR6:
		return "LPDDR6"
	case HBM3:
		return "HBM3"
	case HBM3E:
		return "HBM3E"
	case HBM4:
		return "HBM4"
	case GDDR6:
		return "GDDR6"
	case GDDR7:
		return "GDDR7"
	default:
		return "IDEAL"
	}
}

// SchedulerPolicy re-exports scheduler.Policy so callers of this package
// never need to import internal/scheduler directly.
type SchedulerPolicy = scheduler.Policy

// The scheduler policies a Builder can select.
const (
	FIFO           = scheduler.FIFO
	FRFCFS         = scheduler.FRFCFS
	FRFCFSGrouping = scheduler.FRFCFSGrouping
)

// RefreshPolicy re-exports refresh.Policy.
type RefreshPolicy = refresh.Policy

// The refresh policies a Builder can select.
const (
	RefreshNone            = refresh.None
	RefreshAllBank         = refresh.AllBank
	RefreshPerBank         = refresh.PerBank
	RefreshSameBank        = refresh.SameBank
	RefreshPer2Bank        = refresh.Per2Bank
	RefreshFineGranularity = refresh.FineGranularity
)

// AddressScheme re-exports addrmap.Scheme.
type AddressScheme = addrmap.Scheme

// The address mapping schemes a Builder can select.
const (
	RowBankColumn = addrmap.RowBankColumn
	RowColumnBank = addrmap.RowColumnBank
	BankRowColumn = addrmap.BankRowColumn
	CustomScheme  = addrmap.Custom
)

// ConfigError names the ControllerConfig field that failed validation.
// Builder.Build returns this in place of the reference implementation's
// occasional panic-on-bad-config: an error the caller can inspect and
// recover from is more useful to an embedding application than a crash.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("memctrl: invalid config field %q: %s", e.Field, e.Message)
}

// ControllerConfig is the fully resolved configuration a Builder produces
// and a Controller is built from.
type ControllerConfig struct {
	Fidelity   Fidelity
	Technology Technology
	SpeedMTs   uint32

	Organization timing.Organization
	Timing       timing.Params

	QueueDepth uint32

	SchedulerPolicy SchedulerPolicy

	RefreshPolicy      RefreshPolicy
	RefreshMaxPostpone uint8
	RefreshMaxPullIn   uint8

	AddressScheme AddressScheme
	CustomAddress addrmap.CustomFunc

	EnableTracing    bool
	EnableInvariants bool
	MaxViolations    int
}
