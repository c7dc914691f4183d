package memctrl

import (
	"github.com/swmemsim/memctrl/internal/addrmap"
	"github.com/swmemsim/memctrl/internal/bank"
	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/internal/stats"
	"github.com/swmemsim/memctrl/internal/timing"
	"github.com/swmemsim/memctrl/sim/naming"
)

// Builder constructs a Controller either from field-by-field setters or a
// pre-populated ControllerConfig, mirroring the fluent With*/Build(name)
// idiom the rest of this codebase's component builders use.
type Builder struct {
	cfg ControllerConfig
}

// MakeBuilder returns a Builder seeded with the LPDDR5-6400 defaults: a
// permissive, well-tested starting point rather than the zero value, which
// would describe a memory with zero banks.
func MakeBuilder() Builder {
	return Builder{cfg: ControllerConfig{
		Fidelity:           CycleAccurate,
		Technology:         LPDDR5,
		SpeedMTs:           6400,
		Organization:       timing.DefaultOrganization(),
		QueueDepth:         32,
		SchedulerPolicy:    scheduler.FRFCFS,
		RefreshPolicy:      refresh.PerBank,
		RefreshMaxPostpone: 8,
		RefreshMaxPullIn:   8,
		AddressScheme:      addrmap.RowBankColumn,
		MaxViolations:      256,
	}}
}

// WithFidelity sets the simulation fidelity.
func (b Builder) WithFidelity(f Fidelity) Builder { b.cfg.Fidelity = f; return b }

// WithTechnology selects a JEDEC preset technology and speed grade; the
// preset's timing parameters can still be overridden via WithTiming.
func (b Builder) WithTechnology(t Technology, speedMTs uint32) Builder {
	b.cfg.Technology = t
	b.cfg.SpeedMTs = speedMTs
	return b
}

// WithOrganization sets the channel/rank/bank/row/column organization.
func (b Builder) WithOrganization(org timing.Organization) Builder {
	b.cfg.Organization = org
	return b
}

// WithTiming overrides the technology preset's timing parameters directly.
func (b Builder) WithTiming(p timing.Params) Builder { b.cfg.Timing = p; return b }

// WithQueueDepth sets the scheduler's total buffer capacity.
func (b Builder) WithQueueDepth(depth uint32) Builder { b.cfg.QueueDepth = depth; return b }

// WithSchedulerPolicy selects the request scheduling policy.
func (b Builder) WithSchedulerPolicy(p SchedulerPolicy) Builder {
	b.cfg.SchedulerPolicy = p
	return b
}

// WithRefreshPolicy selects the refresh granularity.
func (b Builder) WithRefreshPolicy(p RefreshPolicy) Builder {
	b.cfg.RefreshPolicy = p
	return b
}

// WithRefreshLimits bounds refresh postponement and pull-in counts.
func (b Builder) WithRefreshLimits(maxPostpone, maxPullIn uint8) Builder {
	b.cfg.RefreshMaxPostpone = maxPostpone
	b.cfg.RefreshMaxPullIn = maxPullIn
	return b
}

// WithAddressScheme selects the address decoding scheme.
func (b Builder) WithAddressScheme(scheme AddressScheme) Builder {
	b.cfg.AddressScheme = scheme
	return b
}

// WithCustomAddressFunc supplies the decode function used when the address
// scheme is CustomScheme.
func (b Builder) WithCustomAddressFunc(f addrmap.CustomFunc) Builder {
	b.cfg.CustomAddress = f
	return b
}

// WithTracing records the tracing toggle in the configuration. The
// controller does not consult it: hooks registered with AcceptHook fire
// whether or not it is set.
func (b Builder) WithTracing(enable bool) Builder { b.cfg.EnableTracing = enable; return b }

// WithInvariants enables the bounded invariant violation log.
func (b Builder) WithInvariants(enable bool) Builder {
	b.cfg.EnableInvariants = enable
	return b
}

// WithMaxViolations bounds the invariant violation log length.
func (b Builder) WithMaxViolations(n int) Builder { b.cfg.MaxViolations = n; return b }

// WithConfig replaces the builder's entire configuration.
func (b Builder) WithConfig(cfg ControllerConfig) Builder { b.cfg = cfg; return b }

// Build validates the accumulated configuration and constructs a
// Controller. A non-nil error is always a *ConfigError naming the
// offending field.
func (b Builder) Build(name string) (*Controller, error) {
	cfg := b.cfg

	if cfg.Fidelity != CycleAccurate {
		return nil, &ConfigError{Field: "fidelity", Message: "only CycleAccurate is implemented, got " + cfg.Fidelity.String()}
	}
	if cfg.Organization.NumChannels == 0 {
		return nil, &ConfigError{Field: "organization.num_channels", Message: "must be at least 1"}
	}
	if cfg.Organization.RanksPerChannel == 0 {
		return nil, &ConfigError{Field: "organization.ranks_per_channel", Message: "must be at least 1"}
	}
	if cfg.Organization.BankGroupsPerRank == 0 || cfg.Organization.BanksPerBankGroup == 0 {
		return nil, &ConfigError{Field: "organization.banks_per_rank", Message: "bank group and bank-per-group counts must be at least 1"}
	}
	if cfg.QueueDepth == 0 {
		return nil, &ConfigError{Field: "queue_depth", Message: "must be at least 1"}
	}
	if cfg.AddressScheme == addrmap.Custom && cfg.CustomAddress == nil {
		return nil, &ConfigError{Field: "address_scheme", Message: "CustomScheme requires WithCustomAddressFunc"}
	}

	params := cfg.Timing
	if (params == timing.Params{}) {
		params = timing.Preset(cfg.Technology.String(), cfg.SpeedMTs)
	}
	if problems := params.Validate(); len(problems) > 0 {
		return nil, &ConfigError{Field: "timing." + problems[0], Message: "timing parameters fail an internal consistency check"}
	}

	banksPerRank := cfg.Organization.BanksPerRank()
	totalBanks := uint32(cfg.Organization.NumChannels) * uint32(cfg.Organization.RanksPerChannel) * uint32(banksPerRank)

	c := &Controller{
		NamedBase: naming.MakeNamedBase(name),
		cfg:       cfg,
		params:    params,
		stats:     stats.New(),
	}

	c.banks = make([]*bank.Bank, totalBanks)
	for i := range c.banks {
		c.banks[i] = bank.New(params)
	}

	c.bankMeta = make([]bankMeta, 0, totalBanks)
	for ch := uint16(0); ch < cfg.Organization.NumChannels; ch++ {
		for rk := uint16(0); rk < cfg.Organization.RanksPerChannel; rk++ {
			for bg := uint16(0); bg < cfg.Organization.BankGroupsPerRank; bg++ {
				for bk := uint16(0); bk < cfg.Organization.BanksPerBankGroup; bk++ {
					c.bankMeta = append(c.bankMeta, bankMeta{channel: ch, rank: rk, bankGroup: bg, bank: bk})
				}
			}
		}
	}

	c.faw = make([]*bank.FAWTracker, uint32(cfg.Organization.NumChannels)*uint32(cfg.Organization.RanksPerChannel))
	for i := range c.faw {
		c.faw[i] = bank.NewFAWTracker(params.TFAW)
	}

	c.scheduler = scheduler.New(scheduler.Config{
		Policy:     cfg.SchedulerPolicy,
		NumBanks:   totalBanks,
		BufferSize: cfg.QueueDepth,
	})

	c.refresh = refresh.New(refresh.Config{
		Policy:      cfg.RefreshPolicy,
		TREFI:       params.TREFI,
		TRFC:        params.TRFC,
		TRFCpb:      params.TRFCpb,
		TRFCsb:      params.TRFCsb,
		MaxPostpone: cfg.RefreshMaxPostpone,
		MaxPullIn:   cfg.RefreshMaxPullIn,
		NumChannels: cfg.Organization.NumChannels,
		NumRanks:    cfg.Organization.RanksPerChannel,
		NumBanks:    banksPerRank,
	})

	mapperOrg := addrmap.Organization{
		NumChannels:       cfg.Organization.NumChannels,
		RanksPerChannel:   cfg.Organization.RanksPerChannel,
		BankGroupsPerRank: cfg.Organization.BankGroupsPerRank,
		BanksPerBankGroup: cfg.Organization.BanksPerBankGroup,
		RowsPerBank:       cfg.Organization.RowsPerBank,
		ColumnsPerRow:     cfg.Organization.ColumnsPerRow,
	}
	c.mapper = addrmap.New(cfg.AddressScheme, mapperOrg)
	if cfg.AddressScheme == addrmap.Custom {
		c.mapper.WithCustomFunc(cfg.CustomAddress)
	}

	c.arena = make(map[RequestID]*pendingRequest)
	c.pendingCompletion = make(map[timing.Cycle][]completion)
	c.nextID = 1
	c.lastCmd = scheduler.Read

	return c, nil
}
