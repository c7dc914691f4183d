// Package refresh implements a DRAM refresh manager: per-target deadline
// tracking, bounded postpone/pull-in accounting, and six refresh policies
// (NONE through FINE_GRANULARITY). It is grounded on the reference
// IRefreshManager interface, which the reference controller never actually
// instantiates (its constructor comments out the call with a
// "TODO: implement" marker) — this package is a first-class implementation
// wired into the controller's tick loop rather than a stub.
package refresh

import "github.com/swmemsim/memctrl/internal/timing"

// Policy names one of the refresh granularities this package implements.
type Policy uint8

// The refresh policies this package implements.
const (
	None Policy = iota
	AllBank
	PerBank
	SameBank
	Per2Bank
	FineGranularity
)

// BankID names a single bank a refresh target may cover.
type BankID struct {
	Channel uint16
	Rank    uint16
	Bank    uint16
}

// Config parameterizes a Manager.
type Config struct {
	Policy Policy

	TREFI  uint32
	TRFC   uint32
	TRFCpb uint32
	TRFCsb uint32

	MaxPostpone uint8
	MaxPullIn   uint8

	NumChannels uint16
	NumRanks    uint16
	NumBanks    uint16
}

// target is one refresh deadline the manager tracks. Under AllBank there is
// one target per rank covering every bank in it; under PerBank there is one
// target per bank; SameBank groups banks with the same index across
// channels and ranks; Per2Bank pairs consecutive banks in channel/rank/bank
// order;
// FineGranularity subdivides each bank's interval into four sequential
// slices, refreshing a quarter of the bank's rows per event.
type target struct {
	banks     []BankID
	deadline  timing.Cycle
	interval  timing.Cycle
	latency   uint32
	postponed uint8
	pulledIn  uint8
}

// Manager tracks refresh deadlines and enforces bounded postpone/pull-in
// accounting.
type Manager struct {
	cfg     Config
	targets []target

	refreshCount  uint64
	postponeTotal uint64
	pullInTotal   uint64
	refreshCycles uint64
}

// New builds a Manager for the given configuration, seeding every target's
// first deadline at one interval from cycle zero.
func New(cfg Config) *Manager {
	m := &Manager{cfg: cfg}
	m.targets = buildTargets(cfg)
	return m
}

func buildTargets(cfg Config) []target {
	if cfg.Policy == None {
		return nil
	}

	all := allBankIDs(cfg)

	switch cfg.Policy {
	case AllBank:
		return []target{{banks: all, interval: timing.Cycle(cfg.TREFI), latency: cfg.TRFC, deadline: timing.Cycle(cfg.TREFI)}}

	case PerBank:
		targets := make([]target, 0, len(all))
		for _, b := range all {
			targets = append(targets, target{
				banks:    []BankID{b},
				interval: timing.Cycle(cfg.TREFI),
				latency:  cfg.TRFCpb,
				deadline: timing.Cycle(cfg.TREFI),
			})
		}
		return targets

	case SameBank:
		byIndex := map[uint16][]BankID{}
		for _, b := range all {
			byIndex[b.Bank] = append(byIndex[b.Bank], b)
		}
		targets := make([]target, 0, len(byIndex))
		for _, group := range byIndex {
			targets = append(targets, target{
				banks:    group,
				interval: timing.Cycle(cfg.TREFI),
				latency:  cfg.TRFCsb,
				deadline: timing.Cycle(cfg.TREFI),
			})
		}
		return targets

	case Per2Bank:
		var targets []target
		for i := 0; i < len(all); i += 2 {
			end := i + 2
			if end > len(all) {
				end = len(all)
			}
			targets = append(targets, target{
				banks:    append([]BankID{}, all[i:end]...),
				interval: timing.Cycle(cfg.TREFI),
				latency:  cfg.TRFCsb,
				deadline: timing.Cycle(cfg.TREFI),
			})
		}
		return targets

	case FineGranularity:
		targets := make([]target, 0, len(all))
		quarterInterval := timing.Cycle(cfg.TREFI) / 4
		for _, b := range all {
			targets = append(targets, target{
				banks:    []BankID{b},
				interval: quarterInterval,
				latency:  cfg.TRFCsb,
				deadline: quarterInterval,
			})
		}
		return targets

	default:
		return nil
	}
}

func allBankIDs(cfg Config) []BankID {
	var ids []BankID
	for ch := uint16(0); ch < cfg.NumChannels; ch++ {
		for r := uint16(0); r < cfg.NumRanks; r++ {
			for b := uint16(0); b < cfg.NumBanks; b++ {
				ids = append(ids, BankID{Channel: ch, Rank: r, Bank: b})
			}
		}
	}
	return ids
}

// RefreshRequired reports whether any target's deadline has passed.
func (m *Manager) RefreshRequired(now timing.Cycle) bool {
	for i := range m.targets {
		if now >= m.targets[i].deadline {
			return true
		}
	}
	return false
}

// RefreshUrgent reports whether any target has been postponed as many
// times as the configuration allows, meaning it must be issued this cycle.
func (m *Manager) RefreshUrgent(now timing.Cycle) bool {
	for i := range m.targets {
		t := &m.targets[i]
		if now >= t.deadline && t.postponed >= m.cfg.MaxPostpone {
			return true
		}
	}
	return false
}

// BanksToRefresh returns the bank sets whose deadlines have passed, in
// target order.
func (m *Manager) BanksToRefresh(now timing.Cycle) [][]BankID {
	var due [][]BankID
	for i := range m.targets {
		if now >= m.targets[i].deadline {
			due = append(due, m.targets[i].banks)
		}
	}
	return due
}

// RefreshLatency returns the refresh recovery time for a target's bank set,
// looked up by matching the whole set against the tracked targets; a set
// that matches no target gets tRFC.
func (m *Manager) RefreshLatency(banks []BankID) uint32 {
	if len(banks) == 0 {
		return 0
	}
	for i := range m.targets {
		if sameBankSet(m.targets[i].banks, banks) {
			return m.targets[i].latency
		}
	}
	return m.cfg.TRFC
}

func sameBankSet(a, b []BankID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RefreshIssued records that a refresh command issued at cycle now for the
// given bank set, advancing that target's deadline by one interval and
// resetting its postponement count.
func (m *Manager) RefreshIssued(now timing.Cycle, banks []BankID) {
	for i := range m.targets {
		if sameBankSet(m.targets[i].banks, banks) {
			t := &m.targets[i]
			t.deadline = now + t.interval
			t.postponed = 0
			m.refreshCount++
			m.refreshCycles += uint64(m.RefreshLatency(banks))
			return
		}
	}
}

// CanPostpone reports whether the target covering banks may still be
// postponed without exceeding the configured limit.
func (m *Manager) CanPostpone(banks []BankID) bool {
	for i := range m.targets {
		if sameBankSet(m.targets[i].banks, banks) {
			return m.targets[i].postponed < m.cfg.MaxPostpone
		}
	}
	return false
}

// Postpone delays the target covering banks by one interval. It returns
// false without effect if the postponement limit has already been reached.
func (m *Manager) Postpone(banks []BankID) bool {
	for i := range m.targets {
		if sameBankSet(m.targets[i].banks, banks) {
			t := &m.targets[i]
			if t.postponed >= m.cfg.MaxPostpone {
				return false
			}
			t.postponed++
			t.deadline += t.interval
			m.postponeTotal++
			return true
		}
	}
	return false
}

// PullInCandidates returns the bank sets of targets that are not yet due
// but come due within their own refresh latency, so a caller that finds
// itself idle during that stretch can service them now instead of blocking
// a request on them once they do come due.
func (m *Manager) PullInCandidates(now timing.Cycle) [][]BankID {
	var candidates [][]BankID
	for i := range m.targets {
		t := &m.targets[i]
		if now >= t.deadline {
			continue
		}
		if t.deadline-now <= timing.Cycle(t.latency) {
			candidates = append(candidates, t.banks)
		}
	}
	return candidates
}

// PullIn advances the target covering banks to become due immediately,
// bounded by the configured pull-in limit.
func (m *Manager) PullIn(now timing.Cycle, banks []BankID) bool {
	for i := range m.targets {
		if sameBankSet(m.targets[i].banks, banks) {
			t := &m.targets[i]
			if t.pulledIn >= m.cfg.MaxPullIn {
				return false
			}
			t.pulledIn++
			t.deadline = now
			m.pullInTotal++
			return true
		}
	}
	return false
}

// RefreshCount returns the lifetime number of refreshes issued.
func (m *Manager) RefreshCount() uint64 { return m.refreshCount }

// PostponeTotal returns the lifetime number of postponements granted.
func (m *Manager) PostponeTotal() uint64 { return m.postponeTotal }

// PullInTotal returns the lifetime number of pull-ins granted.
func (m *Manager) PullInTotal() uint64 { return m.pullInTotal }

// RefreshCycles returns the lifetime number of cycles spent servicing
// refreshes.
func (m *Manager) RefreshCycles() uint64 { return m.refreshCycles }

// Reset returns every target to its initial deadline and clears lifetime
// counters.
func (m *Manager) Reset() {
	m.targets = buildTargets(m.cfg)
	m.refreshCount = 0
	m.postponeTotal = 0
	m.pullInTotal = 0
	m.refreshCycles = 0
}
