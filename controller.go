package memctrl

import (
	"errors"

	"github.com/swmemsim/memctrl/internal/addrmap"
	"github.com/swmemsim/memctrl/internal/bank"
	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/internal/stats"
	"github.com/swmemsim/memctrl/internal/timing"
	"github.com/swmemsim/memctrl/sim/hooking"
	"github.com/swmemsim/memctrl/sim/naming"
)

// ErrQueueFull is returned by Submit when the scheduler's buffer has no
// room for another request.
var ErrQueueFull = errors.New("memctrl: scheduler buffer full")

// bankMeta records the decoded channel/rank/bank-group/bank coordinates a
// flat bank index corresponds to, so the controller can recover bank-group
// adjacency (for tCCD_L vs tCCD_S) and rank grouping (for the FAW tracker
// and per-rank refresh) without re-deriving them every cycle.
type bankMeta struct {
	channel, rank, bankGroup, bank uint16
}

// pageOutcome records what the bank looked like when a request's access was
// first selected for service, for page-hit/page-empty/page-conflict
// accounting. The zero value is pageHit, meaning a request that never passes
// through tryActivate or tryPrecharge found its row already open.
type pageOutcome uint8

const (
	pageHit pageOutcome = iota
	pageEmpty
	pageConflict
)

// pendingRequest is the arena entry a submitted Request lives in until it
// completes. outcome records the page-buffer state the bank was in when this
// request was first selected for service.
type pendingRequest struct {
	req     *Request
	outcome pageOutcome
}

// completion is a scheduled callback/stat-recording event, keyed by the
// cycle it fires on.
type completion struct {
	id           RequestID
	kind         RequestKind
	latency      uint64
	pageHit      bool
	pageConflict bool
}

// Controller orchestrates banks, a scheduler, and a refresh manager behind
// a four-phase externally clocked tick. It embeds NamedBase and
// HookableBase so it can be named by its Builder and observed by hooks
// exactly the way this codebase's other long-lived components are.
type Controller struct {
	naming.NamedBase
	hooking.HookableBase

	cfg    ControllerConfig
	params timing.Params

	banks    []*bank.Bank
	bankMeta []bankMeta
	faw      []*bank.FAWTracker

	scheduler scheduler.Scheduler
	refresh   *refresh.Manager
	mapper    *addrmap.Mapper
	stats     *stats.Statistics

	arena  map[RequestID]*pendingRequest
	nextID RequestID
	cycle  timing.Cycle

	lastCmd           scheduler.Kind
	lastCmdBankGroup  uint32
	pendingCompletion map[timing.Cycle][]completion

	violations []Violation
}

// Cycle returns the current simulation cycle.
func (c *Controller) Cycle() timing.Cycle { return c.cycle }

// NumChannels returns the number of channels this controller was built
// with.
func (c *Controller) NumChannels() uint16 { return c.cfg.Organization.NumChannels }

// BanksPerChannel returns the number of banks per channel (across all
// ranks in that channel).
func (c *Controller) BanksPerChannel() uint32 {
	return uint32(c.cfg.Organization.RanksPerChannel) * uint32(c.cfg.Organization.BanksPerRank())
}

// Stats returns the controller's monotonic statistics counters.
func (c *Controller) Stats() *stats.Statistics { return c.stats }

// Violations returns the invariant violations recorded so far, bounded by
// ControllerConfig.MaxViolations.
func (c *Controller) Violations() []Violation { return c.violations }

// ClearViolations empties the violation log.
func (c *Controller) ClearViolations() { c.violations = nil }

// CanAccept reports whether the scheduler buffer has room for one more
// request.
func (c *Controller) CanAccept() bool { return c.scheduler.HasSpace(1) }

// HasPending reports whether any request is buffered or in flight.
func (c *Controller) HasPending() bool {
	return c.scheduler.HasAnyPending() || len(c.arena) > 0
}

// PendingCount returns the number of requests buffered or in flight.
func (c *Controller) PendingCount() uint32 {
	n := c.scheduler.Occupancy()
	for _, due := range c.pendingCompletion {
		n += uint32(len(due))
	}
	return n
}

// BankState reports the JEDEC state of one bank, addressed by channel and
// a bank index that spans ranks (0..BanksPerChannel).
func (c *Controller) BankState(channel uint16, bankIdx uint32) bank.State {
	gi, ok := c.globalIndexFromChannelBank(channel, bankIdx)
	if !ok {
		return bank.Idle
	}
	return c.banks[gi].State()
}

// IsRowOpen reports whether the given row is open in the given bank.
func (c *Controller) IsRowOpen(channel uint16, bankIdx uint32, row uint32) bool {
	gi, ok := c.globalIndexFromChannelBank(channel, bankIdx)
	if !ok {
		return false
	}
	b := c.banks[gi]
	return b.IsRowOpen() && b.OpenRow() == row
}

// OpenRow returns the currently open row for a bank, if any.
func (c *Controller) OpenRow(channel uint16, bankIdx uint32) (uint32, bool) {
	gi, ok := c.globalIndexFromChannelBank(channel, bankIdx)
	if !ok {
		return 0, false
	}
	b := c.banks[gi]
	return b.OpenRow(), b.IsRowOpen()
}

func (c *Controller) globalIndexFromChannelBank(channel uint16, bankIdx uint32) (uint32, bool) {
	perChannel := c.BanksPerChannel()
	if uint32(channel) >= uint32(c.cfg.Organization.NumChannels) || bankIdx >= perChannel {
		return 0, false
	}
	return uint32(channel)*perChannel + bankIdx, true
}

// Submit admits a request into the scheduler buffer, decoding its address
// and assigning it a RequestID. It returns ErrQueueFull if the buffer has
// no space.
func (c *Controller) Submit(req Request) (RequestID, error) {
	if !c.scheduler.HasSpace(1) {
		return 0, ErrQueueFull
	}

	req.ID = c.nextID
	c.nextID++
	// The earliest cycle this request can be acted on is the next tick, not
	// the current one: c.cycle names the last completed cycle.
	req.SubmitCycle = c.cycle + 1

	fields := c.mapper.Decode(req.Address)
	req.Channel = fields.Channel
	req.Rank = fields.Rank
	req.BankGroup = fields.BankGroup
	req.Bank = fields.Bank
	req.Row = fields.Row
	req.Column = fields.Column

	localBank := fields.BankGroup*c.cfg.Organization.BanksPerBankGroup + fields.Bank
	gi := c.globalIndex(fields.Channel, fields.Rank, localBank)

	stored := req
	c.arena[req.ID] = &pendingRequest{req: &stored}

	kind := scheduler.Read
	if req.Kind == Write {
		kind = scheduler.Write
	}

	c.scheduler.Store(scheduler.Entry{
		ID:      uint64(req.ID),
		Bank:    gi,
		Row:     req.Row,
		Kind:    kind,
		Address: req.Address,
		Arrival: c.cycle,
	})

	return req.ID, nil
}

// Read is a convenience wrapper around Submit for read requests.
func (c *Controller) Read(address uint64, size uint32, callback func(latency uint64)) (RequestID, error) {
	return c.Submit(Request{Address: address, Size: size, Kind: Read, Callback: callback})
}

// Write is a convenience wrapper around Submit for write requests.
func (c *Controller) Write(address uint64, size uint32, callback func(latency uint64)) (RequestID, error) {
	return c.Submit(Request{Address: address, Size: size, Kind: Write, Callback: callback})
}

func (c *Controller) globalIndex(channel, rank, localBank uint16) uint32 {
	ranksPerChannel := uint32(c.cfg.Organization.RanksPerChannel)
	banksPerRank := uint32(c.cfg.Organization.BanksPerRank())
	return uint32(channel)*ranksPerChannel*banksPerRank + uint32(rank)*banksPerRank + uint32(localBank)
}

func (c *Controller) rankIndex(channel, rank uint16) uint32 {
	return uint32(channel)*uint32(c.cfg.Organization.RanksPerChannel) + uint32(rank)
}

func (c *Controller) bankGroupIndex(meta bankMeta) uint32 {
	bankGroupsPerRank := uint32(c.cfg.Organization.BankGroupsPerRank)
	ranksPerChannel := uint32(c.cfg.Organization.RanksPerChannel)
	return uint32(meta.channel)*ranksPerChannel*bankGroupsPerRank +
		uint32(meta.rank)*bankGroupsPerRank + uint32(meta.bankGroup)
}

// Tick advances the simulation by one cycle: bank state machines, then the
// refresh manager, then command issue, then completion retirement.
func (c *Controller) Tick() {
	c.cycle++
	now := c.cycle

	c.advanceBanks(now)
	blocked := c.pollRefresh(now)
	c.issueCommands(now, blocked)
	c.retireCompletions(now)

	if c.cfg.EnableInvariants {
		c.checkInvariants(now)
	}
}

// TickN advances the simulation by n cycles.
func (c *Controller) TickN(n uint64) {
	for i := uint64(0); i < n; i++ {
		c.Tick()
	}
}

// RefreshRequired reports whether any refresh target's deadline has passed
// as of the current cycle.
func (c *Controller) RefreshRequired() bool {
	return c.refresh.RefreshRequired(c.cycle)
}

// Drain ticks the controller until no request is buffered or in flight and
// no refresh is due, so a caller doesn't stop with a refresh deadline still
// outstanding.
func (c *Controller) Drain() {
	for c.HasPending() || c.RefreshRequired() {
		c.Tick()
	}
}

// Reset returns the controller to its freshly built state, clearing all
// banks, the scheduler buffer, refresh deadlines, statistics, and the
// violation log.
func (c *Controller) Reset() {
	c.cycle = 0
	c.nextID = 1
	c.lastCmd = scheduler.Read
	c.lastCmdBankGroup = 0

	for _, b := range c.banks {
		b.Reset()
	}
	for _, f := range c.faw {
		f.Reset()
	}
	c.scheduler.Reset()
	c.refresh.Reset()
	c.stats.Reset()
	c.arena = make(map[RequestID]*pendingRequest)
	c.pendingCompletion = make(map[timing.Cycle][]completion)
	c.violations = nil
}

func (c *Controller) advanceBanks(now timing.Cycle) {
	for _, b := range c.banks {
		b.Tick(now)
	}
}

// pollRefresh advances the refresh manager and issues refresh commands to
// banks that are idle and due. Banks that are due but still hold an open
// row are driven toward idle with a precharge rather than left to become
// idle on their own; it returns the set of global bank indices that are due
// for refresh but not yet idle, so issueCommands can avoid opening a new
// row in them this cycle.
func (c *Controller) pollRefresh(now timing.Cycle) map[uint32]bool {
	blocked := map[uint32]bool{}
	if c.cfg.RefreshPolicy == refresh.None {
		return blocked
	}

	c.pullInIdleTargets(now)

	urgent := c.refresh.RefreshUrgent(now)
	due := c.refresh.BanksToRefresh(now)
	for _, group := range due {
		allIdle := true
		indices := make([]uint32, 0, len(group))
		for _, id := range group {
			gi := c.globalIndex(id.Channel, id.Rank, id.Bank)
			indices = append(indices, gi)
			if c.banks[gi].State() != bank.Idle {
				allIdle = false
			}
		}

		if allIdle {
			rfc := c.refresh.RefreshLatency(group)
			for _, gi := range indices {
				c.banks[gi].Refresh(now, rfc)
			}
			c.refresh.RefreshIssued(now, group)
			c.stats.Refreshes++

			if c.NumHooks() > 0 {
				c.InvokeHook(hooking.Ctx{Domain: c, Pos: hooking.PosRefreshIssue, Item: group})
			}
			continue
		}

		// At least one target bank still has an open row. A fully Active
		// bank past its own tRAS is precharged immediately so it reaches
		// idle and gets refreshed on a later call; a bank still mid-ACT/
		// RD/WR is left alone since it reaches Active on its own. Postpone
		// is only used to give those in-flight banks a little more room,
		// and never once the target is urgent.
		progressed := false
		for _, gi := range indices {
			b := c.banks[gi]
			if b.State() == bank.Active && b.CanPrecharge(now) {
				b.Precharge(now)
				progressed = true
			}
		}

		if !urgent && !progressed && c.refresh.CanPostpone(group) {
			c.refresh.Postpone(group)
		}

		for _, gi := range indices {
			blocked[gi] = true
		}
	}

	return blocked
}

// pullInIdleTargets opportunistically advances a not-yet-due refresh
// target's deadline to now when every bank it covers is idle with nothing
// buffered for it and the target is close enough to due that the idle
// stretch would otherwise be wasted.
func (c *Controller) pullInIdleTargets(now timing.Cycle) {
	for _, group := range c.refresh.PullInCandidates(now) {
		quiet := true
		for _, id := range group {
			gi := c.globalIndex(id.Channel, id.Rank, id.Bank)
			if c.banks[gi].State() != bank.Idle || c.scheduler.BufferDepth(gi) != 0 {
				quiet = false
				break
			}
		}
		if quiet {
			c.refresh.PullIn(now, group)
		}
	}
}

func (c *Controller) issueCommands(now timing.Cycle, blocked map[uint32]bool) {
	for gi, b := range c.banks {
		giU := uint32(gi)
		if blocked[giU] {
			continue
		}

		meta := c.bankMeta[gi]
		openRow, rowOpen := b.OpenRow(), b.IsRowOpen()

		entry, ok := c.scheduler.GetNext(giU, openRow, rowOpen, c.lastCmd)
		if !ok {
			continue
		}

		switch {
		case !rowOpen:
			c.tryActivate(now, b, meta, giU, entry)

		case rowOpen && openRow == entry.Row:
			c.tryAccess(now, b, meta, giU, entry)

		default:
			c.tryPrecharge(now, b, giU, entry.ID)
		}
	}
}

func (c *Controller) tryActivate(now timing.Cycle, b *bank.Bank, meta bankMeta, gi uint32, entry scheduler.Entry) {
	if !b.CanActivate(now) {
		return
	}
	rankIdx := c.rankIndex(meta.channel, meta.rank)
	if !c.faw[rankIdx].CanActivate(now) {
		return
	}
	if pr, ok := c.arena[RequestID(entry.ID)]; ok && pr.outcome == pageHit {
		pr.outcome = pageEmpty
	}
	b.Activate(now, entry.Row)
	c.faw[rankIdx].RecordActivate(now)
}

func (c *Controller) tryAccess(now timing.Cycle, b *bank.Bank, meta bankMeta, gi uint32, entry scheduler.Entry) {
	isRead := entry.Kind == scheduler.Read
	if !b.CanAccess(now, entry.Row, isRead) {
		return
	}

	sameBankGroup := c.bankGroupIndex(meta) == c.lastCmdBankGroup

	var casLatency timing.Cycle
	if isRead {
		b.Read(now, sameBankGroup)
		casLatency = timing.Cycle(c.params.TCL)
	} else {
		b.Write(now, sameBankGroup)
		casLatency = timing.Cycle(c.params.TWL)
	}

	pr, ok := c.arena[RequestID(entry.ID)]
	if !ok {
		c.scheduler.Remove(gi, entry.ID)
		return
	}

	completeAt := now + casLatency + timing.Cycle(c.params.TBurst)
	latency := uint64(completeAt - pr.req.SubmitCycle)
	kind := Read
	if !isRead {
		kind = Write
	}

	c.pendingCompletion[completeAt] = append(c.pendingCompletion[completeAt], completion{
		id:           pr.req.ID,
		kind:         kind,
		latency:      latency,
		pageHit:      pr.outcome == pageHit,
		pageConflict: pr.outcome == pageConflict,
	})

	switch {
	case c.lastCmd == scheduler.Read && entry.Kind == scheduler.Write:
		c.stats.ReadToWriteTurnarounds++
	case c.lastCmd == scheduler.Write && entry.Kind == scheduler.Read:
		c.stats.WriteToReadTurnarounds++
	}

	c.scheduler.Remove(gi, entry.ID)
	c.lastCmd = entry.Kind
	c.lastCmdBankGroup = c.bankGroupIndex(meta)

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.Ctx{Domain: c, Pos: hooking.PosCommandIssue, Item: entry})
	}
}

func (c *Controller) tryPrecharge(now timing.Cycle, b *bank.Bank, gi uint32, entryID uint64) {
	if pr, ok := c.arena[RequestID(entryID)]; ok {
		pr.outcome = pageConflict
	}
	if b.CanPrecharge(now) {
		b.Precharge(now)
	}
}

func (c *Controller) retireCompletions(now timing.Cycle) {
	due, ok := c.pendingCompletion[now]
	if !ok {
		return
	}
	delete(c.pendingCompletion, now)

	for _, comp := range due {
		pr, ok := c.arena[comp.id]
		if !ok {
			continue
		}

		c.stats.RecordRequest(stats.RequestKind(comp.kind), comp.latency, comp.pageHit, comp.pageConflict)

		if pr.req.Callback != nil {
			pr.req.Callback(comp.latency)
		}
		if c.NumHooks() > 0 {
			detail := CompletionDetail{Latency: comp.latency, PageHit: comp.pageHit, PageConflict: comp.pageConflict}
			c.InvokeHook(hooking.Ctx{Domain: c, Pos: hooking.PosRequestComplete, Item: pr.req, Detail: detail})
		}

		delete(c.arena, comp.id)
	}
}

// checkInvariants performs the bounded set of runtime consistency checks
// enforced when invariant checking is enabled, appending to the violation
// log rather than panicking so a caller can decide how to react.
func (c *Controller) checkInvariants(now timing.Cycle) {
	for gi, b := range c.banks {
		if b.IsRowOpen() && b.State() != bank.Active && b.State() != bank.Reading && b.State() != bank.Writing {
			c.logViolation(now, "I-BANK-STATE", "bank reports an open row while not Active/Reading/Writing", gi)
		}
	}
}

func (c *Controller) logViolation(now timing.Cycle, invariantID, message string, gi int) {
	meta := c.bankMeta[gi]
	v := Violation{Cycle: now, InvariantID: invariantID, Message: message, Channel: meta.channel, Bank: meta.bank}

	if c.cfg.MaxViolations > 0 && len(c.violations) >= c.cfg.MaxViolations {
		return
	}
	c.violations = append(c.violations, v)

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.Ctx{Domain: c, Pos: hooking.PosViolationLogged, Item: v})
	}
}
