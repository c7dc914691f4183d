package memctrl

import (
	"github.com/swmemsim/memctrl/internal/bank"
	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/internal/timing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func smallOrg() timing.Organization {
	return timing.Organization{
		NumChannels:       1,
		RanksPerChannel:   1,
		BankGroupsPerRank: 1,
		BanksPerBankGroup: 4,
		RowsPerBank:       1024,
		ColumnsPerRow:     256,
		DeviceWidth:       16,
		DevicesPerRank:    1,
		BurstLength:       16,
	}
}

func buildScenarioController(policy scheduler.Policy, refreshPolicy refresh.Policy) *Controller {
	c, err := MakeBuilder().
		WithTechnology(LPDDR5, 6400).
		WithOrganization(smallOrg()).
		WithSchedulerPolicy(policy).
		WithRefreshPolicy(refreshPolicy).
		WithQueueDepth(16).
		Build("ScenarioController")
	Expect(err).NotTo(HaveOccurred())
	return c
}

// address helper: with 1 channel, 1 rank, 1 bank group, 4 banks per group,
// 256 columns and 1024 rows, ROW_BANK_COLUMN order is column(8 bits) then
// bank(2 bits) then row(10 bits).
func addr(row, bank, col uint64) uint64 {
	return (row << 10) | (bank << 8) | col
}

var _ = Describe("Controller scenarios", func() {
	It("charges a single read to a cold bank tRCD+tCL+tBurst cycles", func() {
		c := buildScenarioController(scheduler.FRFCFS, refresh.None)

		var latency uint64
		_, err := c.Read(addr(5, 0, 0), 64, func(l uint64) { latency = l })
		Expect(err).NotTo(HaveOccurred())

		c.TickN(200)

		Expect(latency).To(BeEquivalentTo(43))
	})

	It("serves a stream of row-hit reads with tighter spacing than the initial access", func() {
		c := buildScenarioController(scheduler.FRFCFS, refresh.None)

		var completionCycles []timing.Cycle
		for col := uint64(0); col < 4; col++ {
			_, err := c.Read(addr(5, 0, col), 64, func(uint64) {
				completionCycles = append(completionCycles, c.Cycle())
			})
			Expect(err).NotTo(HaveOccurred())
		}

		c.TickN(300)

		Expect(completionCycles).To(HaveLen(4))
		firstGap := completionCycles[0]
		secondGap := completionCycles[1] - completionCycles[0]
		Expect(secondGap).To(BeNumerically("<", firstGap))
	})

	It("pays the precharge-then-activate cost on a row conflict", func() {
		c := buildScenarioController(scheduler.FIFO, refresh.None)

		var latencies []uint64
		_, err := c.Read(addr(5, 0, 0), 64, func(l uint64) { latencies = append(latencies, l) })
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Read(addr(9, 0, 0), 64, func(l uint64) { latencies = append(latencies, l) })
		Expect(err).NotTo(HaveOccurred())

		c.TickN(400)

		Expect(latencies).To(HaveLen(2))
		Expect(latencies[1]).To(BeNumerically(">", latencies[0]))
	})

	It("reorders a later row hit ahead of an older miss under FR-FCFS", func() {
		fifo := buildScenarioController(scheduler.FIFO, refresh.None)
		frfcfs := buildScenarioController(scheduler.FRFCFS, refresh.None)

		for _, c := range []*Controller{fifo, frfcfs} {
			_, err := c.Read(addr(5, 0, 0), 64, nil)
			Expect(err).NotTo(HaveOccurred())
		}

		var fifoOrder, frfcfsOrder []uint64
		_, err := fifo.Read(addr(9, 0, 0), 64, func(l uint64) { fifoOrder = append(fifoOrder, l) })
		Expect(err).NotTo(HaveOccurred())
		_, err = fifo.Read(addr(5, 0, 1), 64, func(l uint64) { fifoOrder = append(fifoOrder, l) })
		Expect(err).NotTo(HaveOccurred())

		_, err = frfcfs.Read(addr(9, 0, 0), 64, func(l uint64) { frfcfsOrder = append(frfcfsOrder, l) })
		Expect(err).NotTo(HaveOccurred())
		_, err = frfcfs.Read(addr(5, 0, 1), 64, func(l uint64) { frfcfsOrder = append(frfcfsOrder, l) })
		Expect(err).NotTo(HaveOccurred())

		fifo.TickN(400)
		frfcfs.TickN(400)

		Expect(fifoOrder).To(HaveLen(2))
		Expect(frfcfsOrder).To(HaveLen(2))
		Expect(frfcfsOrder[1]).To(BeNumerically("<", fifoOrder[1]))
	})

	It("groups same-kind row hits but respects an address hazard", func() {
		c := buildScenarioController(scheduler.FRFCFSGrouping, refresh.None)

		// A first read opens row 5 and leaves the last command a read, so
		// grouping would prefer the queued read over the earlier write.
		_, err := c.Read(addr(5, 0, 0), 64, nil)
		Expect(err).NotTo(HaveOccurred())
		c.TickN(60)

		var order []string
		_, err = c.Write(addr(5, 0, 0), 64, func(uint64) { order = append(order, "write-hazard") })
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Read(addr(5, 0, 0), 64, func(uint64) { order = append(order, "read") })
		Expect(err).NotTo(HaveOccurred())

		c.TickN(200)

		Expect(order).To(HaveLen(2))
		Expect(order).To(Equal([]string{"write-hazard", "read"}))
	})

	It("limits activations to four within any tFAW window", func() {
		c := buildScenarioController(scheduler.FIFO, refresh.None)

		for bk := uint64(0); bk < 4; bk++ {
			_, err := c.Read(addr(bk+1, bk, 0), 64, nil)
			Expect(err).NotTo(HaveOccurred())
		}

		activations := 0
		activating := make([]bool, 4)
		for i := 0; i < 4; i++ {
			c.Tick()
			for bk := uint32(0); bk < 4; bk++ {
				isActivating := c.BankState(0, bk).String() == "ACTIVATING"
				if isActivating && !activating[bk] {
					activations++
				}
				activating[bk] = isActivating
			}
		}

		Expect(activations).To(BeNumerically("<=", 4))
	})

	It("issues a per-bank refresh once its deadline passes", func() {
		c := buildScenarioController(scheduler.FRFCFS, refresh.PerBank)

		before := c.Stats().Refreshes
		c.TickN(uint64(c.params.TREFI) + 10)

		Expect(c.Stats().Refreshes).To(BeNumerically(">", before))
	})

	It("stalls a row-hit read on a refresh-target bank until the bank completes refresh", func() {
		c, err := MakeBuilder().
			WithTechnology(LPDDR5, 6400).
			WithOrganization(smallOrg()).
			WithSchedulerPolicy(scheduler.FRFCFS).
			WithRefreshPolicy(refresh.PerBank).
			WithRefreshLimits(0, 0).
			WithQueueDepth(16).
			Build("RefreshPreemption")
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Read(addr(5, 0, 0), 64, nil)
		Expect(err).NotTo(HaveOccurred())
		c.TickN(100)

		refreshesBefore := c.Stats().Refreshes

		// Land exactly one cycle short of the refresh deadline, so the
		// queued row-hit read below only gets its first chance to issue on
		// the same tick refresh goes due and urgent (MaxPostpone=0) —
		// pollRefresh precharges the bank before issueCommands ever sees
		// the read.
		c.TickN(uint64(c.params.TREFI) - 101)

		var latency uint64
		_, err = c.Read(addr(5, 0, 1), 64, func(l uint64) { latency = l })
		Expect(err).NotTo(HaveOccurred())

		c.Tick()
		Expect(c.BankState(0, 0)).To(Equal(bank.Precharging))

		c.TickN(uint64(c.params.TRFCpb) + 300)

		Expect(c.Stats().Refreshes).To(BeNumerically(">", refreshesBefore))
		Expect(latency).To(BeNumerically(">", uint64(c.params.TRCD+c.params.TCL+c.params.TBurst)))
	})
})
