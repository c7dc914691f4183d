package memctrl

import (
	gomock "go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/swmemsim/memctrl/internal/refresh"
	"github.com/swmemsim/memctrl/internal/scheduler"
	"github.com/swmemsim/memctrl/sim/hooking"
)

var _ = Describe("Controller hooks", func() {
	var mockCtrl *gomock.Controller

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("invokes a registered hook at command issue and completion", func() {
		c := buildScenarioController(scheduler.FRFCFS, refresh.None)

		hook := NewMockHook(mockCtrl)
		gomock.InOrder(
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.Ctx) {
				Expect(ctx.Pos).To(Equal(hooking.PosCommandIssue))
			}),
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.Ctx) {
				Expect(ctx.Pos).To(Equal(hooking.PosRequestComplete))
			}),
		)
		c.AcceptHook(hook)

		_, err := c.Read(addr(5, 0, 0), 64, nil)
		Expect(err).NotTo(HaveOccurred())

		c.TickN(200)
	})
})
