package memctrl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/dramctrl/addrmap"
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl"
	"github.com/sarchlab/dramctrl/memctrl/signal"
)

// Low-power entry/exit is driven entirely through the Rank interface
// (PowerDown/PowerUp/RefreshWaiting/SetRefreshWaiting), so a mock rank
// isolates the assertion from rank.SimpleRank's own timing model and lets
// the call sequence itself be the spec under test.
var _ = Describe("Controller low-power transitions", func() {
	var (
		mockCtrl *gomock.Controller
		rk       *MockRank
		ctrl     *memctrl.Controller
		cfg      *config.TimingConfig
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())

		var err error
		cfg, err = config.MakeBuilder().WithLowPower(true).WithNumRanks(1).Build()
		Expect(err).NotTo(HaveOccurred())

		rk = NewMockRank(mockCtrl)
		mapper := addrmap.NewBitSliceMapper(1, cfg.NumRanks, cfg.NumBanks, cfg.JEDECDataBusBits/8).
			WithColumnBits(10)

		ctrl = memctrl.MakeBuilder().
			WithTimingConfig(cfg).
			WithMapper(mapper).
			WithRanks([]memctrl.Rank{rk}).
			Build("lowpower.ctrl")
	})

	It("powers the rank down once idle and back up once a transaction arrives", func() {
		rk.EXPECT().RefreshWaiting().Return(false).AnyTimes()
		rk.EXPECT().SetRefreshWaiting(gomock.Any()).AnyTimes()
		rk.EXPECT().PowerDown().Times(1)

		var cycle uint64
		for ; cycle < 5; cycle++ {
			ctrl.Update(cycle)
		}

		rk.EXPECT().ReceiveFromBus(gomock.Any()).AnyTimes()
		Expect(ctrl.AddTransaction(&signal.Transaction{
			Kind: signal.DataRead, Address: 0x1000,
		}, cycle)).To(BeTrue())

		rk.EXPECT().PowerUp().Times(1)

		for i := 0; i < int(cfg.TCKE)+int(cfg.TXP)+5; i++ {
			ctrl.Update(cycle)
			cycle++
		}
	})
})
