package memctrl_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramctrl/addrmap"
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl"
	"github.com/sarchlab/dramctrl/memctrl/signal"
	"github.com/sarchlab/dramctrl/rank"
	"github.com/sarchlab/dramctrl/sim/hooking"
)

// refreshCounterHook counts REFRESH issues per rank via the CmdIssued hook,
// the same tracing idiom Controller.Update uses internally.
type refreshCounterHook struct {
	counts map[int]int
}

func (h *refreshCounterHook) Func(ctx hooking.HookCtx) {
	pkt, ok := ctx.Item.(*signal.BusPacket)
	if !ok || pkt.Kind != signal.Refresh {
		return
	}

	h.counts[pkt.Rank]++
}

// proxySink breaks the construction-order cycle between the ranks and the
// controller they report completed reads back to, exactly as cmd/dramsim
// wires the two together.
type proxySink struct {
	ctrl *memctrl.Controller
}

func (s *proxySink) SubmitReturn(pkt *signal.BusPacket) { s.ctrl.SubmitReturn(pkt) }

type harness struct {
	cfg         *config.TimingConfig
	ctrl        *memctrl.Controller
	simpleRanks []*rank.SimpleRank
	cycle       uint64
}

func newHarness(cfg *config.TimingConfig) *harness {
	mapper := addrmap.NewBitSliceMapper(1, cfg.NumRanks, cfg.NumBanks, cfg.JEDECDataBusBits/8).
		WithColumnBits(10)

	sink := &proxySink{}

	ranks := make([]memctrl.Rank, cfg.NumRanks)
	simpleRanks := make([]*rank.SimpleRank, cfg.NumRanks)
	for r := 0; r < cfg.NumRanks; r++ {
		sr := rank.NewSimpleRank(cfg, cfg.NumBanks, sink)
		simpleRanks[r] = sr
		ranks[r] = sr
	}

	ctrl := memctrl.MakeBuilder().
		WithTimingConfig(cfg).
		WithMapper(mapper).
		WithRanks(ranks).
		Build("test.ctrl")

	sink.ctrl = ctrl

	return &harness{cfg: cfg, ctrl: ctrl, simpleRanks: simpleRanks}
}

// step advances the controller and every rank by exactly one cycle, mirroring
// cmd/dramsim's trace-replay loop.
func (h *harness) step() {
	h.ctrl.Update(h.cycle)
	for _, sr := range h.simpleRanks {
		sr.Tick(h.cycle)
	}
	h.cycle++
}

func (h *harness) runFor(cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		h.step()
	}
}

var _ = Describe("Controller", func() {
	var cfg *config.TimingConfig

	BeforeEach(func() {
		var err error
		cfg, err = config.MakeBuilder().Build()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("a single read to a cold bank", func() {
		It("returns exactly once, as a row-buffer miss, with non-negative latency", func() {
			h := newHarness(cfg)

			mapper := addrmap.NewBitSliceMapper(1, cfg.NumRanks, cfg.NumBanks, cfg.JEDECDataBusBits/8).
				WithColumnBits(10)
			_, _, bank, _, _ := mapper.Map(0x1000)

			var completions int
			var returnedAddr uint64
			var returnedNow uint64
			h.ctrl.ReturnReadData = func(address, now uint64) {
				completions++
				returnedAddr = address
				returnedNow = now
			}

			Expect(h.ctrl.AddTransaction(&signal.Transaction{
				Kind: signal.DataRead, Address: 0x1000,
			}, h.cycle)).To(BeTrue())

			h.runFor(200)

			Expect(completions).To(Equal(1))
			Expect(returnedAddr).To(Equal(uint64(0x1000)))
			Expect(returnedNow).To(BeNumerically(">", 0))

			Expect(h.ctrl.RowBufferMisses(0, bank)).To(Equal(uint64(1)))
			Expect(h.ctrl.RowBufferHits(0, bank)).To(Equal(uint64(0)))
		})
	})

	Describe("a second read to an already-open row", func() {
		It("is recorded as a row-buffer hit, not a second miss", func() {
			mapper := addrmap.NewBitSliceMapper(1, cfg.NumRanks, cfg.NumBanks, cfg.JEDECDataBusBits/8).
				WithColumnBits(10)

			// Two addresses that decode to the same (rank, bank, row) and
			// different columns: same high bits, low column bits differ.
			_, _, bank1, row1, col1 := mapper.Map(0x1000)
			_, _, bank2, row2, col2 := mapper.Map(0x1004)
			Expect(bank1).To(Equal(bank2))
			Expect(row1).To(Equal(row2))
			Expect(col1).NotTo(Equal(col2))

			h := newHarness(cfg)

			var completions int
			h.ctrl.ReturnReadData = func(address, now uint64) { completions++ }

			Expect(h.ctrl.AddTransaction(&signal.Transaction{Kind: signal.DataRead, Address: 0x1000}, h.cycle)).To(BeTrue())
			h.step()
			Expect(h.ctrl.AddTransaction(&signal.Transaction{Kind: signal.DataRead, Address: 0x1004}, h.cycle)).To(BeTrue())

			h.runFor(200)

			Expect(completions).To(Equal(2))
			Expect(h.ctrl.RowBufferMisses(0, bank1)).To(Equal(uint64(1)))
			Expect(h.ctrl.RowBufferHits(0, bank1)).To(Equal(uint64(1)))
		})
	})

	Describe("row-buffer accounting across a run", func() {
		It("keeps hits+misses equal to the number of READ/WRITE commands issued", func() {
			h := newHarness(cfg)

			var completedReads, completedWrites int
			h.ctrl.ReturnReadData = func(address, now uint64) { completedReads++ }
			h.ctrl.WriteDataDone = func(address, now uint64) { completedWrites++ }

			addrs := []uint64{0x1000, 0x2000, 0x1000, 0x3000, 0x2000}
			for i, a := range addrs {
				kind := signal.DataRead
				if i%2 == 1 {
					kind = signal.DataWrite
				}

				for !h.ctrl.AddTransaction(&signal.Transaction{Kind: kind, Address: a}, h.cycle) {
					h.step()
				}
				h.step()
			}

			h.runFor(500)

			var totalHits, totalMisses uint64
			for b := 0; b < cfg.NumBanks; b++ {
				totalHits += h.ctrl.RowBufferHits(0, b)
				totalMisses += h.ctrl.RowBufferMisses(0, b)
			}

			Expect(totalHits + totalMisses).To(Equal(uint64(completedReads + completedWrites)))
		})
	})

	Describe("refresh fairness", func() {
		It("keeps per-rank refresh counts within one of each other over a long run", func() {
			multiCfg, err := config.MakeBuilder().WithNumRanks(2).WithRefreshPeriod(40).Build()
			Expect(err).NotTo(HaveOccurred())

			h := newHarness(multiCfg)

			hook := &refreshCounterHook{counts: map[int]int{}}
			h.ctrl.AcceptHook(hook)

			h.runFor(2000)

			Expect(hook.counts[0]).NotTo(BeZero())
			Expect(hook.counts[1]).NotTo(BeZero())

			diff := hook.counts[0] - hook.counts[1]
			if diff < 0 {
				diff = -diff
			}
			Expect(diff).To(BeNumerically("<=", 1))
		})
	})
})
