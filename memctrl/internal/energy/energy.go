// Package energy accumulates the per-rank IDD-current-based energy counters
// the controller updates on every bank transition and converts them to
// watts at statistics time.
package energy

import "github.com/sarchlab/dramctrl/config"

// Accumulator holds one rank's running energy totals, in units of
// current x cycles x devices, exactly as spec.md's Energy accumulators
// describes. Every field is monotonically non-decreasing within an epoch;
// Reset is the only operation that lowers them, called at epoch boundaries.
type Accumulator struct {
	Background float64
	Burst      float64
	ActPre     float64
	Refresh    float64
}

// Reset zeroes all four counters.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Table holds one Accumulator per rank.
type Table struct {
	cfg   *config.TimingConfig
	ranks []Accumulator
}

// NewTable allocates a Table with one zeroed Accumulator per configured
// rank.
func NewTable(cfg *config.TimingConfig) *Table {
	return &Table{cfg: cfg, ranks: make([]Accumulator, cfg.NumRanks)}
}

// Rank returns a pointer to rank's Accumulator for direct mutation.
func (t *Table) Rank(rank int) *Accumulator { return &t.ranks[rank] }

// ResetEpoch zeroes every rank's accumulator, called at an epoch boundary
// once the epoch's watt figures have been derived.
func (t *Table) ResetEpoch() {
	for i := range t.ranks {
		t.ranks[i].Reset()
	}
}

// AddBackground adds one cycle's worth of background current draw to rank,
// selecting IDD3N (active standby), IDD2P (power-down), or IDD2N (precharge
// standby) per the controller's step 9 rule.
func (t *Table) AddBackground(rank int, rowActiveOrRefreshing, poweredDown bool) {
	a := &t.ranks[rank]

	switch {
	case rowActiveOrRefreshing:
		a.Background += t.cfg.IDD.IDD3N * float64(t.cfg.NumDevices)
	case poweredDown:
		a.Background += t.cfg.IDD.IDD2P * float64(t.cfg.NumDevices)
	default:
		a.Background += t.cfg.IDD.IDD2N * float64(t.cfg.NumDevices)
	}
}

// AddReadBurst adds the burst energy of one READ/READ_P issue.
func (t *Table) AddReadBurst(rank int) {
	a := &t.ranks[rank]
	a.Burst += (t.cfg.IDD.IDD4R - t.cfg.IDD.IDD3N) * float64(t.cfg.BL/2) * float64(t.cfg.NumDevices)
}

// AddWriteBurst adds the burst energy of one WRITE/WRITE_P issue.
func (t *Table) AddWriteBurst(rank int) {
	a := &t.ranks[rank]
	a.Burst += (t.cfg.IDD.IDD4W - t.cfg.IDD.IDD3N) * float64(t.cfg.BL/2) * float64(t.cfg.NumDevices)
}

// AddDRAMActPre adds the ACTIVATE+PRECHARGE energy DRAM mode charges at
// ACTIVATE issue time.
func (t *Table) AddDRAMActPre(rank int) {
	a := &t.ranks[rank]
	idd := t.cfg.IDD
	tRC, tRAS := float64(t.cfg.TRC), float64(t.cfg.TRAS)
	a.ActPre += (idd.IDD0*tRC - (idd.IDD3N*tRAS + idd.IDD2N*(tRC-tRAS))) * float64(t.cfg.NumDevices)
}

// AddSmartMRAMActPre adds the ACTIVATE+PRECHARGE energy SmartMRAM mode
// defers from ACTIVATE issue to the first subsequent READ/WRITE on that
// bank; the formula is identical to AddDRAMActPre, only the charge point
// differs.
func (t *Table) AddSmartMRAMActPre(rank int) {
	a := &t.ranks[rank]
	idd := t.cfg.IDD
	tRC, tRAS := float64(t.cfg.TRC), float64(t.cfg.TRAS)
	a.ActPre += (idd.IDD0*tRC - (idd.IDD3N*tRAS + idd.IDD2N*(tRC-tRAS))) * float64(t.cfg.NumDevices)
}

// AddRefresh adds the energy of one REFRESH issue.
func (t *Table) AddRefresh(rank int) {
	a := &t.ranks[rank]
	a.Refresh += (t.cfg.IDD.IDD5 - t.cfg.IDD.IDD3N) * float64(t.cfg.TRFC) * float64(t.cfg.NumDevices)
}

// Watts is the epoch-boundary conversion of an Accumulator's raw
// current x cycles x devices units into average watts over the given
// number of elapsed cycles, following the source's energy/cycles x Vdd/1000
// formula.
type Watts struct {
	Background, Burst, ActPre, Refresh float64
}

// ToWatts converts rank's accumulator into average watts over elapsedCycles.
func (t *Table) ToWatts(rank int, elapsedCycles uint64) Watts {
	if elapsedCycles == 0 {
		return Watts{}
	}

	a := t.ranks[rank]
	factor := t.cfg.Vdd / 1000.0
	n := float64(elapsedCycles)

	return Watts{
		Background: a.Background / n * factor,
		Burst:      a.Burst / n * factor,
		ActPre:     a.ActPre / n * factor,
		Refresh:    a.Refresh / n * factor,
	}
}
