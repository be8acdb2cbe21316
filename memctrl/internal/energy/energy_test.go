package energy

import (
	"testing"

	"github.com/sarchlab/dramctrl/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.TimingConfig {
	cfg, err := config.MakeBuilder().Build()
	require.NoError(t, err)
	return cfg
}

func TestAccumulatorsAreMonotonicWithinAnEpoch(t *testing.T) {
	tbl := NewTable(testConfig(t))

	tbl.AddBackground(0, true, false)
	tbl.AddReadBurst(0)
	tbl.AddDRAMActPre(0)
	tbl.AddRefresh(0)

	a := *tbl.Rank(0)
	assert.Greater(t, a.Background, 0.0)
	assert.Greater(t, a.Burst, 0.0)
	assert.Greater(t, a.ActPre, 0.0)
	assert.Greater(t, a.Refresh, 0.0)

	before := a
	tbl.AddBackground(0, true, false)
	after := *tbl.Rank(0)

	assert.GreaterOrEqual(t, after.Background, before.Background)
	assert.Equal(t, before.Burst, after.Burst, "unrelated accumulators are untouched")
}

func TestResetEpochZeroesEveryRank(t *testing.T) {
	tbl := NewTable(testConfig(t))

	tbl.AddBackground(0, true, false)
	tbl.ResetEpoch()

	assert.Equal(t, Accumulator{}, *tbl.Rank(0))
}

func TestDRAMAndSmartMRAMActPreSumEquallyOnIdenticalAccessPatterns(t *testing.T) {
	cfg := testConfig(t)

	dram := NewTable(cfg)
	smart := NewTable(cfg)

	const n = 100
	for i := 0; i < n; i++ {
		dram.AddDRAMActPre(0)
		smart.AddSmartMRAMActPre(0)
	}

	want := float64(n) * (cfg.IDD.IDD0*float64(cfg.TRC) -
		(cfg.IDD.IDD3N*float64(cfg.TRAS) + cfg.IDD.IDD2N*float64(cfg.TRC-cfg.TRAS))) * float64(cfg.NumDevices)

	assert.InDelta(t, want, dram.Rank(0).ActPre, 1e-6)
	assert.InDelta(t, want, smart.Rank(0).ActPre, 1e-6,
		"SmartMRAM charges the identical formula, only deferred to the first READ/WRITE after ACTIVATE")
	assert.InDelta(t, dram.Rank(0).ActPre, smart.Rank(0).ActPre, 1e-6)
}

func TestToWattsIsZeroWithNoElapsedCycles(t *testing.T) {
	tbl := NewTable(testConfig(t))
	tbl.AddBackground(0, true, false)

	assert.Equal(t, Watts{}, tbl.ToWatts(0, 0))
}

func TestToWattsScalesWithVddAndCycles(t *testing.T) {
	cfg := testConfig(t)
	tbl := NewTable(cfg)

	a := tbl.Rank(0)
	a.Background = 1000

	w := tbl.ToWatts(0, 100)
	want := 1000.0 / 100.0 * (cfg.Vdd / 1000.0)
	assert.InDelta(t, want, w.Background, 1e-9)
}
