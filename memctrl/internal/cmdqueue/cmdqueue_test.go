package cmdqueue

import (
	"testing"

	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/internal/bankstate"
	"github.com/sarchlab/dramctrl/memctrl/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.TimingConfig {
	cfg, err := config.MakeBuilder().WithNumRanks(2).Build()
	require.NoError(t, err)
	return cfg
}

func TestNewDefaultsToRankRoundRobinPolicy(t *testing.T) {
	cfg := testConfig(t)
	q := New(cfg, bankstate.NewTable(cfg), nil)

	assert.IsType(t, &RankRoundRobinPolicy{}, q.policy)
}

func TestHasRoomForRespectsCmdQueueDepth(t *testing.T) {
	cfg := testConfig(t)
	cfg.CmdQueueDepth = 2
	q := New(cfg, bankstate.NewTable(cfg), nil)

	assert.True(t, q.HasRoomFor(2, 0, 0))
	q.Enqueue(&signal.BusPacket{Kind: signal.Activate, Rank: 0, Bank: 0})
	assert.False(t, q.HasRoomFor(2, 0, 0), "one entry plus two more would exceed depth 2")
	assert.True(t, q.HasRoomFor(1, 0, 0))
}

func TestPopReturnsNilWhenNothingIsLegal(t *testing.T) {
	cfg := testConfig(t)
	tbl := bankstate.NewTable(cfg)
	q := New(cfg, tbl, nil)

	tbl.Cell(0, 0).NextActivate = 100
	q.Enqueue(&signal.BusPacket{Kind: signal.Activate, Rank: 0, Bank: 0})

	assert.Nil(t, q.Pop(0))
}

func TestPopPrefersRowHitOverOlderNonHitCommand(t *testing.T) {
	cfg := testConfig(t)
	tbl := bankstate.NewTable(cfg)
	q := New(cfg, tbl, nil)

	// Bank 1 has an open row matching a queued read; bank 0 has an older,
	// also-legal ACTIVATE. The row hit should be preferred.
	tbl.Cell(0, 1).CurrentState = bankstate.RowActive
	tbl.Cell(0, 1).RowValid = true
	tbl.Cell(0, 1).OpenRow = 7

	q.Enqueue(&signal.BusPacket{Kind: signal.Activate, Rank: 0, Bank: 0, Row: 2})
	q.Enqueue(&signal.BusPacket{Kind: signal.Read, Rank: 0, Bank: 1, Row: 7})

	got := q.Pop(0)
	require.NotNil(t, got)
	assert.Equal(t, signal.Read, got.Kind)
	assert.Equal(t, 1, got.Bank)
}

func TestFAWBlocksAFifthActivateWithinWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.TFAW = 20

	tbl := bankstate.NewTable(cfg)
	q := New(cfg, tbl, nil)

	for b := 0; b < 4; b++ {
		q.recordActivate(0, uint64(b))
	}

	assert.False(t, q.FAWSatisfied(0, 10), "four activates already within the window")
	assert.True(t, q.FAWSatisfied(0, 21), "oldest activate has aged out of the tFAW window")
}

func TestRecordRowBufferOutcomeCountsMissOnlyRightAfterActivate(t *testing.T) {
	cfg := testConfig(t)
	tbl := bankstate.NewTable(cfg)
	q := New(cfg, tbl, nil)

	tbl.Cell(0, 0).LastCommand = signal.Activate
	q.recordRowBufferOutcome(0, &signal.BusPacket{Kind: signal.Read, Rank: 0, Bank: 0})
	assert.EqualValues(t, 1, q.GetRowBufferMisses(0, 0))
	assert.EqualValues(t, 0, q.GetRowBufferHits(0, 0))

	tbl.Cell(0, 0).LastCommand = signal.Read
	q.recordRowBufferOutcome(0, &signal.BusPacket{Kind: signal.Read, Rank: 0, Bank: 0})
	assert.EqualValues(t, 1, q.GetRowBufferHits(0, 0))

	assert.EqualValues(t, 2, q.GetRowBufferHits(0, 0)+q.GetRowBufferMisses(0, 0),
		"hits+misses must equal the number of READ/WRITE issues recorded")
}

func TestResetRowBufferStatsZeroesEveryCounter(t *testing.T) {
	cfg := testConfig(t)
	tbl := bankstate.NewTable(cfg)
	q := New(cfg, tbl, nil)

	q.rowHits[0][0] = 3
	q.rowMisses[1][2] = 4

	q.ResetRowBufferStats()

	assert.EqualValues(t, 0, q.GetRowBufferHits(0, 0))
	assert.EqualValues(t, 0, q.GetRowBufferMisses(1, 2))
}
