package rank_test

import (
	"testing"

	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/signal"
	"github.com/sarchlab/dramctrl/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	returned []*signal.BusPacket
}

func (s *recordingSink) SubmitReturn(pkt *signal.BusPacket) {
	s.returned = append(s.returned, pkt)
}

func testConfig(t *testing.T) *config.TimingConfig {
	cfg, err := config.MakeBuilder().Build()
	require.NoError(t, err)
	return cfg
}

func TestReceiveFromBusAbsorbsDataPackets(t *testing.T) {
	sink := &recordingSink{}
	r := rank.NewSimpleRank(testConfig(t), 8, sink)

	r.ReceiveFromBus(&signal.BusPacket{Kind: signal.Data, Bank: 0})
	r.Tick(0)

	assert.Empty(t, sink.returned, "a DATA packet from the controller is absorbed, not echoed back")
}

func TestReadCommandEventuallySubmitsDataBack(t *testing.T) {
	sink := &recordingSink{}
	r := rank.NewSimpleRank(testConfig(t), 8, sink)

	r.ReceiveFromBus(&signal.BusPacket{Kind: signal.Read, Bank: 3, PhysicalAddress: 0x4000})

	for i := 0; i < 5 && len(sink.returned) == 0; i++ {
		r.Tick(uint64(i))
	}

	require.Len(t, sink.returned, 1)
	assert.Equal(t, uint64(0x4000), sink.returned[0].PhysicalAddress)
	assert.Equal(t, signal.Data, sink.returned[0].Kind)
}

func TestPowerCallsAndRefreshWaitingToggle(t *testing.T) {
	r := rank.NewSimpleRank(testConfig(t), 8, &recordingSink{})

	r.PowerDown()
	r.PowerUp()

	r.SetRefreshWaiting(true)
	assert.True(t, r.RefreshWaiting())
	r.SetRefreshWaiting(false)
	assert.False(t, r.RefreshWaiting())
}
