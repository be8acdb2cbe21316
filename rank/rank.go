// Package rank provides the device-facing collaborator the memory
// controller drives commands into: a reference Rank/Bank model that tracks
// each bank's in-flight command to its device-side completion cycle and,
// for reads, produces the DATA packet the controller eventually matches
// against its pending-read table.
package rank

import (
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/signal"
)

// Sink is the callback the controller exposes for ranks to report a
// completed read's DATA packet back. memctrl.Controller.SubmitReturn
// satisfies this.
type Sink interface {
	SubmitReturn(pkt *signal.BusPacket)
}

// bankJob is one in-flight command a bank is servicing.
type bankJob struct {
	pkt           *signal.BusPacket
	cyclesLeft    uint64
}

// SimpleBank models one bank's device-side view of a dispatched command: it
// has no notion of DRAM timing legality (that lives entirely in the
// controller's bank state table) and only tracks how many cycles remain
// before a read's data is ready to send back.
type SimpleBank struct {
	job *bankJob
}

// SimpleRank is a reference Rank implementation: NumBanks independent
// SimpleBanks sharing one power state, driven by Tick once per cycle from
// the harness (never concurrently with Controller.Update).
type SimpleRank struct {
	cfg   *config.TimingConfig
	banks []SimpleBank
	sink  Sink

	poweredDown    bool
	refreshWaiting bool

	// deviceReadLatency is the number of cycles after receiving a READ
	// command before the corresponding DATA packet is handed back to the
	// controller. A real device model would derive this from internal
	// array access time; this reference model uses a fixed one-cycle
	// delay. Neither this model nor the controller applies a CAS latency
	// between READ issue and DATA return.
	deviceReadLatency uint64
}

// NewSimpleRank builds a SimpleRank with numBanks independent banks.
func NewSimpleRank(cfg *config.TimingConfig, numBanks int, sink Sink) *SimpleRank {
	return &SimpleRank{
		cfg:               cfg,
		banks:             make([]SimpleBank, numBanks),
		sink:              sink,
		deviceReadLatency: 1,
	}
}

// ReceiveFromBus implements memctrl.Rank. A READ or READ_P starts a job on
// its target bank; every other command, and a DATA packet (the controller
// delivering write data), is simply absorbed, since this reference model does
// not simulate memory contents.
func (r *SimpleRank) ReceiveFromBus(pkt *signal.BusPacket) {
	if pkt.Kind == signal.Data {
		return
	}

	if pkt.Kind.IsRead() {
		r.banks[pkt.Bank].job = &bankJob{pkt: pkt, cyclesLeft: r.deviceReadLatency}
	}
}

// PowerDown implements memctrl.Rank.
func (r *SimpleRank) PowerDown() { r.poweredDown = true }

// PowerUp implements memctrl.Rank.
func (r *SimpleRank) PowerUp() { r.poweredDown = false }

// RefreshWaiting implements memctrl.Rank.
func (r *SimpleRank) RefreshWaiting() bool { return r.refreshWaiting }

// SetRefreshWaiting implements memctrl.Rank.
func (r *SimpleRank) SetRefreshWaiting(v bool) { r.refreshWaiting = v }

// Tick advances every bank's in-flight job by one cycle. When a read job's
// countdown reaches zero, its DATA packet is submitted back to the
// controller. The harness calls this once per cycle, before or after
// Controller.Update but never concurrently with it.
func (r *SimpleRank) Tick(now uint64) {
	for i := range r.banks {
		job := r.banks[i].job
		if job == nil {
			continue
		}

		if job.cyclesLeft > 0 {
			job.cyclesLeft--
		}

		if job.cyclesLeft > 0 {
			continue
		}

		r.banks[i].job = nil

		dataPkt := &signal.BusPacket{
			Kind:            signal.Data,
			PhysicalAddress: job.pkt.PhysicalAddress,
			Rank:            job.pkt.Rank,
			Bank:            job.pkt.Bank,
			Row:             job.pkt.Row,
			Column:          job.pkt.Column,
		}
		r.sink.SubmitReturn(dataPkt)
	}
}
