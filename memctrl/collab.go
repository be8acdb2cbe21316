package memctrl

import "github.com/sarchlab/dramctrl/memctrl/signal"

// Rank is the device-facing collaborator the controller drives commands
// into. A rank receives dispatched command and data packets on its own
// schedule and asynchronously reports DATA packets back to the controller
// via SubmitReturn. Defined here, not in package rank, so this package
// depends on nothing but the shape it actually calls; package rank's
// SimpleRank satisfies this structurally.
type Rank interface {
	// ReceiveFromBus delivers a command or data packet dispatched by the
	// controller.
	ReceiveFromBus(pkt *signal.BusPacket)

	// PowerDown transitions the rank into low-power mode.
	PowerDown()

	// PowerUp wakes the rank from low-power mode.
	PowerUp()

	// RefreshWaiting reports whether the controller has an outstanding
	// refresh request pending against this rank.
	RefreshWaiting() bool

	// SetRefreshWaiting sets or clears the pending-refresh flag.
	SetRefreshWaiting(bool)
}

// Mapper is the address-mapping collaborator: a pure function from a
// physical address to its channel/rank/bank/row/column coordinates.
type Mapper interface {
	Map(address uint64) (channel, rank, bank, row, col int)
}
