// Package memctrl implements the memory controller tick loop: the piece
// that owns the Bank State Table and Command Queue, drives one bus cycle
// per Update call, and matches every admitted transaction to its eventual
// completion callback.
package memctrl

import (
	"fmt"

	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/internal/bankstate"
	"github.com/sarchlab/dramctrl/memctrl/internal/cmdqueue"
	"github.com/sarchlab/dramctrl/memctrl/internal/energy"
	"github.com/sarchlab/dramctrl/memctrl/signal"
	"github.com/sarchlab/dramctrl/sim/hooking"
	"github.com/sarchlab/dramctrl/sim/naming"
)

// BeforeTick and AfterTick bracket every Controller.Update call; hooks
// registered at these positions see the controller and the cycle number in
// HookCtx.Detail.
var (
	BeforeTick = &hooking.HookPos{Name: "MemCtrl.BeforeTick"}
	AfterTick  = &hooking.HookPos{Name: "MemCtrl.AfterTick"}
	CmdIssued  = &hooking.HookPos{Name: "MemCtrl.CmdIssued"}
)

type pendingRead struct {
	txn *signal.Transaction
}

type writeFIFOEntry struct {
	pkt       *signal.BusPacket
	countdown uint64
}

// Controller is the memory controller for a single channel: one Bank State
// Table, one Command Queue, one command bus slot, one data bus slot, shared
// across every rank of the channel.
type Controller struct {
	naming.NamedBase
	hooking.HookableBase

	cfg    *config.TimingConfig
	mapper Mapper
	ranks  []Rank

	bankTable   *bankstate.Table
	cmdQueue    *cmdqueue.Queue
	energyTable *energy.Table

	transactionQueue []*signal.Transaction
	pendingReads     []*pendingRead
	returnQueue      []*signal.BusPacket

	writeFIFO [][]writeFIFOEntry

	cmdBusPkt      *signal.BusPacket
	cmdCyclesLeft  uint64
	dataBusPkt     *signal.BusPacket
	dataCyclesLeft uint64

	refreshCountdown []uint64
	refreshRank      int

	totalLatencyHist  map[uint64]uint64
	accessLatencyHist map[uint64]uint64

	totalReads  uint64
	totalWrites uint64

	// ReturnReadData is invoked when a read transaction completes.
	ReturnReadData func(address uint64, now uint64)
	// WriteDataDone is invoked when a write's data has been dispatched.
	WriteDataDone func(address uint64, now uint64)
	// ReportPower is invoked at epoch boundaries with each rank's watt
	// figures, indexed by rank. Plain float64s rather than energy.Watts so
	// callers outside this module's internal packages can set it.
	ReportPower func(rank int, background, burst, actpre, refresh float64)
}

// AddTransaction admits t iff the transaction queue has room, stamping
// TimeAdded on success. Returns false (a class-2 backpressure signal, never
// a panic) if the queue is full.
func (c *Controller) AddTransaction(t *signal.Transaction, now uint64) bool {
	if !c.WillAcceptTransaction() {
		return false
	}

	t.TimeAdded = now
	c.transactionQueue = append(c.transactionQueue, t)

	return true
}

// WillAcceptTransaction is a non-blocking capacity check.
func (c *Controller) WillAcceptTransaction() bool {
	return len(c.transactionQueue) < c.cfg.TransQueueDepth
}

// SubmitReturn is called by a Rank, from its own tick, to hand a DATA
// packet back to the controller once it has completed a read.
func (c *Controller) SubmitReturn(pkt *signal.BusPacket) {
	c.returnQueue = append(c.returnQueue, pkt)
}

// Update advances the controller by exactly one bus cycle, executing the
// eleven steps in fixed order.
func (c *Controller) Update(now uint64) {
	c.InvokeHook(hooking.HookCtx{Domain: c, Pos: BeforeTick, Detail: now})

	c.stepDecrementBankCountdowns()
	c.stepAdvanceCommandBus(now)
	c.stepAdvanceDataBus(now)
	c.stepAdvanceWriteFIFO(now)
	c.stepRefreshArbitration(now)
	c.stepIssueCommand(now)
	c.stepAdmitTransaction(now)
	c.stepLowPower(now)
	c.stepBackgroundEnergy()
	c.stepConsumeReturningReads(now)
	c.stepDecrementRefreshCountdowns()
	c.cmdQueue.Step()

	c.InvokeHook(hooking.HookCtx{Domain: c, Pos: AfterTick, Detail: now})
}

// step 1
func (c *Controller) stepDecrementBankCountdowns() {
	c.bankTable.TickDecrement(c.cfg.Protocol)
}

// step 2
func (c *Controller) stepAdvanceCommandBus(now uint64) {
	if c.cmdBusPkt == nil {
		return
	}

	if c.cmdCyclesLeft > 0 {
		c.cmdCyclesLeft--
	}

	if c.cmdCyclesLeft > 0 {
		return
	}

	pkt := c.cmdBusPkt
	c.cmdBusPkt = nil
	c.ranks[pkt.Rank].ReceiveFromBus(pkt)
}

// step 3
func (c *Controller) stepAdvanceDataBus(now uint64) {
	if c.dataBusPkt == nil {
		return
	}

	if c.dataCyclesLeft > 0 {
		c.dataCyclesLeft--
	}

	if c.dataCyclesLeft > 0 {
		return
	}

	pkt := c.dataBusPkt
	c.dataBusPkt = nil

	if c.WriteDataDone != nil {
		c.WriteDataDone(pkt.PhysicalAddress, now)
	}

	c.ranks[pkt.Rank].ReceiveFromBus(pkt)
}

// step 4
func (c *Controller) stepAdvanceWriteFIFO(now uint64) {
	for r := range c.writeFIFO {
		fifo := c.writeFIFO[r]
		if len(fifo) == 0 {
			continue
		}

		for i := range fifo {
			if fifo[i].countdown > 0 {
				fifo[i].countdown--
			}
		}

		head := &fifo[0]
		if head.countdown > 0 {
			continue
		}

		if c.dataBusPkt != nil {
			panic(fmt.Sprintf(
				"memctrl: data bus collision dispatching write data for rank %d at cycle %d",
				r, now))
		}

		c.dataBusPkt = head.pkt
		c.dataCyclesLeft = c.cfg.BL / 2
		c.writeFIFO[r] = fifo[1:]
		c.totalWrites++
	}
}

// step 5
func (c *Controller) stepRefreshArbitration(now uint64) {
	r := c.refreshRank

	if c.refreshCountdown[r] == 0 {
		c.cmdQueue.NeedRefresh(r)
		c.ranks[r].SetRefreshWaiting(true)
		c.refreshCountdown[r] = c.cfg.RefreshPeriod
		c.refreshRank = (c.refreshRank + 1) % c.cfg.NumRanks

		return
	}

	if c.bankTable.AllPoweredDown(r) && c.refreshCountdown[r] <= c.cfg.TXP {
		c.ranks[r].SetRefreshWaiting(true)
	}
}

// step 6
func (c *Controller) stepIssueCommand(now uint64) {
	pkt := c.cmdQueue.Pop(now)
	if pkt == nil {
		return
	}

	if c.cmdBusPkt != nil {
		panic(fmt.Sprintf(
			"memctrl: command bus collision issuing %s to rank %d bank %d at cycle %d",
			pkt.Kind, pkt.Rank, pkt.Bank, now))
	}

	switch pkt.Kind {
	case signal.Read, signal.ReadP:
		c.onIssueRead(pkt, now)
	case signal.Write, signal.WriteP:
		c.onIssueWrite(pkt, now)
	case signal.Activate:
		c.onIssueActivate(pkt, now)
	case signal.Precharge:
		c.onIssuePrecharge(pkt, now)
	case signal.Refresh:
		c.onIssueRefresh(pkt, now)
	default:
		panic(fmt.Sprintf("memctrl: cannot issue command of kind %s", pkt.Kind))
	}

	c.cmdBusPkt = pkt
	c.cmdCyclesLeft = c.cfg.TCMD

	c.InvokeHook(hooking.HookCtx{Domain: c, Pos: CmdIssued, Item: pkt, Detail: now})
}

func (c *Controller) onIssueRead(pkt *signal.BusPacket, now uint64) {
	cell := c.bankTable.Cell(pkt.Rank, pkt.Bank)

	if c.cfg.Protocol == config.SmartMRAM && cell.LastCommand == signal.Activate {
		c.energyTable.AddSmartMRAMActPre(pkt.Rank)
	}

	if pkt.Kind.IsAutoPrecharge() {
		mergeMax(&cell.NextActivate, now+c.cfg.ReadAutoPreDelay)
		mergeMax(&cell.NextRead, cell.NextActivate)
		mergeMax(&cell.NextWrite, cell.NextActivate)
		cell.LastCommand = signal.ReadP
		cell.StateChangeCountdown = c.cfg.ReadAutoPreDelay
	} else {
		mergeMax(&cell.NextPrecharge, now+c.cfg.ReadToPreDelay)
		cell.LastCommand = signal.Read
	}

	for b := 0; b < c.bankTable.NumBanks(); b++ {
		if b == pkt.Bank {
			continue
		}

		sib := c.bankTable.Cell(pkt.Rank, b)
		mergeMax(&sib.NextRead, now+max64(c.cfg.TCCD, c.cfg.BL/2))
		mergeMax(&sib.NextWrite, now+c.cfg.ReadToWriteDelay)
	}

	for r := 0; r < c.bankTable.NumRanks(); r++ {
		if r == pkt.Rank {
			continue
		}

		for b := 0; b < c.bankTable.NumBanks(); b++ {
			sib := c.bankTable.Cell(r, b)
			mergeMax(&sib.NextRead, now+c.cfg.BL/2+c.cfg.TRTRS)
		}
	}

	c.energyTable.AddReadBurst(pkt.Rank)
	c.stampTimeACTIssuedIfZero(pkt.PhysicalAddress, now)
	c.totalReads++
}

func (c *Controller) onIssueWrite(pkt *signal.BusPacket, now uint64) {
	cell := c.bankTable.Cell(pkt.Rank, pkt.Bank)

	if c.cfg.Protocol == config.SmartMRAM && cell.LastCommand == signal.Activate {
		c.energyTable.AddSmartMRAMActPre(pkt.Rank)
	}

	if pkt.Kind.IsAutoPrecharge() {
		mergeMax(&cell.NextActivate, now+c.cfg.WriteAutoPreDelay)
		mergeMax(&cell.NextRead, cell.NextActivate)
		mergeMax(&cell.NextWrite, cell.NextActivate)
		cell.LastCommand = signal.WriteP
		cell.StateChangeCountdown = c.cfg.WriteAutoPreDelay
	} else {
		mergeMax(&cell.NextPrecharge, now+c.cfg.WriteToPreDelay)
		cell.LastCommand = signal.Write
	}

	for b := 0; b < c.bankTable.NumBanks(); b++ {
		if b == pkt.Bank {
			continue
		}

		sib := c.bankTable.Cell(pkt.Rank, b)
		mergeMax(&sib.NextWrite, now+max64(c.cfg.TCCD, c.cfg.BL/2))
		mergeMax(&sib.NextRead, now+c.cfg.WriteToReadDelayB)
	}

	for r := 0; r < c.bankTable.NumRanks(); r++ {
		if r == pkt.Rank {
			continue
		}

		for b := 0; b < c.bankTable.NumBanks(); b++ {
			sib := c.bankTable.Cell(r, b)
			mergeMax(&sib.NextRead, now+c.cfg.WriteToReadDelayR)
		}
	}

	c.energyTable.AddWriteBurst(pkt.Rank)

	dataPkt := &signal.BusPacket{
		Kind:            signal.Data,
		PhysicalAddress: pkt.PhysicalAddress,
		Rank:            pkt.Rank,
		Bank:            pkt.Bank,
		Row:             pkt.Row,
		Column:          pkt.Column,
		Payload:         pkt.Payload,
	}
	c.writeFIFO[pkt.Rank] = append(c.writeFIFO[pkt.Rank], writeFIFOEntry{
		pkt:       dataPkt,
		countdown: c.cfg.WL,
	})
}

func (c *Controller) onIssueActivate(pkt *signal.BusPacket, now uint64) {
	cell := c.bankTable.Cell(pkt.Rank, pkt.Bank)
	cell.CurrentState = bankstate.RowActive
	cell.OpenRow = pkt.Row
	cell.RowValid = true
	cell.LastCommand = signal.Activate

	if c.cfg.Protocol == config.SmartMRAM {
		cell.NextActivate = now + c.cfg.TRRD
		mergeMax(&cell.NextPrecharge, now)
		mergeMax(&cell.NextRead, now)
		mergeMax(&cell.NextWrite, now)
	} else {
		mergeMax(&cell.NextActivate, now+c.cfg.TRC)
		mergeMax(&cell.NextPrecharge, now+c.cfg.TRAS)
		restore := c.cfg.TRCD
		if restore > c.cfg.AL {
			restore -= c.cfg.AL
		} else {
			restore = 0
		}
		mergeMax(&cell.NextRead, now+restore)
		mergeMax(&cell.NextWrite, now+restore)
		c.energyTable.AddDRAMActPre(pkt.Rank)
	}

	for b := 0; b < c.bankTable.NumBanks(); b++ {
		if b == pkt.Bank {
			continue
		}

		sib := c.bankTable.Cell(pkt.Rank, b)
		mergeMax(&sib.NextActivate, now+c.cfg.TRRD)
	}

	c.stampTimeACTIssuedIfZero(pkt.PhysicalAddress, now)
}

func (c *Controller) onIssuePrecharge(pkt *signal.BusPacket, now uint64) {
	cell := c.bankTable.Cell(pkt.Rank, pkt.Bank)
	cell.LastCommand = signal.Precharge

	if c.cfg.Protocol == config.SmartMRAM {
		cell.CurrentState = bankstate.Idle
		cell.RowValid = false
		cell.NextActivate = now
		return
	}

	cell.CurrentState = bankstate.Precharging
	cell.StateChangeCountdown = c.cfg.TRP
	mergeMax(&cell.NextActivate, now+c.cfg.TRP)
}

func (c *Controller) onIssueRefresh(pkt *signal.BusPacket, now uint64) {
	for b := 0; b < c.bankTable.NumBanks(); b++ {
		cell := c.bankTable.Cell(pkt.Rank, b)
		cell.NextActivate = now + c.cfg.TRFC
		cell.CurrentState = bankstate.Refreshing
		cell.LastCommand = signal.Refresh
		cell.StateChangeCountdown = c.cfg.TRFC
	}

	c.energyTable.AddRefresh(pkt.Rank)
}

// step 7
func (c *Controller) stepAdmitTransaction(now uint64) {
	for i, t := range c.transactionQueue {
		channel, rank, bank, row, col := c.mapper.Map(t.Address)
		_ = channel

		if !c.cmdQueue.HasRoomFor(2, rank, bank) {
			continue
		}

		c.transactionQueue = append(c.transactionQueue[:i], c.transactionQueue[i+1:]...)

		autoPrecharge := false
		kind := t.CommandKindForWrite(autoPrecharge)

		if t.Kind == signal.DataRead {
			c.pendingReads = append(c.pendingReads, &pendingRead{txn: t})
		}

		actPkt := &signal.BusPacket{
			Kind: signal.Activate, PhysicalAddress: t.Address,
			Rank: rank, Bank: bank, Row: row, Column: col,
		}
		dataPkt := &signal.BusPacket{
			Kind: kind, PhysicalAddress: t.Address,
			Rank: rank, Bank: bank, Row: row, Column: col,
			Payload: t.Payload,
		}

		if c.bankTable.RowOpenMatches(rank, bank, row) {
			c.cmdQueue.Enqueue(dataPkt)
		} else {
			c.cmdQueue.Enqueue(actPkt)
			c.cmdQueue.Enqueue(dataPkt)
		}

		break
	}
}

// step 8
func (c *Controller) stepLowPower(now uint64) {
	if !c.cfg.UseLowPower {
		return
	}

	for r := 0; r < c.cfg.NumRanks; r++ {
		refreshDue := c.ranks[r].RefreshWaiting()

		if c.cmdQueue.IsEmpty(r) && !refreshDue && c.bankTable.AllIdle(r) {
			c.ranks[r].PowerDown()

			for b := 0; b < c.bankTable.NumBanks(); b++ {
				cell := c.bankTable.Cell(r, b)
				cell.CurrentState = bankstate.PowerDown
				cell.NextPowerUp = now + c.cfg.TCKE
			}

			continue
		}

		if (!c.cmdQueue.IsEmpty(r) || refreshDue) && c.bankTable.AllPoweredDown(r) {
			cell0 := c.bankTable.Cell(r, 0)
			if now >= cell0.NextPowerUp {
				c.ranks[r].PowerUp()

				for b := 0; b < c.bankTable.NumBanks(); b++ {
					cell := c.bankTable.Cell(r, b)
					cell.CurrentState = bankstate.Idle
					cell.NextActivate = now + c.cfg.TXP
				}
			}
		}
	}
}

// step 9
func (c *Controller) stepBackgroundEnergy() {
	for r := 0; r < c.cfg.NumRanks; r++ {
		c.energyTable.AddBackground(
			r,
			c.bankTable.AnyRowActiveOrRefreshing(r),
			c.bankTable.AllPoweredDown(r),
		)
	}
}

// step 10
func (c *Controller) stepConsumeReturningReads(now uint64) {
	if len(c.returnQueue) == 0 {
		return
	}

	pkt := c.returnQueue[0]
	c.returnQueue = c.returnQueue[1:]

	idx := -1
	for i, pr := range c.pendingReads {
		if pr.txn.Address == pkt.PhysicalAddress {
			idx = i
			break
		}
	}

	if idx < 0 {
		panic(fmt.Sprintf(
			"memctrl: returning DATA for address 0x%x matches no pending read at cycle %d",
			pkt.PhysicalAddress, now))
	}

	txn := c.pendingReads[idx].txn
	c.pendingReads = append(c.pendingReads[:idx], c.pendingReads[idx+1:]...)

	totalLatency := now - txn.TimeAdded
	accessLatency := now - txn.TimeACTIssued
	c.binHistogram(c.totalLatencyHist, totalLatency)
	c.binHistogram(c.accessLatencyHist, accessLatency)

	if c.ReturnReadData != nil {
		c.ReturnReadData(txn.Address, now)
	}
}

// step 11
func (c *Controller) stepDecrementRefreshCountdowns() {
	for r := range c.refreshCountdown {
		if c.refreshCountdown[r] > 0 {
			c.refreshCountdown[r]--
		}
	}
}

func (c *Controller) stampTimeACTIssuedIfZero(address uint64, now uint64) {
	for _, pr := range c.pendingReads {
		if pr.txn.Address == address && pr.txn.TimeACTIssued == 0 {
			pr.txn.TimeACTIssued = now
			return
		}
	}
}

func (c *Controller) binHistogram(hist map[uint64]uint64, latency uint64) {
	bin := latency / c.cfg.HistogramBinSize
	hist[bin]++
}

// ResetEpoch zeroes energy accumulators and row-buffer counters and invokes
// ReportPower with the epoch's watt figures, computed over elapsedCycles.
func (c *Controller) ResetEpoch(elapsedCycles uint64) {
	if c.ReportPower != nil {
		for r := 0; r < c.cfg.NumRanks; r++ {
			w := c.energyTable.ToWatts(r, elapsedCycles)
			c.ReportPower(r, w.Background, w.Burst, w.ActPre, w.Refresh)
		}
	}

	c.energyTable.ResetEpoch()
	c.cmdQueue.ResetRowBufferStats()
}

// RowBufferHits returns the row-buffer hit count for (rank, bank).
func (c *Controller) RowBufferHits(rank, bank int) uint64 {
	return c.cmdQueue.GetRowBufferHits(rank, bank)
}

// RowBufferMisses returns the row-buffer miss count for (rank, bank).
func (c *Controller) RowBufferMisses(rank, bank int) uint64 {
	return c.cmdQueue.GetRowBufferMisses(rank, bank)
}

// CommandQueueDepth returns the number of commands currently queued for
// rank, across every bank.
func (c *Controller) CommandQueueDepth(rank int) int {
	return c.cmdQueue.Depth(rank)
}

// TotalLatencyHistogram returns the completed-read total-latency histogram,
// keyed by bin index (latency / HistogramBinSize).
func (c *Controller) TotalLatencyHistogram() map[uint64]uint64 { return c.totalLatencyHist }

// AccessLatencyHistogram returns the completed-read access-latency
// histogram (time from ACTIVATE issue to data return).
func (c *Controller) AccessLatencyHistogram() map[uint64]uint64 { return c.accessLatencyHist }

func mergeMax(field *uint64, v uint64) {
	if v > *field {
		*field = v
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}
