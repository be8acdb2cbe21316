// Package cmdqueue implements the bounded, policy-driven queue of decoded
// bus commands the controller issues from once per tick.
package cmdqueue

import (
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/internal/bankstate"
	"github.com/sarchlab/dramctrl/memctrl/signal"
)

// entry is one queued command plus the bookkeeping the scheduler needs to
// pick among candidates: an arrival sequence number and whether the entry is
// a REFRESH injected by NeedRefresh. The row used by the row-hit bias is read
// from pkt.
type entry struct {
	pkt      *signal.BusPacket
	seq      uint64
	refresh  bool
}

// Queue is the per-rank partitioned command queue. Each rank has its own
// FIFO-ish slice; the scheduling Policy picks which rank to scan first and
// how to order candidates within a rank.
type Queue struct {
	cfg    *config.TimingConfig
	table  *bankstate.Table
	policy Policy

	perRank [][]entry
	seq     uint64

	needsRefresh []bool

	rowHits   [][]uint64
	rowMisses [][]uint64

	lastActivate [][]uint64 // per rank, ring of recent ACTIVATE issue cycles for tFAW
}

// New builds an empty Queue for the given topology, sharing the bank state
// table the controller already owns so legality checks stay consistent.
func New(cfg *config.TimingConfig, table *bankstate.Table, policy Policy) *Queue {
	q := &Queue{
		cfg:          cfg,
		table:        table,
		policy:       policy,
		perRank:      make([][]entry, cfg.NumRanks),
		needsRefresh: make([]bool, cfg.NumRanks),
		rowHits:      make([][]uint64, cfg.NumRanks),
		rowMisses:    make([][]uint64, cfg.NumRanks),
		lastActivate: make([][]uint64, cfg.NumRanks),
	}

	for r := 0; r < cfg.NumRanks; r++ {
		q.rowHits[r] = make([]uint64, cfg.NumBanks)
		q.rowMisses[r] = make([]uint64, cfg.NumBanks)
	}

	if q.policy == nil {
		q.policy = &RankRoundRobinPolicy{}
	}

	return q
}

// HasRoomFor reports whether n more commands can be admitted for (rank,
// bank) without exceeding the configured per-rank depth. The controller
// calls this with n=2 before decoding a transaction into ACTIVATE+data.
func (q *Queue) HasRoomFor(n int, rank, bank int) bool {
	return len(q.perRank[rank])+n <= q.cfg.CmdQueueDepth
}

// Enqueue appends pkt to its rank's queue.
func (q *Queue) Enqueue(pkt *signal.BusPacket) {
	q.seq++
	q.perRank[pkt.Rank] = append(q.perRank[pkt.Rank], entry{pkt: pkt, seq: q.seq})
}

// NeedRefresh marks rank as owing a refresh; the next Pop call for that rank
// prefers issuing REFRESH once every bank of the rank is precharged.
func (q *Queue) NeedRefresh(rank int) {
	q.needsRefresh[rank] = true
	q.perRank[rank] = append(q.perRank[rank], entry{
		pkt:     &signal.BusPacket{Kind: signal.Refresh, Rank: rank},
		seq:     0,
		refresh: true,
	})
}

// IsRefreshPending reports whether rank still has an outstanding REFRESH
// request the queue has not yet been able to issue.
func (q *Queue) IsRefreshPending(rank int) bool {
	return q.needsRefresh[rank]
}

// IsEmpty reports whether rank's queue holds no commands.
func (q *Queue) IsEmpty(rank int) bool {
	return len(q.perRank[rank]) == 0
}

// Pop scans the queue in policy order and returns the first packet whose
// (rank, bank) target is currently legal, respecting tRRD/tFAW alongside
// the bank state table's own legality check. Returns nil if nothing is
// issuable this cycle. At most one packet is returned per call; the caller
// is responsible for calling Pop at most once per tick.
func (q *Queue) Pop(now uint64) *signal.BusPacket {
	rankOrder := q.policy.RankOrder(q.cfg.NumRanks, now)

	for _, r := range rankOrder {
		idx := q.policy.SelectIndex(q, r, now)
		if idx < 0 {
			continue
		}

		e := q.perRank[r][idx]
		q.perRank[r] = append(q.perRank[r][:idx], q.perRank[r][idx+1:]...)

		if e.refresh {
			q.needsRefresh[r] = false
		}

		if e.pkt.Kind == signal.Activate {
			q.recordActivate(r, now)
		}

		if e.pkt.Kind.IsRead() || e.pkt.Kind.IsWrite() {
			q.recordRowBufferOutcome(r, e.pkt)
		}

		return e.pkt
	}

	return nil
}

func (q *Queue) recordActivate(rank int, now uint64) {
	ring := q.lastActivate[rank]
	ring = append(ring, now)
	// tFAW only cares about activates within the last tFAW window; trim.
	cutoff := uint64(0)
	if now >= q.cfg.TFAW {
		cutoff = now - q.cfg.TFAW
	}

	kept := ring[:0]
	for _, t := range ring {
		if t >= cutoff {
			kept = append(kept, t)
		}
	}

	q.lastActivate[rank] = kept
}

// FAWSatisfied reports whether another ACTIVATE on rank may issue at now
// without breaking the four-activate window: fewer than four ACTIVATEs were
// issued within the last tFAW cycles.
func (q *Queue) FAWSatisfied(rank int, now uint64) bool {
	cutoff := uint64(0)
	if now >= q.cfg.TFAW {
		cutoff = now - q.cfg.TFAW
	}

	inWindow := 0
	for _, t := range q.lastActivate[rank] {
		if t >= cutoff {
			inWindow++
		}
	}

	return inWindow < 4
}

// recordRowBufferOutcome tags a READ/WRITE issue as a hit or a miss. A
// command whose bank was just opened by the ACTIVATE issued immediately
// before it (LastCommand still ACTIVATE at the moment of Pop, before the
// controller updates bank state for this command) is the miss half of an
// ACTIVATE+access pair; anything else targets an already-open row and is a
// hit. Summed over a run this keeps hits+misses equal to the number of
// READ/WRITE commands issued, with #misses == #ACTIVATE issued.
func (q *Queue) recordRowBufferOutcome(rank int, pkt *signal.BusPacket) {
	cell := q.table.Cell(rank, pkt.Bank)
	if cell.LastCommand == signal.Activate {
		q.rowMisses[rank][pkt.Bank]++
		return
	}

	q.rowHits[rank][pkt.Bank]++
}

// GetRowBufferHits returns the row-buffer hit count for (rank, bank).
func (q *Queue) GetRowBufferHits(rank, bank int) uint64 { return q.rowHits[rank][bank] }

// GetRowBufferMisses returns the row-buffer miss count for (rank, bank).
func (q *Queue) GetRowBufferMisses(rank, bank int) uint64 { return q.rowMisses[rank][bank] }

// ResetRowBufferStats zeroes every row-buffer counter, called at epoch
// boundaries.
func (q *Queue) ResetRowBufferStats() {
	for r := range q.rowHits {
		for b := range q.rowHits[r] {
			q.rowHits[r][b] = 0
			q.rowMisses[r][b] = 0
		}
	}
}

// Step performs the queue's own per-tick bookkeeping. Currently a no-op
// placeholder for scheduling policies that need tick-aligned state (e.g. an
// aging counter); kept so the controller's step 11 has a stable call site.
func (q *Queue) Step() {}

// Depth returns the number of commands currently queued for rank.
func (q *Queue) Depth(rank int) int { return len(q.perRank[rank]) }
