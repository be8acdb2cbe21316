package cmdqueue

import "github.com/sarchlab/dramctrl/memctrl/signal"

// Policy is the pluggable scheduling strategy a Queue consults to decide
// which rank to consider first and which of that rank's queued commands is
// the best candidate to issue.
type Policy interface {
	// RankOrder returns the ranks to scan, in the order they should be
	// tried, for a Pop call happening at cycle now.
	RankOrder(numRanks int, now uint64) []int

	// SelectIndex returns the index within q's rank-th queue of the command
	// to issue at cycle now, or -1 if none of that rank's queued commands
	// are currently legal.
	SelectIndex(q *Queue, rank int, now uint64) int
}

// RankRoundRobinPolicy is the default scheduling policy: ranks are tried in
// round-robin order across successive Pop calls, and within a rank the
// oldest legal command wins unless a more recently queued command is a
// row-buffer hit, in which case the hit is preferred (favoring same-row
// commands ahead of a PRECHARGE+ACTIVATE pair for a different row). A legal
// REFRESH injected by NeedRefresh is preferred over both.
type RankRoundRobinPolicy struct {
	next int
}

// RankOrder implements Policy.
func (p *RankRoundRobinPolicy) RankOrder(numRanks int, now uint64) []int {
	order := make([]int, numRanks)
	for i := 0; i < numRanks; i++ {
		order[i] = (p.next + i) % numRanks
	}

	p.next = (p.next + 1) % numRanks

	return order
}

// SelectIndex implements Policy.
func (p *RankRoundRobinPolicy) SelectIndex(q *Queue, rank int, now uint64) int {
	entries := q.perRank[rank]

	oldestLegal := -1
	rowHitLegal := -1

	for i, e := range entries {
		if !q.isIssuable(e, now) {
			continue
		}

		if e.refresh {
			return i
		}

		if oldestLegal == -1 {
			oldestLegal = i
		}

		if isRowHit(q, e.pkt) {
			rowHitLegal = i
			break
		}
	}

	if rowHitLegal >= 0 {
		return rowHitLegal
	}

	return oldestLegal
}

func (q *Queue) isIssuable(e entry, now uint64) bool {
	pkt := e.pkt

	if pkt.Kind == signal.Activate {
		if !q.FAWSatisfied(pkt.Rank, now) {
			return false
		}
	}

	if pkt.Kind == signal.Refresh {
		for b := 0; b < q.table.NumBanks(); b++ {
			if !q.table.IsLegal(signal.Refresh, pkt.Rank, b, now) {
				return false
			}
		}

		return true
	}

	return q.table.IsLegal(pkt.Kind, pkt.Rank, pkt.Bank, now)
}

func isRowHit(q *Queue, pkt *signal.BusPacket) bool {
	if !pkt.Kind.IsRead() && !pkt.Kind.IsWrite() {
		return false
	}

	cell := q.table.Cell(pkt.Rank, pkt.Bank)

	return cell.RowValid && cell.OpenRow == pkt.Row
}
