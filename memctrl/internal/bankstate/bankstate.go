// Package bankstate implements the per-bank state machine and legality
// predicate that the command queue and controller consult before issuing
// any command: the Bank State Table.
package bankstate

import (
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl/signal"
)

// State is the current phase of one bank's state machine.
type State int

// The five bank states.
const (
	Idle State = iota
	RowActive
	Precharging
	Refreshing
	PowerDown
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case RowActive:
		return "RowActive"
	case Precharging:
		return "Precharging"
	case Refreshing:
		return "Refreshing"
	case PowerDown:
		return "PowerDown"
	default:
		return "Unknown"
	}
}

// Cell is one (rank, bank) entry of the table. All nextX fields are earliest
// cycles at which the corresponding command becomes legal.
type Cell struct {
	CurrentState   State
	OpenRow        int
	RowValid       bool
	LastCommand    signal.CommandKind

	StateChangeCountdown uint64

	NextActivate  uint64
	NextRead      uint64
	NextWrite     uint64
	NextPrecharge uint64
	NextPowerUp   uint64
}

// mergeNext raises *field to at least v, so a lower update never lowers a
// nextX field and applying the same update twice is a no-op. The controller
// applies the same max-merge rule through its own mergeMax helper.
func mergeNext(field *uint64, v uint64) {
	if v > *field {
		*field = v
	}
}

// Table is the rank x bank Bank State Table.
type Table struct {
	cfg   *config.TimingConfig
	cells [][]Cell
}

// NewTable allocates a Table sized to the config's rank and bank counts,
// with every bank starting Idle and every nextX at zero.
func NewTable(cfg *config.TimingConfig) *Table {
	cells := make([][]Cell, cfg.NumRanks)
	for r := range cells {
		cells[r] = make([]Cell, cfg.NumBanks)
	}

	return &Table{cfg: cfg, cells: cells}
}

// Cell returns a pointer to the (rank, bank) entry for direct inspection or
// mutation by the controller.
func (t *Table) Cell(rank, bank int) *Cell {
	return &t.cells[rank][bank]
}

// NumRanks returns the table's rank dimension.
func (t *Table) NumRanks() int { return len(t.cells) }

// NumBanks returns the table's bank dimension.
func (t *Table) NumBanks() int {
	if len(t.cells) == 0 {
		return 0
	}

	return len(t.cells[0])
}

// AnyRowActiveOrRefreshing reports whether any bank of rank is currently
// RowActive or Refreshing, used by the background-energy step.
func (t *Table) AnyRowActiveOrRefreshing(rank int) bool {
	for _, c := range t.cells[rank] {
		if c.CurrentState == RowActive || c.CurrentState == Refreshing {
			return true
		}
	}

	return false
}

// AllIdle reports whether every bank of rank is Idle, the precondition for
// entering low-power.
func (t *Table) AllIdle(rank int) bool {
	for _, c := range t.cells[rank] {
		if c.CurrentState != Idle {
			return false
		}
	}

	return true
}

// AllPoweredDown reports whether every bank of rank is in PowerDown.
func (t *Table) AllPoweredDown(rank int) bool {
	for _, c := range t.cells[rank] {
		if c.CurrentState != PowerDown {
			return false
		}
	}

	return true
}

// IsLegal reports whether cmd may be issued against (rank, bank) at cycle
// now: the timing predicate (now >= nextX) and the state predicate the
// command class requires.
func (t *Table) IsLegal(cmd signal.CommandKind, rank, bank int, now uint64) bool {
	c := &t.cells[rank][bank]

	switch cmd {
	case signal.Read, signal.ReadP:
		return now >= c.NextRead && c.CurrentState == RowActive
	case signal.Write, signal.WriteP:
		return now >= c.NextWrite && c.CurrentState == RowActive
	case signal.Activate:
		return now >= c.NextActivate && c.CurrentState == Idle
	case signal.Precharge:
		return now >= c.NextPrecharge && c.CurrentState == RowActive
	case signal.Refresh:
		return now >= c.NextActivate && c.CurrentState == Idle
	default:
		return false
	}
}

// RowOpenMatches reports whether (rank, bank) is currently RowActive with
// the given row already open, the precondition for decoding a transaction
// as a row-buffer hit (no ACTIVATE needed) rather than an ACTIVATE+access
// pair. This does not check nextRead/nextWrite timing legality: a hit
// decode still enqueues just the data command, and the command queue's Pop
// will hold it until it becomes legal to issue.
func (t *Table) RowOpenMatches(rank, bank, row int) bool {
	c := &t.cells[rank][bank]

	return c.CurrentState == RowActive && c.RowValid && c.OpenRow == row
}

// TickDecrement runs the implicit-transition clock once per controller
// tick: every bank with a positive StateChangeCountdown is decremented, and
// a bank that reaches zero applies the transition implied by its
// LastCommand.
func (t *Table) TickDecrement(protocol config.Protocol) {
	for r := range t.cells {
		for b := range t.cells[r] {
			c := &t.cells[r][b]
			if c.StateChangeCountdown == 0 {
				continue
			}

			c.StateChangeCountdown--
			if c.StateChangeCountdown > 0 {
				continue
			}

			t.applyImplicitTransition(c, protocol)
		}
	}
}

func (t *Table) applyImplicitTransition(c *Cell, protocol config.Protocol) {
	switch c.LastCommand {
	case signal.ReadP, signal.WriteP:
		if protocol == config.SmartMRAM {
			c.CurrentState = Idle
			c.RowValid = false
			// Open Question (a): the source arms StateChangeCountdown = 0
			// here even though a zero countdown never re-enters this branch
			// on a later tick. Kept literally; see DESIGN.md.
			c.StateChangeCountdown = 0
			return
		}

		c.CurrentState = Precharging
		c.LastCommand = signal.Precharge
		c.StateChangeCountdown = t.cfg.TRP
	case signal.Refresh, signal.Precharge:
		c.CurrentState = Idle
		c.RowValid = false
	}
}
