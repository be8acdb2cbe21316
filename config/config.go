// Package config holds the immutable timing, power, and topology parameters
// a memctrl.Controller is built with. There is no process-wide state: every
// value lives in a TimingConfig struct constructed once and passed by
// reference to the controller and its collaborators.
package config

import (
	"fmt"

	"github.com/sarchlab/dramctrl/sim/timing"
)

// Protocol selects which restore-phase timing rules the controller applies.
// Rather than a separate strategy type per protocol, the bank state table and
// controller each branch on this value directly at the handful of call sites
// where DRAM and SmartMRAM diverge (implicit precharge transition, ActPre
// energy accounting); the two protocols share every other step of the tick.
type Protocol int

// The two supported protocols.
const (
	// DRAM is the standard JEDEC DDR protocol: ACTIVATE/PRECHARGE carry real
	// tRCD/tRAS/tRP restore delays.
	DRAM Protocol = iota
	// SmartMRAM is the STT-MRAM protocol: ACTIVATE/PRECHARGE are effectively
	// free, and ActPre energy is deferred to the first READ/WRITE.
	SmartMRAM
)

// String implements fmt.Stringer.
func (p Protocol) String() string {
	if p == SmartMRAM {
		return "smartmram"
	}

	return "dram"
}

// IDDTable holds the JEDEC IDD current draws, in milliamps, for every
// operating state a device can be in. Names follow the standard JEDEC IDD
// numbering used throughout DDR datasheets.
type IDDTable struct {
	IDD0  float64 // one activate-precharge cycle
	IDD1  float64 // one activate-read-precharge cycle
	IDD2P float64 // precharge power-down
	IDD2Q float64 // precharge quiet standby
	IDD2N float64 // precharge standby
	IDD3N float64 // active standby
	IDD4W float64 // burst write
	IDD4R float64 // burst read
	IDD5  float64 // refresh
	IDD6  float64 // self refresh
	IDD6L float64 // low-power self refresh
	IDD7  float64 // bank interleave read
}

// TimingConfig is the single immutable configuration object a Controller,
// Rank, and Mapper are all built against. Every field is a cycle count
// unless noted otherwise. Values are supplied by the caller (typically via
// Builder or LoadEnv) and never mutated after Build.
type TimingConfig struct {
	Protocol Protocol

	NumRanks   int
	NumBanks   int
	NumDevices int

	BL uint64 // burst length, beats
	WL uint64 // write latency, cycles
	AL uint64 // additive latency, cycles

	TCK float64 // clock period, ns (informational; cycle counts below are authoritative)

	TRC   uint64
	TRAS  uint64
	TRCD  uint64
	TRP   uint64
	TRRD  uint64
	TRTRS uint64
	TCCD  uint64
	TCMD  uint64
	TRFC  uint64
	TCKE  uint64
	TXP   uint64
	TFAW  uint64
	TWTR  uint64

	ReadToPreDelay      uint64
	WriteToPreDelay     uint64
	ReadAutoPreDelay    uint64
	WriteAutoPreDelay   uint64
	ReadToWriteDelay    uint64
	WriteToReadDelayB   uint64
	WriteToReadDelayR   uint64

	RefreshPeriod uint64 // cycles between refreshes of a given rank

	TransQueueDepth   int
	CmdQueueDepth     int
	EpochLength       uint64
	HistogramBinSize  uint64

	IDD IDDTable

	Vdd               float64 // volts
	JEDECDataBusBits  int

	UseLowPower bool
	DebugBus    bool
	DebugPower  bool
	DebugCmd    bool
	VisFileOutput bool
}

// IsSmartMRAM reports whether c uses the zero-restore-delay protocol.
func (c *TimingConfig) IsSmartMRAM() bool {
	return c.Protocol == SmartMRAM
}

// Freq returns the controller's clock frequency derived from TCK, for
// display and for translating a wall-clock duration into a cycle count.
func (c *TimingConfig) Freq() timing.Freq {
	return timing.Freq(1e9 / c.TCK)
}

// CyclesFor returns the number of cycles at this config's clock frequency in
// the given duration, in nanoseconds, rounded to the nearest whole cycle. Used to convert a
// nanosecond-denominated parameter (e.g. one parsed from an external config
// source) into the cycle counts every timing field is stored as.
func (c *TimingConfig) CyclesFor(nanoseconds float64) uint64 {
	return c.Freq().CyclesIn(nanoseconds / 1e9)
}

// Validate checks the structural preconditions the core relies on:
// positive topology counts and a queue depth that can hold at least one
// two-command transaction decode. Per spec, timing-parameter sanity beyond
// this is not the config layer's job — nextX monotonicity is enforced by
// max()-merging in the bank state table, not by validating inputs here.
func (c *TimingConfig) Validate() error {
	if c.NumRanks <= 0 {
		return fmt.Errorf("config: NumRanks must be positive, got %d", c.NumRanks)
	}

	if c.NumBanks <= 0 {
		return fmt.Errorf("config: NumBanks must be positive, got %d", c.NumBanks)
	}

	if c.TransQueueDepth <= 0 {
		return fmt.Errorf("config: TransQueueDepth must be positive, got %d", c.TransQueueDepth)
	}

	if c.CmdQueueDepth < 2 {
		return fmt.Errorf("config: CmdQueueDepth must hold at least one two-command decode, got %d", c.CmdQueueDepth)
	}

	if c.BL == 0 {
		return fmt.Errorf("config: BL must be positive")
	}

	return nil
}
