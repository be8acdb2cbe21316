package config

// Builder assembles a TimingConfig one parameter at a time, following the
// same one-method-per-field pattern the teacher's dram.Builder uses.
// MakeBuilder returns a Builder pre-loaded with the timing values from
// spec.md's worked examples (a 1-rank, 8-bank, DRAM-mode config with
// tCK=1.5ns): callers override only the fields their scenario cares about.
type Builder struct {
	config TimingConfig
}

// MakeBuilder returns a Builder seeded with sensible DDR3-class defaults.
func MakeBuilder() Builder {
	return Builder{
		config: TimingConfig{
			Protocol:   DRAM,
			NumRanks:   1,
			NumBanks:   8,
			NumDevices: 8,

			BL: 8,
			WL: 6,
			AL: 0,

			TCK: 1.5,

			TRC:   33,
			TRAS:  24,
			TRCD:  9,
			TRP:   9,
			TRRD:  4,
			TRTRS: 2,
			TCCD:  4,
			TCMD:  1,
			TRFC:  74,
			TCKE:  4,
			TXP:   4,
			TFAW:  20,
			TWTR:  5,

			ReadToPreDelay:    4,
			WriteToPreDelay:   9,
			ReadAutoPreDelay:  13,
			WriteAutoPreDelay: 15,
			ReadToWriteDelay:  9,
			WriteToReadDelayB: 5,
			WriteToReadDelayR: 9,

			RefreshPeriod: 6240,

			TransQueueDepth:  32,
			CmdQueueDepth:    32,
			EpochLength:      100000,
			HistogramBinSize: 10,

			IDD: IDDTable{
				IDD0:  90,
				IDD1:  105,
				IDD2P: 15,
				IDD2Q: 30,
				IDD2N: 40,
				IDD3N: 55,
				IDD4W: 140,
				IDD4R: 140,
				IDD5:  200,
				IDD6:  10,
				IDD6L: 12,
				IDD7:  175,
			},

			Vdd:              1.5,
			JEDECDataBusBits: 8,

			UseLowPower: false,
		},
	}
}

// WithProtocol sets the timing protocol.
func (b Builder) WithProtocol(p Protocol) Builder { b.config.Protocol = p; return b }

// WithNumRanks sets the rank count.
func (b Builder) WithNumRanks(n int) Builder { b.config.NumRanks = n; return b }

// WithNumBanks sets the per-rank bank count.
func (b Builder) WithNumBanks(n int) Builder { b.config.NumBanks = n; return b }

// WithNumDevices sets the per-rank device count, used by energy formulas.
func (b Builder) WithNumDevices(n int) Builder { b.config.NumDevices = n; return b }

// WithBL sets the burst length in beats.
func (b Builder) WithBL(v uint64) Builder { b.config.BL = v; return b }

// WithWL sets the write latency in cycles.
func (b Builder) WithWL(v uint64) Builder { b.config.WL = v; return b }

// WithAL sets the additive latency in cycles.
func (b Builder) WithAL(v uint64) Builder { b.config.AL = v; return b }

// WithTCK sets the clock period in nanoseconds.
func (b Builder) WithTCK(v float64) Builder { b.config.TCK = v; return b }

// WithTRC sets tRC in cycles.
func (b Builder) WithTRC(v uint64) Builder { b.config.TRC = v; return b }

// WithTRAS sets tRAS in cycles.
func (b Builder) WithTRAS(v uint64) Builder { b.config.TRAS = v; return b }

// WithTRCD sets tRCD in cycles.
func (b Builder) WithTRCD(v uint64) Builder { b.config.TRCD = v; return b }

// WithTRP sets tRP in cycles.
func (b Builder) WithTRP(v uint64) Builder { b.config.TRP = v; return b }

// WithTRRD sets tRRD in cycles.
func (b Builder) WithTRRD(v uint64) Builder { b.config.TRRD = v; return b }

// WithTRTRS sets tRTRS in cycles.
func (b Builder) WithTRTRS(v uint64) Builder { b.config.TRTRS = v; return b }

// WithTCCD sets tCCD in cycles.
func (b Builder) WithTCCD(v uint64) Builder { b.config.TCCD = v; return b }

// WithTCMD sets tCMD in cycles.
func (b Builder) WithTCMD(v uint64) Builder { b.config.TCMD = v; return b }

// WithTRFC sets tRFC in cycles.
func (b Builder) WithTRFC(v uint64) Builder { b.config.TRFC = v; return b }

// WithTCKE sets tCKE in cycles.
func (b Builder) WithTCKE(v uint64) Builder { b.config.TCKE = v; return b }

// WithTXP sets tXP in cycles.
func (b Builder) WithTXP(v uint64) Builder { b.config.TXP = v; return b }

// WithTFAW sets tFAW in cycles.
func (b Builder) WithTFAW(v uint64) Builder { b.config.TFAW = v; return b }

// WithTWTR sets tWTR in cycles.
func (b Builder) WithTWTR(v uint64) Builder { b.config.TWTR = v; return b }

// WithReadToPreDelay sets the read-to-precharge delay in cycles.
func (b Builder) WithReadToPreDelay(v uint64) Builder { b.config.ReadToPreDelay = v; return b }

// WithWriteToPreDelay sets the write-to-precharge delay in cycles.
func (b Builder) WithWriteToPreDelay(v uint64) Builder { b.config.WriteToPreDelay = v; return b }

// WithReadAutoPreDelay sets the auto-precharge delay after a READ_P in cycles.
func (b Builder) WithReadAutoPreDelay(v uint64) Builder { b.config.ReadAutoPreDelay = v; return b }

// WithWriteAutoPreDelay sets the auto-precharge delay after a WRITE_P in cycles.
func (b Builder) WithWriteAutoPreDelay(v uint64) Builder { b.config.WriteAutoPreDelay = v; return b }

// WithReadToWriteDelay sets the read-to-write turnaround delay in cycles.
func (b Builder) WithReadToWriteDelay(v uint64) Builder { b.config.ReadToWriteDelay = v; return b }

// WithWriteToReadDelayB sets the write-to-read delay to a different bank.
func (b Builder) WithWriteToReadDelayB(v uint64) Builder { b.config.WriteToReadDelayB = v; return b }

// WithWriteToReadDelayR sets the write-to-read delay to a different rank.
func (b Builder) WithWriteToReadDelayR(v uint64) Builder { b.config.WriteToReadDelayR = v; return b }

// WithRefreshPeriod sets the per-rank refresh interval in cycles.
func (b Builder) WithRefreshPeriod(v uint64) Builder { b.config.RefreshPeriod = v; return b }

// WithTransQueueDepth sets the maximum inbound transaction queue depth.
func (b Builder) WithTransQueueDepth(v int) Builder { b.config.TransQueueDepth = v; return b }

// WithCmdQueueDepth sets the per-partition command queue depth.
func (b Builder) WithCmdQueueDepth(v int) Builder { b.config.CmdQueueDepth = v; return b }

// WithEpochLength sets the statistics epoch length in cycles.
func (b Builder) WithEpochLength(v uint64) Builder { b.config.EpochLength = v; return b }

// WithHistogramBinSize sets the latency histogram bin width in cycles.
func (b Builder) WithHistogramBinSize(v uint64) Builder { b.config.HistogramBinSize = v; return b }

// WithIDD replaces the whole IDD current table.
func (b Builder) WithIDD(t IDDTable) Builder { b.config.IDD = t; return b }

// WithVdd sets the supply voltage in volts.
func (b Builder) WithVdd(v float64) Builder { b.config.Vdd = v; return b }

// WithJEDECDataBusBits sets the per-device data bus width in bits.
func (b Builder) WithJEDECDataBusBits(v int) Builder { b.config.JEDECDataBusBits = v; return b }

// WithLowPower enables or disables opportunistic rank power-down.
func (b Builder) WithLowPower(v bool) Builder { b.config.UseLowPower = v; return b }

// WithDebugBus enables per-cycle bus tracing.
func (b Builder) WithDebugBus(v bool) Builder { b.config.DebugBus = v; return b }

// WithDebugPower enables per-cycle power accounting tracing.
func (b Builder) WithDebugPower(v bool) Builder { b.config.DebugPower = v; return b }

// WithDebugCmd enables per-cycle command-issue tracing.
func (b Builder) WithDebugCmd(v bool) Builder { b.config.DebugCmd = v; return b }

// WithVisFileOutput enables the visualization trace file the original
// simulator could emit for its companion viewer. This repo does not ship
// that viewer; the flag is carried for configuration-file compatibility and
// currently has no reader.
func (b Builder) WithVisFileOutput(v bool) Builder { b.config.VisFileOutput = v; return b }

// Build validates and returns the assembled TimingConfig.
func (b Builder) Build() (*TimingConfig, error) {
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
