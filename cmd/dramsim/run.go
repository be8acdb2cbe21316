package main

import (
	"bufio"
	"fmt"
	"os"
	osignal "os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/dramctrl/addrmap"
	"github.com/sarchlab/dramctrl/config"
	"github.com/sarchlab/dramctrl/memctrl"
	"github.com/sarchlab/dramctrl/memctrl/signal"
	"github.com/sarchlab/dramctrl/monitor"
	"github.com/sarchlab/dramctrl/rank"
	"github.com/sarchlab/dramctrl/stats"
)

type runOptions struct {
	configPath   string
	protocol     string
	lowPower     bool
	monitorOn    bool
	monitorPort  int
	monitorOpen  bool
	csvOut       string
	sqliteOut    string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <trace-file>",
		Short: "Replay an address trace through the memory controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to a .env timing config file")
	flags.StringVar(&opts.protocol, "protocol", "dram", "dram|smartmram")
	flags.BoolVar(&opts.lowPower, "low-power", false, "enable opportunistic rank power-down")
	flags.BoolVar(&opts.monitorOn, "monitor", false, "serve a live HTTP introspection endpoint")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0, "monitor server port (0 = random)")
	flags.BoolVar(&opts.monitorOpen, "open", false, "open the monitor dashboard in a browser")
	flags.StringVar(&opts.csvOut, "csv-out", "", "path to write CSV statistics")
	flags.StringVar(&opts.sqliteOut, "sqlite-out", "", "path to a SQLite run-history database")

	return cmd
}

type traceOp struct {
	write   bool
	address uint64
}

func parseTrace(path string) ([]traceOp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	var ops []traceOp

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed trace line: %q", line)
		}

		addr, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(fields[1], "0x")), 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed address in trace line %q: %w", line, err)
		}

		op := traceOp{address: addr}

		switch strings.ToUpper(strings.TrimSpace(fields[0])) {
		case "R":
			op.write = false
		case "W":
			op.write = true
		default:
			return nil, fmt.Errorf("unknown trace op in line %q", line)
		}

		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}

	return ops, nil
}

func loadConfig(opts *runOptions) (*config.TimingConfig, error) {
	var builder config.Builder

	if opts.configPath != "" {
		if err := config.EnsureFileExists(opts.configPath); err != nil {
			return nil, err
		}

		var err error
		builder, err = config.LoadEnv(opts.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		builder = config.MakeBuilder()
	}

	switch opts.protocol {
	case "dram":
		builder = builder.WithProtocol(config.DRAM)
	case "smartmram":
		builder = builder.WithProtocol(config.SmartMRAM)
	default:
		return nil, fmt.Errorf("unknown --protocol %q", opts.protocol)
	}

	builder = builder.WithLowPower(opts.lowPower)

	return builder.Build()
}

// returnSink defers binding to the controller until after it is built,
// since building the controller requires the ranks that in turn need a
// sink for their completed reads.
type returnSink struct {
	ctrl *memctrl.Controller
}

func (s *returnSink) SubmitReturn(pkt *signal.BusPacket) {
	s.ctrl.SubmitReturn(pkt)
}

// driver adapts the trace-replay loop to monitor.Driver.
type driver struct {
	cycle   uint64
	paused  bool
}

func (d *driver) Pause()               { d.paused = true }
func (d *driver) Continue()            { d.paused = false }
func (d *driver) CurrentCycle() uint64 { return d.cycle }

func runTrace(tracePath string, opts *runOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ops, err := parseTrace(tracePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "clock: %v, protocol: %s\n", cfg.Freq(), cfg.Protocol)

	runID := stats.NewRunID()
	recorder := stats.NewRecorder(0)

	var history *stats.History
	if opts.sqliteOut != "" {
		history, err = stats.OpenHistory(opts.sqliteOut)
		if err != nil {
			return err
		}
	}

	atexit.Register(func() {
		if opts.csvOut != "" {
			flushCSV(recorder, opts.csvOut)
		}

		if history != nil {
			history.Close()
		}
	})

	sigc := make(chan os.Signal, 1)
	osignal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		atexit.Exit(130)
	}()

	mapper := addrmap.NewBitSliceMapper(1, cfg.NumRanks, cfg.NumBanks, cfg.JEDECDataBusBits/8).
		WithColumnBits(10)

	sink := &returnSink{}

	ranks := make([]memctrl.Rank, cfg.NumRanks)
	simpleRanks := make([]*rank.SimpleRank, cfg.NumRanks)
	for r := 0; r < cfg.NumRanks; r++ {
		sr := rank.NewSimpleRank(cfg, cfg.NumBanks, sink)
		simpleRanks[r] = sr
		ranks[r] = sr
	}

	ctrl := memctrl.MakeBuilder().
		WithTimingConfig(cfg).
		WithMapper(mapper).
		WithRanks(ranks).
		Build("dramsim.ctrl")

	sink.ctrl = ctrl

	d := &driver{}

	if opts.monitorOn {
		srv := monitor.NewServer(d, ctrl, cfg.NumRanks, cfg.NumBanks).WithPortNumber(opts.monitorPort)
		addr, err := srv.Start()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "monitor listening on %s\n", addr)

		if opts.monitorOpen {
			_ = browser.OpenURL("http://" + addr)
		}
	}

	completed := 0

	ctrl.ReturnReadData = func(address uint64, now uint64) { completed++ }
	ctrl.WriteDataDone = func(address uint64, now uint64) { completed++ }

	nextOp := 0

	for nextOp < len(ops) || completed < len(ops) {
		if d.paused {
			continue
		}

		if nextOp < len(ops) {
			op := ops[nextOp]
			txn := &signal.Transaction{Kind: signal.DataWrite, Address: op.address}
			if !op.write {
				txn.Kind = signal.DataRead
			}

			if ctrl.AddTransaction(txn, d.cycle) {
				nextOp++
			}
		}

		ctrl.Update(d.cycle)

		for _, sr := range simpleRanks {
			sr.Tick(d.cycle)
		}

		if cfg.EpochLength > 0 && d.cycle%cfg.EpochLength == 0 {
			recordEpoch(ctrl, cfg, recorder, runID, d.cycle)
		}

		d.cycle++
	}

	if opts.csvOut != "" {
		flushCSV(recorder, opts.csvOut)
	}

	if history != nil {
		saveHistory(history, runID, opts.protocol, d.cycle, ctrl)
		history.Close()
	}

	return nil
}

func recordEpoch(ctrl *memctrl.Controller, cfg *config.TimingConfig, recorder *stats.Recorder, runID string, cycle uint64) {
	var power []stats.RankPower

	ctrl.ReportPower = func(rank int, background, burst, actpre, refresh float64) {
		power = append(power, stats.RankPower{
			Rank:       rank,
			Background: background,
			Burst:      burst,
			ActPre:     actpre,
			Refresh:    refresh,
		})
	}

	var banks []stats.RankBankStat
	for r := 0; r < cfg.NumRanks; r++ {
		for b := 0; b < cfg.NumBanks; b++ {
			banks = append(banks, stats.RankBankStat{
				Rank:      r,
				Bank:      b,
				RowHits:   ctrl.RowBufferHits(r, b),
				RowMisses: ctrl.RowBufferMisses(r, b),
			})
		}
	}

	ctrl.ResetEpoch(cfg.EpochLength)

	recorder.Record(stats.Snapshot{
		RunID:      runID,
		Cycle:      cycle,
		Power:      power,
		RankBanks:  banks,
		TotalHist:  ctrl.TotalLatencyHistogram(),
		AccessHist: ctrl.AccessLatencyHistogram(),
		BinSize:    cfg.HistogramBinSize,
	})
}

func flushCSV(recorder *stats.Recorder, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "writing csv: %v\n", err)
		return
	}
	defer f.Close()

	if err := recorder.WriteCSV(f); err != nil {
		fmt.Fprintf(os.Stderr, "writing csv: %v\n", err)
	}
}

func saveHistory(h *stats.History, runID, protocol string, cycles uint64, ctrl *memctrl.Controller) {
	_ = h.Save(stats.RunSummary{
		RunID:    runID,
		Protocol: protocol,
		Cycles:   cycles,
	})
}
