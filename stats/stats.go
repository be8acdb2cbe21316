// Package stats turns a running Controller's energy, latency, and
// row-buffer counters into the CSV and SQLite artifacts spec.md's
// "Statistics output" describes.
package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// RankBankStat is one (rank, bank) row of row-buffer and bandwidth
// telemetry, as sourced from a Controller at an epoch boundary.
type RankBankStat struct {
	Rank, Bank    int
	RowHits       uint64
	RowMisses     uint64
	BandwidthGBs  float64
	AvgLatencyNs  float64
}

// RankPower is one rank's watt breakdown at an epoch boundary.
type RankPower struct {
	Rank                                int
	Background, Burst, ActPre, Refresh float64
}

// Snapshot is everything Recorder needs to emit one epoch or final report.
type Snapshot struct {
	RunID      string
	Cycle      uint64
	Power      []RankPower
	RankBanks  []RankBankStat
	TotalHist  map[uint64]uint64
	AccessHist map[uint64]uint64
	BinSize    uint64
}

// Recorder accumulates snapshots and can emit them as CSV, following the
// "Name[channel][rank][bank?]" indexed-key schema spec.md's external
// interfaces section describes: one column per (rank[, bank]) combination,
// one row per snapshot.
type Recorder struct {
	channel   int
	snapshots []Snapshot
}

// NewRecorder returns an empty Recorder for the given channel index (CSV
// keys are indexed by channel even in this single-channel-per-controller
// design, since a caller may run several Recorders side by side for a
// multi-channel system).
func NewRecorder(channel int) *Recorder {
	return &Recorder{channel: channel}
}

// Record appends a Snapshot, typically taken right after
// Controller.ResetEpoch.
func (r *Recorder) Record(s Snapshot) {
	r.snapshots = append(r.snapshots, s)
}

// Snapshots returns every recorded snapshot in recording order.
func (r *Recorder) Snapshots() []Snapshot { return r.snapshots }

// WriteCSV emits every recorded snapshot as one CSV, one row per snapshot,
// with indexed columns for each rank's power figures and each (rank, bank)
// pair's row-buffer/bandwidth/latency figures.
func (r *Recorder) WriteCSV(w io.Writer) error {
	if len(r.snapshots) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := r.header()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("stats: writing CSV header: %w", err)
	}

	for _, s := range r.snapshots {
		row, err := r.row(s)
		if err != nil {
			return err
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("stats: writing CSV row: %w", err)
		}
	}

	return cw.Error()
}

func (r *Recorder) header() []string {
	first := r.snapshots[0]

	cols := []string{"run_id", "cycle"}

	for _, p := range first.Power {
		prefix := fmt.Sprintf("power[%d][%d]", r.channel, p.Rank)
		cols = append(cols,
			prefix+".background", prefix+".burst", prefix+".actpre", prefix+".refresh")
	}

	for _, rb := range first.RankBanks {
		prefix := fmt.Sprintf("bank[%d][%d][%d]", r.channel, rb.Rank, rb.Bank)
		cols = append(cols,
			prefix+".row_hits", prefix+".row_misses",
			prefix+".bandwidth_gbs", prefix+".avg_latency_ns")
	}

	return cols
}

func (r *Recorder) row(s Snapshot) ([]string, error) {
	row := []string{s.RunID, fmt.Sprintf("%d", s.Cycle)}

	for _, p := range s.Power {
		row = append(row,
			fmt.Sprintf("%.6f", p.Background),
			fmt.Sprintf("%.6f", p.Burst),
			fmt.Sprintf("%.6f", p.ActPre),
			fmt.Sprintf("%.6f", p.Refresh))
	}

	for _, rb := range s.RankBanks {
		row = append(row,
			fmt.Sprintf("%d", rb.RowHits),
			fmt.Sprintf("%d", rb.RowMisses),
			fmt.Sprintf("%.6f", rb.BandwidthGBs),
			fmt.Sprintf("%.6f", rb.AvgLatencyNs))
	}

	return row, nil
}

// HistogramFromMap renders a bin->count histogram as sorted (bin, count)
// pairs, for callers that want the raw distribution rather than the CSV
// summary rows.
func HistogramFromMap(hist map[uint64]uint64) [][2]uint64 {
	bins := make([]uint64, 0, len(hist))
	for b := range hist {
		bins = append(bins, b)
	}

	sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })

	out := make([][2]uint64, len(bins))
	for i, b := range bins {
		out[i] = [2]uint64{b, hist[b]}
	}

	return out
}

