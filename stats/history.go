package stats

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
	"github.com/rs/xid"
)

// History persists one summary row per run to a local SQLite database, so
// successive benchmark runs can be compared without re-parsing CSVs. This
// is a supplemental feature (see DESIGN.md) added to give the run-history
// concern a real home; it plays no part in the tick loop itself.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("stats: opening history db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	protocol TEXT NOT NULL,
	cycles INTEGER NOT NULL,
	total_reads INTEGER NOT NULL,
	total_writes INTEGER NOT NULL,
	avg_background_watts REAL NOT NULL,
	avg_burst_watts REAL NOT NULL,
	avg_actpre_watts REAL NOT NULL,
	avg_refresh_watts REAL NOT NULL
);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("stats: creating schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// RunSummary is one completed run's headline figures, the row History
// persists.
type RunSummary struct {
	RunID                                              string
	Protocol                                           string
	Cycles                                              uint64
	TotalReads, TotalWrites                             uint64
	AvgBackgroundWatts, AvgBurstWatts, AvgActPreWatts, AvgRefreshWatts float64
}

// NewRunID generates a fresh globally-sortable run identifier.
func NewRunID() string {
	return xid.New().String()
}

// Save inserts one RunSummary row.
func (h *History) Save(s RunSummary) error {
	const stmt = `
INSERT INTO runs (
	run_id, protocol, cycles, total_reads, total_writes,
	avg_background_watts, avg_burst_watts, avg_actpre_watts, avg_refresh_watts
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := h.db.Exec(stmt,
		s.RunID, s.Protocol, s.Cycles, s.TotalReads, s.TotalWrites,
		s.AvgBackgroundWatts, s.AvgBurstWatts, s.AvgActPreWatts, s.AvgRefreshWatts)
	if err != nil {
		return fmt.Errorf("stats: saving run %s: %w", s.RunID, err)
	}

	return nil
}

// Recent returns the n most recently inserted runs, newest first.
func (h *History) Recent(n int) ([]RunSummary, error) {
	rows, err := h.db.Query(`
SELECT run_id, protocol, cycles, total_reads, total_writes,
       avg_background_watts, avg_burst_watts, avg_actpre_watts, avg_refresh_watts
FROM runs ORDER BY rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("stats: querying history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.RunID, &s.Protocol, &s.Cycles, &s.TotalReads, &s.TotalWrites,
			&s.AvgBackgroundWatts, &s.AvgBurstWatts, &s.AvgActPreWatts, &s.AvgRefreshWatts,
		); err != nil {
			return nil, fmt.Errorf("stats: scanning history row: %w", err)
		}

		out = append(out, s)
	}

	return out, rows.Err()
}
