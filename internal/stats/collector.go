// Package stats records the outcome of guarded operations in the steward
// database and aggregates them for the stats command.
package stats

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"steward/internal/guard"
	"steward/internal/logging"
)

// Collector persists operation outcomes. It implements guard.Recorder.
type Collector struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewCollector creates or opens the stats store under the .steward directory.
func NewCollector(stewardDir string) (*Collector, error) {
	dbPath := filepath.Join(stewardDir, "stats.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Collector{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Collector) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Collector) Path() string {
	return c.dbPath
}

func (c *Collector) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS operations (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		target TEXT,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_operations_op ON operations(operation);
	CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(recorded_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Record persists one operation outcome.
func (c *Collector) Record(operation, target string, outcome guard.Outcome, duration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO operations (id, operation, target, outcome, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), operation, target, outcome, duration.Milliseconds(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}

	logging.Get(logging.CategoryStats).Debug("recorded %s/%s: %s in %s", operation, target, outcome, duration)
	return nil
}

// Overview aggregates all recorded operations.
type Overview struct {
	Total       int64         `json:"total"`
	Succeeded   int64         `json:"succeeded"`
	Failed      int64         `json:"failed"`
	TimedOut    int64         `json:"timed_out"`
	SuccessRate float64       `json:"success_rate"` // 0..1, zero when no records
	AvgDuration time.Duration `json:"avg_duration"`
}

// Overview returns totals across every operation.
func (c *Collector) Overview() (Overview, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var o Overview
	var avgMs sql.NullFloat64
	err := c.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(outcome = 'success'), 0),
		       COALESCE(SUM(outcome = 'fail'), 0),
		       COALESCE(SUM(outcome = 'timeout'), 0),
		       AVG(duration_ms)
		FROM operations
	`).Scan(&o.Total, &o.Succeeded, &o.Failed, &o.TimedOut, &avgMs)
	if err != nil {
		return Overview{}, fmt.Errorf("failed to aggregate: %w", err)
	}

	if o.Total > 0 {
		o.SuccessRate = float64(o.Succeeded) / float64(o.Total)
	}
	if avgMs.Valid {
		o.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
	}
	return o, nil
}

// OperationRow is the per-operation aggregate.
type OperationRow struct {
	Operation   string        `json:"operation"`
	Total       int64         `json:"total"`
	Succeeded   int64         `json:"succeeded"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// ByOperation returns aggregates grouped by operation, busiest first.
func (c *Collector) ByOperation() ([]OperationRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.Query(`
		SELECT operation,
		       COUNT(*),
		       COALESCE(SUM(outcome = 'success'), 0),
		       AVG(duration_ms)
		FROM operations
		GROUP BY operation
		ORDER BY COUNT(*) DESC, operation ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OperationRow
	for rows.Next() {
		var r OperationRow
		var avgMs sql.NullFloat64
		if err := rows.Scan(&r.Operation, &r.Total, &r.Succeeded, &avgMs); err != nil {
			continue
		}
		if avgMs.Valid {
			r.AvgDuration = time.Duration(avgMs.Float64 * float64(time.Millisecond))
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DailyRow is one day's operation count.
type DailyRow struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Total int64  `json:"total"`
}

// Daily returns per-day totals for the last n days, oldest first.
func (c *Collector) Daily(n int) ([]DailyRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	since := time.Now().AddDate(0, 0, -n)
	rows, err := c.db.Query(`
		SELECT date(recorded_at), COUNT(*)
		FROM operations
		WHERE recorded_at >= ?
		GROUP BY date(recorded_at)
		ORDER BY date(recorded_at) ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyRow
	for rows.Next() {
		var r DailyRow
		if err := rows.Scan(&r.Date, &r.Total); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
