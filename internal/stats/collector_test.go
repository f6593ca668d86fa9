package stats

import (
	"testing"
	"time"

	"steward/internal/guard"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(t.TempDir())
	if err != nil {
		t.Fatalf("NewCollector error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCollector_Overview(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	records := []struct {
		op      string
		outcome guard.Outcome
		dur     time.Duration
	}{
		{"commit", guard.OutcomeSuccess, 100 * time.Millisecond},
		{"commit", guard.OutcomeSuccess, 300 * time.Millisecond},
		{"scan", guard.OutcomeFail, 50 * time.Millisecond},
		{"scan", guard.OutcomeTimeout, 950 * time.Millisecond},
	}
	for _, r := range records {
		if err := c.Record(r.op, "", r.outcome, r.dur); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	o, err := c.Overview()
	if err != nil {
		t.Fatalf("Overview error: %v", err)
	}
	if o.Total != 4 || o.Succeeded != 2 || o.Failed != 1 || o.TimedOut != 1 {
		t.Errorf("unexpected overview: %+v", o)
	}
	if o.SuccessRate != 0.5 {
		t.Errorf("success rate = %v, want 0.5", o.SuccessRate)
	}
	if o.AvgDuration != 350*time.Millisecond {
		t.Errorf("avg duration = %v, want 350ms", o.AvgDuration)
	}
}

func TestCollector_Overview_Empty(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	o, err := c.Overview()
	if err != nil {
		t.Fatalf("Overview error: %v", err)
	}
	if o.Total != 0 || o.SuccessRate != 0 {
		t.Errorf("empty store should report zeros, got %+v", o)
	}
}

func TestCollector_ByOperation(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	for i := 0; i < 3; i++ {
		if err := c.Record("commit", "PROJECT.md", guard.OutcomeSuccess, 100*time.Millisecond); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}
	if err := c.Record("scan", "", guard.OutcomeFail, 10*time.Millisecond); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	rows, err := c.ByOperation()
	if err != nil {
		t.Fatalf("ByOperation error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(rows))
	}
	if rows[0].Operation != "commit" || rows[0].Total != 3 || rows[0].Succeeded != 3 {
		t.Errorf("busiest operation first: %+v", rows[0])
	}
	if rows[1].Operation != "scan" || rows[1].Succeeded != 0 {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestCollector_Daily(t *testing.T) {
	t.Parallel()

	c := newTestCollector(t)

	if err := c.Record("ask", "", guard.OutcomeSuccess, time.Millisecond); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := c.Record("ask", "", guard.OutcomeSuccess, time.Millisecond); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	rows, err := c.Daily(7)
	if err != nil {
		t.Fatalf("Daily error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single day bucket, got %d", len(rows))
	}
	if rows[0].Total != 2 {
		t.Errorf("daily total = %d, want 2", rows[0].Total)
	}
	if rows[0].Date == "" {
		t.Error("expected a date bucket")
	}
}
