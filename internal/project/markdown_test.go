package project

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleDocument = `# Project: demo

## Modules

| Module | Path           | Status | Level  |
|--------|----------------|--------|--------|
| parser | internal/parser | done   | stable |
| cli    | cmd/**          | dev    | active |
| kernel | internal/kernel | frozen | core   |

## Current Goal

Ship the v2 parser.

## History

- 2026-03-01 09:30 — Project initialized.
- Imported legacy history without a date.
`

func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if d.Name != "demo" {
		t.Errorf("name = %q, want demo", d.Name)
	}

	wantModules := []Module{
		{Name: "parser", PathPattern: "internal/parser", Status: StatusDone, Level: LevelStable},
		{Name: "cli", PathPattern: "cmd/**", Status: StatusDev, Level: LevelActive},
		{Name: "kernel", PathPattern: "internal/kernel", Status: StatusFrozen, Level: LevelCore},
	}
	if diff := cmp.Diff(wantModules, d.Modules); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}

	if d.CurrentGoal != "Ship the v2 parser." {
		t.Errorf("goal = %q", d.CurrentGoal)
	}

	if len(d.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(d.History))
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	if !d.History[0].Timestamp.Equal(want) {
		t.Errorf("history timestamp = %v, want %v", d.History[0].Timestamp, want)
	}
	if d.History[1].Summary != "Imported legacy history without a date." {
		t.Errorf("history summary = %q", d.History[1].Summary)
	}
	if !d.History[1].Timestamp.IsZero() {
		t.Errorf("undated entry should have zero timestamp")
	}
}

func TestParse_CRLFInput(t *testing.T) {
	t.Parallel()

	unix, err := Parse(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	crlf := strings.ReplaceAll(sampleDocument, "\n", "\r\n")
	dos, err := Parse(strings.NewReader(crlf))
	if err != nil {
		t.Fatalf("Parse CRLF error: %v", err)
	}

	if diff := cmp.Diff(unix, dos); diff != "" {
		t.Errorf("CRLF document should parse identically (-lf +crlf):\n%s", diff)
	}
}

func TestParse_GoalNoneIsEmpty(t *testing.T) {
	t.Parallel()

	d, err := Parse(strings.NewReader("# Project: x\n\n## Current Goal\n\nNone\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if d.CurrentGoal != "" {
		t.Errorf("goal = %q, want empty", d.CurrentGoal)
	}
}

func TestParse_MissingSections(t *testing.T) {
	t.Parallel()

	d, err := Parse(strings.NewReader("# Project: bare\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(d.Modules) != 0 || len(d.History) != 0 || d.CurrentGoal != "" {
		t.Errorf("missing sections should yield empty fields: %+v", d)
	}
}

func TestParse_RejectsBadRow(t *testing.T) {
	t.Parallel()

	doc := "# Project: x\n\n## Modules\n\n| Module | Path |\n|---|---|\n| parser | internal/parser |\n"
	if _, err := Parse(strings.NewReader(doc)); err == nil {
		t.Error("expected error for a row with missing columns")
	}
}

func TestParse_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	doc := "# Project: x\n\n## Modules\n\n| Module | Path | Status | Level |\n|---|---|---|---|\n| parser | internal/parser | done | locked |\n"
	_, err := Parse(strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Errorf("expected unknown level error, got %v", err)
	}
}

func TestParse_RejectsDuplicateModule(t *testing.T) {
	t.Parallel()

	doc := "# Project: x\n\n## Modules\n\n| Module | Path | Status | Level |\n|---|---|---|---|\n| parser | a | dev | active |\n| parser | b | dev | active |\n"
	_, err := Parse(strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate module error, got %v", err)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	t.Parallel()

	d, err := Parse(strings.NewReader(sampleDocument))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	rendered := Render(d)
	d2, err := Parse(bytes.NewReader(rendered))
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if diff := cmp.Diff(d, d2); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}

	// Rendering is deterministic
	if !bytes.Equal(rendered, Render(d2)) {
		t.Error("render output should be stable")
	}
}

func TestRender_EmptyDescriptor(t *testing.T) {
	t.Parallel()

	out := string(Render(&Descriptor{}))
	if !strings.Contains(out, "# Project: Untitled") {
		t.Errorf("missing fallback title:\n%s", out)
	}
	if !strings.Contains(out, "_No modules registered._") {
		t.Errorf("missing empty-table placeholder:\n%s", out)
	}
	if !strings.Contains(out, "None") {
		t.Errorf("missing goal placeholder:\n%s", out)
	}
}

func TestAppendHistory(t *testing.T) {
	t.Parallel()

	d := &Descriptor{}
	d.AppendHistory("first")
	d.AppendHistory("second")

	if len(d.History) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(d.History))
	}
	if d.History[0].Summary != "first" || d.History[1].Summary != "second" {
		t.Errorf("entries out of order: %+v", d.History)
	}
	if d.History[0].Timestamp.IsZero() {
		t.Error("appended entries should be timestamped")
	}
}
