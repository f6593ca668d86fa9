package goal

import (
	"strings"
	"testing"
	"time"
)

func TestRender_NoGoal(t *testing.T) {
	t.Parallel()

	out := string(Render(nil))
	if !strings.Contains(out, "# Current Goal") {
		t.Error("missing heading")
	}
	if !strings.Contains(out, "No active goal") {
		t.Error("missing placeholder for nil goal")
	}
}

func TestRender_ActiveGoal(t *testing.T) {
	t.Parallel()

	g := &Goal{
		ID:          "g-1",
		Description: "Ship the parser",
		Status:      StatusInProgress,
		Priority:    PriorityHigh,
		Criteria:    []string{"all tests pass", "docs updated"},
		CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local),
		Progress: []ProgressEntry{
			{Timestamp: time.Date(2026, 3, 1, 11, 0, 0, 0, time.Local), Note: "lexer done"},
		},
	}

	out := string(Render(g))
	for _, want := range []string{
		"Ship the parser",
		"**Status:** In Progress",
		"**Priority:** High",
		"- [ ] all tests pass",
		"- [ ] docs updated",
		"2026-03-01 11:00 — lexer done",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q:\n%s", want, out)
		}
	}
}

func TestRender_CompletedGoalChecksCriteria(t *testing.T) {
	t.Parallel()

	done := time.Date(2026, 3, 2, 17, 0, 0, 0, time.Local)
	g := &Goal{
		Description: "Ship the parser",
		Status:      StatusCompleted,
		Priority:    PriorityNormal,
		Criteria:    []string{"all tests pass"},
		CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local),
		CompletedAt: &done,
	}

	out := string(Render(g))
	if !strings.Contains(out, "- [x] all tests pass") {
		t.Errorf("completed goal should check criteria:\n%s", out)
	}
	if !strings.Contains(out, "**Completed:** 2026-03-02 17:00") {
		t.Errorf("missing completion timestamp:\n%s", out)
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	g := &Goal{
		Description: "Ship the parser",
		Status:      StatusCompleted,
		CreatedAt:   time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local),
		CompletedAt: &done,
		Progress:    []ProgressEntry{{Note: "a"}, {Note: "b"}},
	}

	s := Summary(g, "completed")
	if !strings.Contains(s, "Goal completed: Ship the parser") {
		t.Errorf("unexpected summary: %q", s)
	}
	if !strings.Contains(s, "2 progress notes") {
		t.Errorf("summary should count progress notes: %q", s)
	}
	if !strings.Contains(s, "2h30m") {
		t.Errorf("summary should include elapsed time: %q", s)
	}
}
