package goal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const renderTimeLayout = "2006-01-02 15:04"

// Render writes the goal as a GOAL.md document. A nil goal renders the
// no-active-goal placeholder.
func Render(g *Goal) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Current Goal\n\n")
	if g == nil {
		buf.WriteString("_No active goal. Set one with `steward goal set`._\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "%s\n\n", g.Description)
	fmt.Fprintf(&buf, "- **Status:** %s\n", statusLabel(g.Status))
	fmt.Fprintf(&buf, "- **Priority:** %s\n", priorityLabel(g.Priority))
	fmt.Fprintf(&buf, "- **Started:** %s\n", g.CreatedAt.Format(renderTimeLayout))
	if g.CompletedAt != nil {
		fmt.Fprintf(&buf, "- **Completed:** %s\n", g.CompletedAt.Format(renderTimeLayout))
	}

	if len(g.Criteria) > 0 {
		buf.WriteString("\n## Completion Criteria\n\n")
		for _, c := range g.Criteria {
			marker := " "
			if g.Status == StatusCompleted {
				marker = "x"
			}
			fmt.Fprintf(&buf, "- [%s] %s\n", marker, c)
		}
	}

	buf.WriteString("\n## Progress\n\n")
	if len(g.Progress) == 0 {
		buf.WriteString("_No progress recorded yet._\n")
	} else {
		for _, p := range g.Progress {
			fmt.Fprintf(&buf, "- %s — %s\n", p.Timestamp.Format(renderTimeLayout), p.Note)
		}
	}

	return buf.Bytes()
}

// WriteDocument renders the goal to GOAL.md at the workspace root.
func WriteDocument(workspace string, g *Goal) error {
	docPath := filepath.Join(workspace, DocumentName)
	if err := os.WriteFile(docPath, Render(g), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DocumentName, err)
	}
	return nil
}

func statusLabel(s Status) string {
	switch s {
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusBlocked:
		return "Blocked"
	}
	return string(s)
}

func priorityLabel(p Priority) string {
	switch {
	case p >= PriorityHigh:
		return "High"
	case p <= PriorityLow:
		return "Low"
	}
	return "Normal"
}

// Summary returns a one-line description suitable for the project history,
// e.g. "Goal completed: ship the parser (3 progress notes, 2h10m)".
func Summary(g *Goal, action string) string {
	desc := g.Description
	if len(desc) > 80 {
		desc = desc[:77] + "..."
	}
	if g.CompletedAt != nil {
		elapsed := g.CompletedAt.Sub(g.CreatedAt).Round(time.Minute)
		return fmt.Sprintf("Goal %s: %s (%d progress notes, %s)", action, desc, len(g.Progress), elapsed)
	}
	return fmt.Sprintf("Goal %s: %s", action, desc)
}
