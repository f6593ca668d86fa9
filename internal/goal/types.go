// Package goal implements single-active-goal tracking: one free-text task
// with a three-state status, a priority, completion criteria, and an ordered
// progress log. State lives in .steward/steward.db; GOAL.md is rendered as
// the human-readable view after every mutation.
package goal

import (
	"errors"
	"fmt"
	"time"
)

// DocumentName is the rendered goal document at the workspace root.
const DocumentName = "GOAL.md"

// Status is the goal's lifecycle state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusInProgress, StatusCompleted, StatusBlocked:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown goal status %q (valid: in_progress, completed, blocked)", s)
}

// Priority orders goals when listing history. Higher is more urgent.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 5
	PriorityHigh   Priority = 9
)

// ProgressEntry is one ordered progress log item.
type ProgressEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// Transition records one status change for the audit trail.
type Transition struct {
	Timestamp time.Time `json:"timestamp"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
}

// Goal is a single tracked task.
type Goal struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Criteria    []string        `json:"criteria,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Progress    []ProgressEntry `json:"progress,omitempty"`
}

// Active reports whether the goal still claims the single active slot.
func (g *Goal) Active() bool {
	return g.Status != StatusCompleted
}

// Sentinel errors for goal operations.
var (
	ErrNoActiveGoal     = errors.New("no active goal")
	ErrActiveGoalExists = errors.New("an active goal already exists")
	ErrGoalNotFound     = errors.New("goal not found")
)

// TransitionError reports an invalid status transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid goal transition: %s -> %s", e.From, e.To)
}

// validTransition encodes the status machine: block and done apply only to
// in_progress goals, unblock only to blocked ones. Completed is terminal.
func validTransition(from, to Status) bool {
	switch from {
	case StatusInProgress:
		return to == StatusCompleted || to == StatusBlocked
	case StatusBlocked:
		return to == StatusInProgress
	}
	return false
}
