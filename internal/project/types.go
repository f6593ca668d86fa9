// Package project implements the project descriptor document (PROJECT.md):
// the module table with protection levels, the current goal pointer, and the
// append-only history log. The descriptor is the source of truth the
// protection policy engine reads.
package project

import (
	"fmt"
	"time"
)

// DocumentName is the descriptor file name at the workspace root.
const DocumentName = "PROJECT.md"

// Status is a module's development status.
type Status string

const (
	StatusDev    Status = "dev"    // under active development
	StatusDone   Status = "done"   // feature-complete
	StatusFrozen Status = "frozen" // no further work planned
)

// ParseStatus validates a status string from the module table.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDev, StatusDone, StatusFrozen:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown module status %q (valid: dev, done, frozen)", s)
}

// Level is a module's protection level.
type Level string

const (
	LevelActive Level = "active" // unrestricted edits
	LevelStable Level = "stable" // edits require confirmation
	LevelCore   Level = "core"   // edits are refused
)

// ParseLevel validates a protection level string from the module table.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelActive, LevelStable, LevelCore:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown protection level %q (valid: active, stable, core)", s)
}

// Module is one row of the module table.
type Module struct {
	Name        string `json:"name"`
	PathPattern string `json:"path_pattern"`
	Status      Status `json:"status"`
	Level       Level  `json:"level"`
}

// HistoryEntry is one item of the append-only history log.
// Summary is free text; Timestamp is zero when the entry predates steward
// and carries no parseable date.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
}

// Descriptor is the parsed PROJECT.md.
type Descriptor struct {
	Name        string         `json:"name"`
	Modules     []Module       `json:"modules"`
	CurrentGoal string         `json:"current_goal"`
	History     []HistoryEntry `json:"history"`
}

// ModuleByName returns the module record with the given name.
func (d *Descriptor) ModuleByName(name string) (*Module, bool) {
	for i := range d.Modules {
		if d.Modules[i].Name == name {
			return &d.Modules[i], true
		}
	}
	return nil, false
}

// AppendHistory adds an entry to the history log. History is append-only:
// existing entries are never mutated or reordered.
func (d *Descriptor) AppendHistory(summary string) {
	d.History = append(d.History, HistoryEntry{
		Timestamp: time.Now(),
		Summary:   summary,
	})
}
