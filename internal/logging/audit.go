package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Goal events
	AuditGoalSet     AuditEventType = "goal_set"
	AuditGoalDone    AuditEventType = "goal_done"
	AuditGoalBlock   AuditEventType = "goal_block"
	AuditGoalUnblock AuditEventType = "goal_unblock"
	AuditGoalNote    AuditEventType = "goal_note"

	// Protection decisions
	AuditProtectAllow   AuditEventType = "protect_allow"
	AuditProtectConfirm AuditEventType = "protect_confirm"
	AuditProtectRefuse  AuditEventType = "protect_refuse"
	AuditProtectGrant   AuditEventType = "protect_grant"

	// Commit events
	AuditCommitRecord AuditEventType = "commit_record"
	AuditCommitReject AuditEventType = "commit_reject"

	// Instruction document events
	AuditSkillLoad   AuditEventType = "skill_load"
	AuditSkillReload AuditEventType = "skill_reload"
	AuditSkillError  AuditEventType = "skill_error"

	// Configuration events
	AuditConfigChange AuditEventType = "config_change"

	// System events
	AuditSystemStart AuditEventType = "system_start"
	AuditSystemStop  AuditEventType = "system_stop"
	AuditError       AuditEventType = "error"
)

// AuditSeverity indicates event severity.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEvent represents a structured audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"ts"`
	EventType AuditEventType    `json:"event"`
	Severity  AuditSeverity     `json:"severity"`
	Operator  string            `json:"operator,omitempty"`
	Target    string            `json:"target,omitempty"`
	Message   string            `json:"msg"`
	Details   map[string]string `json:"details,omitempty"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

// AuditFilter decides whether an event is written. Returning false drops it.
type AuditFilter func(AuditEvent) bool

// AuditHandler receives every event that passes the filters.
type AuditHandler func(AuditEvent)

// AuditOptions configures an AuditLogger.
type AuditOptions struct {
	MaxFileSize int64 // rotate when the current file exceeds this
	MaxFiles    int   // old files beyond this count are removed
}

// DefaultAuditOptions returns the default retention settings.
func DefaultAuditOptions() AuditOptions {
	return AuditOptions{
		MaxFileSize: 10 * 1024 * 1024,
		MaxFiles:    10,
	}
}

// AuditLogger writes JSONL audit events with date-based rotation.
type AuditLogger struct {
	mu       sync.Mutex
	dir      string
	opts     AuditOptions
	file     *os.File
	filePath string
	filters  []AuditFilter
	handlers []AuditHandler

	// Statistics
	eventCount   int
	eventsByType map[AuditEventType]int
}

// NewAuditLogger creates an audit logger writing under dir.
func NewAuditLogger(dir string, opts AuditOptions) (*AuditLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultAuditOptions().MaxFileSize
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultAuditOptions().MaxFiles
	}
	a := &AuditLogger{
		dir:          dir,
		opts:         opts,
		eventsByType: make(map[AuditEventType]int),
	}
	if err := a.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return a, nil
}

// AddFilter registers an event filter.
func (a *AuditLogger) AddFilter(f AuditFilter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filters = append(a.filters, f)
}

// AddHandler registers an event handler.
func (a *AuditLogger) AddHandler(h AuditHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, h)
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range a.filters {
		if !f(event) {
			return nil
		}
	}

	a.eventCount++
	a.eventsByType[event.EventType]++

	for _, h := range a.handlers {
		h(event)
	}

	if err := a.rotateIfNeeded(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// rotateIfNeeded opens a new audit file when the date or size rolls over.
// Caller must hold a.mu.
func (a *AuditLogger) rotateIfNeeded() error {
	today := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(a.dir, fmt.Sprintf("audit-%s.log", today))

	rotate := a.file == nil || a.filePath != path
	if !rotate {
		if info, err := os.Stat(a.filePath); err == nil && info.Size() >= a.opts.MaxFileSize {
			// Size rollover within the same day: rename with a timestamp suffix
			rolled := filepath.Join(a.dir, fmt.Sprintf("audit-%s-%d.log", today, time.Now().UnixNano()))
			a.file.Close()
			a.file = nil
			if err := os.Rename(a.filePath, rolled); err != nil {
				return fmt.Errorf("failed to roll audit file: %w", err)
			}
			rotate = true
		}
	}
	if !rotate {
		return nil
	}

	if a.file != nil {
		a.file.Close()
		a.file = nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	a.file = file
	a.filePath = path

	a.cleanupOldFiles()
	return nil
}

// cleanupOldFiles removes audit files beyond the retention limit.
// Caller must hold a.mu.
func (a *AuditLogger) cleanupOldFiles() {
	matches, err := filepath.Glob(filepath.Join(a.dir, "audit-*.log"))
	if err != nil || len(matches) <= a.opts.MaxFiles {
		return
	}

	type fileAge struct {
		path string
		mod  time.Time
	}
	files := make([]fileAge, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, fileAge{path: m, mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	for _, f := range files[min(a.opts.MaxFiles, len(files)):] {
		os.Remove(f.path)
	}
}

// Close closes the audit log file.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}
	return nil
}

// AuditStats summarizes audit logger activity.
type AuditStats struct {
	TotalEvents  int                    `json:"total_events"`
	EventsByType map[AuditEventType]int `json:"events_by_type"`
	CurrentFile  string                 `json:"current_file"`
}

// Stats returns audit logger statistics.
func (a *AuditLogger) Stats() AuditStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	byType := make(map[AuditEventType]int, len(a.eventsByType))
	for k, v := range a.eventsByType {
		byType[k] = v
	}
	return AuditStats{
		TotalEvents:  a.eventCount,
		EventsByType: byType,
		CurrentFile:  a.filePath,
	}
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// GoalTransition logs a goal status transition.
func (a *AuditLogger) GoalTransition(event AuditEventType, goalID, from, to string) error {
	return a.Log(AuditEvent{
		EventType: event,
		Target:    goalID,
		Message:   fmt.Sprintf("Goal %s: %s -> %s", goalID, from, to),
		Details:   map[string]string{"from": from, "to": to},
	})
}

// ProtectDecision logs a protection-level decision for a path.
func (a *AuditLogger) ProtectDecision(event AuditEventType, path, level string) error {
	severity := SeverityInfo
	if event == AuditProtectRefuse {
		severity = SeverityWarning
	}
	return a.Log(AuditEvent{
		EventType: event,
		Severity:  severity,
		Target:    path,
		Message:   fmt.Sprintf("Protection %s: %s (level=%s)", event, path, level),
		Details:   map[string]string{"level": level},
	})
}

// CommitRecord logs a commit history record.
func (a *AuditLogger) CommitRecord(operator, summary string) error {
	return a.Log(AuditEvent{
		EventType: AuditCommitRecord,
		Operator:  operator,
		Message:   summary,
	})
}

// SkillEvent logs an instruction document event.
func (a *AuditLogger) SkillEvent(event AuditEventType, name, path string, err error) error {
	severity := SeverityInfo
	errMsg := ""
	if err != nil {
		severity = SeverityError
		errMsg = err.Error()
	}
	return a.Log(AuditEvent{
		EventType: event,
		Severity:  severity,
		Target:    name,
		Message:   fmt.Sprintf("Skill %s: %s (%s)", event, name, path),
		Details:   map[string]string{"path": path, "error": errMsg},
	})
}
