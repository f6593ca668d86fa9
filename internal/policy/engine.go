// Package policy implements the protection-level rule engine. Every file
// path resolves to a protection level through the project descriptor's
// module table, and the level decides whether an edit is allowed, needs a
// confirmation grant, or is refused outright.
package policy

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"steward/internal/logging"
	"steward/internal/project"
)

// Decision is the outcome of a protection check.
type Decision string

const (
	DecisionAllow   Decision = "allow"   // active level, or stable with a live grant
	DecisionConfirm Decision = "confirm" // stable level, confirmation required
	DecisionRefuse  Decision = "refuse"  // core level, never editable
)

// ErrCoreProtected is returned when a confirmation grant is requested for a
// core-level path. Core protection cannot be waived at runtime; only a
// manual PROJECT.md edit changes a module's level.
var ErrCoreProtected = errors.New("path is core-protected and cannot be granted")

// ErrNoConfirmNeeded is returned when Confirm is called for a path that is
// already freely editable.
var ErrNoConfirmNeeded = errors.New("path does not require confirmation")

// Grant records an operator's confirmation for a stable-level path.
type Grant struct {
	Path       string    `json:"path"`
	Module     string    `json:"module"`
	ApprovedBy string    `json:"approved_by"`
	GrantedAt  time.Time `json:"granted_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the grant is past its TTL.
func (g Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// CheckResult carries a decision with the context that produced it.
type CheckResult struct {
	Path     string        `json:"path"`
	Decision Decision      `json:"decision"`
	Module   string        `json:"module"` // empty when no module claims the path
	Level    project.Level `json:"level"`
	Granted  bool          `json:"granted"` // true when a grant turned confirm into allow
}

// DescriptorSource supplies the current project descriptor.
type DescriptorSource interface {
	Descriptor() (*project.Descriptor, error)
}

// Auditor receives protection decisions for the audit trail.
type Auditor interface {
	ProtectDecision(event logging.AuditEventType, path, level string) error
}

// Engine evaluates protection levels and tracks confirmation grants.
type Engine struct {
	mu           sync.Mutex
	source       DescriptorSource
	auditor      Auditor
	confirmTTL   time.Duration
	defaultLevel project.Level
	grants       map[string]Grant
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuditor wires an audit logger into the engine.
func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithDefaultLevel sets the level assumed for unlisted paths.
func WithDefaultLevel(l project.Level) Option {
	return func(e *Engine) { e.defaultLevel = l }
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a protection engine. confirmTTL bounds how long a
// confirmation grant for a stable path stays valid.
func NewEngine(source DescriptorSource, confirmTTL time.Duration, opts ...Option) *Engine {
	e := &Engine{
		source:       source,
		confirmTTL:   confirmTTL,
		defaultLevel: project.LevelActive,
		grants:       make(map[string]Grant),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check resolves the protection decision for a file path.
func (e *Engine) Check(file string) (CheckResult, error) {
	d, err := e.source.Descriptor()
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to load descriptor: %w", err)
	}

	key := normalize(file)
	result := CheckResult{Path: key, Level: e.defaultLevel}

	if mod, ok := d.ModuleFor(key); ok {
		result.Module = mod.Name
		result.Level = mod.Level
	}

	switch result.Level {
	case project.LevelCore:
		result.Decision = DecisionRefuse
	case project.LevelStable:
		result.Decision = DecisionConfirm
		if e.hasLiveGrant(key) {
			result.Decision = DecisionAllow
			result.Granted = true
		}
	default:
		result.Decision = DecisionAllow
	}

	e.audit(result)
	logging.Policy("check %s: module=%s level=%s decision=%s", key, result.Module, result.Level, result.Decision)
	return result, nil
}

// Confirm records an operator confirmation for a stable-level path. The
// resulting grant makes a follow-up Check return allow until the TTL lapses.
func (e *Engine) Confirm(file, approvedBy string) (Grant, error) {
	res, err := e.Check(file)
	if err != nil {
		return Grant{}, err
	}

	switch res.Level {
	case project.LevelCore:
		return Grant{}, ErrCoreProtected
	case project.LevelActive:
		return Grant{}, ErrNoConfirmNeeded
	}
	if res.Granted {
		return Grant{}, ErrNoConfirmNeeded
	}

	now := e.now()
	grant := Grant{
		Path:       res.Path,
		Module:     res.Module,
		ApprovedBy: approvedBy,
		GrantedAt:  now,
		ExpiresAt:  now.Add(e.confirmTTL),
	}

	e.mu.Lock()
	e.grants[res.Path] = grant
	e.mu.Unlock()

	if e.auditor != nil {
		e.auditor.ProtectDecision(logging.AuditProtectGrant, res.Path, string(res.Level))
	}
	logging.Policy("grant %s by %s until %s", res.Path, approvedBy, grant.ExpiresAt.Format(time.RFC3339))
	return grant, nil
}

// Restore loads previously issued grants, dropping expired ones. The CLI
// persists grants between invocations; a long-lived process never needs this.
func (e *Engine) Restore(grants []Grant) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, g := range grants {
		if g.Expired(now) {
			continue
		}
		e.grants[normalize(g.Path)] = g
	}
}

// Revoke removes a grant before its TTL lapses.
func (e *Engine) Revoke(file string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.grants, normalize(file))
}

// Grants returns the live grants, dropping expired ones.
func (e *Engine) Grants() []Grant {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	grants := make([]Grant, 0, len(e.grants))
	for key, g := range e.grants {
		if g.Expired(now) {
			delete(e.grants, key)
			continue
		}
		grants = append(grants, g)
	}
	return grants
}

func (e *Engine) hasLiveGrant(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.grants[key]
	if !ok {
		return false
	}
	if g.Expired(e.now()) {
		delete(e.grants, key)
		return false
	}
	return true
}

func (e *Engine) audit(res CheckResult) {
	if e.auditor == nil {
		return
	}
	event := logging.AuditProtectAllow
	switch res.Decision {
	case DecisionConfirm:
		event = logging.AuditProtectConfirm
	case DecisionRefuse:
		event = logging.AuditProtectRefuse
	}
	e.auditor.ProtectDecision(event, res.Path, string(res.Level))
}

// normalize converts separators unconditionally so backslash paths from
// Windows-authored tooling resolve the same grants on every platform.
func normalize(file string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(file, `\`, "/")), "./")
}
