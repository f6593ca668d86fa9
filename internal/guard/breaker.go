package guard

import (
	"fmt"
	"sync"
	"time"

	"steward/internal/logging"
)

// BreakerState is the circuit breaker's current mode.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // normal operation
	StateOpen     BreakerState = "open"      // failing fast
	StateHalfOpen BreakerState = "half_open" // probing for recovery
)

// ErrBreakerOpen is returned while the breaker refuses calls.
type ErrBreakerOpen struct {
	Key       string
	RetryAt   time.Time
	LastError string
}

func (e *ErrBreakerOpen) Error() string {
	return fmt.Sprintf("circuit for %q is open until %s (last error: %s)",
		e.Key, e.RetryAt.Format(time.RFC3339), e.LastError)
}

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	RecoveryTimeout  time.Duration // open duration before a half-open probe
}

// DefaultBreakerConfig matches the guard defaults in steward.yaml.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		RecoveryTimeout:  30 * time.Second,
	}
}

// Breaker is a three-state circuit breaker for one operation key.
type Breaker struct {
	mu        sync.Mutex
	key       string
	cfg       BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	lastError string
	now       func() time.Time
}

// NewBreaker creates a closed breaker for the given key.
func NewBreaker(key string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 3
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	return &Breaker{
		key:   key,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// State returns the breaker's mode, applying the open-to-half-open timeout.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// currentState flips open breakers to half-open once the recovery timeout
// lapses. Caller must hold the lock.
func (b *Breaker) currentState() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		b.successes = 0
		logging.Get(logging.CategoryGuard).Info("circuit %s: open -> half_open", b.key)
	}
	return b.state
}

// Ready reports whether a call may proceed. When the breaker is open it
// returns an ErrBreakerOpen carrying the earliest retry time.
func (b *Breaker) Ready() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentState() == StateOpen {
		return &ErrBreakerOpen{
			Key:       b.key,
			RetryAt:   b.openedAt.Add(b.cfg.RecoveryTimeout),
			LastError: b.lastError,
		}
	}
	return nil
}

// RecordSuccess notes a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			logging.Get(logging.CategoryGuard).Info("circuit %s: half_open -> closed", b.key)
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure notes a failed call. Closed breakers open at the failure
// threshold; a half-open breaker re-opens on any failure.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.lastError = err.Error()
	}

	switch b.currentState() {
	case StateHalfOpen:
		b.open()
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.open()
		}
	}
}

// open trips the breaker. Caller must hold the lock.
func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.successes = 0
	logging.Get(logging.CategoryGuard).Warn("circuit %s opened after failures (last error: %s)", b.key, b.lastError)
}

// BreakerSnapshot is one breaker's state for status reporting.
type BreakerSnapshot struct {
	Key      string       `json:"key"`
	State    BreakerState `json:"state"`
	Failures int          `json:"failures"`
}

// BreakerRegistry holds one breaker per operation key.
type BreakerRegistry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*Breaker
}

// NewBreakerRegistry creates a registry that hands out breakers with cfg.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (r *BreakerRegistry) Get(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[key]
	if !ok {
		b = NewBreaker(key, r.cfg)
		r.breakers[key] = b
	}
	return b
}

// Snapshot returns the state of every registered breaker.
func (r *BreakerRegistry) Snapshot() []BreakerSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]BreakerSnapshot, 0, len(r.breakers))
	for key, b := range r.breakers {
		b.mu.Lock()
		snaps = append(snaps, BreakerSnapshot{
			Key:      key,
			State:    b.currentState(),
			Failures: b.failures,
		})
		b.mu.Unlock()
	}
	return snaps
}
