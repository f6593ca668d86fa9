package guard

import (
	"context"
	"errors"
	"time"

	"steward/internal/config"
	"steward/internal/logging"
)

// Outcome classifies a guarded call for the stats collector.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
	OutcomeTimeout Outcome = "timeout"
)

// Recorder receives the outcome of every guarded call.
type Recorder interface {
	Record(operation, target string, outcome Outcome, duration time.Duration) error
}

// Guard composes the rate limiter, breaker registry, and timeout controller
// behind a single Execute entry point.
type Guard struct {
	limiter  *RateLimiter
	breakers *BreakerRegistry
	timeouts *TimeoutController
	recorder Recorder
}

// New builds a guard from the config's guard section.
func New(cfg *config.Config, recorder Recorder) *Guard {
	return &Guard{
		limiter: NewRateLimiter(int(cfg.Guard.RateCapacity), cfg.Guard.RateRefill),
		breakers: NewBreakerRegistry(BreakerConfig{
			FailureThreshold: cfg.Guard.FailureThreshold,
			SuccessThreshold: cfg.Guard.SuccessThreshold,
			RecoveryTimeout:  cfg.GetRecoveryTimeout(),
		}),
		timeouts: NewTimeoutController(cfg.GetDefaultTimeout()),
		recorder: recorder,
	}
}

// Execute runs fn under the key's rate limit, breaker, and deadline. The
// call counts as a timeout when the derived context's deadline fires, and a
// failure for any other error; both feed the key's breaker and the recorder.
func (g *Guard) Execute(ctx context.Context, key, target string, fn func(ctx context.Context) error) error {
	if !g.limiter.Allow(key) {
		logging.Get(logging.CategoryGuard).Warn("rate limit hit for %s", key)
		return &ErrRateLimited{Key: key}
	}

	breaker := g.breakers.Get(key)
	if err := breaker.Ready(); err != nil {
		return err
	}

	callCtx, cancel := g.timeouts.WithTimeout(ctx, key)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	switch {
	case err == nil:
		breaker.RecordSuccess()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome = OutcomeTimeout
		breaker.RecordFailure(err)
	default:
		outcome = OutcomeFail
		breaker.RecordFailure(err)
	}

	if g.recorder != nil {
		g.recorder.Record(key, target, outcome, elapsed)
	}
	return err
}

// SetTimeout overrides the deadline for one operation key.
func (g *Guard) SetTimeout(key string, d time.Duration) {
	g.timeouts.SetTimeout(key, d)
}

// RateStats exposes limiter counters for the status command.
func (g *Guard) RateStats() RateStats {
	return g.limiter.Stats()
}

// Breakers exposes breaker states for the status command.
func (g *Guard) Breakers() []BreakerSnapshot {
	return g.breakers.Snapshot()
}
