package guard

import (
	"context"
	"sync"
	"time"
)

// TimeoutController applies per-key deadlines to guarded operations.
type TimeoutController struct {
	mu         sync.RWMutex
	defaultTTL time.Duration
	perKey     map[string]time.Duration
}

// NewTimeoutController creates a controller with the given default deadline.
func NewTimeoutController(defaultTTL time.Duration) *TimeoutController {
	if defaultTTL <= 0 {
		defaultTTL = 60 * time.Second
	}
	return &TimeoutController{
		defaultTTL: defaultTTL,
		perKey:     make(map[string]time.Duration),
	}
}

// SetTimeout overrides the deadline for one key.
func (t *TimeoutController) SetTimeout(key string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perKey[key] = d
}

// TimeoutFor returns the deadline for a key.
func (t *TimeoutController) TimeoutFor(key string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if d, ok := t.perKey[key]; ok {
		return d
	}
	return t.defaultTTL
}

// WithTimeout derives a context bounded by the key's deadline.
func (t *TimeoutController) WithTimeout(ctx context.Context, key string) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.TimeoutFor(key))
}
