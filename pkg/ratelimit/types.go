package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rule describes the fixed-window limit applied to a single route tier.
// Rules are immutable once registered; changing limits requires a restart.
type Rule struct {
	// Tier is the route group name this rule guards (e.g. "general", "upload").
	Tier string

	// Window is the length of the counting window.
	Window time.Duration

	// MaxRequests is the number of requests admitted per key within a window.
	MaxRequests int
}

// Validate checks the rule invariants.
func (r Rule) Validate() error {
	if r.Tier == "" {
		return fmt.Errorf("%w: tier name is required", ErrInvalidRule)
	}
	if r.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %v", ErrInvalidRule, r.Window)
	}
	if r.MaxRequests < 1 {
		return fmt.Errorf("%w: max requests must be at least 1, got %d", ErrInvalidRule, r.MaxRequests)
	}
	return nil
}

// Result contains the outcome of an admission check.
type Result struct {
	// Allowed indicates whether the request is admitted.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is the time the current window expires.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 if the current request was admitted.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store is the counter backend contract. Implementations must make the
// increment-and-arm-expiry sequence atomic: concurrent increments for the
// same key never lose an update and never re-arm an already armed window.
type Store interface {
	// Increment bumps the counter for key, arming a window expiry on the
	// first increment. Returns the post-increment count and the time the
	// window resets. A backend that cannot complete the call returns an
	// error wrapping ErrStoreUnavailable.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter decides whether a request identified by key is admitted under rule.
type Limiter interface {
	Check(ctx context.Context, key string, rule Rule) (*Result, error)
}

// Selector yields the counter store currently serving admission traffic.
// Implemented by Monitor; the limiter consults it on every check so a
// backend switch takes effect on the next incoming request.
type Selector interface {
	Active() Store
	CurrentMode() Mode
	ReportFailure(err error)
}

// IsStoreUnavailable reports whether err signals an unreachable backend.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
