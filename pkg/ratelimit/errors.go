package ratelimit

import "errors"

var (
	// ErrStoreUnavailable indicates the shared counter backend is unreachable
	// or timed out. The monitor converts it into a backend switch; it is
	// never surfaced to API clients.
	ErrStoreUnavailable = errors.New("counter store unavailable")

	// ErrInvalidRule indicates a rule that violates its invariants.
	ErrInvalidRule = errors.New("invalid rate limit rule")

	// ErrRuleNotFound indicates a tier without a registered rule. This is a
	// wiring mistake and is fatal at startup.
	ErrRuleNotFound = errors.New("no rule registered for tier")

	// ErrDuplicateRule indicates two rules registered for the same tier.
	ErrDuplicateRule = errors.New("duplicate rule for tier")

	// ErrStoreRequired indicates a missing counter store dependency.
	ErrStoreRequired = errors.New("counter store is required")

	// ErrSelectorRequired indicates a missing backend selector dependency.
	ErrSelectorRequired = errors.New("backend selector is required")
)
