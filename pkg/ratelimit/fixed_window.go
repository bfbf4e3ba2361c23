package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// keyPrefix namespaces counter keys in the shared backend.
const keyPrefix = "ratelimit"

// anonKey is the tier-scoped fallback identity used when no client identity
// can be derived from a request. All such requests share one counter, which
// errs toward stricter limiting rather than bypassing it.
const anonKey = "anon"

// FixedWindow is the admission core. It counts requests in non-overlapping
// windows aligned to the first request per key, delegating the counting to
// whichever backend the selector currently designates. The request that
// brings the count up to the limit is still admitted; the next one is
// denied.
type FixedWindow struct {
	selector   Selector
	failClosed bool
	log        *slog.Logger
}

// FixedWindowOption configures a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithFailClosed denies requests when the shared backend fails instead of
// degrading to per-process counting. The default is fail-open: a store
// outage must not turn into a full API outage.
func WithFailClosed(failClosed bool) FixedWindowOption {
	return func(fw *FixedWindow) {
		fw.failClosed = failClosed
	}
}

// WithLogger sets the logger for fallback events.
func WithLogger(log *slog.Logger) FixedWindowOption {
	return func(fw *FixedWindow) {
		if log != nil {
			fw.log = log
		}
	}
}

// NewFixedWindow creates the admission core on top of a backend selector.
func NewFixedWindow(selector Selector, opts ...FixedWindowOption) (*FixedWindow, error) {
	if selector == nil {
		return nil, ErrSelectorRequired
	}

	fw := &FixedWindow{
		selector: selector,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw, nil
}

// Check decides whether the request identified by key is admitted under
// rule. The backend is re-selected on every call, so a mode flip by the
// monitor takes effect for the very next request. A failing shared backend
// is reported to the selector and the request is transparently recounted
// against the local store (or denied, under the fail-closed policy); the
// client never sees a backend error.
func (fw *FixedWindow) Check(ctx context.Context, key string, rule Rule) (*Result, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if key == "" {
		fw.log.DebugContext(ctx, "no client identity for rate limit key, using tier-scoped fallback",
			slog.String("tier", rule.Tier))
		key = anonKey
	}

	// Tier is part of the storage key, so two tiers sharing a client
	// identity keep independent counts.
	storageKey := keyPrefix + ":" + rule.Tier + ":" + key

	count, resetAt, err := fw.selector.Active().Increment(ctx, storageKey, rule.Window)
	if err != nil {
		if !IsStoreUnavailable(err) {
			return nil, err
		}

		fw.selector.ReportFailure(err)

		if fw.failClosed {
			return &Result{
				Allowed:   false,
				Limit:     rule.MaxRequests,
				Remaining: 0,
				ResetAt:   time.Now().Add(rule.Window),
			}, nil
		}

		// Fail-open: serve the request from the freshly selected local
		// backend. It never fails and never blocks on I/O.
		count, resetAt, err = fw.selector.Active().Increment(ctx, storageKey, rule.Window)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Allowed:   count <= int64(rule.MaxRequests),
		Limit:     rule.MaxRequests,
		Remaining: max(0, rule.MaxRequests-int(count)),
		ResetAt:   resetAt,
	}, nil
}
