package ratelimit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextwavehq/gatekit/pkg/ratelimit"
)

// stubSelector mimics the monitor's transition policy for the fail-open
// path: a reported failure flips it to the local store.
type stubSelector struct {
	mu       sync.Mutex
	shared   ratelimit.Store
	local    ratelimit.Store
	mode     ratelimit.Mode
	reported []error
}

func newLocalSelector(t *testing.T) *stubSelector {
	t.Helper()
	local := ratelimit.NewMemoryStore()
	t.Cleanup(func() { local.Close() })
	return &stubSelector{local: local, mode: ratelimit.ModeLocal}
}

func (s *stubSelector) Active() ratelimit.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ratelimit.ModeShared {
		return s.shared
	}
	return s.local
}

func (s *stubSelector) CurrentMode() ratelimit.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *stubSelector) ReportFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reported = append(s.reported, err)
	s.mode = ratelimit.ModeLocal
}

// brokenStore always reports the backend as unreachable.
type brokenStore struct{}

func (brokenStore) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.Join(ratelimit.ErrStoreUnavailable, errors.New("connection refused"))
}

func TestFixedWindowCheck(t *testing.T) {
	t.Parallel()

	t.Run("admits up to the limit then denies", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(newLocalSelector(t))
		require.NoError(t, err)

		ctx := context.Background()
		rule := ratelimit.Rule{Tier: "general", Window: time.Second, MaxRequests: 3}

		wantRemaining := []int{2, 1, 0}
		for i, want := range wantRemaining {
			result, err := limiter.Check(ctx, "K", rule)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "request %d should be admitted", i+1)
			assert.Equal(t, want, result.Remaining)
			assert.Equal(t, 3, result.Limit)
		}

		fourth, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.False(t, fourth.Allowed)
		assert.Equal(t, 0, fourth.Remaining)
		assert.Positive(t, fourth.RetryAfter())

		fifth, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.False(t, fifth.Allowed)
		// Denied requests in the same window share one reset time.
		assert.True(t, fourth.ResetAt.Equal(fifth.ResetAt))
	})

	t.Run("new window after the old one elapses", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(newLocalSelector(t))
		require.NoError(t, err)

		ctx := context.Background()
		rule := ratelimit.Rule{Tier: "general", Window: 40 * time.Millisecond, MaxRequests: 1}

		first, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.True(t, first.Allowed)

		denied, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.False(t, denied.Allowed)

		time.Sleep(50 * time.Millisecond)

		next, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.True(t, next.Allowed)
		assert.Equal(t, 0, next.Remaining)
	})

	t.Run("tiers count independently for the same key", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(newLocalSelector(t))
		require.NoError(t, err)

		ctx := context.Background()
		chat := ratelimit.Rule{Tier: "ai_chat", Window: time.Minute, MaxRequests: 2}
		general := ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 5}

		for range 2 {
			result, err := limiter.Check(ctx, "K", chat)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}

		exhausted, err := limiter.Check(ctx, "K", chat)
		require.NoError(t, err)
		assert.False(t, exhausted.Allowed)

		// Exhausting ai_chat leaves general untouched.
		result, err := limiter.Check(ctx, "K", general)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 4, result.Remaining)
	})

	t.Run("empty key falls back to a tier-scoped shared counter", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(newLocalSelector(t))
		require.NoError(t, err)

		ctx := context.Background()
		rule := ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 2}

		// Unidentifiable clients share one counter instead of bypassing
		// the limit.
		for range 2 {
			result, err := limiter.Check(ctx, "", rule)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
		}

		third, err := limiter.Check(ctx, "", rule)
		require.NoError(t, err)
		assert.False(t, third.Allowed)
	})

	t.Run("invalid rule is rejected", func(t *testing.T) {
		t.Parallel()

		limiter, err := ratelimit.NewFixedWindow(newLocalSelector(t))
		require.NoError(t, err)

		_, err = limiter.Check(context.Background(), "K", ratelimit.Rule{Tier: "general"})
		assert.ErrorIs(t, err, ratelimit.ErrInvalidRule)
	})

	t.Run("nil selector is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ratelimit.NewFixedWindow(nil)
		assert.ErrorIs(t, err, ratelimit.ErrSelectorRequired)
	})
}

func TestFixedWindowSharedFailure(t *testing.T) {
	t.Parallel()

	t.Run("fail-open serves from the local backend", func(t *testing.T) {
		t.Parallel()

		local := ratelimit.NewMemoryStore()
		defer local.Close()

		selector := &stubSelector{
			shared: brokenStore{},
			local:  local,
			mode:   ratelimit.ModeShared,
		}

		limiter, err := ratelimit.NewFixedWindow(selector)
		require.NoError(t, err)

		rule := ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 3}

		result, err := limiter.Check(context.Background(), "K", rule)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2, result.Remaining)

		// The failure was reported so the monitor can flip the mode.
		require.Len(t, selector.reported, 1)
		assert.ErrorIs(t, selector.reported[0], ratelimit.ErrStoreUnavailable)
		assert.Equal(t, ratelimit.ModeLocal, selector.CurrentMode())
	})

	t.Run("fail-closed denies instead of degrading", func(t *testing.T) {
		t.Parallel()

		local := ratelimit.NewMemoryStore()
		defer local.Close()

		selector := &stubSelector{
			shared: brokenStore{},
			local:  local,
			mode:   ratelimit.ModeShared,
		}

		limiter, err := ratelimit.NewFixedWindow(selector, ratelimit.WithFailClosed(true))
		require.NoError(t, err)

		rule := ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 3}

		result, err := limiter.Check(context.Background(), "K", rule)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		require.Len(t, selector.reported, 1)
	})

	t.Run("backend switch applies to the next check", func(t *testing.T) {
		t.Parallel()

		local := ratelimit.NewMemoryStore()
		defer local.Close()

		selector := &stubSelector{
			shared: brokenStore{},
			local:  local,
			mode:   ratelimit.ModeShared,
		}

		limiter, err := ratelimit.NewFixedWindow(selector)
		require.NoError(t, err)

		ctx := context.Background()
		rule := ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 10}

		_, err = limiter.Check(ctx, "K", rule)
		require.NoError(t, err)

		// Now in local mode; the broken shared store must not be touched
		// again, so checks keep succeeding and keep counting.
		result, err := limiter.Check(ctx, "K", rule)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 8, result.Remaining)
		assert.Len(t, selector.reported, 1)
	})
}
