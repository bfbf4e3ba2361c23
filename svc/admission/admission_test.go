package admission_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextwavehq/gatekit/pkg/httpserver"
	"github.com/nextwavehq/gatekit/pkg/logger"
	"github.com/nextwavehq/gatekit/pkg/ratelimit"
	"github.com/nextwavehq/gatekit/svc/admission"
)

func testConfig() admission.Config {
	return admission.Config{
		GeneralWindow: time.Minute,
		GeneralMax:    100,
		UploadWindow:  10 * time.Minute,
		UploadMax:     20,
		AIChatWindow:  time.Hour,
		AIChatMax:     2,
		ProbeInterval: time.Hour,
		ProbeTimeout:  time.Second,
		StoreTimeout:  500 * time.Millisecond,
	}
}

// newLocalService builds a service without a shared backend: per-process
// limits for its whole lifetime.
func newLocalService(t *testing.T, cfg admission.Config) *admission.Service {
	t.Helper()

	svc, err := admission.New(context.Background(), cfg, nil, logger.New())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("wires all three tiers", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		assert.Equal(t, []string{"ai_chat", "general", "upload"}, svc.Tiers())
	})

	t.Run("rejects invalid tier limits", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.GeneralMax = 0

		_, err := admission.New(context.Background(), cfg, nil, nil)
		assert.ErrorIs(t, err, ratelimit.ErrInvalidRule)
	})
}

func TestServiceMiddleware(t *testing.T) {
	t.Parallel()

	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("unknown tier panics at wiring time", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		assert.Panics(t, func() { svc.Middleware("nonexistent") })
	})

	t.Run("limits ai chat traffic per client", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		handler := svc.Middleware(admission.TierAIChat)(okHandler)

		send := func(ip string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			req.RemoteAddr = ip + ":40000"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		for range 2 {
			assert.Equal(t, http.StatusOK, send("198.51.100.1").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1").Code)

		// A different client is unaffected.
		assert.Equal(t, http.StatusOK, send("198.51.100.2").Code)
	})

	t.Run("authenticated users are limited per user", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		handler := svc.Middleware(admission.TierAIChat)(okHandler)

		send := func(userID string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
			req.RemoteAddr = "198.51.100.3:40000"
			req = req.WithContext(admission.WithUserID(req.Context(), userID))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		for range 2 {
			assert.Equal(t, http.StatusOK, send("alice").Code)
		}
		assert.Equal(t, http.StatusTooManyRequests, send("alice").Code)
		assert.Equal(t, http.StatusOK, send("bob").Code)
	})

	t.Run("tiers keep independent counts", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		chat := svc.Middleware(admission.TierAIChat)(okHandler)
		general := svc.Middleware(admission.TierGeneral)(okHandler)

		send := func(h http.Handler, path string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "198.51.100.4:40000"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		for range 2 {
			require.Equal(t, http.StatusOK, send(chat, "/api/chat").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, send(chat, "/api/chat").Code)

		rec := send(general, "/api/profile")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("unknown without a shared backend", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())

		block := svc.Health()
		assert.Equal(t, "unknown", block.Status)
		assert.True(t, block.Degraded)
		assert.Empty(t, block.Version)
	})

	t.Run("health component renders through the endpoint", func(t *testing.T) {
		t.Parallel()

		svc := newLocalService(t, testConfig())
		handler := httpserver.HealthHandler(logger.New(), svc.HealthComponent())

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status     string `json:"status"`
			Components struct {
				RateLimit admission.HealthBlock `json:"rate_limit"`
			} `json:"components"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "unknown", body.Components.RateLimit.Status)
		assert.True(t, body.Components.RateLimit.Degraded)
	})
}
