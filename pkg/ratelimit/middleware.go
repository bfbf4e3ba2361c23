package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// throttleBody is the structured denial payload. Route handlers never run
// when it is written.
type throttleBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    any    `json:"data"`
}

// DenyHandler writes the throttling response when a request is denied.
type DenyHandler func(w http.ResponseWriter, r *http.Request, result *Result)

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	onDeny DenyHandler
	log    *slog.Logger
}

// WithDenyHandler replaces the default throttling response.
func WithDenyHandler(fn DenyHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onDeny = fn
		}
	}
}

// WithMiddlewareLogger sets the logger for limiter failures.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// Middleware guards a route group with the given rule. It derives the rate
// limit key, consults the limiter, attaches the remaining-count and
// reset-time headers, and short-circuits denied requests with a structured
// throttling response. It never talks to a counter store directly; backend
// selection stays invisible to route handlers.
//
// A nil keyFunc is a wiring mistake and panics at startup. An invalid rule
// panics for the same reason: a misconfigured tier must stop the process,
// not silently drop its guard.
func Middleware(limiter Limiter, rule Rule, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("ratelimit.Middleware: limiter is required")
	}
	if keyFunc == nil {
		panic("ratelimit.Middleware: keyFunc is required")
	}
	if err := rule.Validate(); err != nil {
		panic("ratelimit.Middleware: " + err.Error())
	}

	cfg := &middlewareConfig{
		onDeny: denyJSON,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Check(r.Context(), keyFunc(r), rule)
			if err != nil {
				// Backend failures are absorbed inside the core; anything
				// surfacing here is a programming error. Fail open so a bug
				// in the limiter cannot take down the API.
				cfg.log.ErrorContext(r.Context(), "rate limit check failed",
					slog.String("tier", rule.Tier), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)

			if !result.Allowed {
				cfg.onDeny(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// denyJSON is the default throttling response: 429 with the API's standard
// failure envelope and a Retry-After hint in whole seconds, rounded up so
// clients never retry before the window resets.
func denyJSON(w http.ResponseWriter, r *http.Request, result *Result) {
	retryAfter := int(result.RetryAfter().Seconds()) + 1

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(throttleBody{
		Success: false,
		Error:   "too many requests, retry in " + strconv.Itoa(retryAfter) + "s",
		Data:    nil,
	})
}
