package admission

import (
	"net/http"

	"github.com/nextwavehq/gatekit/pkg/clientip"
	"github.com/nextwavehq/gatekit/pkg/ratelimit"
)

// keyFunc derives the client identity for rate limiting: the authenticated
// user id when present, always combined with the client IP. Deterministic
// for a given request; when neither part is extractable the admission core
// falls back to a tier-scoped shared key.
var keyFunc = ratelimit.Composite(
	func(r *http.Request) string { return UserID(r.Context()) },
	clientip.FromRequest,
)

// Middleware returns the guard for the given tier, to be attached to that
// tier's route group. An unregistered tier panics: middleware wiring happens
// at startup and a route group without a valid rule must stop the process.
func (s *Service) Middleware(tier string) func(http.Handler) http.Handler {
	rule := s.registry.MustRule(tier)
	return ratelimit.Middleware(s.limiter, rule, keyFunc,
		ratelimit.WithMiddlewareLogger(s.log),
	)
}
