// Package admission composes the rate limit stack into the service-facing
// admission control layer: env-driven tier rules, the shared/local counter
// backends, the backend health monitor, per-tier route guards, and the
// health endpoint contribution.
//
// Route families attach to their tier guard through Router or by calling
// Service.Middleware(tier) directly; handlers never talk to the limiter or
// the counter stores.
package admission
