// Package ratelimit implements tiered admission control with a dual-backend
// counter strategy: fixed-window counting against a shared Redis store when
// it is reachable, degrading to a per-process in-memory table when it is not.
//
// The moving parts:
//
//   - Store: atomic increment-and-arm-expiry over a counter backend.
//     RedisStore is the shared backend (one Lua script per increment);
//     MemoryStore is the local one.
//   - Monitor: owns the process-wide backend mode. Probes the shared store
//     at startup and on a fixed interval; switches shared-to-local on any
//     failure signal and local-to-shared only after a successful probe.
//   - FixedWindow: the admission core. Re-selects the backend on every
//     check, so a mode flip applies to the next incoming request.
//   - Registry: static tier-to-rule mapping, loaded once at startup.
//   - Middleware: the boundary route groups attach to.
//
// # Usage
//
//	local := ratelimit.NewMemoryStore()
//	defer local.Close()
//
//	shared, _ := ratelimit.NewRedisStore(client)
//
//	monitor, err := ratelimit.NewMonitor(ctx, shared, shared, local)
//	if err != nil {
//		return err
//	}
//	defer monitor.Close()
//
//	limiter, _ := ratelimit.NewFixedWindow(monitor)
//
//	registry, err := ratelimit.NewRegistry(
//		ratelimit.Rule{Tier: "general", Window: time.Minute, MaxRequests: 100},
//	)
//	if err != nil {
//		return err
//	}
//
//	guard := ratelimit.Middleware(limiter, registry.MustRule("general"), keyFunc)
//	mux.Handle("/api/", guard(apiHandler))
//
// Degrading to MemoryStore is a deliberate trade-off: a fleet of N processes
// in local mode collectively admits up to N times the configured limit
// rather than rejecting all traffic while the shared store is down. Pass
// WithFailClosed(true) to NewFixedWindow for deployments that prefer denial
// over weaker limiting.
package ratelimit
