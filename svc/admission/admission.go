package admission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/nextwavehq/gatekit/pkg/ratelimit"
)

// Route tiers guarded by the admission layer.
const (
	// TierGeneral covers auth, profile and document read traffic.
	TierGeneral = "general"
	// TierUpload covers document upload endpoints.
	TierUpload = "upload"
	// TierAIChat covers AI chat and business idea generation endpoints.
	TierAIChat = "ai_chat"
)

// Service owns the admission control stack: the rule registry, both counter
// backends, the health monitor and the limiter. Route handlers only ever see
// the middleware it hands out.
type Service struct {
	registry *ratelimit.Registry
	monitor  *ratelimit.Monitor
	limiter  *ratelimit.FixedWindow
	local    *ratelimit.MemoryStore
	log      *slog.Logger
}

// New wires the admission layer. A nil client means no shared backend is
// configured: the service runs on per-process limits for its lifetime. With
// a client, the monitor performs its startup probe and keeps probing in the
// background; an unreachable store degrades the service, it never fails
// construction.
func New(ctx context.Context, cfg Config, client redis.UniversalClient, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	registry, err := ratelimit.NewRegistry(cfg.rules()...)
	if err != nil {
		return nil, err
	}

	local := ratelimit.NewMemoryStore()

	var shared *ratelimit.RedisStore
	if client != nil {
		shared, err = ratelimit.NewRedisStore(client, ratelimit.WithCallTimeout(cfg.StoreTimeout))
		if err != nil {
			local.Close()
			return nil, err
		}
	}

	var monitor *ratelimit.Monitor
	if shared != nil {
		monitor, err = ratelimit.NewMonitor(ctx, shared, shared, local,
			ratelimit.WithProbeInterval(cfg.ProbeInterval),
			ratelimit.WithProbeTimeout(cfg.ProbeTimeout),
			ratelimit.WithMonitorLogger(log),
		)
	} else {
		monitor, err = ratelimit.NewMonitor(ctx, nil, nil, local,
			ratelimit.WithMonitorLogger(log),
		)
	}
	if err != nil {
		local.Close()
		return nil, err
	}

	limiter, err := ratelimit.NewFixedWindow(monitor,
		ratelimit.WithFailClosed(cfg.FailClosed),
		ratelimit.WithLogger(log),
	)
	if err != nil {
		monitor.Close()
		local.Close()
		return nil, err
	}

	return &Service{
		registry: registry,
		monitor:  monitor,
		limiter:  limiter,
		local:    local,
		log:      log,
	}, nil
}

// Tiers returns the guarded tier names.
func (s *Service) Tiers() []string {
	return s.registry.Tiers()
}

// Close releases the monitor and the local counter table.
func (s *Service) Close() error {
	return errors.Join(s.monitor.Close(), s.local.Close())
}
