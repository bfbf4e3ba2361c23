package admission

import (
	"context"
	"time"

	"github.com/nextwavehq/gatekit/pkg/httpserver"
	"github.com/nextwavehq/gatekit/pkg/ratelimit"
)

// HealthBlock is the admission layer's contribution to the service health
// endpoint. Status "shared" carries the counter store metadata; "local"
// flags degraded per-process limiting; "unknown" means no shared backend is
// configured or it has never been probed.
type HealthBlock struct {
	Status           string `json:"status"`
	Degraded         bool   `json:"degraded"`
	Version          string `json:"version,omitempty"`
	ConnectedClients int64  `json:"connectedClients,omitempty"`
	UsedMemory       int64  `json:"usedMemory,omitempty"`
	LastProbeAt      string `json:"lastProbeAt,omitempty"`
	LastError        string `json:"lastError,omitempty"`
}

// Health reports the current backend state for the health endpoint. Backend
// degradation is operational information, not unreadiness: the API keeps
// serving on per-process limits, so this never fails a readiness check.
func (s *Service) Health() HealthBlock {
	snap := s.monitor.Snapshot()

	block := HealthBlock{
		Status:    snap.Mode.String(),
		Degraded:  snap.Mode != ratelimit.ModeShared,
		LastError: snap.LastError,
	}

	if snap.LastProbeAt.IsZero() {
		block.Status = "unknown"
		return block
	}
	block.LastProbeAt = snap.LastProbeAt.UTC().Format(time.RFC3339)

	if snap.Mode == ratelimit.ModeShared {
		block.Version = snap.Server.Version
		block.ConnectedClients = snap.Server.ConnectedClients
		block.UsedMemory = snap.Server.UsedMemory
	}

	return block
}

// HealthComponent adapts the service for the health endpoint handler.
func (s *Service) HealthComponent() httpserver.Component {
	return httpserver.Component{
		Name:   "rate_limit",
		Report: func(context.Context) any { return s.Health() },
	}
}
