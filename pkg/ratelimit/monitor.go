package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Mode identifies which counter backend currently serves admission traffic.
type Mode int32

const (
	// ModeLocal means per-process counting only; limits are best-effort.
	ModeLocal Mode = iota
	// ModeShared means counting against the shared backend, visible to all
	// process instances.
	ModeShared
)

// String returns the mode name used in logs and the health endpoint.
func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// ServerMetadata carries shared-backend server details for the health
// endpoint. Zero-valued when the backend has never been reached.
type ServerMetadata struct {
	Version          string
	ConnectedClients int64
	UsedMemory       int64
}

// HealthProber checks shared-backend liveness and fetches server metadata.
type HealthProber interface {
	Probe(ctx context.Context) (ServerMetadata, error)
}

// Snapshot is the monitor state rebuilt on each probe, read-only to callers.
type Snapshot struct {
	Mode        Mode
	LastProbeAt time.Time
	LastError   string
	Server      ServerMetadata
}

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 2 * time.Second
)

// Monitor owns the process-wide backend mode. It probes the shared backend
// at startup and then on a fixed interval independent of request traffic, so
// recovery does not depend on load. Transition policy: shared-to-local on
// any failure signal (probe or live call), local-to-shared only after a
// probe succeeds, which avoids flapping on a single transient recovery seen
// mid-request.
//
// The mode is the only process-wide mutable state in the package. It is read
// by every request and written only here, through an atomic.
type Monitor struct {
	shared Store
	local  Store
	prober HealthProber
	log    *slog.Logger

	probeInterval time.Duration
	probeTimeout  time.Duration

	mode atomic.Int32

	mu          sync.RWMutex
	lastProbeAt time.Time
	lastErr     string
	server      ServerMetadata

	stop     chan struct{}
	stopOnce sync.Once
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProbeInterval sets how often the shared backend is probed.
func WithProbeInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		if interval > 0 {
			m.probeInterval = interval
		}
	}
}

// WithProbeTimeout bounds each probe attempt.
func WithProbeTimeout(timeout time.Duration) MonitorOption {
	return func(m *Monitor) {
		if timeout > 0 {
			m.probeTimeout = timeout
		}
	}
}

// WithMonitorLogger sets the logger for mode transitions.
func WithMonitorLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMonitor builds the backend selector. The local store is mandatory; when
// shared and prober are nil the monitor stays in local mode permanently,
// which covers deployments without a shared backend configured. Otherwise
// the constructor performs a bounded startup probe and launches the
// background probe loop. A failed startup probe is a warning, never fatal:
// the process starts in local mode and recovers when a later probe succeeds.
func NewMonitor(ctx context.Context, shared Store, prober HealthProber, local Store, opts ...MonitorOption) (*Monitor, error) {
	if local == nil {
		return nil, fmt.Errorf("%w: local store is mandatory", ErrStoreRequired)
	}

	m := &Monitor{
		shared:        shared,
		local:         local,
		prober:        prober,
		log:           slog.Default(),
		probeInterval: defaultProbeInterval,
		probeTimeout:  defaultProbeTimeout,
		stop:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.shared == nil || m.prober == nil {
		m.mode.Store(int32(ModeLocal))
		return m, nil
	}

	if m.probe(ctx) {
		m.log.InfoContext(ctx, "rate limit backend ready", slog.String("mode", ModeShared.String()))
	} else {
		m.log.WarnContext(ctx, "shared counter store unreachable at startup, degrading to per-process limits")
	}

	go m.probeLoop()

	return m, nil
}

// CurrentMode returns the last-known backend mode without blocking.
func (m *Monitor) CurrentMode() Mode {
	return Mode(m.mode.Load())
}

// Active returns the store serving admission traffic right now. Callers must
// not cache the result across requests; the whole point is that a mode flip
// takes effect on the next call.
func (m *Monitor) Active() Store {
	if m.CurrentMode() == ModeShared {
		return m.shared
	}
	return m.local
}

// ReportFailure records a shared-backend failure observed on a live counter
// call and switches to local mode. Recovery is left to the probe loop.
func (m *Monitor) ReportFailure(err error) {
	if m.shared == nil {
		return
	}
	if m.mode.CompareAndSwap(int32(ModeShared), int32(ModeLocal)) {
		m.mu.Lock()
		if err != nil {
			m.lastErr = err.Error()
		}
		m.mu.Unlock()
		m.log.Warn("shared counter store failed mid-request, switching to per-process limits",
			slog.Any("error", err))
	}
}

// Snapshot returns the current monitor state for the health reporter.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Mode:        m.CurrentMode(),
		LastProbeAt: m.lastProbeAt,
		LastError:   m.lastErr,
		Server:      m.server,
	}
}

// Close stops the probe loop. Safe to call multiple times.
func (m *Monitor) Close() error {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	return nil
}

func (m *Monitor) probeLoop() {
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(context.Background())
		case <-m.stop:
			return
		}
	}
}

// probe runs one bounded liveness check and applies the transition policy.
// Returns whether the shared backend answered.
func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	meta, err := m.prober.Probe(ctx)
	now := time.Now()

	if err != nil {
		prev := Mode(m.mode.Swap(int32(ModeLocal)))

		m.mu.Lock()
		m.lastProbeAt = now
		m.lastErr = err.Error()
		m.mu.Unlock()

		if prev == ModeShared {
			m.log.Warn("shared counter store probe failed, switching to per-process limits",
				slog.Any("error", err))
		}
		return false
	}

	prev := Mode(m.mode.Swap(int32(ModeShared)))

	m.mu.Lock()
	startup := m.lastProbeAt.IsZero()
	m.lastProbeAt = now
	m.lastErr = ""
	m.server = meta
	m.mu.Unlock()

	if prev == ModeLocal && !startup {
		m.log.Info("shared counter store recovered, resuming shared limits")
	}
	return true
}
