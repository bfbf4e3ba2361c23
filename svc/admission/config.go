package admission

import (
	"time"

	"github.com/nextwavehq/gatekit/pkg/ratelimit"
)

// Config describes the admission layer settings, loaded from the
// environment. Tier limits are immutable for the process lifetime; changing
// them requires a restart.
type Config struct {
	// General API traffic: high limit, short window.
	GeneralWindow time.Duration `env:"RATE_LIMIT_GENERAL_WINDOW" envDefault:"1m"`
	GeneralMax    int           `env:"RATE_LIMIT_GENERAL_MAX" envDefault:"100"`

	// Document uploads: lower limit, reflects heavier backend cost.
	UploadWindow time.Duration `env:"RATE_LIMIT_UPLOAD_WINDOW" envDefault:"10m"`
	UploadMax    int           `env:"RATE_LIMIT_UPLOAD_MAX" envDefault:"20"`

	// AI chat and idea generation: lowest limit, reflects external model
	// cost and latency.
	AIChatWindow time.Duration `env:"RATE_LIMIT_AI_CHAT_WINDOW" envDefault:"1h"`
	AIChatMax    int           `env:"RATE_LIMIT_AI_CHAT_MAX" envDefault:"10"`

	// Shared backend health probing.
	ProbeInterval time.Duration `env:"RATE_LIMIT_PROBE_INTERVAL" envDefault:"15s"`
	ProbeTimeout  time.Duration `env:"RATE_LIMIT_PROBE_TIMEOUT" envDefault:"2s"`

	// Per-call bound on shared counter operations.
	StoreTimeout time.Duration `env:"RATE_LIMIT_STORE_TIMEOUT" envDefault:"500ms"`

	// FailClosed denies requests when the shared backend fails instead of
	// degrading to per-process counting.
	FailClosed bool `env:"RATE_LIMIT_FAIL_CLOSED" envDefault:"false"`
}

// rules builds the static tier rules from the configured limits.
func (c Config) rules() []ratelimit.Rule {
	return []ratelimit.Rule{
		{Tier: TierGeneral, Window: c.GeneralWindow, MaxRequests: c.GeneralMax},
		{Tier: TierUpload, Window: c.UploadWindow, MaxRequests: c.UploadMax},
		{Tier: TierAIChat, Window: c.AIChatWindow, MaxRequests: c.AIChatMax},
	}
}
