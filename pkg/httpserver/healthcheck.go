package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nextwavehq/gatekit/pkg/logger"
)

// Component contributes a named block to the health endpoint.
type Component struct {
	// Name keys the block in the response body.
	Name string

	// Report builds the block. It must not fail; degraded components
	// describe their state inside the block instead.
	Report func(context.Context) any

	// Check, when set, gates readiness. A non-nil error marks the whole
	// endpoint degraded with a 503.
	Check func(context.Context) error
}

type healthBody struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components,omitempty"`
}

// HealthHandler returns the health endpoint handler. With no components it
// acts as a plain liveness probe. Each component's Report block is included
// in the body; any failing Check turns the status to "degraded" and the
// response to 503.
func HealthHandler(log *slog.Logger, components ...Component) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body := healthBody{Status: "ok"}
		status := http.StatusOK

		if len(components) > 0 {
			body.Components = make(map[string]any, len(components))
		}

		for _, c := range components {
			if c.Report != nil {
				body.Components[c.Name] = c.Report(ctx)
			}
			if c.Check != nil {
				if err := c.Check(ctx); err != nil {
					log.ErrorContext(ctx, "health check failed",
						logger.Component(c.Name), logger.Error(err))
					body.Status = "degraded"
					status = http.StatusServiceUnavailable
				}
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
