package admission

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mountable is anything that can hand out its route handler.
type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which route families to mount. Each family is
// optional and only mounted if provided; every mounted family sits behind
// its tier's guard.
type RouterOptions struct {
	// General API traffic: auth, profile, document reads.
	General Mountable
	// Document upload endpoints.
	Upload Mountable
	// AI chat and idea generation endpoints.
	AIChat Mountable
	// Health endpoint handler, mounted unguarded at /health.
	Health http.Handler
}

// Router builds the guarded API router. Route handlers never call the
// limiter themselves; the tier guards are attached per route group here.
//
// Example:
//
//	svc, err := admission.New(ctx, cfg, client, log)
//	if err != nil {
//		return err
//	}
//	r := admission.Router(svc, admission.RouterOptions{
//	    General: apiHandlers,
//	    Upload:  uploadHandlers,
//	    AIChat:  chatHandlers,
//	    Health:  httpserver.HealthHandler(log, svc.HealthComponent()),
//	})
func Router(svc *Service, opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Health != nil {
		r.Method(http.MethodGet, "/health", opts.Health)
	}

	r.Route("/api", func(api chi.Router) {
		if opts.General != nil {
			api.Group(func(g chi.Router) {
				g.Use(svc.Middleware(TierGeneral))
				g.Mount("/", opts.General.Handle())
			})
		}
		if opts.Upload != nil {
			api.Group(func(g chi.Router) {
				g.Use(svc.Middleware(TierUpload))
				g.Mount("/documents/upload", opts.Upload.Handle())
			})
		}
		if opts.AIChat != nil {
			api.Group(func(g chi.Router) {
				g.Use(svc.Middleware(TierAIChat))
				g.Mount("/chat", opts.AIChat.Handle())
			})
		}
	})

	return r
}
