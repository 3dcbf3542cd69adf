// Package httptransport assembles the HTTP surface: routing, middleware,
// and operational endpoints. Handlers stay thin and delegate to the domain
// services registered on them.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eligibilityhandler "keygate/internal/eligibility/handler"
	hookshandler "keygate/internal/hooks/handler"
	"keygate/pkg/platform/middleware/callerauth"
	"keygate/pkg/platform/middleware/requestid"
	"keygate/pkg/platform/middleware/requesttime"
)

// Routable mounts a feature's endpoints on a router.
type Routable interface {
	Register(r chi.Router)
}

// Deps carries the feature handlers the router exposes.
type Deps struct {
	Eligibility *eligibilityhandler.Handler
	Hooks       *hookshandler.Handler

	TokenValidator callerauth.TokenValidator
	Logger         *slog.Logger

	// Health reports readiness of backing stores; nil means always ready.
	Health func(r *http.Request) error
}

// NewRouter wires all endpoints with the standard middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(callerauth.Middleware(deps.TokenValidator, deps.Logger))

	for _, h := range []Routable{deps.Eligibility, deps.Hooks} {
		if h != nil {
			h.Register(r)
		}
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthz(deps.Health))

	return r
}

func healthz(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
