package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/compass-crm/compass/internal/auth"
	"github.com/compass-crm/compass/internal/clients"
	"github.com/compass-crm/compass/internal/contracts"
	"github.com/compass-crm/compass/internal/events"
	"github.com/compass-crm/compass/internal/observability"
	"github.com/compass-crm/compass/internal/shared"
	"github.com/compass-crm/compass/internal/users"
	"github.com/compass-crm/compass/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	ActorMiddleware  *auth.ActorMiddleware
	ClientsHandler   *clients.Handler
	ContractsHandler *contracts.Handler
	EventsHandler    *events.Handler
	UsersHandler     *users.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Compass defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires an authenticated actor. The capability and
	// ownership rules themselves are enforced in the service layer through
	// the authorization gateway.
	r.Group(func(r chi.Router) {
		r.Use(params.ActorMiddleware.RequireActor)
		r.Route("/clients", params.ClientsHandler.MountRoutes)
		r.Route("/contracts", params.ContractsHandler.MountRoutes)
		r.Route("/events", params.EventsHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
