package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/ai-stack-deploy/engine/internal/api/handlers"
	mw "github.com/ai-stack-deploy/engine/internal/api/middleware"
	"github.com/ai-stack-deploy/engine/internal/auth"
	"github.com/ai-stack-deploy/engine/internal/ratelimit"
)

// Per-user request budgets over a one-hour sliding window, by request class.
const (
	limitRead      = 100
	limitSubscribe = 10
	limitDeploy    = 20
	limitDelete    = 50
	rateWindow     = time.Hour
)

type Dependencies struct {
	Verifier     *auth.Verifier
	RateStore    ratelimit.Store
	Health       *handlers.HealthHandler
	Templates    *handlers.TemplatesHandler
	Profile      *handlers.ProfileHandler
	Subscription *handlers.SubscriptionsHandler
	Deployments  *handlers.DeploymentsHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(chimid.Compress(5))

	r.Get("/", dep.Health.Root)
	r.Get("/health", dep.Health.Health)

	// Public catalog
	r.Get("/templates", dep.Templates.List)

	// Billing provider callbacks authenticate by signature, not bearer token.
	r.Post("/webhook/stripe", dep.Subscription.Webhook)

	// Protected routes
	r.Group(func(protected chi.Router) {
		protected.Use(mw.Auth(dep.Verifier))

		protected.With(mw.RateLimit(dep.RateStore, "profile", limitRead, rateWindow)).
			Get("/user/profile", dep.Profile.Get)

		protected.With(mw.RateLimit(dep.RateStore, "create-subscription", limitSubscribe, rateWindow)).
			Post("/create-subscription", dep.Subscription.Create)

		protected.Route("/deployments", func(dr chi.Router) {
			dr.With(mw.RateLimit(dep.RateStore, "deployments", limitRead, rateWindow)).
				Get("/", dep.Deployments.List)
			dr.With(mw.RateLimit(dep.RateStore, "delete", limitDelete, rateWindow)).
				Delete("/{id}", dep.Deployments.Delete)
		})

		protected.With(mw.RateLimit(dep.RateStore, "deploy", limitDeploy, rateWindow)).
			Post("/deploy", dep.Deployments.Create)
	})

	return r
}
