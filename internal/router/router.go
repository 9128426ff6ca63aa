package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/bird"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/observability"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/reference"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/sighting"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user"
)

// Options tunes the middleware stack.
type Options struct {
	RequestTimeout time.Duration
	// LoginRate is the per-IP budget per minute on /auth; 0 disables it.
	LoginRate int
	Dev       bool
}

// Handlers are the resource handlers mounted under their base paths.
type Handlers struct {
	Users     *user.Handler
	Families  *reference.Handler
	Habitats  *reference.Handler
	Birds     *bird.Handler
	Sightings *sighting.Handler
}

// RegisterRoutes builds the chi router. Every request passes the bearer
// filter and then the policy table before reaching a handler.
func RegisterRoutes(logger *zap.SugaredLogger, opts Options, filter *security.Filter, policy *security.Table, metrics *observability.Metrics, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(SecurityHeaders(opts.Dev))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(metrics.Middleware)
	r.Use(filter.Middleware)
	r.Use(policy.Enforce(logger, metrics))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		if opts.LoginRate > 0 {
			r.Use(httprate.LimitByIP(opts.LoginRate, time.Minute))
		}
		h.Users.AuthRoutes(r)
	})
	r.Route("/users", h.Users.UserRoutes)
	r.Route("/families", h.Families.Routes)
	r.Route("/habitats", h.Habitats.Routes)
	r.Route("/birds", h.Birds.Routes)
	r.Route("/sightings", h.Sightings.Routes)

	return r
}
