package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/lightbounty/booking-site/internal/http/middleware"
	"github.com/lightbounty/booking-site/internal/session"
	"github.com/lightbounty/booking-site/internal/web"
	"github.com/lightbounty/booking-site/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Web                *web.Handler
	Sessions           *session.Manager
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter throttles booking writes per client IP. Nil disables it.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", cfg.Web.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	writes := httpmiddleware.RateLimit(cfg.RateLimiter)

	r.Group(func(site chi.Router) {
		site.Use(cfg.Sessions.Middleware)
		site.Get("/", cfg.Web.Page)
		site.With(writes).Post("/booking", cfg.Web.SubmitForm)
		site.Post("/booking/dismiss", cfg.Web.DismissForm)
	})

	r.Route("/api/booking", func(api chi.Router) {
		if len(cfg.CORSAllowedOrigins) > 0 {
			api.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
		}
		api.Use(cfg.Sessions.Middleware)
		api.Get("/", cfg.Web.GetState)
		api.Patch("/fields", cfg.Web.PatchField)
		api.With(writes).Post("/submit", cfg.Web.SubmitJSON)
	})

	return r
}
