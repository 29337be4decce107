package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ignite/newsletter/internal/metrics"
	"github.com/ignite/newsletter/internal/service/newsletter"
	"github.com/ignite/newsletter/internal/service/subscription"
)

// Deps carries everything the router needs.
type Deps struct {
	Logger         zerolog.Logger
	Subscriptions  *subscription.Service
	Newsletters    *newsletter.Dispatcher
	Health         *HealthChecker
	AllowedOrigins []string
}

// SetupRoutes configures all API routes.
func SetupRoutes(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	health := d.Health
	if health == nil {
		health = NewHealthChecker(nil, nil)
	}
	r.Get("/health_check", health.HandleLiveness)
	r.Get("/health/live", health.HandleLiveness)
	r.Get("/health/ready", health.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	subs := &subscriptionHandlers{svc: d.Subscriptions}
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", subs.Subscribe)
		r.Post("/resend", subs.Resend)
		r.Get("/confirm", subs.Confirm)
	})

	news := &newsletterHandlers{dispatcher: d.Newsletters}
	r.Post("/newsletters", news.Publish)

	return r
}
