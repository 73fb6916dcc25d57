package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mrwolf/ppl-server/internal/config"
)

func NewRouter(cfg *config.Config, deps Deps) *chi.Mux {
	r := chi.NewRouter()
	handlers := NewHandlers(deps)

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(handlers.log))

	// Public endpoints
	r.Get("/health", handlers.Health)

	// API v1 routes (identified)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(GatewayAuthMiddleware(cfg.GatewayToken))
		r.Use(IdentityMiddleware)
		r.Use(RateLimitMiddleware(NewRateLimiter(cfg.RateLimit, time.Minute)))
		r.Use(JSONContentType)

		r.Get("/activity-types", handlers.ListActivityTypes)
		r.Get("/activity-types/{id}/gauges", handlers.ActivityTypeGauges)

		r.Get("/interests", handlers.ListInterests)
		r.Post("/interests", handlers.AddInterests)
		r.Get("/interests/stats", handlers.InterestStats)
		r.Delete("/interests/{id}", handlers.DeleteInterest)
		r.Post("/ideate", handlers.Ideate)
		r.Get("/ideate/history", handlers.IdeateHistory)

		r.Get("/gauges", handlers.ListGauges)
		r.Post("/gauges", handlers.SubmitGauge)

		r.Get("/events", handlers.ListEvents)
		r.Post("/events/{id}/rsvp", handlers.RSVP)
		r.Get("/events/{id}/attendance", handlers.Attendance)
		r.Post("/events/{id}/status", handlers.SetEventStatus)

		r.Post("/promote", handlers.Promote)
		r.Get("/venues", handlers.ListVenues)
		r.Get("/me/stats", handlers.Stats)
	})

	return r
}
