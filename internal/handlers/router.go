package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kmtracker/internal/metrics"
	"kmtracker/internal/middleware"
	"kmtracker/internal/tracker"
)

// RouterConfig holds the dependencies of the web front end
type RouterConfig struct {
	Tracker       *tracker.Tracker
	DB            Pinger
	StatsCacheTTL time.Duration
	RateLimit     float64
	RateBurst     int
}

// NewRouter sets up the HTTP routes
func NewRouter(cfg RouterConfig) http.Handler {
	rides := NewRidesHandler(cfg.Tracker)
	stats := NewStatsHandler(cfg.Tracker, cfg.StatsCacheTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Method(http.MethodGet, "/health", middleware.WrapHandler(metrics.EndpointHealth, HandleHealth(cfg.DB)))

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Method(http.MethodGet, "/", middleware.WrapHandler(metrics.EndpointIndex, rides.HandleIndex))
		r.Route("/api", func(r chi.Router) {
			r.Method(http.MethodGet, "/rides", middleware.WrapHandler(metrics.EndpointRides, rides.HandleRides))
			r.Method(http.MethodGet, "/rides/{id}", middleware.WrapHandler(metrics.EndpointRide, rides.HandleRide))
			r.Method(http.MethodGet, "/stats", middleware.WrapHandler(metrics.EndpointStats, stats.HandleStats))
			r.Method(http.MethodGet, "/daily", middleware.WrapHandler(metrics.EndpointDaily, rides.HandleDaily))
		})
	})

	return r
}
