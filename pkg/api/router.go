package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RouterConfig tunes the HTTP surface.
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimit      rate.Limit // requests per second, 0 disables limiting
	RateBurst      int
}

// DefaultRouterConfig returns the production defaults.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		AllowedOrigins: []string{"*"},
		RequestTimeout: 30 * time.Second,
		RateLimit:      50,
		RateBurst:      100,
	}
}

// NewRouter mounts the API, metrics and streaming endpoints.
// ws may be nil to skip the streaming endpoint.
func NewRouter(h *Handler, cfg *RouterConfig, ws http.HandlerFunc) chi.Router {
	if cfg == nil {
		cfg = DefaultRouterConfig()
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.RateLimit > 0 {
		r.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	if ws != nil {
		r.Get("/ws", ws)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/parlay/quote", h.QuoteParlay)
		r.Get("/matches/{id}/odds", h.MatchOdds)
	})

	return r
}

// rateLimiter sheds load once the global request rate exceeds the
// configured limit.
func rateLimiter(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
