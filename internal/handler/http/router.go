package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peakscale/tourbook/internal/auth"
	"github.com/peakscale/tourbook/internal/domain"
	"github.com/peakscale/tourbook/internal/repository"
	"github.com/peakscale/tourbook/internal/service"
	"github.com/peakscale/tourbook/pkg/health"
	"github.com/peakscale/tourbook/pkg/middleware"
)

// RouterConfig carries the handler-level knobs the router needs.
type RouterConfig struct {
	CORS          CORSConfig
	SessionExpiry time.Duration
	CookieSecure  bool
	// StatsMaxAge is the Cache-Control max-age for the public aggregate
	// endpoints, in seconds.
	StatsMaxAge int
	// RateLimitRPS throttles each source IP on the API routes. Zero or
	// negative disables throttling. Health and metrics are never limited.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	accounts *service.AccountService,
	tours *service.TourService,
	reviews *service.ReviewService,
	bookings *service.BookingService,
	tokens *auth.TokenManager,
	users repository.UserRepository,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("tourbook"))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authn := NewAuthMiddleware(tokens, users, logger)

	authHandler := NewAuthHandler(accounts, cfg.SessionExpiry, cfg.CookieSecure, logger)
	userHandler := NewUserHandler(accounts, logger)
	tourHandler := NewTourHandler(tours, logger)
	reviewHandler := NewReviewHandler(reviews, logger)
	bookingHandler := NewBookingHandler(bookings, logger)

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimitRPS > 0 {
			api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}

		api.Route("/auth", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Patch("/reset-password/{token}", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require)
				r.Patch("/update-password", authHandler.UpdatePassword)
			})
		})

		api.Route("/users", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(authn.Require)

			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Delete("/me", userHandler.DeleteMe)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))

				r.Get("/", userHandler.List)
				r.Get("/{id}", userHandler.Get)
				r.Patch("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		api.Route("/tours", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			// Public reads still resolve the caller when a token is sent.
			r.Group(func(r chi.Router) {
				r.Use(authn.Optional)

				r.Get("/", tourHandler.List)
				r.Get("/top-5-cheap", tourHandler.TopCheap)
				r.With(middleware.CacheControl(cfg.StatsMaxAge)).Get("/stats", tourHandler.Stats)
				r.Get("/within/{distance}/center/{latlng}/unit/{unit}", tourHandler.Within)
				r.Get("/distances/{latlng}/unit/{unit}", tourHandler.Distances)
				r.Get("/{id}", tourHandler.Get)

				r.Get("/{tourID}/reviews", reviewHandler.ListByTour)
			})

			r.With(authn.Require, RequireRole(domain.RoleUser)).
				Post("/{tourID}/reviews", reviewHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require)

				r.With(RequireRole(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide)).
					Get("/monthly-plan/{year}", tourHandler.MonthlyPlan)

				r.Group(func(r chi.Router) {
					r.Use(RequireRole(domain.RoleAdmin, domain.RoleLeadGuide))

					r.Post("/", tourHandler.Create)
					r.Patch("/{id}", tourHandler.Update)
					r.Delete("/{id}", tourHandler.Delete)
				})
			})
		})

		api.Route("/reviews", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Get("/{id}", reviewHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require)

				r.Patch("/{id}", reviewHandler.Update)
				r.Delete("/{id}", reviewHandler.Delete)
			})
		})

		api.Route("/bookings", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			// The provider calls this; it authenticates by session id, not token.
			r.Post("/webhook", bookingHandler.Webhook)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require)

				r.Post("/checkout/{tourID}", bookingHandler.Checkout)
				r.Get("/me", bookingHandler.ListMine)

				r.With(RequireRole(domain.RoleAdmin, domain.RoleLeadGuide)).
					Get("/", bookingHandler.List)
			})
		})
	})

	return r
}
