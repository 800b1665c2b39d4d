package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mailauth/mailauth/internal/handler"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/middleware"
)

// Routes holds everything the router mounts.
type Routes struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Root   *handler.Handler
	Health *handler.HealthHandler
	Auth   *handler.AuthHandler
	OTP    *handler.OTPHandler

	Authenticator middleware.Authenticator
	RateLimit     middleware.RateLimitConfig

	IsDevelopment bool
	MaxBodySize   int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(rt Routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(rt.Logger, rt.Metrics))
	r.Use(middleware.Recoverer(rt.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: rt.IsDevelopment}))

	r.Get("/healthz", rt.Health.Healthz)
	r.Get("/readyz", rt.Health.Readyz)
	if rt.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.MetricsHandler)
	}
	r.Get("/", rt.Root.Hello)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(rt.MaxBodySize))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.Auth.Register)
			r.Post("/login", rt.Auth.Login)
			r.Post("/login/access-token", rt.Auth.Refresh)
			r.With(middleware.RequireAccessToken(rt.Authenticator, rt.Logger)).Get("/me", rt.Auth.Me)
		})

		r.Route("/mail", func(r chi.Router) {
			r.With(middleware.RateLimitOTP(rt.RateLimit)).Post("/send-otp", rt.OTP.SendOTP)
			r.Post("/verify-otp", rt.OTP.VerifyOTP)
		})
	})

	r.NotFound(rt.Root.NotFound)
	r.MethodNotAllowed(rt.Root.MethodNotAllowed)

	return r
}
