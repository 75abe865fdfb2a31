package subshare

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subshare/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/health"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/payment/paymentgroup"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/payment/paymentlog"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/payment/paymentuser"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/payment/venmo"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/profile/profileread"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/profile/profileupdate"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/accept"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/invite"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/list"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/pay"
	"github.com/magabrotheeeer/subshare/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/subshare/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/subshare/internal/services/payment"
	subservice "github.com/magabrotheeeer/subshare/internal/services/subscription"
)

// Services сервисы, которые обслуживают HTTP API.
type Services struct {
	Subscriptions *subservice.SubscriptionService
	Payments      *paymentservice.PaymentService
	Auth          *authservice.AuthService
	Health        health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, limiter *rate.Limiter) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware,
	)

	// Открытые конечные точки
	r.Route("/auth", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
		r.Post("/signup", register.New(logger, svc.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, svc.Auth).ServeHTTP)
	})

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(svc.Auth, logger))
		r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", list.New(logger, svc.Subscriptions).ServeHTTP)
			r.Post("/create", create.New(logger, svc.Subscriptions).ServeHTTP)
			r.Get("/{id}", read.New(logger, svc.Subscriptions).ServeHTTP)
			r.Post("/{id}/invite", invite.New(logger, svc.Subscriptions).ServeHTTP)
			r.Post("/{id}/accept", accept.New(logger, svc.Subscriptions).ServeHTTP)
			r.Put("/{id}/pay", pay.New(logger, svc.Subscriptions).ServeHTTP)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/log", paymentlog.New(logger, svc.Payments).ServeHTTP)
			r.Get("/group/{id}", paymentgroup.New(logger, svc.Payments).ServeHTTP)
			r.Get("/user", paymentuser.New(logger, svc.Payments).ServeHTTP)
			r.Get("/venmo/integrate", venmo.ServeHTTP)
		})

		r.Get("/profile", profileread.New(logger, svc.Auth).ServeHTTP)
		r.Put("/profile", profileupdate.New(logger, svc.Auth).ServeHTTP)
	})

	r.Get("/health", health.New(logger, svc.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
