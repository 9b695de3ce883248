package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/http/handlers"
	"github.com/pribylovaa/go-tenant-auth/internal/http/middleware"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Cookies  config.CookieConfig
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),                       // X-Request-Id нужен логгеру и ответам об ошибках
		middleware.Logging(opts.Logger),              // кладём request-scoped логгер в контекст и логируем
		middleware.Recover(),                         // паника -> 500 с логом в контексте запроса
		middleware.Metrics(opts.Metrics),             // счётчики по шаблону маршрута
		middleware.CookieAuth(handlers.CookieAccess), // access-токен из cookie в контекст
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Cookies)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// регистрация и верификация
	r.Post("/auth/register", h.Register)
	r.Post("/auth/verification/resend", h.ResendVerification)
	r.Post("/auth/verify-email", h.VerifyEmail)
	r.Post("/auth/verify-account", h.VerifyAccount)

	// сессия
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.RefreshSession)
	r.Post("/auth/logout", h.Logout)

	// сброс пароля
	r.Post("/auth/password/reset", h.RequestPasswordReset)
	r.Post("/auth/password/reset/complete", h.CompletePasswordReset)

	// аккаунт
	r.Get("/account/me", h.Me)
	r.Post("/account/email", h.ChangeEmail)
	r.Post("/account/password", h.ChangePassword)
	r.Delete("/account", h.DeleteAccount)
}
