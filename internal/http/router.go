package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ledtorch/deejiar/internal/account"
	"github.com/ledtorch/deejiar/internal/billing"
	"github.com/ledtorch/deejiar/internal/config"
	"github.com/ledtorch/deejiar/internal/mapdata"
	"github.com/ledtorch/deejiar/internal/metrics"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(
	cfg config.Config,
	accountSvc *account.Service,
	billingSvc *billing.Service,
	store *mapdata.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSlogMiddleware(logger, m))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	authHandler := NewAuthHandler(accountSvc, m, logger)
	webhookHandler := NewWebhookHandler(billingSvc, cfg.WebhookToken, logger)
	mapHandler := NewMapHandler(store, logger)
	adminHandler := NewAdminHandler(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminJWTSecret, accountSvc, store, m, logger)

	if cfg.WebhookToken == "" {
		logger.Warn("webhook token not configured; billing webhook requests will be rejected")
	}

	// Map tilesets keep their historical top-level path for app clients.
	r.Get("/map/{filename}", mapHandler.GetFile)

	otpSends := newOtpLimiter(5)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(otpSends.middleware)
				r.Post("/register/send-otp", authHandler.SendRegistrationOtp)
				r.Post("/login/send-otp", authHandler.SendLoginOtp)
			})
			r.Post("/register/verify-otp", authHandler.VerifyRegistrationOtp)
			r.Post("/login/verify-otp", authHandler.VerifyLoginOtp)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(newAuthMiddleware(accountSvc, logger))
				r.Get("/me", authHandler.Me)
				r.Put("/me", authHandler.UpdateMe)
				r.Delete("/account", authHandler.DeleteAccount)
			})
		})

		r.Get("/subscription/status", authHandler.SubscriptionStatus)

		r.Route("/search", func(r chi.Router) {
			r.Get("/", mapHandler.Search)
			r.Get("/suggestions", mapHandler.Suggestions)
			r.Get("/types", mapHandler.Types)
			r.Get("/tags", mapHandler.Tags)
		})

		r.Post("/webhooks/revenuecat", webhookHandler.HandleRevenueCat)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(newAdminMiddleware(cfg.AdminJWTSecret))
				r.Post("/purge", adminHandler.Purge)
				r.Get("/files", adminHandler.ListFiles)
				r.Get("/files/{filename}", adminHandler.GetFile)
				r.Post("/files/{filename}", adminHandler.SaveFile)
			})
		})
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
