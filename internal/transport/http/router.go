package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/transport/http/handler"
	appmiddleware "github.com/matching-sms-api/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. Background limiter
// cleanup stops when ctx is cancelled.
func NewRouter(ctx context.Context, cfg *config.Config, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.NotFound(handler.NotFound)

	// 5 requests/second, burst of 10, on the endpoints that send or check codes.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(svcs.Auth)
	smsH := handler.NewSMSHandler(svcs.Identities, svcs.Notifications)
	profileH := handler.NewProfileHandler(svcs.Identities)
	uploadH := handler.NewUploadHandler(svcs.Photos)
	notifH := handler.NewNotificationHandler(svcs.Notifications, svcs.Preferences)

	r.Get("/health", healthH.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Minute))

		r.With(sensitiveRL.Limit).Post("/auth/send-code", authH.SendCode)
		r.With(sensitiveRL.Limit).Post("/auth/verify-code", authH.VerifyCode)

		r.Post("/sms/match", smsH.Match)
		r.Post("/sms/profile-view", smsH.ProfileView)
		r.Post("/sms/message", smsH.Message)
		r.Post("/sms/reminder", smsH.Reminder)

		r.Post("/profile/create", profileH.Create)
		r.Post("/upload/photo", uploadH.Photo)
		r.Post("/notifications/events", notifH.Event)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(svcs.Tokens))

			r.Get("/notifications/preferences", notifH.GetPreferences)
			r.Patch("/notifications/preferences", notifH.UpdatePreferences)
			r.Get("/notifications/history", notifH.History)
		})

		if !cfg.IsProduction() {
			r.Get("/debug/codes", authH.PendingCodes)
		}
	})

	return r
}
