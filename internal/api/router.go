/**
 * @description
 * This file sets up the HTTP router for the request-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * authentication middleware for user and server-to-server routes.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the secrets and origins the router needs.
type RouterConfig struct {
	JWTSecret      string
	InternalAPIKey string
	AllowedOrigins string
}

// NewRouter creates a new Chi router and registers the request-service routes.
func NewRouter(h *Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Server-to-server coin operations used by the rest of the platform.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(cfg.InternalAPIKey))
		r.Post("/coins/balance", h.InternalCoinBalanceHandler)
		r.Post("/coins/add", h.InternalAddCoinsHandler)
		r.Post("/coins/deduct", h.InternalDeductCoinsHandler)
		r.Post("/coins/check", h.InternalCheckCoinsHandler)
		r.Post("/internal/rewards/reconcile", h.ReconcileRewardsHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(JWTAuthMiddleware(cfg.JWTSecret))

		r.Get("/coins/me", h.GetMyCoinsHandler)
		r.Get("/coins/history", h.GetCoinHistoryHandler)

		r.Post("/requests", h.CreateRequestHandler)
		r.Get("/requests/mine", h.ListMyRequestsHandler)
		r.Get("/requests/open", h.ListOpenRequestsHandler)
		r.Post("/requests/fulfillment-status", h.UpdateFulfillmentStatusHandler)
		r.Get("/requests/{id}", h.GetRequestHandler)
		r.Delete("/requests/{id}", h.DeleteRequestHandler)

		r.Post("/fulfillments/document", h.FulfillWithDocumentHandler)
		r.Get("/fulfillments/{id}", h.GetFulfillmentHandler)
		r.Post("/fulfillments/{id}/download", h.DownloadFulfillmentHandler)

		r.Get("/notifications", h.ListNotificationsHandler)
		r.Get("/notifications/unread-count", h.GetUnreadNotificationCountHandler)
		r.Post("/notifications/read-all", h.MarkAllNotificationsReadHandler)
		r.Patch("/notifications/{id}/read", h.MarkNotificationReadHandler)
		r.Delete("/notifications/{id}", h.DeleteNotificationHandler)
	})

	return r
}

func splitOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"https://*", "http://*"}
	}
	return origins
}
