/**
 * @description
 * This file sets up the HTTP router for the matchmaking-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and applies
 * any necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes creates and returns a new router for the matchmaking service.
func Routes(h *Handlers, jwtSecret string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Settlement webhooks are authenticated by the provider, not by user
	// tokens, so they sit outside the auth group.
	r.Post("/webhook/momo", h.MomoWebhookHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Swipe and match endpoints
		r.Post("/swipes", h.SwipeHandler)
		r.Get("/swipes/likes", h.ListLikesHandler)
		r.Get("/matches", h.ListMatchesHandler)

		// Messaging endpoints
		r.Post("/messages", h.SendMessageHandler)
		r.Get("/messages/conversation", h.GetConversationHandler)
		r.Get("/messages/conversations", h.GetAllConversationsHandler)

		// Subscription endpoints
		r.Post("/subscriptions", h.InitiateSubscriptionHandler)
		r.Get("/subscriptions/status", h.SubscriptionStatusHandler)
		r.Post("/subscriptions/payments/{transactionId}/reconcile", h.ReconcilePaymentHandler)
	})

	return r
}
