/**
 * @description
 * This file contains the shared handler container and response helpers for the
 * matchmaking-service's API endpoints. Handlers are responsible for parsing
 * incoming requests, calling the appropriate methods on the application
 * services, and writing the HTTP response. They act as the bridge between the
 * web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app: For the match, message, and subscription services.
 */

package api

import (
	"encoding/json"
	"net/http"

	"github.com/elixir/matchmaking-service/internal/app"
)

// Handlers holds the application services that handlers will use.
type Handlers struct {
	matches       *app.MatchService
	messages      *app.MessageService
	subscriptions *app.SubscriptionService
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(matches *app.MatchService, messages *app.MessageService, subscriptions *app.SubscriptionService) *Handlers {
	return &Handlers{
		matches:       matches,
		messages:      messages,
		subscriptions: subscriptions,
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
