/**
 * @description
 * This file contains the HTTP handler for mobile-money settlement webhooks.
 * The provider calls this endpoint with the terminal status of a collection
 * request; delivery is at-least-once, so the handler must acknowledge replays.
 *
 * @notes
 * - A replayed notification returns 200 with no effect; only an unknown
 *   transaction id is a 404. Returning an error for replays would make the
 *   provider retry forever.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/elixir/matchmaking-service/internal/app"
	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
)

// MomoWebhookHandler handles settlement notifications from the mobile-money
// provider.
func (h *Handlers) MomoWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var notification domain.SettlementNotification
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil {
		log.Printf("level=warn component=api endpoint=momo_webhook outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(notification.TransactionID) == "" {
		h.writeError(w, http.StatusBadRequest, "transactionId is required")
		return
	}

	err := h.subscriptions.HandleSettlement(r.Context(), notification.TransactionID, notification.Status)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSettlementStatus):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrPaymentNotFound):
			log.Printf("level=warn component=api endpoint=momo_webhook outcome=not_found transaction_id=%s", notification.TransactionID)
			h.writeError(w, http.StatusNotFound, "Payment not found")
		default:
			log.Printf("level=error component=api endpoint=momo_webhook outcome=failed transaction_id=%s err=%v", notification.TransactionID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=momo_webhook outcome=processed transaction_id=%s status=%s",
		notification.TransactionID, notification.Status)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Notification processed"})
}
