/**
 * @description
 * This file contains the HTTP handlers for subscription purchase, status
 * checks, and manual payment reconciliation.
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

	"github.com/go-chi/chi/v5"

	"github.com/elixir/matchmaking-service/internal/app"
	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
)

// InitiateSubscriptionHandler handles requests to purchase a subscription via
// mobile money.
func (h *Handlers) InitiateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req domain.InitiateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=initiate_subscription outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		h.writeError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if strings.TrimSpace(req.Currency) == "" {
		h.writeError(w, http.StatusBadRequest, "currency is required")
		return
	}

	result, err := h.subscriptions.Initiate(r.Context(), userID, req.Type, req.PhoneNumber, req.Amount, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidSubscriptionType):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrPaymentInitiationFailed):
			log.Printf("level=warn component=api endpoint=initiate_subscription outcome=failed user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusBadGateway, "Payment provider did not accept the request")
		default:
			log.Printf("level=error component=api endpoint=initiate_subscription outcome=failed user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// SubscriptionStatusHandler handles requests for the user's current
// subscription status.
func (h *Handlers) SubscriptionStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	status, err := h.subscriptions.CheckStatus(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api endpoint=subscription_status outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// ReconcilePaymentHandler handles requests to reconcile a pending payment by
// polling the provider for its authoritative status. Covers lost webhooks.
func (h *Handlers) ReconcilePaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	transactionID := chi.URLParam(r, "transactionId")
	if transactionID == "" {
		h.writeError(w, http.StatusBadRequest, "Transaction ID is required")
		return
	}

	payment, err := h.subscriptions.ReconcilePayment(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			h.writeError(w, http.StatusNotFound, "Payment not found")
			return
		}
		log.Printf("level=error component=api endpoint=reconcile_payment outcome=failed user_id=%s transaction_id=%s err=%v", userID, transactionID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Users may only reconcile their own payments.
	if payment.UserID != userID {
		h.writeError(w, http.StatusNotFound, "Payment not found")
		return
	}

	h.writeJSON(w, http.StatusOK, payment)
}
