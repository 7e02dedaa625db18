/**
 * @description
 * This file contains the HTTP handlers for sending messages and reading
 * conversations.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/elixir/matchmaking-service/internal/app"
	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/google/uuid"
)

// SendMessageHandler handles requests to send a message to another user.
func (h *Handlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req domain.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=send_message outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RecipientID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	if req.RecipientID == userID {
		h.writeError(w, http.StatusBadRequest, "Cannot send a message to yourself")
		return
	}

	message, err := h.messages.SendMessage(r.Context(), userID, req.RecipientID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyMessage):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrMessagingNotAllowed):
			h.writeError(w, http.StatusForbidden, err.Error())
		default:
			log.Printf("level=error component=api endpoint=send_message outcome=failed sender_id=%s recipient_id=%s err=%v", userID, req.RecipientID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, message)
}

// GetConversationHandler handles requests for the full conversation between
// the authenticated user and the user given in the user_id query parameter.
func (h *Handlers) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	otherIDStr := r.URL.Query().Get("user_id")
	if otherIDStr == "" {
		h.writeError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	otherID, err := uuid.Parse(otherIDStr)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	messages, err := h.messages.GetConversation(r.Context(), userID, otherID)
	if err != nil {
		log.Printf("level=error component=api endpoint=get_conversation outcome=failed user_id=%s other_id=%s err=%v", userID, otherID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, messages)
}

// GetAllConversationsHandler handles requests for the user's aggregate
// conversations view.
func (h *Handlers) GetAllConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	conversations, err := h.messages.GetAllConversations(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api endpoint=get_conversations outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, conversations)
}
