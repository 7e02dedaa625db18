/**
 * @description
 * This file contains the HTTP handlers for swipes, likes, and matches.
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

	"github.com/elixir/matchmaking-service/internal/app"
	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
	"github.com/google/uuid"
)

// SwipeHandler handles requests to record a swipe on another user.
func (h *Handlers) SwipeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req domain.SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=swipe outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ToUserID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "to_user_id is required")
		return
	}

	if err := h.matches.ValidateSwipeTarget(r.Context(), req.ToUserID); err != nil {
		if errors.Is(err, app.ErrSwipeTargetInvalid) {
			h.writeError(w, http.StatusNotFound, "Swipe target not found or not eligible")
			return
		}
		log.Printf("level=error component=api endpoint=swipe outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result, err := h.matches.RecordSwipe(r.Context(), userID, req.ToUserID, req.IsLike)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrSelfSwipe):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrSwipeExists):
			h.writeError(w, http.StatusConflict, "You have already swiped on this user")
		default:
			log.Printf("level=error component=api endpoint=swipe outcome=failed user_id=%s to_user_id=%s err=%v", userID, req.ToUserID, err)
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	log.Printf("level=info component=api endpoint=swipe outcome=accepted user_id=%s to_user_id=%s is_like=%t matched=%t",
		userID, req.ToUserID, req.IsLike, result.Match != nil)
	h.writeJSON(w, http.StatusCreated, result)
}

// ListLikesHandler handles requests to list the user's likes. By default the
// likes the user has sent are returned; ?received=true returns the likes the
// user has received instead.
func (h *Handlers) ListLikesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	received := r.URL.Query().Get("received") == "true"

	likes, err := h.matches.ListUserLikes(r.Context(), userID, received)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_likes outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, likes)
}

// ListMatchesHandler handles requests to list the user's matches.
func (h *Handlers) ListMatchesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	matches, err := h.matches.ListUserMatches(r.Context(), userID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_matches outcome=failed user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, matches)
}
