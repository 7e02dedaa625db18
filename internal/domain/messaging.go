/**
 * @description
 * This file defines the domain models for the messaging portion of the
 * matchmaking-service. Messages are exchanged either inside a match (the
 * match id is recorded on the message) or outside one when the sender holds
 * an active subscription (the match id is null).
 *
 * @notes
 * - Messages are immutable once written; there is no edit or delete path.
 * - Conversations are a derived view: the durable store groups messages by
 *   counterpart pair, and the cache stores pre-serialized conversation
 *   slices keyed by conversation key. The cache is never authoritative.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a single chat message. Maps to the `messages` table.
// MatchID is nil when the send was gated by the sender's subscription rather
// than by a match.
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	MatchID     *uuid.UUID `json:"match_id,omitempty"`
	Content     string     `json:"content"`
	SentAt      time.Time  `json:"sent_at"`
}

// SendMessageRequest is the DTO for incoming message API requests. The sender
// is resolved from the authenticated context.
type SendMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Content     string    `json:"content"`
}

// ConversationList maps a conversation key to its messages, newest first.
// This is the inbox-style aggregate view returned by the conversations
// endpoint and cached per user.
type ConversationList map[string][]Message
