/**
 * @description
 * This file contains the message engine: subscription-or-match gated sends,
 * and cache-aside reads for single conversations and the per-user aggregate
 * conversations view.
 *
 * @notes
 * - Cache keys: a matched conversation caches under `conversation:<matchId>`;
 *   an unmatched (subscription-gated) one under `conversation:<a>:<b>` with
 *   the two user ids in lexical order, so both directions derive the same
 *   key. Reads derive the key exactly the way the send path does (match
 *   lookup first) so reads and writes always agree.
 * - The aggregate view caches under its own key (`user:<id>:conversations`)
 *   and is not invalidated on sends. The two views may therefore diverge
 *   until the aggregate key is recomputed; that is a deliberate trade-off
 *   favoring single-writer-per-key simplicity over strict cross-view
 *   consistency.
 * - Cache failures degrade, never fail the request: a broken read falls
 *   through to the durable store, and a failed write-through after a durable
 *   write is logged and dropped. The cache can lag the store but is never
 *   ahead of it.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrMessagingNotAllowed is returned when the sender has neither a match
	// with the recipient nor an active subscription. This is a policy
	// rejection, not a system fault; no partial write occurs.
	ErrMessagingNotAllowed = errors.New("a match or an active subscription is required to send messages")
	// ErrEmptyMessage is returned for blank message content.
	ErrEmptyMessage = errors.New("message content cannot be empty")
)

// subscriptionChecker is the slice of the subscription engine the message
// engine depends on: the derived activity signal, nothing else.
type subscriptionChecker interface {
	CheckStatus(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionStatus, error)
}

// MessageService provides the business logic for sending messages and
// reading conversations.
type MessageService struct {
	repo          store.Repository
	cache         ConversationCache
	subscriptions subscriptionChecker
}

// NewMessageService creates a new message service.
func NewMessageService(repo store.Repository, cache ConversationCache, subscriptions subscriptionChecker) *MessageService {
	return &MessageService{repo: repo, cache: cache, subscriptions: subscriptions}
}

// pairConversationKey builds the cache key for an unmatched conversation.
// The ids are ordered lexically so sender/recipient order never matters.
func pairConversationKey(userA, userB uuid.UUID) string {
	a, b := userA.String(), userB.String()
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return "conversation:" + a + ":" + b
}

func matchConversationKey(matchID uuid.UUID) string {
	return "conversation:" + matchID.String()
}

func userConversationsKey(userID uuid.UUID) string {
	return "user:" + userID.String() + ":conversations"
}

// conversationKeyFor derives the cache key shared by the send and read paths
// for a user pair: the match key when the pair is matched, the sorted-pair
// key otherwise.
func (s *MessageService) conversationKeyFor(ctx context.Context, userA, userB uuid.UUID) (string, error) {
	match, err := s.repo.FindMatchByUserPair(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, store.ErrMatchNotFound) {
			return pairConversationKey(userA, userB), nil
		}
		return "", fmt.Errorf("lookup match for conversation key: %w", err)
	}
	return matchConversationKey(match.ID), nil
}

// SendMessage gates the send on subscription-or-match, persists the message,
// and writes it through to the conversation's cache entry. The recorded
// match id is nil when the send was allowed by the sender's subscription and
// no match exists.
func (s *MessageService) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	status, err := s.subscriptions.CheckStatus(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("subscription check: %w", err)
	}

	var matchID *uuid.UUID
	if !status.IsActive {
		match, err := s.repo.FindMatchByUserPair(ctx, senderID, recipientID)
		if err != nil {
			if errors.Is(err, store.ErrMatchNotFound) {
				return nil, ErrMessagingNotAllowed
			}
			return nil, fmt.Errorf("match check: %w", err)
		}
		matchID = &match.ID
	}

	message := &domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		MatchID:     matchID,
		Content:     content,
		SentAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	var key string
	if matchID != nil {
		key = matchConversationKey(*matchID)
	} else {
		key = pairConversationKey(senderID, recipientID)
	}
	s.writeThrough(ctx, key, senderID, recipientID, message)

	return message, nil
}

// writeThrough appends the freshly persisted message to the conversation's
// cache entry so subsequent reads are warm. On a cache miss the whole
// conversation is repopulated from the durable store. Failures here only log:
// the durable write already succeeded, and the cache will be rebuilt on the
// next read.
func (s *MessageService) writeThrough(ctx context.Context, key string, senderID, recipientID uuid.UUID, message *domain.Message) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var messages []domain.Message
		if unmarshalErr := json.Unmarshal([]byte(cached), &messages); unmarshalErr == nil {
			messages = append(messages, *message)
			s.setConversation(ctx, key, messages)
			return
		}
		log.Printf("level=warn component=message_service msg=\"corrupt cache entry; repopulating\" key=%s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("level=warn component=message_service msg=\"cache read failed during write-through\" key=%s err=%v", key, err)
		return
	}

	messages, err := s.repo.FindMessagesBetweenUsers(ctx, senderID, recipientID)
	if err != nil {
		log.Printf("level=warn component=message_service msg=\"conversation repopulate failed\" key=%s err=%v", key, err)
		return
	}
	s.setConversation(ctx, key, messages)
}

func (s *MessageService) setConversation(ctx context.Context, key string, messages []domain.Message) {
	payload, err := json.Marshal(messages)
	if err != nil {
		log.Printf("level=error component=message_service msg=\"conversation marshal failed\" key=%s err=%v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, string(payload)); err != nil {
		log.Printf("level=warn component=message_service msg=\"cache write failed\" key=%s err=%v", key, err)
	}
}

// GetConversation returns all messages between two users, oldest first. The
// cache is consulted under the same key the send path writes; on a miss the
// conversation is read from the durable store and the cache repopulated.
func (s *MessageService) GetConversation(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error) {
	key, err := s.conversationKeyFor(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var messages []domain.Message
		if unmarshalErr := json.Unmarshal([]byte(cached), &messages); unmarshalErr == nil {
			return messages, nil
		}
		log.Printf("level=warn component=message_service msg=\"corrupt cache entry; falling back to store\" key=%s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("level=warn component=message_service msg=\"cache read failed; falling back to store\" key=%s err=%v", key, err)
	}

	messages, err := s.repo.FindMessagesBetweenUsers(ctx, userA, userB)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	s.setConversation(ctx, key, messages)
	return messages, nil
}

// GetAllConversations returns the user's inbox: every conversation they
// participate in, keyed by conversation key, messages newest first within
// each group. Cached under the user's own aggregate key; this view may lag
// the single-conversation view after a fresh send (see file notes).
func (s *MessageService) GetAllConversations(ctx context.Context, userID uuid.UUID) (domain.ConversationList, error) {
	key := userConversationsKey(userID)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var conversations domain.ConversationList
		if unmarshalErr := json.Unmarshal([]byte(cached), &conversations); unmarshalErr == nil {
			return conversations, nil
		}
		log.Printf("level=warn component=message_service msg=\"corrupt cache entry; falling back to store\" key=%s", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Printf("level=warn component=message_service msg=\"cache read failed; falling back to store\" key=%s err=%v", key, err)
	}

	messages, err := s.repo.FindMessagesInvolvingUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	// Messages arrive newest-first; grouping preserves that order per key.
	conversations := domain.ConversationList{}
	for _, message := range messages {
		var groupKey string
		if message.MatchID != nil {
			groupKey = matchConversationKey(*message.MatchID)
		} else {
			groupKey = pairConversationKey(message.SenderID, message.RecipientID)
		}
		conversations[groupKey] = append(conversations[groupKey], message)
	}

	payload, marshalErr := json.Marshal(conversations)
	if marshalErr == nil {
		if setErr := s.cache.Set(ctx, key, string(payload)); setErr != nil {
			log.Printf("level=warn component=message_service msg=\"cache write failed\" key=%s err=%v", key, setErr)
		}
	}
	return conversations, nil
}
