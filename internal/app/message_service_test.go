package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
)

type messageRepoStub struct {
	store.Repository

	matches  []*domain.Match
	messages []*domain.Message
}

func (s *messageRepoStub) FindMatchByUserPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, error) {
	for _, existing := range s.matches {
		if samePair(existing, userA, userB) {
			return existing, nil
		}
	}
	return nil, store.ErrMatchNotFound
}

func (s *messageRepoStub) CreateMessage(ctx context.Context, message *domain.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

func (s *messageRepoStub) FindMessagesBetweenUsers(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range s.messages {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *messageRepoStub) FindMessagesInvolvingUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	// Newest first, matching the store implementation.
	var out []domain.Message
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.SenderID == userID || m.RecipientID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type memoryCache struct {
	entries map[string]string
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	value, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return value, nil
}

func (c *memoryCache) Set(ctx context.Context, key, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

type subscriptionCheckerStub struct {
	active bool
	err    error
}

func (s *subscriptionCheckerStub) CheckStatus(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SubscriptionStatus{IsActive: s.active}, nil
}

func TestSendMessage_DeniedWithoutMatchOrSubscription(t *testing.T) {
	repo := &messageRepoStub{}
	service := NewMessageService(repo, newMemoryCache(), &subscriptionCheckerStub{active: false})

	_, err := service.SendMessage(context.Background(), uuid.New(), uuid.New(), "hey")
	if !errors.Is(err, ErrMessagingNotAllowed) {
		t.Fatalf("expected ErrMessagingNotAllowed, got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatal("did not expect a message to be persisted")
	}
}

func TestSendMessage_RejectsEmptyContent(t *testing.T) {
	repo := &messageRepoStub{}
	service := NewMessageService(repo, newMemoryCache(), &subscriptionCheckerStub{active: true})

	_, err := service.SendMessage(context.Background(), uuid.New(), uuid.New(), "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendMessage_MatchedPairRecordsMatchID(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	match := &domain.Match{ID: uuid.New(), User1ID: alice, User2ID: bob, CreatedAt: time.Now()}
	repo := &messageRepoStub{matches: []*domain.Match{match}}
	cache := newMemoryCache()
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: false})

	message, err := service.SendMessage(context.Background(), alice, bob, "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if message.MatchID == nil || *message.MatchID != match.ID {
		t.Fatal("expected the message to carry the match id")
	}
	if _, ok := cache.entries[matchConversationKey(match.ID)]; !ok {
		t.Fatal("expected write-through under the match conversation key")
	}
}

func TestSendMessage_SubscriberWithoutMatchHasNilMatchID(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	repo := &messageRepoStub{}
	cache := newMemoryCache()
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: true})

	message, err := service.SendMessage(context.Background(), alice, bob, "hello")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if message.MatchID != nil {
		t.Fatal("expected nil match id for a subscription-gated send")
	}
	if _, ok := cache.entries[pairConversationKey(alice, bob)]; !ok {
		t.Fatal("expected write-through under the sorted pair key")
	}
}

func TestSendMessage_CacheFailureDoesNotFailSend(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	repo := &messageRepoStub{}
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: true})

	if _, err := service.SendMessage(context.Background(), alice, bob, "hello"); err != nil {
		t.Fatalf("send must survive a cache outage, got %v", err)
	}
	if len(repo.messages) != 1 {
		t.Fatalf("expected the message to be persisted, got %d rows", len(repo.messages))
	}
}

func TestGetConversation_SurvivesCacheFlush(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	repo := &messageRepoStub{}
	cache := newMemoryCache()
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: true})

	for _, content := range []string{"one", "two", "three"} {
		if _, err := service.SendMessage(context.Background(), alice, bob, content); err != nil {
			t.Fatalf("send failed: %v", err)
		}
	}

	// Simulate a cache flush; the conversation must rebuild from the store.
	cache.entries = map[string]string{}

	messages, err := service.GetConversation(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages after cache flush, got %d", len(messages))
	}
	if messages[0].Content != "one" || messages[2].Content != "three" {
		t.Fatal("expected messages ordered oldest first")
	}
	if _, ok := cache.entries[pairConversationKey(alice, bob)]; !ok {
		t.Fatal("expected the read to repopulate the cache")
	}
}

func TestGetConversation_ReadAfterSendIsWarm(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	repo := &messageRepoStub{}
	cache := newMemoryCache()
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: true})

	if _, err := service.SendMessage(context.Background(), alice, bob, "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	// Drop the durable rows; a warm cache must still serve the conversation.
	repo.messages = nil

	messages, err := service.GetConversation(context.Background(), bob, alice)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "hello" {
		t.Fatal("expected the cached conversation from the send path")
	}
}

func TestGetAllConversations_GroupsByConversationKey(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	match := &domain.Match{ID: uuid.New(), User1ID: alice, User2ID: bob}
	repo := &messageRepoStub{matches: []*domain.Match{match}}
	cache := newMemoryCache()
	service := NewMessageService(repo, cache, &subscriptionCheckerStub{active: true})

	if _, err := service.SendMessage(context.Background(), alice, bob, "to bob"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := service.SendMessage(context.Background(), alice, carol, "to carol"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	conversations, err := service.GetAllConversations(context.Background(), alice)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if _, ok := conversations[matchConversationKey(match.ID)]; !ok {
		t.Fatal("expected the matched conversation grouped under the match key")
	}
	if _, ok := conversations[pairConversationKey(alice, carol)]; !ok {
		t.Fatal("expected the unmatched conversation grouped under the pair key")
	}
	if _, ok := cache.entries[userConversationsKey(alice)]; !ok {
		t.Fatal("expected the aggregate view to be cached")
	}
}

func TestPairConversationKey_OrderIndependent(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	if pairConversationKey(alice, bob) != pairConversationKey(bob, alice) {
		t.Fatal("pair key must not depend on argument order")
	}
}
