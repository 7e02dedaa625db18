package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
	"github.com/elixir/matchmaking-service/pkg/momoclient"
)

type subscriptionRepoStub struct {
	store.Repository

	subscriptions map[uuid.UUID]*domain.Subscription
	payments      map[string]*domain.Payment

	activateCalls int
}

func newSubscriptionRepoStub() *subscriptionRepoStub {
	return &subscriptionRepoStub{
		subscriptions: map[uuid.UUID]*domain.Subscription{},
		payments:      map[string]*domain.Payment{},
	}
}

func (s *subscriptionRepoStub) FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *subscriptionRepoStub) UpsertSubscriptionIntent(ctx context.Context, userID uuid.UUID, subscriptionType string) (*domain.Subscription, error) {
	sub, ok := s.subscriptions[userID]
	if !ok {
		sub = &domain.Subscription{UserID: userID}
		s.subscriptions[userID] = sub
	}
	sub.Type = subscriptionType
	sub.Active = false
	return sub, nil
}

func (s *subscriptionRepoStub) ActivateSubscription(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.Subscription, error) {
	s.activateCalls++
	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	sub.Active = true
	sub.ExpiresAt = &expiresAt
	return sub, nil
}

func (s *subscriptionRepoStub) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	if _, ok := s.payments[payment.TransactionID]; ok {
		return store.ErrPaymentExists
	}
	s.payments[payment.TransactionID] = payment
	return nil
}

func (s *subscriptionRepoStub) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, ok := s.payments[transactionID]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *subscriptionRepoStub) SettlePayment(ctx context.Context, transactionID, status string) (bool, error) {
	payment, ok := s.payments[transactionID]
	if !ok {
		return false, store.ErrPaymentNotFound
	}
	if payment.Status != domain.PaymentStatusPending {
		return false, nil
	}
	payment.Status = status
	return true, nil
}

type gatewayStub struct {
	accepted     bool
	requestErr   error
	pollStatus   string
	pollErr      error
	requestCalls int
}

func (g *gatewayStub) RequestPayment(ctx context.Context, amount int64, currency, phoneNumber string) (*momoclient.PaymentRequestResult, error) {
	g.requestCalls++
	if g.requestErr != nil {
		return nil, g.requestErr
	}
	return &momoclient.PaymentRequestResult{
		TransactionID: uuid.NewString(),
		Accepted:      g.accepted,
	}, nil
}

func (g *gatewayStub) GetPaymentStatus(ctx context.Context, transactionID string) (*momoclient.PaymentStatusResult, error) {
	if g.pollErr != nil {
		return nil, g.pollErr
	}
	return &momoclient.PaymentStatusResult{Status: g.pollStatus}, nil
}

func TestInitiate_RejectedGatewayLeavesNoWrites(t *testing.T) {
	repo := newSubscriptionRepoStub()
	service := NewSubscriptionService(repo, &gatewayStub{accepted: false}, nil, 30, 15)

	_, err := service.Initiate(context.Background(), uuid.New(), domain.SubscriptionTypePremium, "233540000000", 500, "EUR")
	if !errors.Is(err, ErrPaymentInitiationFailed) {
		t.Fatalf("expected ErrPaymentInitiationFailed, got %v", err)
	}
	if len(repo.payments) != 0 || len(repo.subscriptions) != 0 {
		t.Fatal("a rejected initiation must not persist anything")
	}
}

func TestInitiate_InvalidTypeRejectedBeforeGateway(t *testing.T) {
	repo := newSubscriptionRepoStub()
	gateway := &gatewayStub{accepted: true}
	service := NewSubscriptionService(repo, gateway, nil, 30, 15)

	_, err := service.Initiate(context.Background(), uuid.New(), "GOLD", "233540000000", 500, "EUR")
	if !errors.Is(err, ErrInvalidSubscriptionType) {
		t.Fatalf("expected ErrInvalidSubscriptionType, got %v", err)
	}
	if gateway.requestCalls != 0 {
		t.Fatal("the gateway must not be called for an invalid tier")
	}
}

func TestInitiate_AcceptedRecordsPendingIntent(t *testing.T) {
	repo := newSubscriptionRepoStub()
	service := NewSubscriptionService(repo, &gatewayStub{accepted: true}, nil, 30, 15)
	userID := uuid.New()

	result, err := service.Initiate(context.Background(), userID, domain.SubscriptionTypePremiumPlus, "233540000000", 1000, "EUR")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected PENDING payment, got %s", result.Payment.Status)
	}
	if result.Subscription.Active {
		t.Fatal("initiation must record intent, not entitlement")
	}
	if result.Subscription.Type != domain.SubscriptionTypePremiumPlus {
		t.Fatalf("unexpected subscription type %s", result.Subscription.Type)
	}
}

func TestCheckStatus_NoSubscriptionIsInactive(t *testing.T) {
	service := NewSubscriptionService(newSubscriptionRepoStub(), &gatewayStub{}, nil, 30, 15)

	status, err := service.CheckStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if status.IsActive {
		t.Fatal("expected inactive status for an unknown user")
	}
}

func TestCheckStatus_ExpiredButFlaggedActiveReportsInactive(t *testing.T) {
	repo := newSubscriptionRepoStub()
	userID := uuid.New()
	expired := time.Now().Add(-time.Hour)
	repo.subscriptions[userID] = &domain.Subscription{
		UserID:    userID,
		Type:      domain.SubscriptionTypePremium,
		Active:    true,
		ExpiresAt: &expired,
	}
	service := NewSubscriptionService(repo, &gatewayStub{}, nil, 30, 15)

	status, err := service.CheckStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if status.IsActive {
		t.Fatal("an expired subscription must report inactive regardless of the stored flag")
	}
}

func TestHandleSettlement_ReplayActivatesOnce(t *testing.T) {
	repo := newSubscriptionRepoStub()
	userID := uuid.New()
	repo.subscriptions[userID] = &domain.Subscription{UserID: userID, Type: domain.SubscriptionTypePremium}
	repo.payments["tx-1"] = &domain.Payment{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: "tx-1",
		Status:        domain.PaymentStatusPending,
	}
	service := NewSubscriptionService(repo, &gatewayStub{}, nil, 30, 15)

	if err := service.HandleSettlement(context.Background(), "tx-1", domain.PaymentStatusSuccessful); err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	firstExpiry := *repo.subscriptions[userID].ExpiresAt

	// The provider redelivers the same notification.
	if err := service.HandleSettlement(context.Background(), "tx-1", domain.PaymentStatusSuccessful); err != nil {
		t.Fatalf("replay must be acknowledged, got %v", err)
	}
	if repo.activateCalls != 1 {
		t.Fatalf("expected exactly one activation, got %d", repo.activateCalls)
	}
	if !repo.subscriptions[userID].ExpiresAt.Equal(firstExpiry) {
		t.Fatal("a replay must not move the expiry window")
	}
}

func TestHandleSettlement_FailedDoesNotActivate(t *testing.T) {
	repo := newSubscriptionRepoStub()
	userID := uuid.New()
	repo.subscriptions[userID] = &domain.Subscription{UserID: userID, Type: domain.SubscriptionTypePremium}
	repo.payments["tx-2"] = &domain.Payment{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: "tx-2",
		Status:        domain.PaymentStatusPending,
	}
	service := NewSubscriptionService(repo, &gatewayStub{}, nil, 30, 15)

	if err := service.HandleSettlement(context.Background(), "tx-2", domain.PaymentStatusFailed); err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if repo.activateCalls != 0 {
		t.Fatal("a failed payment must never activate the subscription")
	}
	if repo.payments["tx-2"].Status != domain.PaymentStatusFailed {
		t.Fatalf("expected FAILED payment, got %s", repo.payments["tx-2"].Status)
	}
}

func TestHandleSettlement_UnknownTransactionIsNotFound(t *testing.T) {
	service := NewSubscriptionService(newSubscriptionRepoStub(), &gatewayStub{}, nil, 30, 15)

	err := service.HandleSettlement(context.Background(), "missing", domain.PaymentStatusSuccessful)
	if !errors.Is(err, store.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestHandleSettlement_RejectsNonTerminalStatus(t *testing.T) {
	service := NewSubscriptionService(newSubscriptionRepoStub(), &gatewayStub{}, nil, 30, 15)

	err := service.HandleSettlement(context.Background(), "tx", domain.PaymentStatusPending)
	if !errors.Is(err, ErrInvalidSettlementStatus) {
		t.Fatalf("expected ErrInvalidSettlementStatus, got %v", err)
	}
}

func TestReconcilePayment_PendingPollsAndSettles(t *testing.T) {
	repo := newSubscriptionRepoStub()
	userID := uuid.New()
	repo.subscriptions[userID] = &domain.Subscription{UserID: userID, Type: domain.SubscriptionTypePremium}
	repo.payments["tx-3"] = &domain.Payment{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: "tx-3",
		Status:        domain.PaymentStatusPending,
	}
	service := NewSubscriptionService(repo, &gatewayStub{pollStatus: domain.PaymentStatusSuccessful}, nil, 30, 15)

	payment, err := service.ReconcilePayment(context.Background(), "tx-3")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusSuccessful {
		t.Fatalf("expected SUCCESSFUL after reconcile, got %s", payment.Status)
	}
	if repo.activateCalls != 1 {
		t.Fatal("expected the reconcile to activate the subscription")
	}
}

func TestReconcilePayment_TerminalPaymentSkipsGateway(t *testing.T) {
	repo := newSubscriptionRepoStub()
	repo.payments["tx-4"] = &domain.Payment{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TransactionID: "tx-4",
		Status:        domain.PaymentStatusSuccessful,
	}
	gateway := &gatewayStub{pollErr: errors.New("gateway must not be called")}
	service := NewSubscriptionService(repo, gateway, nil, 30, 15)

	payment, err := service.ReconcilePayment(context.Background(), "tx-4")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusSuccessful {
		t.Fatalf("unexpected status %s", payment.Status)
	}
}

func TestReconcilePayment_StillPendingLeavesPaymentUntouched(t *testing.T) {
	repo := newSubscriptionRepoStub()
	repo.payments["tx-5"] = &domain.Payment{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		TransactionID: "tx-5",
		Status:        domain.PaymentStatusPending,
	}
	service := NewSubscriptionService(repo, &gatewayStub{pollStatus: domain.PaymentStatusPending}, nil, 30, 15)

	payment, err := service.ReconcilePayment(context.Background(), "tx-5")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected payment to stay PENDING, got %s", payment.Status)
	}
}

// End-to-end flow across the engines: an unsubscribed, unmatched user cannot
// message; after payment settles, the same send succeeds with no match id.
func TestSubscriptionUnlocksMessaging(t *testing.T) {
	subRepo := newSubscriptionRepoStub()
	gateway := &gatewayStub{accepted: true}
	subscriptions := NewSubscriptionService(subRepo, gateway, nil, 30, 15)

	msgRepo := &messageRepoStub{}
	messages := NewMessageService(msgRepo, newMemoryCache(), subscriptions)

	sender, recipient := uuid.New(), uuid.New()

	if _, err := messages.SendMessage(context.Background(), sender, recipient, "hi"); !errors.Is(err, ErrMessagingNotAllowed) {
		t.Fatalf("expected denial before subscribing, got %v", err)
	}

	result, err := subscriptions.Initiate(context.Background(), sender, domain.SubscriptionTypePremium, "233540000000", 500, "EUR")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if err := subscriptions.HandleSettlement(context.Background(), result.Payment.TransactionID, domain.PaymentStatusSuccessful); err != nil {
		t.Fatalf("settlement failed: %v", err)
	}

	message, err := messages.SendMessage(context.Background(), sender, recipient, "hi again")
	if err != nil {
		t.Fatalf("expected send to succeed after activation, got %v", err)
	}
	if message.MatchID != nil {
		t.Fatal("expected nil match id for a subscription-gated send")
	}
}
