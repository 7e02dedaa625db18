/**
 * @description
 * This file contains the subscription settlement engine: payment initiation
 * against the mobile-money gateway, the derived subscription activity check,
 * and the idempotent settlement transition driven by provider webhooks (or
 * the reconcile poll when a webhook was lost).
 *
 * @notes
 * - Initiation writes nothing unless the gateway acknowledged the request:
 *   a rejected or timed-out call leaves no Payment or Subscription row.
 * - Settlement delivery is at-least-once. The PENDING-gated compare-and-set
 *   in the store means only the first delivery of a terminal status has any
 *   effect; replays are acknowledged as no-ops. Activation therefore runs at
 *   most once per transaction, giving a single consistent expiry window.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/momoclient: The MTN MoMo collection API client.
 * - pkg/rabbitmq: Best-effort subscription.activated notification events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/elixir/matchmaking-service/internal/store"
	"github.com/elixir/matchmaking-service/pkg/momoclient"
	"github.com/elixir/matchmaking-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

var (
	// ErrPaymentInitiationFailed is returned when the payment gateway did not
	// acknowledge a collection request. Nothing has been persisted.
	ErrPaymentInitiationFailed = errors.New("payment initiation failed")
	// ErrInvalidSubscriptionType is returned for tiers other than PREMIUM and
	// PREMIUM_PLUS.
	ErrInvalidSubscriptionType = errors.New("invalid subscription type")
	// ErrInvalidSettlementStatus is returned for webhook statuses other than
	// SUCCESSFUL and FAILED.
	ErrInvalidSettlementStatus = errors.New("invalid settlement status")
)

// PaymentGateway is the slice of the mobile-money client the subscription
// engine depends on.
type PaymentGateway interface {
	RequestPayment(ctx context.Context, amount int64, currency, phoneNumber string) (*momoclient.PaymentRequestResult, error)
	GetPaymentStatus(ctx context.Context, transactionID string) (*momoclient.PaymentStatusResult, error)
}

// SubscriptionService provides the business logic for subscription purchase
// and settlement.
type SubscriptionService struct {
	repo           store.Repository
	gateway        PaymentGateway
	events         rabbitmq.Publisher
	renewalPeriod  time.Duration
	gatewayTimeout time.Duration
}

// NewSubscriptionService creates a new subscription service. renewalDays is
// the entitlement window granted per successful settlement;
// gatewayTimeoutSeconds bounds every call to the payment gateway.
func NewSubscriptionService(repo store.Repository, gateway PaymentGateway, events rabbitmq.Publisher, renewalDays, gatewayTimeoutSeconds int) *SubscriptionService {
	if renewalDays <= 0 {
		renewalDays = 30
	}
	if gatewayTimeoutSeconds <= 0 {
		gatewayTimeoutSeconds = 15
	}
	return &SubscriptionService{
		repo:           repo,
		gateway:        gateway,
		events:         events,
		renewalPeriod:  time.Duration(renewalDays) * 24 * time.Hour,
		gatewayTimeout: time.Duration(gatewayTimeoutSeconds) * time.Second,
	}
}

// Initiate requests a mobile-money collection and, once the gateway accepts,
// records the PENDING payment and upserts the subscription with active=false.
// The subscription row marks intent, not entitlement; only settlement
// activates it.
func (s *SubscriptionService) Initiate(ctx context.Context, userID uuid.UUID, subscriptionType, phoneNumber string, amount int64, currency string) (*domain.InitiateSubscriptionResult, error) {
	if subscriptionType != domain.SubscriptionTypePremium && subscriptionType != domain.SubscriptionTypePremiumPlus {
		return nil, ErrInvalidSubscriptionType
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	request, err := s.gateway.RequestPayment(gatewayCtx, amount, currency, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiationFailed, err)
	}
	if !request.Accepted {
		return nil, ErrPaymentInitiationFailed
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		UserID:        userID,
		TransactionID: request.TransactionID,
		Amount:        amount,
		Currency:      currency,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: domain.PaymentMethodMomo,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	subscription, err := s.repo.UpsertSubscriptionIntent(ctx, userID, subscriptionType)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	log.Printf("level=info component=subscription_service msg=\"payment initiated\" user_id=%s transaction_id=%s type=%s amount=%d",
		userID, payment.TransactionID, subscriptionType, amount)

	return &domain.InitiateSubscriptionResult{Subscription: subscription, Payment: payment}, nil
}

// CheckStatus reports whether the user currently holds an active
// subscription. Activity is re-derived on every call as
// active && expires_at > now; the stored flag alone is never trusted, so an
// expired-but-flagged row reports inactive.
func (s *SubscriptionService) CheckStatus(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionStatus, error) {
	sub, err := s.repo.FindSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return &domain.SubscriptionStatus{IsActive: false}, nil
		}
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}

	isActive := sub.Active && sub.ExpiresAt != nil && sub.ExpiresAt.After(time.Now())
	return &domain.SubscriptionStatus{
		IsActive:  isActive,
		Type:      sub.Type,
		ExpiresAt: sub.ExpiresAt,
	}, nil
}

// HandleSettlement applies a provider settlement notification. Delivery is
// at-least-once, so the whole path is idempotent per transaction id: the
// store transitions PENDING→terminal at most once, a replayed delivery is a
// normal no-op ack, and an unknown transaction id is reported as not found
// without creating speculative records.
func (s *SubscriptionService) HandleSettlement(ctx context.Context, transactionID, status string) error {
	if status != domain.PaymentStatusSuccessful && status != domain.PaymentStatusFailed {
		return ErrInvalidSettlementStatus
	}

	applied, err := s.repo.SettlePayment(ctx, transactionID, status)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			return err
		}
		return fmt.Errorf("settle payment: %w", err)
	}
	if !applied {
		log.Printf("level=info component=subscription_service msg=\"settlement replay ignored\" transaction_id=%s status=%s", transactionID, status)
		return nil
	}

	if status == domain.PaymentStatusFailed {
		log.Printf("level=info component=subscription_service msg=\"payment failed\" transaction_id=%s", transactionID)
		return nil
	}

	payment, err := s.repo.FindPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("resolve payment owner: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.renewalPeriod)
	subscription, err := s.repo.ActivateSubscription(ctx, payment.UserID, expiresAt)
	if err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}

	log.Printf("level=info component=subscription_service msg=\"subscription activated\" user_id=%s transaction_id=%s expires_at=%s",
		payment.UserID, transactionID, expiresAt.Format(time.RFC3339))

	s.publishSubscriptionActivated(ctx, subscription)
	return nil
}

// ReconcilePayment covers lost webhooks: for a payment still PENDING it polls
// the gateway for the authoritative status and applies the same settlement
// transition the webhook would have. Safe to call at any time; a payment
// already terminal is returned as-is.
func (s *SubscriptionService) ReconcilePayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, err := s.repo.FindPaymentByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return payment, nil
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	providerStatus, err := s.gateway.GetPaymentStatus(gatewayCtx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("poll payment status: %w", err)
	}

	switch providerStatus.Status {
	case domain.PaymentStatusSuccessful, domain.PaymentStatusFailed:
		if err := s.HandleSettlement(ctx, transactionID, providerStatus.Status); err != nil {
			return nil, err
		}
	default:
		// Provider still reports the collection as in flight.
		return payment, nil
	}

	return s.repo.FindPaymentByTransactionID(ctx, transactionID)
}

func (s *SubscriptionService) publishSubscriptionActivated(ctx context.Context, subscription *domain.Subscription) {
	if s.events == nil || subscription == nil {
		return
	}
	event := rabbitmq.SubscriptionActivatedEvent{
		UserID:    subscription.UserID,
		Type:      subscription.Type,
		Timestamp: time.Now().UTC(),
	}
	if subscription.ExpiresAt != nil {
		event.ExpiresAt = *subscription.ExpiresAt
	}
	if err := s.events.PublishSubscriptionActivated(ctx, event); err != nil {
		log.Printf("level=warn component=subscription_service msg=\"subscription.activated publish failed\" user_id=%s err=%v", subscription.UserID, err)
	}
}
