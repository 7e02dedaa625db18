/**
 * @description
 * This file defines the domain models for subscriptions and payments. A
 * subscription row marks a user's premium tier; a payment row tracks one
 * mobile-money collection request from initiation (PENDING) to settlement
 * (SUCCESSFUL or FAILED).
 *
 * @notes
 * - A subscription row is upserted with active=false at initiation time and
 *   only flipped to active by a successful settlement. The stored active
 *   flag alone is never trusted: activity is always re-derived against
 *   expires_at at read time.
 * - A payment's transaction_id is issued by the payment provider and is
 *   unique; the PENDING→terminal transition is applied at most once no
 *   matter how often the provider re-delivers the settlement notification.
 * - Amounts are stored as int64 in the smallest currency unit, following the
 *   convention used across our services.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tiers.
const (
	SubscriptionTypePremium     = "PREMIUM"
	SubscriptionTypePremiumPlus = "PREMIUM_PLUS"
)

// Payment statuses. PENDING is the only non-terminal state.
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusSuccessful = "SUCCESSFUL"
	PaymentStatusFailed     = "FAILED"
)

// PaymentMethodMomo is the payment method recorded for MTN MoMo collections.
const PaymentMethodMomo = "MOMO"

// Subscription represents a user's premium subscription. Maps to the
// `subscriptions` table; one row per user.
type Subscription struct {
	UserID    uuid.UUID  `json:"user_id"`
	Type      string     `json:"type"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Payment represents one collection request against the payment provider.
// Maps to the `payments` table.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubscriptionStatus is the derived activity view used to gate messaging.
// IsActive is recomputed on every check as active && expires_at > now; an
// expired row reports inactive regardless of its stored flag.
type SubscriptionStatus struct {
	IsActive  bool       `json:"is_active"`
	Type      string     `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// InitiateSubscriptionRequest is the DTO for subscription purchase requests.
type InitiateSubscriptionRequest struct {
	Type        string `json:"type"`
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

// InitiateSubscriptionResult bundles the rows written by a successful
// initiation: the PENDING payment and the not-yet-active subscription.
type InitiateSubscriptionResult struct {
	Subscription *Subscription `json:"subscription"`
	Payment      *Payment      `json:"payment"`
}

// SettlementNotification is the webhook payload delivered by the payment
// provider. Field names match the provider's JSON exactly.
type SettlementNotification struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}
