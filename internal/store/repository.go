/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the matchmaking-service. Defining an
 * interface decouples the business logic from the PostgreSQL implementation and
 * lets the service layer be tested against stub repositories.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods. Users are owned by the profile/auth services; this
	// service only reads enough to validate swipe targets.
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// Swipe methods. CreateSwipe returns ErrSwipeExists when the ordered
	// (from, to) pair already has a row; the unique constraint is the only
	// guard, so concurrent duplicates race safely.
	CreateSwipe(ctx context.Context, swipe *domain.Swipe) error
	FindSwipe(ctx context.Context, fromUserID, toUserID uuid.UUID) (*domain.Swipe, error)
	FindReciprocalLike(ctx context.Context, fromUserID, toUserID uuid.UUID) (*domain.Swipe, error)
	ListLikesByUser(ctx context.Context, userID uuid.UUID, received bool) ([]domain.Swipe, error)

	// Match methods. CreateMatch returns ErrMatchExists when the unordered
	// pair already has a row (unique index on LEAST/GREATEST of the two
	// slots); callers convert that into a lookup of the winning row.
	CreateMatch(ctx context.Context, match *domain.Match) error
	FindMatchByUserPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, error)
	ListMatchesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Match, error)

	// Message methods.
	CreateMessage(ctx context.Context, message *domain.Message) error
	FindMessagesBetweenUsers(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error)
	FindMessagesInvolvingUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error)

	// Subscription methods. UpsertSubscriptionIntent records purchase intent
	// (active=false); ActivateSubscription is only called from the settlement
	// path after a payment reached SUCCESSFUL.
	FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
	UpsertSubscriptionIntent(ctx context.Context, userID uuid.UUID, subscriptionType string) (*domain.Subscription, error)
	ActivateSubscription(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.Subscription, error)

	// Payment methods. SettlePayment applies the PENDING→terminal transition
	// as a compare-and-set: it reports applied=false (with no error) when the
	// payment is already terminal, and ErrPaymentNotFound when the
	// transaction id is unknown.
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)
	SettlePayment(ctx context.Context, transactionID, status string) (applied bool, err error)
}
