/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the SQL queries for swipes, matches, messages, subscriptions,
 * and payments.
 *
 * @notes
 * - Uniqueness constraints are the only concurrency guard in this service: the
 *   `swipes` table has UNIQUE (from_user_id, to_user_id) and the `matches`
 *   table has a unique expression index on
 *   (LEAST(user1_id, user2_id), GREATEST(user1_id, user2_id)). The engine may
 *   run as multiple replicas, so no in-process locking is attempted; a losing
 *   insert surfaces as a 23505 and is translated to a sentinel the service
 *   layer converts into a lookup.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/elixir/matchmaking-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrSwipeExists          = errors.New("swipe already exists")
	ErrSwipeNotFound        = errors.New("swipe not found")
	ErrMatchExists          = errors.New("match already exists")
	ErrMatchNotFound        = errors.New("match not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPaymentExists        = errors.New("payment already exists")
	ErrPaymentNotFound      = errors.New("payment not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindUserByID retrieves the minimal user view needed to validate a swipe
// target: existence, verification, and whether a profile has been completed.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT u.id, u.email, u.is_verified, (p.user_id IS NOT NULL) AS has_profile
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Email, &user.IsVerified, &user.HasProfile)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateSwipe inserts a new swipe row. The UNIQUE (from_user_id, to_user_id)
// constraint turns a duplicate attempt into ErrSwipeExists.
func (r *PostgresRepository) CreateSwipe(ctx context.Context, swipe *domain.Swipe) error {
	query := `
		INSERT INTO swipes (id, from_user_id, to_user_id, is_like, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, swipe.ID, swipe.FromUserID, swipe.ToUserID, swipe.IsLike, swipe.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSwipeExists
		}
		return err
	}
	return nil
}

// FindSwipe retrieves the swipe for an ordered (from, to) pair.
func (r *PostgresRepository) FindSwipe(ctx context.Context, fromUserID, toUserID uuid.UUID) (*domain.Swipe, error) {
	var swipe domain.Swipe
	query := `
		SELECT id, from_user_id, to_user_id, is_like, created_at
		FROM swipes
		WHERE from_user_id = $1 AND to_user_id = $2
	`
	err := r.db.QueryRow(ctx, query, fromUserID, toUserID).Scan(
		&swipe.ID, &swipe.FromUserID, &swipe.ToUserID, &swipe.IsLike, &swipe.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSwipeNotFound
		}
		return nil, err
	}
	return &swipe, nil
}

// FindReciprocalLike looks up a positive swipe in the opposite direction,
// i.e. Swipe(to→from, is_like=true). Used by the reciprocity check.
func (r *PostgresRepository) FindReciprocalLike(ctx context.Context, fromUserID, toUserID uuid.UUID) (*domain.Swipe, error) {
	var swipe domain.Swipe
	query := `
		SELECT id, from_user_id, to_user_id, is_like, created_at
		FROM swipes
		WHERE from_user_id = $1 AND to_user_id = $2 AND is_like = TRUE
	`
	err := r.db.QueryRow(ctx, query, toUserID, fromUserID).Scan(
		&swipe.ID, &swipe.FromUserID, &swipe.ToUserID, &swipe.IsLike, &swipe.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSwipeNotFound
		}
		return nil, err
	}
	return &swipe, nil
}

// ListLikesByUser returns all positive swipes sent by (received=false) or
// received by (received=true) the given user, newest first.
func (r *PostgresRepository) ListLikesByUser(ctx context.Context, userID uuid.UUID, received bool) ([]domain.Swipe, error) {
	column := "from_user_id"
	if received {
		column = "to_user_id"
	}
	query := `
		SELECT id, from_user_id, to_user_id, is_like, created_at
		FROM swipes
		WHERE ` + column + ` = $1 AND is_like = TRUE
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	swipes := []domain.Swipe{}
	for rows.Next() {
		var swipe domain.Swipe
		if err := rows.Scan(&swipe.ID, &swipe.FromUserID, &swipe.ToUserID, &swipe.IsLike, &swipe.CreatedAt); err != nil {
			return nil, err
		}
		swipes = append(swipes, swipe)
	}
	return swipes, rows.Err()
}

// CreateMatch inserts a new match row with the slots in caller order. The
// unique index on the unordered pair turns a concurrent duplicate into
// ErrMatchExists so the caller can re-read the winning row.
func (r *PostgresRepository) CreateMatch(ctx context.Context, match *domain.Match) error {
	query := `
		INSERT INTO matches (id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, match.ID, match.User1ID, match.User2ID, match.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrMatchExists
		}
		return err
	}
	return nil
}

// FindMatchByUserPair retrieves the match for an unordered user pair, checking
// both slot orderings since slots are not canonicalized.
func (r *PostgresRepository) FindMatchByUserPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Match, error) {
	var match domain.Match
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM matches
		WHERE (user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1)
	`
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(
		&match.ID, &match.User1ID, &match.User2ID, &match.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

// ListMatchesByUser returns every match the user participates in, newest first.
func (r *PostgresRepository) ListMatchesByUser(ctx context.Context, userID uuid.UUID) ([]domain.Match, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM matches
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []domain.Match{}
	for rows.Next() {
		var match domain.Match
		if err := rows.Scan(&match.ID, &match.User1ID, &match.User2ID, &match.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// CreateMessage inserts a new message row.
func (r *PostgresRepository) CreateMessage(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, match_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		message.ID, message.SenderID, message.RecipientID, message.MatchID, message.Content, message.SentAt,
	)
	return err
}

// FindMessagesBetweenUsers returns all messages exchanged between two users
// in either direction, oldest first. Ties on sent_at break on id so that
// ordering stays deterministic for pagination and tests.
func (r *PostgresRepository) FindMessagesBetweenUsers(ctx context.Context, userA, userB uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, match_id, content, sent_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY sent_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// FindMessagesInvolvingUser returns every message the user sent or received,
// newest first. The aggregate conversations view groups these by conversation
// key while preserving this order within each group.
func (r *PostgresRepository) FindMessagesInvolvingUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, match_id, content, sent_at
		FROM messages
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY sent_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	messages := []domain.Message{}
	for rows.Next() {
		var message domain.Message
		if err := rows.Scan(
			&message.ID, &message.SenderID, &message.RecipientID, &message.MatchID, &message.Content, &message.SentAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// FindSubscriptionByUserID retrieves a user's subscription row.
func (r *PostgresRepository) FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
		SELECT user_id, type, active, expires_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.UserID, &sub.Type, &sub.Active, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscriptionIntent creates or updates the user's subscription row with
// the requested tier and active=false. This records intent only; a still
// pending subscription must never be treated as an entitlement.
func (r *PostgresRepository) UpsertSubscriptionIntent(ctx context.Context, userID uuid.UUID, subscriptionType string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
		INSERT INTO subscriptions (user_id, type, active, created_at, updated_at)
		VALUES ($1, $2, FALSE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET type = EXCLUDED.type, active = FALSE, updated_at = NOW()
		RETURNING user_id, type, active, expires_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, userID, subscriptionType).Scan(
		&sub.UserID, &sub.Type, &sub.Active, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActivateSubscription flips the user's subscription to active with a fresh
// expiry window. Re-running it for an already-active row re-sets the same
// forward window, which is the accepted idempotent-extension behavior.
func (r *PostgresRepository) ActivateSubscription(ctx context.Context, userID uuid.UUID, expiresAt time.Time) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
		UPDATE subscriptions
		SET active = TRUE, expires_at = $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING user_id, type, active, expires_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, userID, expiresAt).Scan(
		&sub.UserID, &sub.Type, &sub.Active, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// CreatePayment inserts a new payment row. The provider-issued transaction id
// is unique; a duplicate insert surfaces as ErrPaymentExists.
func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, transaction_id, amount, currency, status, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		payment.ID, payment.UserID, payment.TransactionID, payment.Amount,
		payment.Currency, payment.Status, payment.PaymentMethod, payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPaymentExists
		}
		return err
	}
	return nil
}

// FindPaymentByTransactionID retrieves a payment by its provider transaction id.
func (r *PostgresRepository) FindPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	var payment domain.Payment
	query := `
		SELECT id, user_id, transaction_id, amount, currency, status, payment_method, created_at
		FROM payments
		WHERE transaction_id = $1
	`
	err := r.db.QueryRow(ctx, query, transactionID).Scan(
		&payment.ID, &payment.UserID, &payment.TransactionID, &payment.Amount,
		&payment.Currency, &payment.Status, &payment.PaymentMethod, &payment.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// SettlePayment applies the PENDING→terminal status transition as a guarded
// compare-and-set. The WHERE clause only matches a PENDING row, so a repeated
// settlement delivery finds zero rows to update and reports applied=false
// rather than an error. An unknown transaction id is ErrPaymentNotFound; no
// speculative rows are ever created here.
func (r *PostgresRepository) SettlePayment(ctx context.Context, transactionID, status string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2
		WHERE transaction_id = $1 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, transactionID, status, domain.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing transitioned: distinguish a replayed delivery from an unknown id.
	var existing string
	err = r.db.QueryRow(ctx, `SELECT status FROM payments WHERE transaction_id = $1`, transactionID).Scan(&existing)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrPaymentNotFound
		}
		return false, err
	}
	return false, nil
}
