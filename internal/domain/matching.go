/**
 * @description
 * This file defines the domain models for the swipe and match portion of the
 * matchmaking-service. A swipe is a unilateral like/dislike one user expresses
 * about another; a match is the bidirectional relationship created when two
 * users have liked each other.
 *
 * @notes
 * - A swipe is immutable and unique per ordered (from, to) pair; there is no
 *   update path. The database enforces this with a unique constraint.
 * - A match keeps the two user slots in the order they were supplied at
 *   creation time. Uniqueness is on the unordered pair, enforced by a unique
 *   expression index on (LEAST(user1_id, user2_id), GREATEST(user1_id, user2_id)).
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Swipe represents a single like/dislike record. Maps to the `swipes` table.
type Swipe struct {
	ID         uuid.UUID `json:"id"`
	FromUserID uuid.UUID `json:"from_user_id"`
	ToUserID   uuid.UUID `json:"to_user_id"`
	IsLike     bool      `json:"is_like"`
	CreatedAt  time.Time `json:"created_at"`
}

// Match represents a mutual-like relationship. Maps to the `matches` table.
// The user1/user2 slots reflect the order the match was created in, not any
// canonical ordering; lookups must check both orderings.
type Match struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SwipeRequest is the DTO for incoming swipe API requests. The swiping user
// is resolved from the authenticated context, never from the body.
type SwipeRequest struct {
	ToUserID uuid.UUID `json:"to_user_id"`
	IsLike   bool      `json:"is_like"`
}

// SwipeResult is the outcome of recording a swipe. Match is non-nil only when
// this swipe completed a mutual like.
type SwipeResult struct {
	Swipe *Swipe `json:"swipe"`
	Match *Match `json:"match,omitempty"`
}

// MatchResult is the outcome of a create-or-get match operation. Created is
// false when the pair was already matched and the existing row was returned.
type MatchResult struct {
	Match   *Match `json:"match"`
	Created bool   `json:"created"`
}

// User is the simplified view of a user needed by this service: enough to
// validate a swipe target. Profile and credential data live elsewhere.
type User struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"is_verified"`
	HasProfile bool      `json:"has_profile"`
}
