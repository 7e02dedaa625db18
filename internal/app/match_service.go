/**
 * @description
 * This file contains the match engine: swipe recording with its reciprocity
 * check, and idempotent match creation for an unordered user pair.
 *
 * @notes
 * - Swipe uniqueness and match-pair uniqueness are enforced by database
 *   constraints, not in-process locks. The service may run as multiple
 *   replicas, so when two reciprocal swipes arrive at the same instant both
 *   handlers may call CreateOrGetMatch concurrently; exactly one insert wins
 *   and the loser re-reads and returns the winner's row.
 * - Business outcomes (duplicate swipe, existing match) are reported as
 *   sentinel errors or tagged results, never as faults: callers must be able
 *   to distinguish "the answer is no" from "the operation could not run".
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Best-effort match.created notification events.
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
	"github.com/elixir/matchmaking-service/pkg/rabbitmq"
	"github.com/google/uuid"
)

var (
	// ErrSelfSwipe is returned when a user attempts to swipe on themselves.
	ErrSelfSwipe = errors.New("cannot swipe on yourself")
	// ErrSwipeTargetInvalid is returned when the swipe target does not exist,
	// is not verified, or has not completed a profile.
	ErrSwipeTargetInvalid = errors.New("swipe target does not exist, is not verified, or has no profile")
)

// MatchService provides the business logic for swipes and matches.
type MatchService struct {
	repo   store.Repository
	events rabbitmq.Publisher
}

// NewMatchService creates a new match service.
func NewMatchService(repo store.Repository, events rabbitmq.Publisher) *MatchService {
	return &MatchService{repo: repo, events: events}
}

// ValidateSwipeTarget checks that the target user exists, is verified, and
// has a completed profile. This runs at the API boundary before RecordSwipe;
// the swipe path itself does not re-validate.
func (s *MatchService) ValidateSwipeTarget(ctx context.Context, toUserID uuid.UUID) error {
	user, err := s.repo.FindUserByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrSwipeTargetInvalid
		}
		return fmt.Errorf("lookup swipe target: %w", err)
	}
	if !user.IsVerified || !user.HasProfile {
		return ErrSwipeTargetInvalid
	}
	return nil
}

// RecordSwipe persists a swipe and runs the reciprocity check. A duplicate
// swipe for the same ordered pair surfaces store.ErrSwipeExists unchanged so
// the API layer can report a conflict; no second row is ever written. When
// the swipe is a like and the reverse like already exists, the match is
// created (or fetched, if the other side's handler won the race) and returned
// alongside the swipe.
func (s *MatchService) RecordSwipe(ctx context.Context, fromUserID, toUserID uuid.UUID, isLike bool) (*domain.SwipeResult, error) {
	if fromUserID == toUserID {
		return nil, ErrSelfSwipe
	}

	swipe := &domain.Swipe{
		ID:         uuid.New(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		IsLike:     isLike,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateSwipe(ctx, swipe); err != nil {
		if errors.Is(err, store.ErrSwipeExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create swipe: %w", err)
	}

	result := &domain.SwipeResult{Swipe: swipe}
	if !isLike {
		return result, nil
	}

	_, err := s.repo.FindReciprocalLike(ctx, fromUserID, toUserID)
	if err != nil {
		if errors.Is(err, store.ErrSwipeNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("reciprocity check: %w", err)
	}

	matchResult, err := s.CreateOrGetMatch(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, err
	}
	result.Match = matchResult.Match
	return result, nil
}

// CreateOrGetMatch returns the match for an unordered user pair, creating it
// if absent. Calling it any number of times, in either argument order, never
// creates a second row: the lookup-then-insert is guarded by the store's
// uniqueness constraint on the unordered pair, and a losing insert converts
// into a lookup of the winner's row.
func (s *MatchService) CreateOrGetMatch(ctx context.Context, userA, userB uuid.UUID) (*domain.MatchResult, error) {
	existing, err := s.repo.FindMatchByUserPair(ctx, userA, userB)
	if err == nil {
		return &domain.MatchResult{Match: existing, Created: false}, nil
	}
	if !errors.Is(err, store.ErrMatchNotFound) {
		return nil, fmt.Errorf("lookup match: %w", err)
	}

	match := &domain.Match{
		ID:        uuid.New(),
		User1ID:   userA,
		User2ID:   userB,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateMatch(ctx, match); err != nil {
		if errors.Is(err, store.ErrMatchExists) {
			// Lost the insert race against the other side's swipe handler;
			// return the row that won.
			winner, lookupErr := s.repo.FindMatchByUserPair(ctx, userA, userB)
			if lookupErr != nil {
				return nil, fmt.Errorf("lookup match after conflict: %w", lookupErr)
			}
			return &domain.MatchResult{Match: winner, Created: false}, nil
		}
		return nil, fmt.Errorf("create match: %w", err)
	}

	s.publishMatchCreated(ctx, match)
	return &domain.MatchResult{Match: match, Created: true}, nil
}

// ListUserLikes returns the positive swipes the user has sent, or received
// when received is true.
func (s *MatchService) ListUserLikes(ctx context.Context, userID uuid.UUID, received bool) ([]domain.Swipe, error) {
	likes, err := s.repo.ListLikesByUser(ctx, userID, received)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return likes, nil
}

// ListUserMatches returns every match the user participates in, newest first.
func (s *MatchService) ListUserMatches(ctx context.Context, userID uuid.UUID) ([]domain.Match, error) {
	matches, err := s.repo.ListMatchesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// publishMatchCreated emits a best-effort notification event. Event delivery
// never affects the outcome of the match operation itself.
func (s *MatchService) publishMatchCreated(ctx context.Context, match *domain.Match) {
	if s.events == nil {
		return
	}
	event := rabbitmq.MatchCreatedEvent{
		MatchID:   match.ID,
		User1ID:   match.User1ID,
		User2ID:   match.User2ID,
		Timestamp: match.CreatedAt,
	}
	if err := s.events.PublishMatchCreated(ctx, event); err != nil {
		log.Printf("level=warn component=match_service msg=\"match.created publish failed\" match_id=%s err=%v", match.ID, err)
	}
}
