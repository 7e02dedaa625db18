/**
 * @description
 * This file defines the `ConversationCache` interface: the contract for the
 * fast key/value store that accelerates conversation reads. The cache is an
 * injected capability with get/set/delete over string values and no implicit
 * TTL; all invalidation is explicit and every key has exactly one writer
 * (the message service).
 */

package app

import (
	"context"
	"errors"
	"log"
)

// ErrCacheMiss is returned by Get when the key has no cached entry.
var ErrCacheMiss = errors.New("cache entry not found")

// ConversationCache is the fast-store capability used by the message service.
// Entries persist until explicitly overwritten or deleted; the durable store
// remains authoritative and every entry must be reconstructible from it.
type ConversationCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// NoopConversationCache is a fallback used when Redis is unavailable at
// startup. Every read misses, so all traffic falls through to the durable
// store and the service stays correct, just slower.
type NoopConversationCache struct{}

func (NoopConversationCache) Get(ctx context.Context, key string) (string, error) {
	return "", ErrCacheMiss
}

func (NoopConversationCache) Set(ctx context.Context, key, value string) error {
	log.Printf("level=debug component=conversation_cache mode=fallback msg=\"set skipped\" key=%s", key)
	return nil
}

func (NoopConversationCache) Delete(ctx context.Context, key string) error {
	return nil
}
