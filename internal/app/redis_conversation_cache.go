/**
 * @description
 * Redis-backed implementation of the ConversationCache interface. Entries are
 * written without a TTL: they live until the single writer for the key
 * overwrites or deletes them, matching the persistence-until-invalidation
 * semantics the message service relies on.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: The Redis client library.
 */

package app

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisConversationCache implements ConversationCache on top of Redis.
type RedisConversationCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisConversationCache creates a cache backed by the given Redis client.
// All keys are namespaced under the prefix to keep the keyspace shareable
// with other services on the same Redis instance.
func NewRedisConversationCache(client redis.UniversalClient, prefix string) *RedisConversationCache {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "matchmaking"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisConversationCache{
		client: client,
		prefix: trimmedPrefix,
	}
}

func (c *RedisConversationCache) namespaced(key string) string {
	return c.prefix + ":" + key
}

// Get returns the cached value for key, or ErrCacheMiss when absent.
func (c *RedisConversationCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.namespaced(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key with no expiration.
func (c *RedisConversationCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.namespaced(key), value, 0).Err()
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (c *RedisConversationCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.namespaced(key)).Err()
}
