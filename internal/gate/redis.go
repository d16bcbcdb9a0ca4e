package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Nonce expiry rides on Redis
// TTLs, so the single-active-nonce invariant is one SET per issue.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) nonceKey(userID string) string {
	return s.prefix + ":nonce:" + userID
}

func (s *RedisStore) verifiedKey(userID string) string {
	return s.prefix + ":verified:" + userID
}

func (s *RedisStore) PutNonce(ctx context.Context, userID, nonce string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.nonceKey(userID), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("redis put nonce: %w", err)
	}
	return nil
}

func (s *RedisStore) GetNonce(ctx context.Context, userID string) (string, bool, error) {
	res, err := s.client.Get(ctx, s.nonceKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get nonce: %w", err)
	}
	return res, true, nil
}

func (s *RedisStore) DeleteNonce(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.nonceKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete nonce: %w", err)
	}
	return nil
}

func (s *RedisStore) SetVerified(ctx context.Context, userID, wallet string) error {
	if err := s.client.Set(ctx, s.verifiedKey(userID), wallet, 0).Err(); err != nil {
		return fmt.Errorf("redis set verified: %w", err)
	}
	return nil
}

func (s *RedisStore) Verified(ctx context.Context, userID string) (string, bool, error) {
	res, err := s.client.Get(ctx, s.verifiedKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get verified: %w", err)
	}
	return res, true, nil
}
