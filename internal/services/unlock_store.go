package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-gate/internal/status"
	"wedding-gate/utils"
)

// RedisUnlockStore keeps one key per identity that completed the review gate.
// Keys carry no TTL; only an operator may remove them.
type RedisUnlockStore struct {
	Redis   *redis.Client
	breaker *utils.CircuitBreaker
	log     zerolog.Logger
}

func NewRedisUnlockStore(redisClient *redis.Client, breaker *utils.CircuitBreaker, logger zerolog.Logger) *RedisUnlockStore {
	if breaker == nil {
		breaker = utils.NewCircuitBreaker("unlock-store")
	}
	return &RedisUnlockStore{
		Redis:   redisClient,
		breaker: breaker,
		log:     utils.Component(logger, "unlock-store"),
	}
}

func unlockKey(identityKey string) string {
	return fmt.Sprintf("review:unlocked:%s", identityKey)
}

func (s *RedisUnlockStore) Get(ctx context.Context, identityKey string) (bool, error) {
	result, err := s.breaker.Execute(ctx, func() (any, error) {
		val, err := s.Redis.Get(ctx, unlockKey(identityKey)).Result()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return val == "1", nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %v", status.ErrStoreUnavailable, identityKey, err)
	}
	return result.(bool), nil
}

func (s *RedisUnlockStore) Set(ctx context.Context, identityKey string) error {
	_, err := s.breaker.Execute(ctx, func() (any, error) {
		return nil, s.Redis.Set(ctx, unlockKey(identityKey), "1", 0).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", status.ErrStoreUnavailable, identityKey, err)
	}
	s.log.Debug().Str("identity", identityKey).Msg("unlock record written")
	return nil
}
