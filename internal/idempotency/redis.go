package idempotency

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
)

// RedisStore implements Store on Redis so the guard holds across instances.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects a guard to Redis.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func key(reference string) string {
	return fmt.Sprintf("payment:ref:%s", reference)
}

// Claim uses SET NX so the check and the claim are one atomic step.
func (r *RedisStore) Claim(ctx context.Context, reference string) (bool, error) {
	set, err := r.client.SetNX(ctx, key(reference), statusInProgress, InProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: redis SETNX: %w", err)
	}
	return set, nil
}

func (r *RedisStore) Complete(ctx context.Context, reference string) error {
	if err := r.client.Set(ctx, key(reference), statusCompleted, CompletedExpiry).Err(); err != nil {
		return fmt.Errorf("idempotency: redis SET: %w", err)
	}
	return nil
}

func (r *RedisStore) Release(ctx context.Context, reference string) error {
	if err := r.client.Del(ctx, key(reference)).Err(); err != nil {
		return fmt.Errorf("idempotency: redis DEL: %w", err)
	}
	return nil
}
