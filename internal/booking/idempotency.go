package booking

import (
	"context"
	"errors"
	"time"

	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix  = "idem:booking:"
	idempotencyPending = "pending"
)

// Idempotency remembers which booking a client request key produced, so a
// resubmitted form returns the first booking instead of taking more seats.
type Idempotency interface {
	// Claim reserves key. When the key already finished, it returns the
	// booking id it produced and claimed=false.
	Claim(ctx context.Context, key string) (bookingID string, claimed bool, err error)
	Complete(ctx context.Context, key, bookingID string) error
	Release(ctx context.Context, key string)
}

type RedisIdempotency struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotency{client: client, ttl: ttl}
}

func (r *RedisIdempotency) Claim(ctx context.Context, key string) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyPrefix+key, idempotencyPending, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	val, err := r.client.Get(ctx, idempotencyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return r.Claim(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	if val == idempotencyPending {
		return "", false, apperr.Conflict("booking", "a request with this idempotency key is still in progress")
	}
	return val, false, nil
}

func (r *RedisIdempotency) Complete(ctx context.Context, key, bookingID string) error {
	return r.client.Set(ctx, idempotencyPrefix+key, bookingID, r.ttl).Err()
}

func (r *RedisIdempotency) Release(ctx context.Context, key string) {
	_ = r.client.Del(ctx, idempotencyPrefix+key).Err()
}
