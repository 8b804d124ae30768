package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-mongoliatrails/internal/shared/apperr"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestRedisIdempotencyLifecycle(t *testing.T) {
	s, client := newRedis(t)
	idem := NewRedisIdempotency(client, time.Hour)
	ctx := context.Background()

	id, claimed, err := idem.Claim(ctx, "u1:k1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, id)

	_, _, err = idem.Claim(ctx, "u1:k1")
	assert.True(t, apperr.IsConflict(err), "in-flight key must conflict")

	require.NoError(t, idem.Complete(ctx, "u1:k1", "booking-1"))
	id, claimed, err = idem.Claim(ctx, "u1:k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "booking-1", id)

	ttl := s.TTL(idempotencyPrefix + "u1:k1")
	assert.Equal(t, time.Hour, ttl)

	s.FastForward(2 * time.Hour)
	_, claimed, err = idem.Claim(ctx, "u1:k1")
	require.NoError(t, err)
	assert.True(t, claimed, "expired key can be claimed again")
}

func TestRedisIdempotencyRelease(t *testing.T) {
	_, client := newRedis(t)
	idem := NewRedisIdempotency(client, 0)
	ctx := context.Background()

	_, claimed, err := idem.Claim(ctx, "k")
	require.NoError(t, err)
	require.True(t, claimed)

	idem.Release(ctx, "k")
	_, claimed, err = idem.Claim(ctx, "k")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestCreateBookingReplaysIdempotentRequest(t *testing.T) {
	_, client := newRedis(t)
	svc, store, _ := newFixture(t, WithIdempotency(NewRedisIdempotency(client, time.Hour)))

	in := request("d1", 2)
	in.IdempotencyKey = "form-42"
	first, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	second, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, store.booked("gobi", "d1"))

	// the key is scoped per user
	other := in
	other.UserID = "u2"
	third, err := svc.CreateBooking(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 4, store.booked("gobi", "d1"))
}

func TestCreateBookingReleasesKeyOnFailure(t *testing.T) {
	_, client := newRedis(t)
	svc, store, _ := newFixture(t, WithIdempotency(NewRedisIdempotency(client, time.Hour)))

	in := request("d1", 11)
	in.IdempotencyKey = "retry-me"
	_, err := svc.CreateBooking(context.Background(), in)
	require.ErrorIs(t, err, ErrNoSeats)

	in.Travelers = 1
	b, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 1, store.booked("gobi", "d1"))
}

type lostCompletion struct {
	*RedisIdempotency
}

func (lostCompletion) Complete(context.Context, string, string) error {
	return errors.New("connection reset")
}

func TestCreateBookingReleasesKeyWhenCompleteFails(t *testing.T) {
	s, client := newRedis(t)
	svc, store, _ := newFixture(t, WithIdempotency(lostCompletion{NewRedisIdempotency(client, time.Hour)}))

	in := request("d1", 1)
	in.IdempotencyKey = "flaky"
	first, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, s.Exists(idempotencyPrefix+in.UserID+":flaky"))

	second, err := svc.CreateBooking(context.Background(), in)
	require.NoError(t, err, "retry must not be stuck behind a pending key")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, store.booked("gobi", "d1"))
}

func TestCreateBookingWorksWhenRedisIsDown(t *testing.T) {
	s, client := newRedis(t)
	svc, _, _ := newFixture(t, WithIdempotency(NewRedisIdempotency(client, time.Hour)))
	s.Close()

	in := request("d1", 1)
	in.IdempotencyKey = "k"
	_, err := svc.CreateBooking(context.Background(), in)
	assert.NoError(t, err)
}
