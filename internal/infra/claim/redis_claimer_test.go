package claim

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisClaimer_ClaimIsExclusive(t *testing.T) {
	mr, client := setupRedis(t)
	claimer := NewRedisClaimer(client, 10*time.Minute)
	ctx := context.Background()

	ok, err := claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "second claim on the same discount must fail")

	ok, err = claimer.Claim(ctx, 43)
	require.NoError(t, err)
	assert.True(t, ok, "other discounts are independent")

	assert.True(t, mr.Exists("discount_reminder:claim:42"))
	assert.Equal(t, 10*time.Minute, mr.TTL("discount_reminder:claim:42"))
}

func TestRedisClaimer_Release(t *testing.T) {
	mr, client := setupRedis(t)
	claimer := NewRedisClaimer(client, time.Minute)
	ctx := context.Background()

	_, err := claimer.Claim(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, claimer.Release(ctx, 7))
	assert.False(t, mr.Exists("discount_reminder:claim:7"))

	ok, err := claimer.Claim(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClaimer_ClaimExpires(t *testing.T) {
	mr, client := setupRedis(t)
	claimer := NewRedisClaimer(client, time.Minute)
	ctx := context.Background()

	_, err := claimer.Claim(ctx, 9)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := claimer.Claim(ctx, 9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisClaimer_ServerDown(t *testing.T) {
	mr, client := setupRedis(t)
	claimer := NewRedisClaimer(client, time.Minute)
	mr.Close()

	ok, err := claimer.Claim(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), mr.Addr(), "", 0)
	assert.Error(t, err)
}
