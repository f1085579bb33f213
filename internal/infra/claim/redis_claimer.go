package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "discount_reminder:claim:"

// RedisClaimer holds a short-lived Redis key per discount while a reminder
// is being sent, so only one process e-mails a given discount at a time.
type RedisClaimer struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisClaimer(client redis.Cmdable, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func claimKey(discountID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, discountID)
}

// Claim sets the discount's key if absent. The key expires after the TTL so
// a crashed run never blocks a discount for good.
func (c *RedisClaimer) Claim(ctx context.Context, discountID int64) (bool, error) {
	ok, err := c.client.SetNX(ctx, claimKey(discountID), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim discount %d: %w", discountID, err)
	}
	return ok, nil
}

func (c *RedisClaimer) Release(ctx context.Context, discountID int64) error {
	if err := c.client.Del(ctx, claimKey(discountID)).Err(); err != nil {
		return fmt.Errorf("release discount %d: %w", discountID, err)
	}
	return nil
}
