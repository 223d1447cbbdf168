package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPending keeps pending actions in Redis with a key TTL, so they survive
// restarts and are shared between bot replicas.
type RedisPending struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisPending creates a Redis-backed store scoped to one giveaway code
func NewRedisPending(client redis.Cmdable, code string, ttl time.Duration) *RedisPending {
	return &RedisPending{
		client: client,
		prefix: fmt.Sprintf("giveaway:%s:pending:", code),
		ttl:    ttl,
	}
}

func (p *RedisPending) key(adminID int64) string {
	return fmt.Sprintf("%s%d", p.prefix, adminID)
}

func (p *RedisPending) Arm(ctx context.Context, adminID int64, action PendingAction) error {
	if err := p.client.Set(ctx, p.key(adminID), string(action), p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to arm pending action: %w", err)
	}
	return nil
}

func (p *RedisPending) Take(ctx context.Context, adminID int64) (PendingAction, bool, error) {
	v, err := p.client.GetDel(ctx, p.key(adminID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to take pending action: %w", err)
	}
	return PendingAction(v), true, nil
}

// OpenRedis creates a Redis client and pings it to validate the connection
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
