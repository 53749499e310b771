package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedEventTTL = 24 * time.Hour

// RedisDeduplicator claims processor event ids with SET NX so webhook retries
// and queue redeliveries apply a status change once.
type RedisDeduplicator struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeduplicator(client redis.Cmdable) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, ttl: processedEventTTL}
}

func processedEventKey(eventID string) string {
	return "payment_event:" + eventID
}

func (d *RedisDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, processedEventKey(eventID), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

func (d *RedisDeduplicator) Release(ctx context.Context, eventID string) error {
	if err := d.client.Del(ctx, processedEventKey(eventID)).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
