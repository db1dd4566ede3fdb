package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis dials addr and pings it
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

// RedisPublisher broadcasts events on a Redis pub/sub channel
type RedisPublisher struct {
	r       *redis.Client
	channel string
}

// NewRedisPublisher publishes on channel through r
func NewRedisPublisher(r *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{r: r, channel: channel}
}

// Publish sends e as JSON to the channel
func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.r.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
