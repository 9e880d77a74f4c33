package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client stores processed-event markers so redelivered events can be skipped
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// IsEventProcessed checks whether eventID was already projected
func (c *Client) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, processedKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("processed event lookup failed: %w", err)
	}
	return n > 0, nil
}

// MarkEventProcessed records eventID for the configured TTL. The first marker wins.
func (c *Client) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	if err := c.rdb.SetNX(ctx, processedKey(eventID), eventType, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func processedKey(eventID string) string {
	return fmt.Sprintf("processed-event:%s", eventID)
}
