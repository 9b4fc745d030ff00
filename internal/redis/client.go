package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"encargate/pkg/wompi"

	"github.com/go-redis/redis/v8"
)

// Client wraps redis as the acceptance-token cache, so that not every
// transaction creation pays the gateway merchant-info round trip.
type Client struct {
	rdb *redis.Client
}

const acceptanceTokensKey = "wompi:acceptance_tokens"

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) SetAcceptanceTokens(tokens *wompi.AcceptanceTokens, ttl time.Duration) error {
	ctx := context.Background()
	jsonData, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to marshal acceptance tokens: %w", err)
	}

	return c.rdb.Set(ctx, acceptanceTokensKey, jsonData, ttl).Err()
}

func (c *Client) GetAcceptanceTokens() (*wompi.AcceptanceTokens, error) {
	ctx := context.Background()
	val, err := c.rdb.Get(ctx, acceptanceTokensKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get acceptance tokens: %w", err)
	}

	var tokens wompi.AcceptanceTokens
	if err := json.Unmarshal([]byte(val), &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal acceptance tokens: %w", err)
	}

	return &tokens, nil
}

func (c *Client) DeleteAcceptanceTokens() error {
	ctx := context.Background()
	return c.rdb.Del(ctx, acceptanceTokensKey).Err()
}
