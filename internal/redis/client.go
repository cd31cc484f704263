package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// LeaderboardKey is the cache key for one challenge's leaderboard view.
func LeaderboardKey(challengeID int64, period string) string {
	return fmt.Sprintf("leaderboard:%d:%s", challengeID, period)
}

// LeaderboardPattern matches every cached leaderboard view of a challenge,
// used for invalidation after score writes.
func LeaderboardPattern(challengeID int64) string {
	return fmt.Sprintf("leaderboard:%d:*", challengeID)
}
