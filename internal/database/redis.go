package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the redis client backing the leaderboard cache and the
// live leaderboard pub/sub channel.
func ConnectRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required (set PITCH_REDIS_URL)")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	// Leaderboard reads spike when a competition closes; keep a couple of
	// warm connections.
	options.MinIdleConns = 2

	client := redis.NewClient(options)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("leaderboard cache unreachable: %w", err)
	}

	return client, nil
}
