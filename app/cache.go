package app

import (
	"context"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/go-redis/redis/v8"
)

// NewCacheStore returns the response cache backend. An empty url keeps the
// cache in process memory.
func NewCacheStore(ctx context.Context, url string) (persist.CacheStore, error) {
	if url == "" {
		return persist.NewMemoryStore(time.Minute), nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url, %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis, %w", err)
	}

	return persist.NewRedisStore(client), nil
}
