package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient creates and pings a Redis client with optional password auth.
func NewClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
