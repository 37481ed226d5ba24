package redis

import (
	"context"
	"fmt"
	"log/slog"

	"beps/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient connects to the key-value store and verifies it with a PING.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*goredis.Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort)

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	logger.Info("redis connected", "addr", addr, "db", cfg.RedisDB)
	return client, nil
}
