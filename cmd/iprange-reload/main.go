package main

import (
	"context"
	"flag"
	"log"
	"time"

	"beps/internal/config"
	"beps/internal/repository/redis"

	"github.com/joho/godotenv"
)

// Asks every running server to reload its internal IP ranges.
func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "Redis timeout")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger, closeLog := config.NewLogger(&config.Config{Environment: cfg.Environment})
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	receivers, err := client.Publish(ctx, redis.IPRangeReloadChannel, time.Now().UTC().Format(time.RFC3339)).Result()
	if err != nil {
		log.Fatalf("Failed to publish reload: %v", err)
	}
	logger.Info("ip range reload published",
		"channel", redis.IPRangeReloadChannel,
		"receivers", receivers,
	)
}
