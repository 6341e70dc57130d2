package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis dials Redis and verifies the connection with a ping. Redis
// backs both the category tree cache and the asynq task queues, so the
// process refuses to start without it.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping to %s failed: %w", addr, err)
	}

	log.Printf("Connected to Redis at %s (db %d).", addr, db)
	return rdb, nil
}

// DisconnectRedis closes the Redis client. Safe on a nil client.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("error closing redis connection: %w", err)
	}
	log.Println("Redis connection closed.")
	return nil
}
