package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var (
	RedisClient *redis.Client

	// ErrCacheMiss is returned by CacheGet when the key does not exist
	ErrCacheMiss = errors.New("key not found")
	// ErrCacheUnavailable is returned when InitRedis was not called or failed
	ErrCacheUnavailable = errors.New("redis client not initialized")
)

// InitRedis initializes the Redis client
func InitRedis(ctx context.Context) error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Test connection
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	RedisClient = client
	logrus.WithField("addr", addr).Info("Connected to Redis")
	return nil
}

// HashKey builds a cache key from prefix and the SHA256 of value
func HashKey(prefix, value string) string {
	hash := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(hash[:])
}

// CacheSet stores a value in Redis with expiration
func CacheSet(ctx context.Context, key string, value string, expiration time.Duration) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	return RedisClient.Set(ctx, key, value, expiration).Err()
}

// CacheGet retrieves a value from Redis
func CacheGet(ctx context.Context, key string) (string, error) {
	if RedisClient == nil {
		return "", ErrCacheUnavailable
	}
	val, err := RedisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

// CacheDelete removes a key from Redis
func CacheDelete(ctx context.Context, key string) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	return RedisClient.Del(ctx, key).Err()
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
