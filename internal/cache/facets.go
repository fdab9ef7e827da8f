// Package cache provides a Redis-backed cache for provider category facets.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the facet cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// FacetCache stores resolved facet value lists with a fixed TTL.
type FacetCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewFacetCache(client *redis.Client, ttl time.Duration, prefix string) *FacetCache {
	if prefix == "" {
		prefix = "catalog-sync:facets:"
	}
	return &FacetCache{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}
}

// Get returns the cached values for key. Misses and decode failures both report false.
func (c *FacetCache) Get(ctx context.Context, key string) ([]string, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, false
	}
	return values, true
}

// Set stores values under key. Empty lists are not cached so a failed resolution is retried.
func (c *FacetCache) Set(ctx context.Context, key string, values []string) error {
	if len(values) == 0 {
		return nil
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal facets: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set facets: %w", err)
	}
	return nil
}
