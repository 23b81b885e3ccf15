package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements Provider on a Redis-compatible server.
type RedisProvider struct {
	client *redis.Client
}

// RedisOptions carries the connection settings for NewRedisProvider.
type RedisOptions struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewRedisProvider connects and verifies the server with a ping.
func NewRedisProvider(ctx context.Context, opts RedisOptions) (*RedisProvider, error) {
	ro := &redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		MaxRetries:   opts.MaxRetries,
	}
	if opts.TLS {
		ro.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &RedisProvider{client: client}, nil
}

// Get fetches a key, mapping redis.Nil to ErrCacheMiss.
func (p *RedisProvider) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a key with the given TTL. A zero TTL means no expiry.
func (p *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := p.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetNX stores the key only if absent, reporting whether it was written.
func (p *RedisProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := p.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Del removes a key. Deleting an absent key is not an error.
func (p *RedisProvider) Del(ctx context.Context, key string) error {
	if err := p.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the client's connection pool.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
