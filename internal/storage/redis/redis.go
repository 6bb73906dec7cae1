package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// BlacklistToken revokes an access token until its natural expiry. The raw
// token is hashed so the blacklist never stores usable credentials.
func (r *RedisRepo) BlacklistToken(ctx context.Context, rawToken string, ttl time.Duration) error {
	const op = "storage.redis.BlacklistToken"

	if ttl <= 0 {
		return nil
	}

	key := blacklistKey(rawToken)

	if err := r.client.Set(ctx, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) IsTokenBlacklisted(ctx context.Context, rawToken string) (bool, error) {
	const op = "storage.redis.IsTokenBlacklisted"

	n, err := r.client.Exists(ctx, blacklistKey(rawToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (r *RedisRepo) Close() {
	r.client.Close()
}

func blacklistKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return fmt.Sprintf("session:revoked:%s", hex.EncodeToString(sum[:]))
}
