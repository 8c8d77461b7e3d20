package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore 基于 Redis 的会话键值存储，键格式 {prefix}:{session}:{key}
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	locker *redislock.Client
}

// NewRedisSessionStore connects to addr and verifies the connection.
// A zero ttl keeps values forever.
func NewRedisSessionStore(ctx context.Context, addr string, ttl time.Duration) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", addr, err)
	}
	return &RedisSessionStore{
		client: client,
		prefix: "session",
		ttl:    ttl,
		locker: redislock.New(client),
	}, nil
}

func (s *RedisSessionStore) key(sessionID, key string) string {
	return s.prefix + ":" + sessionID + ":" + key
}

// Get 读取会话键值
func (s *RedisSessionStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session value %s: %w", key, err)
	}
	return val, true, nil
}

// Set 写入会话键值并刷新过期时间
func (s *RedisSessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	if err := s.client.Set(ctx, s.key(sessionID, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session value %s: %w", key, err)
	}
	return nil
}

// Delete 删除会话键值
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID, key string) error {
	if err := s.client.Del(ctx, s.key(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session value %s: %w", key, err)
	}
	return nil
}

// Lock obtains a distributed lock on name, retrying with a linear backoff.
func (s *RedisSessionStore) Lock(ctx context.Context, name string) (func(), error) {
	const ttl = 30 * time.Second
	opts := &redislock.Options{RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100)}
	lock, err := s.locker.Obtain(ctx, s.prefix+":lock:"+name, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("lock %s is busy: %w", name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", name, err)
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}

// Close 关闭连接
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
