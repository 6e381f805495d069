package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "threadline:comments"

// RedisStore keeps the encoded record set under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore parses redisURL, connects and checks the connection.
func NewRedisStore(redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]Comment, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Comment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return DecodeRecords(payload), nil
}

// SaveAll stores the set without expiry.
func (s *RedisStore) SaveAll(ctx context.Context, comments []Comment) error {
	payload, err := EncodeRecords(comments)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("save comments: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
