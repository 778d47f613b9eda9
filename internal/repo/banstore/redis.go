package banstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client redis.UniversalClient
}

// NewRedis parses a redis:// URL and returns a Store shared by every instance
// pointing at the same server.
func NewRedis(url string) (Store, *redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	return NewRedisWithClient(client), client, nil
}

func NewRedisWithClient(client redis.UniversalClient) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Ban(ctx context.Context, ip string, ttl time.Duration) error {
	return s.client.Set(ctx, banPrefix+ip, time.Now().Unix(), ttl).Err()
}

func (s *redisStore) IsBanned(ctx context.Context, ip string) (bool, error) {
	err := s.client.Get(ctx, banPrefix+ip).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisStore) Unban(ctx context.Context, ip string) error {
	return s.client.Del(ctx, banPrefix+ip).Err()
}

func (s *redisStore) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, ratePrefix+key)
	pipe.ExpireNX(ctx, ratePrefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("count rate: %w", err)
	}
	return incr.Val() <= limit, nil
}
