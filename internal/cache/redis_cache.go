package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"inventoryledger/backend/internal/domain"
)

type RedisStudyCache struct {
	client redis.UniversalClient
}

func NewRedisStudyCache(addr string, password string, db int) *RedisStudyCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStudyCache{client: client}
}

// NewRedisStudyCacheWithClient wraps an existing client.
func NewRedisStudyCacheWithClient(client redis.UniversalClient) *RedisStudyCache {
	return &RedisStudyCache{client: client}
}

func (c *RedisStudyCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStudyCache) Close() error {
	return c.client.Close()
}

func (c *RedisStudyCache) Get(ctx context.Context, id string) (*domain.FeasibilityStudy, bool, error) {
	val, err := c.client.Get(ctx, studyKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var study domain.FeasibilityStudy
	if err := json.Unmarshal(val, &study); err != nil {
		return nil, false, err
	}
	return &study, true, nil
}

func (c *RedisStudyCache) Set(ctx context.Context, study *domain.FeasibilityStudy, ttl time.Duration) error {
	if study == nil || study.ID == "" {
		return nil
	}
	payload, err := json.Marshal(study)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, studyKey(study.ID), payload, ttl).Err()
}

func (c *RedisStudyCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, studyKey(id)).Err()
}
