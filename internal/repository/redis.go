package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dirsoacha/resilience-api/internal/models"
)

const subscriptionsKey = "dir-soacha:push:subscriptions"

// RedisStore keeps subscriptions in a single hash field-keyed by endpoint so
// several API replicas share one subscriber set.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("error while pinging redis: %w", err)
	}
	return &RedisStore{rdb: rdb, key: subscriptionsKey}, nil
}

func (r *RedisStore) Save(ctx context.Context, sub models.PushSubscription) (bool, error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	existing, err := r.rdb.HGet(ctx, r.key, sub.Endpoint).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("error reading subscription: %w", err)
	}
	if err == nil {
		var prev models.PushSubscription
		if json.Unmarshal([]byte(existing), &prev) == nil && !prev.CreatedAt.IsZero() {
			sub.CreatedAt = prev.CreatedAt
		}
	}

	raw, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("error encoding subscription: %w", err)
	}
	added, err := r.rdb.HSet(ctx, r.key, sub.Endpoint, raw).Result()
	if err != nil {
		return false, fmt.Errorf("error saving subscription: %w", err)
	}
	return added == 1, nil
}

func (r *RedisStore) Delete(ctx context.Context, endpoint string) error {
	n, err := r.rdb.HDel(ctx, r.key, endpoint).Result()
	if err != nil {
		return fmt.Errorf("error deleting subscription: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]models.PushSubscription, error) {
	vals, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing subscriptions: %w", err)
	}

	subs := make([]models.PushSubscription, 0, len(vals))
	for endpoint, raw := range vals {
		var sub models.PushSubscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, fmt.Errorf("error decoding subscription %s: %w", endpoint, err)
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("error counting subscriptions: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
