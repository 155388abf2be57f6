package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"content-hub/domain/model"
)

// NewCache creates the shared Redis client
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// QuotaStore persists per-platform daily consumption counters in Redis so a
// restart does not forget budget already spent. Keys are scoped to the UTC
// day and expire two days later.
type QuotaStore struct {
	client *redis.Client
}

func NewQuotaStore(client *redis.Client) *QuotaStore {
	return &QuotaStore{client: client}
}

func quotaKey(platform model.Platform, day time.Time) string {
	return fmt.Sprintf("quota:%s:%s", platform, day.UTC().Format("2006-01-02"))
}

// Load returns the consumed units recorded for the platform on the given day
func (s *QuotaStore) Load(ctx context.Context, platform model.Platform, day time.Time) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	v, err := s.client.Get(ctx, quotaKey(platform, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Add atomically increments the day counter and returns the new total.
// INCRBY gives the per-platform atomicity the quota tracker requires.
func (s *QuotaStore) Add(ctx context.Context, platform model.Platform, day time.Time, units int64) (int64, error) {
	if s.client == nil {
		return 0, nil
	}
	key := quotaKey(platform, day)
	total, err := s.client.IncrBy(ctx, key, units).Result()
	if err != nil {
		return 0, err
	}
	expireAt := day.UTC().Truncate(24 * time.Hour).Add(48 * time.Hour)
	_ = s.client.ExpireAt(ctx, key, expireAt).Err()
	return total, nil
}
