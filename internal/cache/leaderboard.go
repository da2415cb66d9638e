package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kstolbov/pointsledger/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaderboardKey = "loyalty:leaderboard"

// RedisClient is the subset of redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LeaderboardCache keeps the rendered leaderboard as a TTL-bound JSON blob.
// Every failure is treated as a miss: reads fall through to Postgres.
type LeaderboardCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewLeaderboardCache(client RedisClient, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl}
}

func (c *LeaderboardCache) Get(ctx context.Context) ([]domain.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Error("failed to read leaderboard cache", zap.Error(err))
		}
		return nil, false
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		zap.L().Error("failed to decode leaderboard cache", zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, entries []domain.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		zap.L().Error("failed to encode leaderboard cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, leaderboardKey, data, c.ttl).Err(); err != nil {
		zap.L().Error("failed to write leaderboard cache", zap.Error(err))
	}
}
