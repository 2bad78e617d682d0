package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vostrikal/stream-anomaly-worker/internal/config"
	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

const (
	latestKey = "stream:latest"
	recentKey = "stream:recent"

	latestTTL = time.Hour
)

// SnapshotStore keeps the most recent classified point and a bounded list
// of recent points in Redis, for the HTTP API and external dashboards.
type SnapshotStore struct {
	client    *redis.Client
	recentCap int64
}

// NewSnapshotStore connects a store using the Redis section of the config.
func NewSnapshotStore(cfg *config.Config) *SnapshotStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &SnapshotStore{
		client:    client,
		recentCap: int64(cfg.Redis.RecentCap),
	}
}

// Check pings the server.
func (s *SnapshotStore) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Stop closes the client.
func (s *SnapshotStore) Stop() error {
	return s.client.Close()
}

// SaveLatest stores p as the latest point and prepends it to the bounded
// recent list in a single pipeline round trip.
func (s *SnapshotStore) SaveLatest(ctx context.Context, p model.Point) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal point: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey, payload, latestTTL)
	pipe.LPush(ctx, recentKey, payload)
	pipe.LTrim(ctx, recentKey, 0, s.recentCap-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}

	return nil
}

// FetchLatest returns the most recent point, or nil when none is stored yet.
func (s *SnapshotStore) FetchLatest(ctx context.Context) (*model.Point, error) {
	data, err := s.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p model.Point
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal point: %w", err)
	}

	return &p, nil
}

// FetchRecent returns up to limit recent points, newest first.
func (s *SnapshotStore) FetchRecent(ctx context.Context, limit int64) ([]model.Point, error) {
	if limit <= 0 || limit > s.recentCap {
		limit = s.recentCap
	}

	rows, err := s.client.LRange(ctx, recentKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}

	points := make([]model.Point, 0, len(rows))
	for _, row := range rows {
		var p model.Point
		if err := json.Unmarshal([]byte(row), &p); err != nil {
			return nil, fmt.Errorf("unmarshal point: %w", err)
		}
		points = append(points, p)
	}

	return points, nil
}
