package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
)

// AnomalySignalConfig defines key naming and retention for the signal window.
type AnomalySignalConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// AnomalySignalStore keeps per-principal suspicious signals in Redis sorted
// sets scored by timestamp, giving a sliding window without explicit cleanup
// jobs.
type AnomalySignalStore struct {
	client *redis.Client
	cfg    AnomalySignalConfig
}

// NewAnomalySignalStore constructs a store using the provided Redis client and config.
func NewAnomalySignalStore(client *redis.Client, cfg AnomalySignalConfig) *AnomalySignalStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "anomaly"
	}
	return &AnomalySignalStore{client: client, cfg: cfg}
}

// RecordSignal stores one suspicious signal inside the principal's window and
// refreshes the key TTL.
func (s *AnomalySignalStore) RecordSignal(ctx context.Context, principalID string, kind domain.AnomalySignalKind, at time.Time) error {
	key := s.key(principalID)
	member := redis.Z{
		Score:  float64(at.UnixNano()),
		Member: fmt.Sprintf("%s:%d", kind, at.UnixNano()),
	}

	if err := s.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}

	if s.cfg.TTL > 0 {
		if err := s.client.Expire(ctx, key, s.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}

	return nil
}

// CountSignals returns how many signals occurred within the window ending at
// reference time.
func (s *AnomalySignalStore) CountSignals(ctx context.Context, principalID string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	key := s.key(principalID)
	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	count, err := s.client.ZCount(ctx, key, min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}

	return int(count), nil
}

// TrimWindow removes signals older than the provided window relative to
// reference time.
func (s *AnomalySignalStore) TrimWindow(ctx context.Context, principalID string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	key := s.key(principalID)
	threshold := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))

	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	return nil
}

func (s *AnomalySignalStore) key(principalID string) string {
	return fmt.Sprintf("%s:signals:%s", s.cfg.KeyPrefix, principalID)
}

var _ port.AnomalySignalStore = (*AnomalySignalStore)(nil)
