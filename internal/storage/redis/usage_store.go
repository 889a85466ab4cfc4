package redis

import (
	"context"
	"fmt"

	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/redis/go-redis/v9"
)

type usageStore struct {
	client    *redis.Client
	increment *redis.Script
}

// GetCounter retrieves the counter for a feature
func (s *usageStore) GetCounter(ctx context.Context, feature string) (*storage.UsageCounter, error) {
	data, err := s.client.HGetAll(ctx, counterKey(feature)).Result()
	if err != nil {
		return nil, err
	}
	return parseUsageCounter(data)
}

// IncrementCounter atomically increments today's counter, resetting a stale one
func (s *usageStore) IncrementCounter(ctx context.Context, feature, today string) (*storage.UsageCounter, error) {
	keys := []string{counterKey(feature), counterIndexKey()}
	count, err := s.increment.Run(ctx, s.client, keys, feature, today).Int()
	if err != nil {
		return nil, err
	}
	return &storage.UsageCounter{Feature: feature, Date: today, Count: count}, nil
}

// PutCounter overwrites a counter
func (s *usageStore) PutCounter(ctx context.Context, counter storage.UsageCounter) error {
	if counter.Feature == "" {
		return fmt.Errorf("counter feature is required")
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, counterKey(counter.Feature),
		"feature", counter.Feature,
		"date", counter.Date,
		"count", counter.Count,
	)
	pipe.SAdd(ctx, counterIndexKey(), counter.Feature)
	_, err := pipe.Exec(ctx)
	return err
}

// ListCounters returns every known counter
func (s *usageStore) ListCounters(ctx context.Context) ([]storage.UsageCounter, error) {
	features, err := s.client.SMembers(ctx, counterIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	if len(features) == 0 {
		return []storage.UsageCounter{}, nil
	}

	// Use pipeline for batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(features))
	for i, feature := range features {
		cmds[i] = pipe.HGetAll(ctx, counterKey(feature))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	counters := make([]storage.UsageCounter, 0, len(features))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		counter, err := parseUsageCounter(data)
		if err == nil {
			counters = append(counters, *counter)
		}
	}

	return counters, nil
}

// DeleteCounter removes a counter
func (s *usageStore) DeleteCounter(ctx context.Context, feature string) error {
	deleted, err := s.client.Del(ctx, counterKey(feature)).Result()
	if err != nil {
		return err
	}
	if err := s.client.SRem(ctx, counterIndexKey(), feature).Err(); err != nil {
		return err
	}
	if deleted == 0 {
		return storage.ErrNotFound
	}
	return nil
}
