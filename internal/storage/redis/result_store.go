package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type resultStore struct {
	client *redis.Client
	add    *redis.Script
	remove *redis.Script
}

func newResultStore(client *redis.Client) *resultStore {
	return &resultStore{
		client: client,
		add:    redis.NewScript(addResultScript),
		remove: redis.NewScript(deleteResultScript),
	}
}

// AddResult stores a completed round
func (s *resultStore) AddResult(ctx context.Context, result storage.RoundResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	keys := []string{
		resultKey(result.ID),
		resultIndexKey(),
		gameIndexKey(result.Game),
		sessionIndexKey(result.SessionID),
	}
	args := []interface{}{
		result.ID,
		result.SessionID,
		result.Game,
		result.Score,
		strconv.FormatBool(result.Premium),
		result.StartedAt.Format(time.RFC3339Nano),
		result.CompletedAt.Format(time.RFC3339Nano),
		result.CompletedAt.UnixMilli(),
		int64(resultTTL / time.Second),
	}

	return s.add.Run(ctx, s.client, keys, args...).Err()
}

// QueryResults returns matching results newest first
func (s *resultStore) QueryResults(ctx context.Context, filter storage.ResultFilter) ([]storage.RoundResult, error) {
	index := resultIndexKey()
	if filter.Game != "" {
		index = gameIndexKey(filter.Game)
	} else if filter.SessionID != "" {
		index = sessionIndexKey(filter.SessionID)
	}

	maxScore := "+inf"
	if filter.EndTime != nil {
		maxScore = strconv.FormatInt(filter.EndTime.UnixMilli(), 10)
	}
	minScore := "-inf"
	if filter.StartTime != nil {
		minScore = strconv.FormatInt(filter.StartTime.UnixMilli(), 10)
	}

	ids, err := s.client.ZRevRangeByScore(ctx, index, &redis.ZRangeBy{Min: minScore, Max: maxScore}).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.RoundResult{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, resultKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	results := make([]storage.RoundResult, 0, len(ids))
	skipped := 0
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			// Expired by TTL, index entry is stale
			continue
		}
		result, err := parseRoundResult(data)
		if err != nil || !filter.Matches(*result) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		results = append(results, *result)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}

	return results, nil
}

// DeleteResultsBefore removes results completed before cutoff
func (s *resultStore) DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	maxScore := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	ids, err := s.client.ZRangeByScore(ctx, resultIndexKey(), &redis.ZRangeBy{Min: "-inf", Max: maxScore}).Result()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		n, err := s.remove.Run(ctx, s.client, []string{resultKey(id), resultIndexKey()}, keyPrefix, id).Int()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}
