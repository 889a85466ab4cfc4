package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goodtune/wordbuddy/internal/storage"
)

const keyPrefix = "wordbuddy:"

func counterKey(feature string) string {
	return fmt.Sprintf("%susage:%s", keyPrefix, feature)
}

func counterIndexKey() string {
	return keyPrefix + "usage:features"
}

func resultKey(id string) string {
	return fmt.Sprintf("%sresult:%s", keyPrefix, id)
}

func resultIndexKey() string {
	return keyPrefix + "results"
}

func gameIndexKey(game string) string {
	return fmt.Sprintf("%sresults:game:%s", keyPrefix, game)
}

func sessionIndexKey(sessionID string) string {
	return fmt.Sprintf("%sresults:session:%s", keyPrefix, sessionID)
}

// parseUsageCounter converts a Redis hash to UsageCounter
func parseUsageCounter(data map[string]string) (*storage.UsageCounter, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	count, err := strconv.Atoi(data["count"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse count: %w", err)
	}

	return &storage.UsageCounter{
		Feature: data["feature"],
		Date:    data["date"],
		Count:   count,
	}, nil
}

// parseRoundResult converts a Redis hash to RoundResult
func parseRoundResult(data map[string]string) (*storage.RoundResult, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	score, err := strconv.Atoi(data["score"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse score: %w", err)
	}

	premium, err := strconv.ParseBool(data["premium"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse premium: %w", err)
	}

	startedAt, err := time.Parse(time.RFC3339Nano, data["started_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	completedAt, err := time.Parse(time.RFC3339Nano, data["completed_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse completed_at: %w", err)
	}

	return &storage.RoundResult{
		ID:          data["id"],
		SessionID:   data["session_id"],
		Game:        data["game"],
		Score:       score,
		Premium:     premium,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}, nil
}
