package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goodtune/wordbuddy/internal/config"
	"github.com/goodtune/wordbuddy/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := config.RedisConfig{
		Host:         mr.Addr(), // Full address "host:port"
		Port:         0,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 1,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestOpenRejectsBadTimeout(t *testing.T) {
	_, err := Open(config.RedisConfig{Host: "localhost", DialTimeout: "soon"})
	if err == nil {
		t.Fatal("expected error for invalid dial_timeout")
	}
}

func TestUsageStore_IncrementCounter(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	for i := 1; i <= 3; i++ {
		counter, err := usage.IncrementCounter(ctx, "vocabulary", "2024-01-01")
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if counter.Count != i {
			t.Errorf("Expected count %d, got %d", i, counter.Count)
		}
	}

	counter, err := usage.GetCounter(ctx, "vocabulary")
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if counter.Date != "2024-01-01" || counter.Count != 3 {
		t.Errorf("Expected {2024-01-01 3}, got %+v", counter)
	}
}

func TestUsageStore_IncrementCounterResetsStaleDate(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	if err := usage.PutCounter(ctx, storage.UsageCounter{Feature: "games", Date: "2024-01-01", Count: 3}); err != nil {
		t.Fatalf("PutCounter failed: %v", err)
	}

	counter, err := usage.IncrementCounter(ctx, "games", "2024-01-02")
	if err != nil {
		t.Fatalf("IncrementCounter failed: %v", err)
	}
	if counter.Count != 1 {
		t.Errorf("Expected count 1 after rollover, got %d", counter.Count)
	}

	stored, err := usage.GetCounter(ctx, "games")
	if err != nil {
		t.Fatalf("GetCounter failed: %v", err)
	}
	if stored.Date != "2024-01-02" || stored.Count != 1 {
		t.Errorf("Expected {2024-01-02 1}, got %+v", stored)
	}
}

func TestUsageStore_ListAndDelete(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	_, _ = usage.IncrementCounter(ctx, "vocabulary", "2024-01-01")
	_, _ = usage.IncrementCounter(ctx, "games", "2024-01-01")

	counters, err := usage.ListCounters(ctx)
	if err != nil {
		t.Fatalf("ListCounters failed: %v", err)
	}
	if len(counters) != 2 {
		t.Fatalf("Expected 2 counters, got %d", len(counters))
	}

	if err := usage.DeleteCounter(ctx, "games"); err != nil {
		t.Fatalf("DeleteCounter failed: %v", err)
	}
	if _, err := usage.GetCounter(ctx, "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := usage.DeleteCounter(ctx, "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestResultStore_QueryAndCleanup(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	results := store.Results()
	now := time.Now().UTC()

	entries := []storage.RoundResult{
		{SessionID: "s1", Game: "matching", Score: 60, StartedAt: now.Add(-73 * time.Hour), CompletedAt: now.Add(-72 * time.Hour)},
		{SessionID: "s1", Game: "spelling", Score: 40, StartedAt: now.Add(-3 * time.Hour), CompletedAt: now.Add(-2 * time.Hour)},
		{SessionID: "s2", Game: "matching", Score: 30, Premium: true, StartedAt: now.Add(-2 * time.Hour), CompletedAt: now.Add(-1 * time.Hour)},
	}
	for _, entry := range entries {
		if err := results.AddResult(ctx, entry); err != nil {
			t.Fatalf("AddResult failed: %v", err)
		}
	}

	matching, err := results.QueryResults(ctx, storage.ResultFilter{Game: "matching"})
	if err != nil {
		t.Fatalf("QueryResults failed: %v", err)
	}
	if len(matching) != 2 {
		t.Fatalf("Expected 2 matching results, got %d", len(matching))
	}
	if matching[0].Score != 30 || !matching[0].Premium {
		t.Errorf("Expected newest premium result first, got %+v", matching[0])
	}

	deleted, err := results.DeleteResultsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteResultsBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Expected 1 deleted result, got %d", deleted)
	}

	all, err := results.QueryResults(ctx, storage.ResultFilter{})
	if err != nil {
		t.Fatalf("QueryResults failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 results after cleanup, got %d", len(all))
	}
}
