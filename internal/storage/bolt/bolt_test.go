package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/wordbuddy/internal/storage"
	"go.etcd.io/bbolt"
)

func TestUsageStoreIncrementLazyReset(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	if _, err := usage.GetCounter(ctx, "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for i := 1; i <= 3; i++ {
		counter, err := usage.IncrementCounter(ctx, "games", "2024-01-01")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if counter.Count != i {
			t.Fatalf("expected count %d, got %d", i, counter.Count)
		}
	}

	counter, err := usage.IncrementCounter(ctx, "games", "2024-01-02")
	if err != nil {
		t.Fatalf("increment on new day: %v", err)
	}
	if counter.Date != "2024-01-02" || counter.Count != 1 {
		t.Fatalf("expected {2024-01-02 1}, got %+v", counter)
	}

	stored, err := usage.GetCounter(ctx, "games")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if stored.Date != "2024-01-02" || stored.Count != 1 || stored.Feature != "games" {
		t.Fatalf("unexpected stored counter %+v", stored)
	}
}

func TestUsageStorePutListDelete(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	usage := store.Usage()

	if err := usage.PutCounter(ctx, storage.UsageCounter{Feature: "vocabulary", Date: "2024-01-01", Count: 3}); err != nil {
		t.Fatalf("put counter: %v", err)
	}
	if err := usage.PutCounter(ctx, storage.UsageCounter{Feature: "games", Date: "2024-01-01", Count: 1}); err != nil {
		t.Fatalf("put counter: %v", err)
	}

	counters, err := usage.ListCounters(ctx)
	if err != nil {
		t.Fatalf("list counters: %v", err)
	}
	if len(counters) != 2 {
		t.Fatalf("expected 2 counters, got %d", len(counters))
	}

	if err := usage.DeleteCounter(ctx, "games"); err != nil {
		t.Fatalf("delete counter: %v", err)
	}
	if err := usage.DeleteCounter(ctx, "games"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := usage.PutCounter(ctx, storage.UsageCounter{}); err == nil {
		t.Fatal("expected error for counter without feature")
	}
}

func TestResultStoreQueryAndCleanup(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	results := store.Results()
	now := time.Now().UTC()

	entries := []storage.RoundResult{
		{SessionID: "s1", Game: "matching", Score: 60, CompletedAt: now.Add(-72 * time.Hour)},
		{SessionID: "s1", Game: "spelling", Score: 40, CompletedAt: now.Add(-2 * time.Hour)},
		{SessionID: "s2", Game: "matching", Score: 30, CompletedAt: now.Add(-1 * time.Hour)},
	}
	for _, entry := range entries {
		if err := results.AddResult(ctx, entry); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}

	matching, err := results.QueryResults(ctx, storage.ResultFilter{Game: "matching"})
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	if len(matching) != 2 {
		t.Fatalf("expected 2 matching results, got %d", len(matching))
	}
	if matching[0].Score != 30 {
		t.Fatalf("expected newest first, got %+v", matching[0])
	}

	limited, err := results.QueryResults(ctx, storage.ResultFilter{SessionID: "s1", Limit: 1})
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	if len(limited) != 1 || limited[0].Game != "spelling" {
		t.Fatalf("unexpected limited results %+v", limited)
	}

	deleted, err := results.DeleteResultsBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete results: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted result, got %d", deleted)
	}

	matching, err = results.QueryResults(ctx, storage.ResultFilter{Game: "matching"})
	if err != nil {
		t.Fatalf("query results: %v", err)
	}
	if len(matching) != 1 {
		t.Fatalf("expected 1 matching result after cleanup, got %d", len(matching))
	}

	markers := 0
	err = store.db.View(func(tx *bbolt.Tx) error {
		return index(tx, byGame, "matching").ForEach(func(_, _ []byte) error {
			markers++
			return nil
		})
	})
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if markers != 1 {
		t.Fatalf("expected cleanup to drop the index marker, %d left", markers)
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wordbuddy.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
