package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/storage/bolt"
	"github.com/rs/zerolog"
)

func TestRetentionSchedulerPrunesDaily(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "results.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	start := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	clk := clock.NewFake(start)

	add := func(at time.Time) {
		t.Helper()
		if err := store.Results().AddResult(ctx, storage.RoundResult{Game: "matching", CompletedAt: at}); err != nil {
			t.Fatalf("add result: %v", err)
		}
	}
	add(start.AddDate(0, 0, -10))
	add(start.Add(-12 * time.Hour))

	rs := NewRetentionScheduler(store.Results(), 7, clk, zerolog.Nop())
	rs.Start()
	defer rs.Stop()

	remaining, err := store.Results().QueryResults(ctx, storage.ResultFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 result after initial prune, got %d", len(remaining))
	}

	// Eight days later the second result has aged out at a midnight run.
	clk.Advance(8 * 24 * time.Hour)
	remaining, err = store.Results().QueryResults(ctx, storage.ResultFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected all results pruned, got %d", len(remaining))
	}
	if clk.Pending() != 1 {
		t.Fatalf("expected the next prune to be scheduled, got %d timers", clk.Pending())
	}
}
