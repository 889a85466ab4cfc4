package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestIncrementCounterScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	ctx := context.Background()
	key := counterKey("games")
	index := counterIndexKey()

	tests := []struct {
		name      string
		today     string
		wantCount int64
	}{
		{"first increment creates counter", "2024-01-01", 1},
		{"same day increments", "2024-01-01", 2},
		{"same day increments again", "2024-01-01", 3},
		{"new day resets", "2024-01-02", 1},
		{"new day increments", "2024-01-02", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Eval(ctx, incrementCounterScript, []string{key, index}, "games", tt.today).Int64()
			if err != nil {
				t.Fatalf("Script execution failed: %v", err)
			}
			if got != tt.wantCount {
				t.Errorf("Expected count %d, got %d", tt.wantCount, got)
			}

			data := client.HGetAll(ctx, key).Val()
			if data["date"] != tt.today {
				t.Errorf("Expected date=%s, got %s", tt.today, data["date"])
			}
			if data["feature"] != "games" {
				t.Errorf("Expected feature=games, got %s", data["feature"])
			}
		})
	}

	if !client.SIsMember(ctx, index, "games").Val() {
		t.Error("Expected feature in counter index")
	}
}

func TestDeleteResultScriptCleansIndexes(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	ctx := context.Background()

	keys := []string{resultKey("r1"), resultIndexKey(), gameIndexKey("memory"), sessionIndexKey("s1")}
	if err := client.Eval(ctx, addResultScript, keys,
		"r1", "s1", "memory", 60, "false", "2024-01-01T09:00:00Z", "2024-01-01T09:05:00Z", 1704099900000, 0,
	).Err(); err != nil {
		t.Fatalf("addResultScript failed: %v", err)
	}

	if client.ZCard(ctx, gameIndexKey("memory")).Val() != 1 {
		t.Fatal("Expected result in game index")
	}

	n, err := client.Eval(ctx, deleteResultScript, []string{resultKey("r1"), resultIndexKey()}, keyPrefix, "r1").Int()
	if err != nil {
		t.Fatalf("deleteResultScript failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 deleted key, got %d", n)
	}

	for _, index := range []string{resultIndexKey(), gameIndexKey("memory"), sessionIndexKey("s1")} {
		if card := client.ZCard(ctx, index).Val(); card != 0 {
			t.Errorf("Expected %s to be empty, got %d members", index, card)
		}
	}
}
