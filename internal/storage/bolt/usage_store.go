package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goodtune/wordbuddy/internal/storage"
	"go.etcd.io/bbolt"
)

type usageStore struct {
	db *bbolt.DB
}

func readCounter(b *bbolt.Bucket, feature string) (*storage.UsageCounter, error) {
	raw := b.Get([]byte(feature))
	if raw == nil {
		return nil, storage.ErrNotFound
	}
	var counter storage.UsageCounter
	if err := json.Unmarshal(raw, &counter); err != nil {
		return nil, fmt.Errorf("decode %s counter: %w", feature, err)
	}
	return &counter, nil
}

func writeCounter(b *bbolt.Bucket, counter storage.UsageCounter) error {
	raw, err := json.Marshal(counter)
	if err != nil {
		return fmt.Errorf("encode %s counter: %w", counter.Feature, err)
	}
	return b.Put([]byte(counter.Feature), raw)
}

func (s *usageStore) GetCounter(ctx context.Context, feature string) (*storage.UsageCounter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var counter *storage.UsageCounter
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		counter, err = readCounter(tx.Bucket(countersBucket), feature)
		return err
	})
	return counter, err
}

// IncrementCounter adds one for today. A counter left over from another day
// starts again from zero in the same transaction.
func (s *usageStore) IncrementCounter(ctx context.Context, feature, today string) (*storage.UsageCounter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counter := storage.UsageCounter{Feature: feature, Date: today}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(countersBucket)
		existing, err := readCounter(b, feature)
		switch {
		case err == nil && existing.Date == today:
			counter.Count = existing.Count
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
		counter.Count++
		return writeCounter(b, counter)
	})
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (s *usageStore) PutCounter(ctx context.Context, counter storage.UsageCounter) error {
	if counter.Feature == "" {
		return fmt.Errorf("counter feature is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return writeCounter(tx.Bucket(countersBucket), counter)
	})
}

func (s *usageStore) ListCounters(ctx context.Context) ([]storage.UsageCounter, error) {
	counters := []storage.UsageCounter{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(countersBucket).ForEach(func(k, raw []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var counter storage.UsageCounter
			if err := json.Unmarshal(raw, &counter); err != nil {
				return fmt.Errorf("decode %s counter: %w", k, err)
			}
			counters = append(counters, counter)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *usageStore) DeleteCounter(ctx context.Context, feature string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(countersBucket)
		if b.Get([]byte(feature)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(feature))
	})
}
