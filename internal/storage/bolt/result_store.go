package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	byGame    = "game"
	bySession = "session"
)

type resultStore struct {
	db *bbolt.DB
}

// resultID sorts lexically by completion time.
func resultID(completed time.Time) string {
	return fmt.Sprintf("%020d-%s", completed.UnixNano(), uuid.NewString())
}

func indexValue(v string) []byte {
	if v == "" {
		return []byte("unknown")
	}
	return []byte(strings.ToLower(v))
}

// index returns results_by/<dim>/<value>, or nil when nothing was ever
// recorded under it.
func index(tx *bbolt.Tx, dim, value string) *bbolt.Bucket {
	b := tx.Bucket(resultsByRoot).Bucket([]byte(dim))
	if b == nil {
		return nil
	}
	return b.Bucket(indexValue(value))
}

func (s *resultStore) AddResult(ctx context.Context, result storage.RoundResult) error {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	if result.ID == "" {
		result.ID = resultID(result.CompletedAt)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode round result: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(resultsBucket).Put([]byte(result.ID), raw); err != nil {
			return err
		}
		root := tx.Bucket(resultsByRoot)
		for dim, value := range map[string]string{byGame: result.Game, bySession: result.SessionID} {
			dimBucket, err := root.CreateBucketIfNotExists([]byte(dim))
			if err != nil {
				return err
			}
			b, err := dimBucket.CreateBucketIfNotExists(indexValue(value))
			if err != nil {
				return err
			}
			if err := b.Put([]byte(result.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

// QueryResults returns matching results newest first. A game or session
// filter walks that index instead of the whole result bucket.
func (s *resultStore) QueryResults(ctx context.Context, filter storage.ResultFilter) ([]storage.RoundResult, error) {
	results := []storage.RoundResult{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		all := tx.Bucket(resultsBucket)
		keys := all
		switch {
		case filter.Game != "":
			keys = index(tx, byGame, filter.Game)
		case filter.SessionID != "":
			keys = index(tx, bySession, filter.SessionID)
		}
		if keys == nil {
			return nil
		}

		skipped := 0
		c := keys.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw := all.Get(k)
			if raw == nil {
				continue
			}
			var result storage.RoundResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return fmt.Errorf("decode round result %s: %w", k, err)
			}
			if !filter.Matches(result) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
			results = append(results, result)
			if filter.Limit > 0 && len(results) >= filter.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteResultsBefore drops results completed before cutoff along with their
// index markers.
func (s *resultStore) DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		all := tx.Bucket(resultsBucket)

		var expired []storage.RoundResult
		err := all.ForEach(func(k, raw []byte) error {
			var result storage.RoundResult
			if err := json.Unmarshal(raw, &result); err != nil {
				return fmt.Errorf("decode round result %s: %w", k, err)
			}
			if result.CompletedAt.Before(cutoff) {
				expired = append(expired, result)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, result := range expired {
			for dim, value := range map[string]string{byGame: result.Game, bySession: result.SessionID} {
				if b := index(tx, dim, value); b != nil {
					if err := b.Delete([]byte(result.ID)); err != nil {
						return err
					}
				}
			}
			if err := all.Delete([]byte(result.ID)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
