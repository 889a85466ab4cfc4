// Package bolt keeps usage counters and round results in a single bbolt file.
//
// Layout:
//
//	counters/<feature>                 JSON UsageCounter
//	results/<unixnano>-<uuid>          JSON RoundResult, so keys sort by completion
//	results_by/game/<game>/<key>       empty marker
//	results_by/session/<session>/<key> empty marker
package bolt

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/goodtune/wordbuddy/internal/storage"
	"go.etcd.io/bbolt"
)

var (
	countersBucket = []byte("counters")
	resultsBucket  = []byte("results")
	resultsByRoot  = []byte("results_by")
)

// Store implements storage.Store on a bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := storage.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{countersBucket, resultsBucket, resultsByRoot} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Usage returns the usage counter store.
func (s *Store) Usage() storage.UsageStore { return &usageStore{db: s.db} }

// Results returns the round result store.
func (s *Store) Results() storage.ResultStore { return &resultStore{db: s.db} }
