package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Usage() UsageStore
	Results() ResultStore
}

// UsageStore manages the daily usage counters.
type UsageStore interface {
	GetCounter(ctx context.Context, feature string) (*UsageCounter, error)
	// IncrementCounter adds one to today's count. A counter stored for any
	// other date is replaced by {today, 1} in the same atomic step.
	IncrementCounter(ctx context.Context, feature, today string) (*UsageCounter, error)
	PutCounter(ctx context.Context, counter UsageCounter) error
	ListCounters(ctx context.Context) ([]UsageCounter, error)
	DeleteCounter(ctx context.Context, feature string) error
}

// ResultStore manages the history of completed rounds.
type ResultStore interface {
	AddResult(ctx context.Context, result RoundResult) error
	QueryResults(ctx context.Context, filter ResultFilter) ([]RoundResult, error)
	DeleteResultsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ResultFilter defines criteria for querying round results.
type ResultFilter struct {
	Game      string
	SessionID string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Matches reports whether r passes the filter's field criteria.
func (f ResultFilter) Matches(r RoundResult) bool {
	if f.Game != "" && r.Game != f.Game {
		return false
	}
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if f.StartTime != nil && r.CompletedAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && r.CompletedAt.After(*f.EndTime) {
		return false
	}
	return true
}
