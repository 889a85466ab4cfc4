package storage

import "time"

// UsageCounter is the persisted daily counter for one gated feature.
// A counter whose Date is not today counts as zero until it is next incremented.
type UsageCounter struct {
	Feature string `json:"feature"`
	Date    string `json:"date"`
	Count   int    `json:"count"`
}

// RoundResult records one completed mini-game round.
type RoundResult struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Game        string    `json:"game"`
	Score       int       `json:"score"`
	Premium     bool      `json:"premium"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
