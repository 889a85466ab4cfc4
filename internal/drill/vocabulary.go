// Package drill implements the two non-game companion modes: the vocabulary
// flashcard deck and the daily challenge quiz.
package drill

import (
	"context"
	"sync"

	"github.com/goodtune/wordbuddy/internal/content"
)

// DefaultPrefetchAhead is how many upcoming cards have their audio warmed.
const DefaultPrefetchAhead = 3

// Speaker is the slice of the speech service the drills use.
type Speaker interface {
	Speak(ctx context.Context, text string) bool
	Prefetch(ctx context.Context, text string)
}

// Card is the view of the current flashcard.
type Card struct {
	Position int          `json:"position"`
	Total    int          `json:"total"`
	Item     content.Item `json:"item"`
}

// Vocabulary is a flashcard deck over the item pool.
type Vocabulary struct {
	items   []content.Item
	speaker Speaker
	ahead   int

	mu      sync.Mutex
	current int
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewVocabulary creates a deck and warms audio for the first cards.
func NewVocabulary(items []content.Item, speaker Speaker, ahead int) *Vocabulary {
	if ahead < 0 {
		ahead = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	v := &Vocabulary{
		items:   items,
		speaker: speaker,
		ahead:   ahead,
		ctx:     ctx,
		cancel:  cancel,
	}
	v.mu.Lock()
	v.prefetchLocked(0)
	v.mu.Unlock()
	return v
}

// Current returns the card on display.
func (v *Vocabulary) Current() Card {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cardLocked()
}

// Next moves forward, wrapping at the end of the deck.
func (v *Vocabulary) Next() Card {
	return v.move(1)
}

// Previous moves back, wrapping at the start of the deck.
func (v *Vocabulary) Previous() Card {
	return v.move(-1)
}

// Say speaks the current word. It returns false if speech was rejected.
func (v *Vocabulary) Say() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.speaker == nil || len(v.items) == 0 {
		return false
	}
	return v.speaker.Speak(v.ctx, v.items[v.current].Word)
}

// Close cancels speech started by the deck.
func (v *Vocabulary) Close() {
	v.cancel()
}

func (v *Vocabulary) move(step int) Card {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n := len(v.items); n > 0 {
		v.current = ((v.current+step)%n + n) % n
		v.prefetchLocked(v.current)
	}
	return v.cardLocked()
}

// prefetchLocked warms audio for the cards after from.
func (v *Vocabulary) prefetchLocked(from int) {
	if v.speaker == nil {
		return
	}
	n := len(v.items)
	for i := 1; i <= v.ahead && i < n; i++ {
		v.speaker.Prefetch(v.ctx, v.items[(from+i)%n].Word)
	}
}

func (v *Vocabulary) cardLocked() Card {
	if len(v.items) == 0 {
		return Card{}
	}
	return Card{Position: v.current + 1, Total: len(v.items), Item: v.items[v.current]}
}
