package games

import (
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	memoryPairs       = 6
	memoryPoints      = 10
	memoryRevealDelay = time.Second
)

type memoryCard struct {
	pair  string
	emoji bool
	text  string
}

// memory is a face-down board of word and emoji cards. Two cards may be
// face up at once; they match when they share a pair id.
type memory struct {
	round

	cards   []memoryCard
	matched []bool
	faceUp  []int
}

// MemoryCard is one board position. Text is only set while the card is
// face up or matched.
type MemoryCard struct {
	Position int    `json:"position"`
	FaceUp   bool   `json:"face_up"`
	Matched  bool   `json:"matched"`
	Emoji    bool   `json:"emoji"`
	Text     string `json:"text,omitempty"`
}

// MemorySnapshot is the view of a memory round.
type MemorySnapshot struct {
	Status
	Cards []MemoryCard `json:"cards"`
}

func newMemory(deps Deps) *memory {
	g := &memory{}
	g.init(Memory, deps, g.setupLocked)
	return g
}

func (g *memory) setupLocked() {
	items := content.Sample(g.deps.Random, g.deps.Pools.Items, memoryPairs)
	g.cards = g.cards[:0]
	for _, item := range items {
		g.cards = append(g.cards,
			memoryCard{pair: item.ID, text: item.Word},
			memoryCard{pair: item.ID, emoji: true, text: item.Emoji},
		)
		g.prefetchLocked(item.Word)
	}
	random.Shuffle(g.deps.Random, g.cards)
	g.matched = make([]bool, len(g.cards))
	g.faceUp = nil
}

func (g *memory) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}
	if in.Action != "flip" {
		return unknownAction(in.Action)
	}
	if in.Index < 0 || in.Index >= len(g.cards) {
		return outOfRange("card", in.Index)
	}
	if g.matched[in.Index] || g.isFaceUpLocked(in.Index) {
		return nil
	}

	g.faceUp = append(g.faceUp, in.Index)
	card := g.cards[in.Index]
	if !card.emoji {
		g.speakLocked(card.text)
	}
	if len(g.faceUp) < 2 {
		return nil
	}

	a, b := g.faceUp[0], g.faceUp[1]
	correct := g.cards[a].pair == g.cards[b].pair
	if correct {
		g.matched[a] = true
		g.matched[b] = true
	}
	g.logger.Debug().Int("first", a).Int("second", b).Bool("correct", correct).Msg("Cards compared")

	g.resolveLocked(correct, memoryPoints, memoryRevealDelay, g.allMatchedLocked(), func() {
		g.faceUp = nil
	})
	return nil
}

func (g *memory) isFaceUpLocked(i int) bool {
	for _, up := range g.faceUp {
		if up == i {
			return true
		}
	}
	return false
}

func (g *memory) allMatchedLocked() bool {
	for _, m := range g.matched {
		if !m {
			return false
		}
	}
	return true
}

func (g *memory) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := MemorySnapshot{Status: g.statusLocked()}
	for i, card := range g.cards {
		view := MemoryCard{
			Position: i,
			FaceUp:   g.isFaceUpLocked(i),
			Matched:  g.matched[i],
			Emoji:    card.emoji,
		}
		if view.FaceUp || view.Matched {
			view.Text = card.text
		}
		snap.Cards = append(snap.Cards, view)
	}
	return snap
}
