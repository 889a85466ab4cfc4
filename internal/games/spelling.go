package games

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	spellingWords         = 5
	spellingDistractors   = 2
	spellingMaxHints      = 2
	spellingFeedbackDelay = 1500 * time.Millisecond

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// spellingTiers is the score for a correct word by hints used.
var spellingTiers = [spellingMaxHints + 1]int{10, 6, 3}

// spelling builds a word from a shuffled pool of its letters plus a few
// distractors. A wrong submission only returns the misplaced tiles.
type spelling struct {
	round

	words   []content.Item
	current int
	target  []string
	tiles   []string
	placed  []bool
	slots   []int
	hinted  []bool
	hints   int
}

// Tile is a letter tile in the pool.
type Tile struct {
	ID     int    `json:"id"`
	Letter string `json:"letter"`
}

// Slot is one position of the word being built.
type Slot struct {
	Letter string `json:"letter,omitempty"`
	Hinted bool   `json:"hinted,omitempty"`
}

// SpellingSnapshot is the view of a spelling round.
type SpellingSnapshot struct {
	Status
	Word        int    `json:"word"`
	Words       int    `json:"words"`
	Translation string `json:"translation"`
	Emoji       string `json:"emoji,omitempty"`
	Pool        []Tile `json:"pool"`
	Slots       []Slot `json:"slots"`
	HintsUsed   int    `json:"hints_used"`
	HintsLeft   int    `json:"hints_left"`
}

func newSpelling(deps Deps) *spelling {
	g := &spelling{}
	g.init(Spelling, deps, g.setupLocked)
	return g
}

func (g *spelling) setupLocked() {
	g.words = content.Sample(g.deps.Random, g.deps.Pools.Items, spellingWords)
	g.current = 0
	g.loadWordLocked()
}

func (g *spelling) loadWordLocked() {
	item := g.words[g.current]
	word := strings.ToUpper(item.Word)

	g.target = strings.Split(word, "")
	g.tiles = append([]string(nil), g.target...)
	g.tiles = append(g.tiles, distractorLetters(g.deps.Random, word, spellingDistractors)...)
	random.Shuffle(g.deps.Random, g.tiles)

	g.placed = make([]bool, len(g.tiles))
	g.slots = make([]int, len(g.target))
	for i := range g.slots {
		g.slots[i] = -1
	}
	g.hinted = make([]bool, len(g.target))
	g.hints = 0

	g.speakLocked(item.Word)
	if g.current+1 < len(g.words) {
		g.prefetchLocked(g.words[g.current+1].Word)
	}
}

// distractorLetters draws n distinct letters that do not occur in word.
func distractorLetters(src random.Source, word string, n int) []string {
	var unused []string
	for _, r := range alphabet {
		if !strings.ContainsRune(word, r) {
			unused = append(unused, string(r))
		}
	}
	var out []string
	for len(out) < n && len(unused) > 0 {
		i := src.IntN(len(unused))
		out = append(out, unused[i])
		unused = append(unused[:i], unused[i+1:]...)
	}
	return out
}

func (g *spelling) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}

	switch in.Action {
	case "place":
		return g.placeLocked(in.Index)
	case "remove":
		return g.removeLocked(in.Index)
	case "hint":
		return g.hintLocked()
	case "submit":
		return g.submitLocked()
	default:
		return unknownAction(in.Action)
	}
}

func (g *spelling) placeLocked(tile int) error {
	if tile < 0 || tile >= len(g.tiles) {
		return outOfRange("tile", tile)
	}
	if g.placed[tile] {
		return fmt.Errorf("%w: tile %d already placed", ErrInvalidInput, tile)
	}
	slot := g.firstEmptyLocked()
	if slot < 0 {
		return fmt.Errorf("%w: no empty slot", ErrInvalidInput)
	}
	g.slots[slot] = tile
	g.placed[tile] = true
	return nil
}

func (g *spelling) removeLocked(slot int) error {
	if slot < 0 || slot >= len(g.slots) {
		return outOfRange("slot", slot)
	}
	if g.hinted[slot] || g.slots[slot] < 0 {
		return nil
	}
	g.placed[g.slots[slot]] = false
	g.slots[slot] = -1
	return nil
}

// hintLocked fills the first slot that is empty or wrong with the correct
// letter and locks it.
func (g *spelling) hintLocked() error {
	if g.hints >= spellingMaxHints {
		return fmt.Errorf("%w: no hints left", ErrInvalidInput)
	}

	for i, want := range g.target {
		if g.slots[i] >= 0 && g.tiles[g.slots[i]] == want {
			continue
		}
		if g.slots[i] >= 0 {
			g.placed[g.slots[i]] = false
			g.slots[i] = -1
		}
		tile := g.freeTileLocked(want)
		if tile < 0 {
			// The letter is sitting in a later slot; pull it back.
			for j := i + 1; j < len(g.slots); j++ {
				if g.slots[j] >= 0 && g.tiles[g.slots[j]] == want && !g.hinted[j] {
					tile = g.slots[j]
					g.slots[j] = -1
					break
				}
			}
		}
		if tile < 0 {
			return fmt.Errorf("%w: no tile for hint", ErrInvalidInput)
		}
		g.slots[i] = tile
		g.placed[tile] = true
		g.hinted[i] = true
		g.hints++
		return nil
	}
	return fmt.Errorf("%w: word already spelled", ErrInvalidInput)
}

func (g *spelling) submitLocked() error {
	if g.firstEmptyLocked() >= 0 {
		return ErrNotReady
	}

	var b strings.Builder
	for _, tile := range g.slots {
		b.WriteString(g.tiles[tile])
	}
	correct := b.String() == strings.Join(g.target, "")
	g.logger.Debug().Str("word", strings.Join(g.target, "")).Str("attempt", b.String()).Int("hints", g.hints).Msg("Spelling submitted")

	if !correct {
		for i, tile := range g.slots {
			if g.tiles[tile] != g.target[i] {
				g.placed[tile] = false
				g.slots[i] = -1
			}
		}
		g.resolveLocked(false, 0, spellingFeedbackDelay, false, nil)
		return nil
	}

	last := g.current == len(g.words)-1
	g.resolveLocked(true, spellingTiers[g.hints], spellingFeedbackDelay, last, func() {
		g.current++
		g.loadWordLocked()
	})
	return nil
}

func (g *spelling) firstEmptyLocked() int {
	for i, tile := range g.slots {
		if tile < 0 {
			return i
		}
	}
	return -1
}

func (g *spelling) freeTileLocked(letter string) int {
	for i, l := range g.tiles {
		if !g.placed[i] && l == letter {
			return i
		}
	}
	return -1
}

func (g *spelling) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := SpellingSnapshot{
		Status:    g.statusLocked(),
		Word:      g.current + 1,
		Words:     len(g.words),
		HintsUsed: g.hints,
		HintsLeft: spellingMaxHints - g.hints,
	}
	if g.current < len(g.words) {
		snap.Translation = g.words[g.current].Translation
		snap.Emoji = g.words[g.current].Emoji
	}
	for i, l := range g.tiles {
		if !g.placed[i] {
			snap.Pool = append(snap.Pool, Tile{ID: i, Letter: l})
		}
	}
	for i, tile := range g.slots {
		s := Slot{Hinted: g.hinted[i]}
		if tile >= 0 {
			s.Letter = g.tiles[tile]
		}
		snap.Slots = append(snap.Slots, s)
	}
	return snap
}
