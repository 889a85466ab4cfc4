package games

import (
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	matchingPairs         = 6
	matchingPoints        = 10
	matchingFeedbackDelay = 1200 * time.Millisecond
)

// matching shows English words on the left and translations on the right.
// The columns are shuffled independently so no row lines up.
type matching struct {
	round

	items    []content.Item
	left     []int
	right    []int
	matched  map[string]bool
	selLeft  int
	selRight int
}

// MatchCard is one card in a matching column.
type MatchCard struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Text     string `json:"text"`
	Emoji    string `json:"emoji,omitempty"`
	Matched  bool   `json:"matched"`
	Selected bool   `json:"selected"`
}

// MatchingSnapshot is the view of a matching round.
type MatchingSnapshot struct {
	Status
	Left  []MatchCard `json:"left"`
	Right []MatchCard `json:"right"`
	Pairs int         `json:"pairs"`
}

func newMatching(deps Deps) *matching {
	g := &matching{}
	g.init(Matching, deps, g.setupLocked)
	return g
}

func (g *matching) setupLocked() {
	g.items = content.Sample(g.deps.Random, g.deps.Pools.Items, matchingPairs)
	g.left = random.Perm(g.deps.Random, len(g.items))
	g.right = random.Perm(g.deps.Random, len(g.items))
	unalign(g.left, g.right)
	g.matched = make(map[string]bool, len(g.items))
	g.selLeft, g.selRight = -1, -1

	for _, item := range g.items {
		g.prefetchLocked(item.Word)
	}
}

// unalign swaps right-column entries forward until no row pairs the same
// item. Each swap fixes its row without breaking another.
func unalign(left, right []int) {
	n := len(right)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		if left[i] == right[i] {
			j := (i + 1) % n
			right[i], right[j] = right[j], right[i]
		}
	}
}

func (g *matching) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}

	switch in.Action {
	case "select_left":
		if in.Index < 0 || in.Index >= len(g.left) {
			return outOfRange("card", in.Index)
		}
		item := g.items[g.left[in.Index]]
		if g.matched[item.ID] {
			return nil
		}
		g.selLeft = in.Index
		g.speakLocked(item.Word)
	case "select_right":
		if in.Index < 0 || in.Index >= len(g.right) {
			return outOfRange("card", in.Index)
		}
		if g.matched[g.items[g.right[in.Index]].ID] {
			return nil
		}
		g.selRight = in.Index
	default:
		return unknownAction(in.Action)
	}

	if g.selLeft < 0 || g.selRight < 0 {
		return nil
	}

	leftItem := g.items[g.left[g.selLeft]]
	rightItem := g.items[g.right[g.selRight]]
	correct := leftItem.ID == rightItem.ID
	if correct {
		g.matched[leftItem.ID] = true
	}
	g.logger.Debug().Str("left", leftItem.ID).Str("right", rightItem.ID).Bool("correct", correct).Msg("Match attempted")

	last := len(g.matched) == len(g.items)
	g.resolveLocked(correct, matchingPoints, matchingFeedbackDelay, last, func() {
		g.selLeft, g.selRight = -1, -1
	})
	return nil
}

func (g *matching) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := MatchingSnapshot{Status: g.statusLocked(), Pairs: len(g.items)}
	for pos, idx := range g.left {
		item := g.items[idx]
		snap.Left = append(snap.Left, MatchCard{
			Position: pos,
			ID:       item.ID,
			Text:     item.Word,
			Emoji:    item.Emoji,
			Matched:  g.matched[item.ID],
			Selected: pos == g.selLeft,
		})
	}
	for pos, idx := range g.right {
		item := g.items[idx]
		snap.Right = append(snap.Right, MatchCard{
			Position: pos,
			ID:       item.ID,
			Text:     item.Translation,
			Matched:  g.matched[item.ID],
			Selected: pos == g.selRight,
		})
	}
	return snap
}
