package games

import (
	"fmt"
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	bubbleDuration      = 45 * time.Second
	bubbleSpawnInterval = 900 * time.Millisecond
	bubbleRiseRate      = 12.0 // percent of the screen per second
	bubbleTargetOdds    = 3    // one spawn in three carries the target
	bubblePoints        = 10
)

type bubble struct {
	id      int
	item    content.Item
	spawned time.Time
}

// bubblePop spawns rising word bubbles until the countdown ends. Popping the
// bubble for the displayed translation scores and picks a new target.
type bubblePop struct {
	round

	deadline time.Time
	target   content.Item
	bubbles  []bubble
	nextID   int
	popped   int
}

// Bubble is one bubble on screen. Height runs from 0 (spawned) to 100.
type Bubble struct {
	ID     int     `json:"id"`
	Word   string  `json:"word"`
	Height float64 `json:"height"`
}

// BubblePopSnapshot is the view of a bubble-pop round.
type BubblePopSnapshot struct {
	Status
	Remaining time.Duration `json:"remaining_ns"`
	Target    string        `json:"target"`
	Bubbles   []Bubble      `json:"bubbles"`
	Popped    int           `json:"popped"`
}

func newBubblePop(deps Deps) *bubblePop {
	g := &bubblePop{}
	g.init(BubblePop, deps, g.setupLocked)
	return g
}

func (g *bubblePop) setupLocked() {
	now := g.deps.Clock.Now()
	g.deadline = now.Add(bubbleDuration)
	g.bubbles = nil
	g.nextID = 0
	g.popped = 0
	g.target = random.Pick(g.deps.Random, g.deps.Pools.Items)

	g.spawnLocked()
	g.afterLocked(bubbleDuration, func() {
		g.bubbles = nil
		g.completeLocked()
	})
}

// spawnLocked adds a bubble and arms the next spawn.
func (g *bubblePop) spawnLocked() {
	if g.phase == PhaseComplete {
		return
	}
	now := g.deps.Clock.Now()
	g.pruneLocked(now)

	item := g.target
	if g.deps.Random.IntN(bubbleTargetOdds) != 0 {
		item = content.Distractors(g.deps.Random, g.deps.Pools.Items, g.target, 1)[0]
	}
	g.bubbles = append(g.bubbles, bubble{id: g.nextID, item: item, spawned: now})
	g.nextID++

	g.afterLocked(bubbleSpawnInterval, g.spawnLocked)
}

func bubbleHeight(b bubble, now time.Time) float64 {
	return now.Sub(b.spawned).Seconds() * bubbleRiseRate
}

// pruneLocked drops bubbles that have risen off the screen.
func (g *bubblePop) pruneLocked(now time.Time) {
	kept := g.bubbles[:0]
	for _, b := range g.bubbles {
		if bubbleHeight(b, now) < 100 {
			kept = append(kept, b)
		}
	}
	g.bubbles = kept
}

func (g *bubblePop) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}
	if in.Action != "pop" {
		return unknownAction(in.Action)
	}

	g.pruneLocked(g.deps.Clock.Now())
	idx := -1
	for i, b := range g.bubbles {
		if b.id == in.Index {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: bubble %d is gone", ErrInvalidInput, in.Index)
	}

	popped := g.bubbles[idx]
	g.bubbles = append(g.bubbles[:idx], g.bubbles[idx+1:]...)

	if popped.item.ID != g.target.ID {
		g.feedback = &Feedback{Correct: false}
		return nil
	}

	g.phase = PhaseEvaluating
	g.awardLocked(bubblePoints)
	g.popped++
	g.feedback = &Feedback{Correct: true, Delta: bubblePoints}
	g.speakLocked(popped.item.Word)
	g.target = content.Distractors(g.deps.Random, g.deps.Pools.Items, g.target, 1)[0]
	g.phase = PhaseAwaitingInput
	return nil
}

func (g *bubblePop) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.deps.Clock.Now()
	snap := BubblePopSnapshot{
		Status: g.statusLocked(),
		Target: g.target.Translation,
		Popped: g.popped,
	}
	if g.phase == PhaseComplete {
		return snap
	}
	if remaining := g.deadline.Sub(now); remaining > 0 {
		snap.Remaining = remaining
	}
	for _, b := range g.bubbles {
		if h := bubbleHeight(b, now); h < 100 {
			snap.Bubbles = append(snap.Bubbles, Bubble{ID: b.id, Word: b.item.Word, Height: h})
		}
	}
	return snap
}
