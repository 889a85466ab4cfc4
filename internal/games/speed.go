package games

import (
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
)

const (
	speedDuration = 60 * time.Second
	speedOptions  = 4
	speedPoints   = 10
)

// speedRound asks as many questions as fit in the countdown. Every answer
// moves straight to the next question.
type speedRound struct {
	round

	deadline time.Time
	target   content.Item
	options  []content.Item
	answered int
}

// Option is a multiple-choice answer.
type Option struct {
	Position int    `json:"position"`
	ID       string `json:"id"`
	Word     string `json:"word"`
	Emoji    string `json:"emoji,omitempty"`
}

// SpeedRoundSnapshot is the view of a speed round.
type SpeedRoundSnapshot struct {
	Status
	Remaining time.Duration `json:"remaining_ns"`
	Prompt    string        `json:"prompt"`
	Options   []Option      `json:"options"`
	Answered  int           `json:"answered"`
}

func newSpeedRound(deps Deps) *speedRound {
	g := &speedRound{}
	g.init(SpeedRound, deps, g.setupLocked)
	return g
}

func (g *speedRound) setupLocked() {
	g.deadline = g.deps.Clock.Now().Add(speedDuration)
	g.target = content.Item{}
	g.answered = 0
	g.nextQuestionLocked()
	g.afterLocked(speedDuration, g.completeLocked)
}

func (g *speedRound) nextQuestionLocked() {
	items := g.deps.Pools.Items
	i := g.deps.Random.IntN(len(items))
	if items[i].ID == g.target.ID {
		i = (i + 1) % len(items)
	}
	g.target = items[i]
	g.options = content.Options(g.deps.Random, items, g.target, speedOptions)
}

func (g *speedRound) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}
	if in.Action != "answer" {
		return unknownAction(in.Action)
	}
	if in.Index < 0 || in.Index >= len(g.options) {
		return outOfRange("option", in.Index)
	}

	g.phase = PhaseEvaluating
	correct := g.options[in.Index].ID == g.target.ID
	delta := 0
	if correct {
		delta = speedPoints
		g.awardLocked(delta)
	}
	g.answered++
	g.feedback = &Feedback{Correct: correct, Delta: delta}

	g.phase = PhaseLoading
	g.nextQuestionLocked()
	g.phase = PhaseAwaitingInput
	return nil
}

func (g *speedRound) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := SpeedRoundSnapshot{
		Status:   g.statusLocked(),
		Prompt:   g.target.Translation,
		Answered: g.answered,
	}
	if g.phase != PhaseComplete {
		if remaining := g.deadline.Sub(g.deps.Clock.Now()); remaining > 0 {
			snap.Remaining = remaining
		}
		snap.Options = optionViews(g.options)
	}
	return snap
}

func optionViews(items []content.Item) []Option {
	out := make([]Option, len(items))
	for i, item := range items {
		out[i] = Option{Position: i, ID: item.ID, Word: item.Word, Emoji: item.Emoji}
	}
	return out
}
