package games

import (
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
)

const (
	listenRounds        = 5
	listenOptions       = 4
	listenPoints        = 10
	listenFeedbackDelay = 1500 * time.Millisecond
)

// listenAndPick plays a word and asks for the matching option.
type listenAndPick struct {
	round

	targets []content.Item
	current int
	options []content.Item
}

// ListenSnapshot is the view of a listen-and-pick round.
type ListenSnapshot struct {
	Status
	Round   int      `json:"round"`
	Rounds  int      `json:"rounds"`
	Options []Option `json:"options"`
}

func newListenAndPick(deps Deps) *listenAndPick {
	g := &listenAndPick{}
	g.init(ListenAndPick, deps, g.setupLocked)
	return g
}

func (g *listenAndPick) setupLocked() {
	g.targets = content.Sample(g.deps.Random, g.deps.Pools.Items, listenRounds)
	g.current = 0
	g.loadLocked()
}

func (g *listenAndPick) loadLocked() {
	target := g.targets[g.current]
	g.options = content.Options(g.deps.Random, g.deps.Pools.Items, target, listenOptions)
	g.speakLocked(target.Word)
	if g.current+1 < len(g.targets) {
		g.prefetchLocked(g.targets[g.current+1].Word)
	}
}

func (g *listenAndPick) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if in.Action == "replay_audio" {
		if g.closed || g.phase == PhaseComplete {
			return ErrInputRejected
		}
		g.speakLocked(g.targets[g.current].Word)
		return nil
	}

	if err := g.acceptLocked(); err != nil {
		return err
	}
	if in.Action != "pick" {
		return unknownAction(in.Action)
	}
	if in.Index < 0 || in.Index >= len(g.options) {
		return outOfRange("option", in.Index)
	}

	target := g.targets[g.current]
	correct := g.options[in.Index].ID == target.ID
	g.logger.Debug().Str("target", target.ID).Str("picked", g.options[in.Index].ID).Bool("correct", correct).Msg("Option picked")

	last := g.current == len(g.targets)-1
	g.resolveLocked(correct, listenPoints, listenFeedbackDelay, last, func() {
		g.current++
		g.loadLocked()
	})
	return nil
}

func (g *listenAndPick) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := ListenSnapshot{
		Status: g.statusLocked(),
		Round:  g.current + 1,
		Rounds: len(g.targets),
	}
	if g.phase != PhaseComplete {
		snap.Options = optionViews(g.options)
	}
	return snap
}
