package games

import (
	"context"
	"sync"
	"time"

	"github.com/goodtune/wordbuddy/internal/clock"
	"github.com/goodtune/wordbuddy/internal/metrics"
	"github.com/rs/zerolog"
)

// round is the state shared by every game. All fields are guarded by mu;
// methods ending in Locked expect it held. Timer callbacks run under mu and
// are dropped once the generation they were armed in has ended.
type round struct {
	kind   Kind
	deps   Deps
	logger zerolog.Logger
	setup  func()

	mu       sync.Mutex
	phase    Phase
	score    int
	feedback *Feedback
	gen      uint64
	timers   []clock.Timer
	closed   bool
	started  time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func (r *round) init(kind Kind, deps Deps, setup func()) {
	r.kind = kind
	r.deps = deps
	r.setup = setup
	r.logger = deps.Logger.With().Str("component", "games").Str("game", string(kind)).Logger()
	r.phase = PhaseLoading
}

func (r *round) Kind() Kind {
	return r.kind
}

func (r *round) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetLocked()
	r.closed = false
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.score = 0
	r.feedback = nil
	r.phase = PhaseLoading
	r.started = r.deps.Clock.Now()

	r.setup()
	if r.phase == PhaseLoading {
		r.phase = PhaseAwaitingInput
	}

	metrics.RoundsStarted.WithLabelValues(string(r.kind)).Inc()
	r.logger.Debug().Msg("Round started")
}

func (r *round) Replay() {
	r.Start()
}

func (r *round) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	r.closed = true
}

func (r *round) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *round) Score() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

func (r *round) Complete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == PhaseComplete
}

// resetLocked ends the current generation: timers stop, pending callbacks
// become no-ops and in-flight speech for the round is cancelled.
func (r *round) resetLocked() {
	r.gen++
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *round) statusLocked() Status {
	return Status{
		Kind:     r.kind,
		Phase:    r.phase,
		Score:    r.score,
		Complete: r.phase == PhaseComplete,
		Feedback: r.feedback,
	}
}

func (r *round) acceptLocked() error {
	if r.closed || r.phase != PhaseAwaitingInput {
		return ErrInputRejected
	}
	return nil
}

// afterLocked runs fn under mu after d, unless the round has been replayed
// or closed in the meantime. Rounds only complete from timers, so this is
// where OnComplete fires.
func (r *round) afterLocked(d time.Duration, fn func()) {
	gen := r.gen
	t := r.deps.Clock.AfterFunc(d, func() {
		r.mu.Lock()
		if r.gen != gen || r.closed {
			r.mu.Unlock()
			return
		}
		wasComplete := r.phase == PhaseComplete
		fn()
		var result *Result
		if !wasComplete && r.phase == PhaseComplete {
			result = &Result{
				Kind:        r.kind,
				Score:       r.score,
				StartedAt:   r.started,
				CompletedAt: r.deps.Clock.Now(),
			}
		}
		r.mu.Unlock()

		if result != nil && r.deps.OnComplete != nil {
			r.deps.OnComplete(*result)
		}
	})
	r.timers = append(r.timers, t)
}

func (r *round) awardLocked(delta int) {
	if delta <= 0 {
		return
	}
	r.score += delta
	metrics.PointsAwarded.WithLabelValues(string(r.kind)).Add(float64(delta))
}

// resolveLocked runs the evaluating and feedback phases for a completed
// action. After delay the round either completes (last) or runs next and
// returns to awaiting input.
func (r *round) resolveLocked(correct bool, delta int, delay time.Duration, last bool, next func()) {
	r.phase = PhaseEvaluating
	if correct {
		r.awardLocked(delta)
	} else {
		delta = 0
	}
	r.feedback = &Feedback{Correct: correct, Delta: delta}
	r.phase = PhaseFeedback

	r.afterLocked(delay, func() {
		r.feedback = nil
		if last {
			r.completeLocked()
			return
		}
		r.phase = PhaseLoading
		if next != nil {
			next()
		}
		r.phase = PhaseAwaitingInput
	})
}

func (r *round) completeLocked() {
	if r.phase == PhaseComplete {
		return
	}
	r.phase = PhaseComplete
	metrics.RoundsCompleted.WithLabelValues(string(r.kind)).Inc()
	r.logger.Info().Int("score", r.score).Msg("Round complete")
}

// speakLocked asks for audio. Speech outcomes never feed back into the round.
func (r *round) speakLocked(text string) {
	if r.deps.Speaker == nil || text == "" || r.ctx == nil {
		return
	}
	r.deps.Speaker.Speak(r.ctx, text)
}

func (r *round) prefetchLocked(text string) {
	if r.deps.Speaker == nil || text == "" || r.ctx == nil {
		return
	}
	r.deps.Speaker.Prefetch(r.ctx, text)
}
