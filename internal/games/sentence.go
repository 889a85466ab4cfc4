package games

import (
	"strings"
	"time"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	sentenceRounds        = 5
	sentencePoints        = 10
	sentenceFeedbackDelay = 2 * time.Second
)

// sentenceBuilder asks for the words of a sentence in order. The built
// sentence must equal the canonical string exactly.
type sentenceBuilder struct {
	round

	sentences []content.Sentence
	current   int
	tokens    []string
	used      []bool
	built     []int
}

// Token is a word available to place.
type Token struct {
	ID   int    `json:"id"`
	Word string `json:"word"`
}

// SentenceSnapshot is the view of a sentence-builder round.
type SentenceSnapshot struct {
	Status
	Sentence  int      `json:"sentence"`
	Sentences int      `json:"sentences"`
	Available []Token  `json:"available"`
	Built     []string `json:"built"`
}

func newSentenceBuilder(deps Deps) *sentenceBuilder {
	g := &sentenceBuilder{}
	g.init(SentenceBuilder, deps, g.setupLocked)
	return g
}

func (g *sentenceBuilder) setupLocked() {
	pool := g.deps.Pools.Sentences
	n := sentenceRounds
	if n > len(pool) {
		n = len(pool)
	}
	perm := random.Perm(g.deps.Random, len(pool))
	g.sentences = make([]content.Sentence, n)
	for i := 0; i < n; i++ {
		g.sentences[i] = pool[perm[i]]
	}
	g.current = 0
	g.loadLocked()
}

func (g *sentenceBuilder) loadLocked() {
	s := g.sentences[g.current]
	g.tokens = append([]string(nil), s.Words...)
	random.Shuffle(g.deps.Random, g.tokens)
	if strings.Join(g.tokens, " ") == s.Canonical && len(g.tokens) > 1 {
		g.tokens = append(g.tokens[1:], g.tokens[0])
	}
	g.used = make([]bool, len(g.tokens))
	g.built = nil
}

func (g *sentenceBuilder) Handle(in Input) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acceptLocked(); err != nil {
		return err
	}

	switch in.Action {
	case "add":
		if in.Index < 0 || in.Index >= len(g.tokens) {
			return outOfRange("word", in.Index)
		}
		if g.used[in.Index] {
			return nil
		}
		g.used[in.Index] = true
		g.built = append(g.built, in.Index)
		return nil
	case "remove":
		if in.Index < 0 || in.Index >= len(g.built) {
			return outOfRange("position", in.Index)
		}
		g.used[g.built[in.Index]] = false
		g.built = append(g.built[:in.Index], g.built[in.Index+1:]...)
		return nil
	case "clear":
		g.used = make([]bool, len(g.tokens))
		g.built = nil
		return nil
	case "submit":
		return g.submitLocked()
	default:
		return unknownAction(in.Action)
	}
}

func (g *sentenceBuilder) submitLocked() error {
	if len(g.built) != len(g.tokens) {
		return ErrNotReady
	}

	s := g.sentences[g.current]
	attempt := strings.Join(g.builtWordsLocked(), " ")
	correct := attempt == s.Canonical
	g.logger.Debug().Str("sentence", s.ID).Str("attempt", attempt).Bool("correct", correct).Msg("Sentence submitted")
	if correct {
		g.speakLocked(s.Canonical)
	}

	last := g.current == len(g.sentences)-1
	g.resolveLocked(correct, sentencePoints, sentenceFeedbackDelay, last, func() {
		g.current++
		g.loadLocked()
	})
	return nil
}

func (g *sentenceBuilder) builtWordsLocked() []string {
	words := make([]string, len(g.built))
	for i, id := range g.built {
		words[i] = g.tokens[id]
	}
	return words
}

func (g *sentenceBuilder) Snapshot() any {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := SentenceSnapshot{
		Status:    g.statusLocked(),
		Sentence:  g.current + 1,
		Sentences: len(g.sentences),
		Built:     g.builtWordsLocked(),
	}
	for i, word := range g.tokens {
		if !g.used[i] {
			snap.Available = append(snap.Available, Token{ID: i, Word: word})
		}
	}
	return snap
}
