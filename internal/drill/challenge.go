package drill

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/goodtune/wordbuddy/internal/content"
	"github.com/goodtune/wordbuddy/internal/random"
)

const (
	challengeQuestions = 5
	challengeOptions   = 4
	challengePoints    = 10
)

// ErrChallengeComplete is returned for answers after the last question.
var ErrChallengeComplete = errors.New("challenge already complete")

type question struct {
	target  content.Item
	options []content.Item
}

// Question is the view of the current challenge question.
type Question struct {
	Number  int      `json:"number"`
	Total   int      `json:"total"`
	Prompt  string   `json:"prompt"`
	Emoji   string   `json:"emoji,omitempty"`
	Options []string `json:"options"`
}

// Answer is the result of one answer.
type Answer struct {
	Correct bool   `json:"correct"`
	Delta   int    `json:"delta"`
	Word    string `json:"word"`
}

// ChallengeSnapshot is the view of a daily challenge.
type ChallengeSnapshot struct {
	Date     string    `json:"date"`
	Score    int       `json:"score"`
	Complete bool      `json:"complete"`
	Question *Question `json:"question,omitempty"`
	Last     *Answer   `json:"last,omitempty"`
}

// DailyChallenge is a short quiz that is the same for everyone on a date.
type DailyChallenge struct {
	date      string
	questions []question

	mu      sync.Mutex
	current int
	score   int
	last    *Answer
}

// Seed derives the random seed for date.
func Seed(date string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(date))
	return h.Sum64()
}

// NewDailyChallenge builds the challenge for date from items.
func NewDailyChallenge(date string, items []content.Item) *DailyChallenge {
	src := random.New(Seed(date))
	targets := content.Sample(src, items, challengeQuestions)

	c := &DailyChallenge{date: date}
	for _, t := range targets {
		c.questions = append(c.questions, question{
			target:  t,
			options: content.Options(src, items, t, challengeOptions),
		})
	}
	return c
}

// Answer records the answer for the current question and moves on.
func (c *DailyChallenge) Answer(option int) (Answer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current >= len(c.questions) {
		return Answer{}, ErrChallengeComplete
	}
	q := c.questions[c.current]
	if option < 0 || option >= len(q.options) {
		return Answer{}, errors.New("option out of range")
	}

	a := Answer{Correct: q.options[option].ID == q.target.ID, Word: q.target.Word}
	if a.Correct {
		a.Delta = challengePoints
		c.score += challengePoints
	}
	c.last = &a
	c.current++
	return a, nil
}

// Score returns the points earned so far.
func (c *DailyChallenge) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.score
}

// Complete reports whether every question has been answered.
func (c *DailyChallenge) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current >= len(c.questions)
}

// Snapshot returns the current view.
func (c *DailyChallenge) Snapshot() ChallengeSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := ChallengeSnapshot{
		Date:     c.date,
		Score:    c.score,
		Complete: c.current >= len(c.questions),
		Last:     c.last,
	}
	if !snap.Complete {
		q := c.questions[c.current]
		view := &Question{
			Number: c.current + 1,
			Total:  len(c.questions),
			Prompt: q.target.Translation,
			Emoji:  q.target.Emoji,
		}
		for _, o := range q.options {
			view.Options = append(view.Options, o.Word)
		}
		snap.Question = view
	}
	return snap
}
