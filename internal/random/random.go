// Package random provides the injectable random source used to build game content.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source is the subset of math/rand/v2 used for shuffles and draws.
type Source interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// New returns a goroutine-safe PCG source for seed.
func New(seed uint64) Source {
	return &locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *locked) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// Fixed is a scripted source: IntN cycles through Values (mod n) and Shuffle
// leaves the order untouched. Layouts built from it are fully predictable.
type Fixed struct {
	mu     sync.Mutex
	Values []int
	next   int
}

// IntN returns the next scripted value reduced into [0, n).
func (f *Fixed) IntN(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 {
		panic("random: IntN with non-positive n")
	}
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	if v < 0 {
		v = -v
	}
	return v % n
}

// Shuffle is the identity permutation.
func (f *Fixed) Shuffle(int, func(i, j int)) {}

// Perm returns a shuffled permutation of [0, n).
func Perm(src Source, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	src.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// Shuffle reorders s in place.
func Shuffle[T any](src Source, s []T) {
	src.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Pick returns a random element of s. s must not be empty.
func Pick[T any](src Source, s []T) T {
	return s[src.IntN(len(s))]
}
