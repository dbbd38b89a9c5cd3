// Package generator supplies the unbounded target word stream.
package generator

import (
	"errors"
	"math/rand"
	"strings"
	"time"
)

// ErrEmptyDictionary is returned when a source is built without words.
var ErrEmptyDictionary = errors.New("dictionary is empty")

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes the word stream reproducible.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithWeakChars biases selection toward words containing weak characters.
func WithWeakChars(weakSet map[rune]struct{}, factor float64) Option {
	return func(g *Generator) {
		if len(weakSet) == 0 || factor <= 0 {
			return
		}
		g.weakSet = weakSet
		g.factor = factor
	}
}

// Generator picks words at random from a dictionary. It never runs dry.
type Generator struct {
	rnd     *rand.Rand
	words   []string
	weakSet map[rune]struct{}
	factor  float64
	weights []float64
	total   float64
}

// New returns a Generator over words, seeded with the current time unless WithSeed is given.
func New(words []string, opts ...Option) (*Generator, error) {
	normalized := normalize(words)
	if len(normalized) == 0 {
		return nil, ErrEmptyDictionary
	}
	g := &Generator{
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		words: normalized,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.weakSet != nil {
		g.buildWeights()
	}
	return g, nil
}

// SetWeakChars replaces the weak-character bias. An empty set or a
// non-positive factor restores uniform selection.
func (g *Generator) SetWeakChars(weakSet map[rune]struct{}, factor float64) {
	if len(weakSet) == 0 || factor <= 0 {
		g.weakSet, g.factor, g.weights, g.total = nil, 0, nil, 0
		return
	}
	g.weakSet = weakSet
	g.factor = factor
	g.buildWeights()
}

// More returns the next count words.
func (g *Generator) More(count int) []string {
	if count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if g.weights != nil {
			result = append(result, g.words[g.pickWeighted()])
			continue
		}
		result = append(result, g.words[g.rnd.Intn(len(g.words))])
	}
	return result
}

func (g *Generator) buildWeights() {
	g.weights = make([]float64, len(g.words))
	g.total = 0
	for i, word := range g.words {
		weakCount := 0
		for _, r := range word {
			if _, ok := g.weakSet[r]; ok {
				weakCount++
			}
		}
		w := 1.0 + float64(weakCount)*g.factor
		g.weights[i] = w
		g.total += w
	}
}

func (g *Generator) pickWeighted() int {
	r := g.rnd.Float64() * g.total
	acc := 0.0
	for j, w := range g.weights {
		acc += w
		if r <= acc {
			return j
		}
	}
	return len(g.weights) - 1
}

// Sequence cycles through a fixed word list in order.
type Sequence struct {
	words []string
	next  int
}

// NewSequence returns a deterministic source that repeats words forever.
func NewSequence(words []string) (*Sequence, error) {
	normalized := normalize(words)
	if len(normalized) == 0 {
		return nil, ErrEmptyDictionary
	}
	return &Sequence{words: normalized}, nil
}

// More returns the next count words, wrapping around at the end of the list.
func (s *Sequence) More(count int) []string {
	if count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, s.words[s.next])
		s.next = (s.next + 1) % len(s.words)
	}
	return result
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || strings.ContainsAny(w, " \t") {
			continue
		}
		out = append(out, w)
	}
	return out
}
