package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyDictionary(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrEmptyDictionary)

	_, err = New([]string{"", "  "})
	require.ErrorIs(t, err, ErrEmptyDictionary)

	_, err = NewSequence([]string{})
	require.ErrorIs(t, err, ErrEmptyDictionary)
}

func TestGeneratorMoreNeverRunsDry(t *testing.T) {
	g, err := New([]string{"Alpha", "beta"}, WithSeed(7))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		words := g.More(100)
		require.Len(t, words, 100)
		for _, w := range words {
			assert.Contains(t, []string{"alpha", "beta"}, w)
		}
	}
	assert.Empty(t, g.More(0))
}

func TestGeneratorSeedIsReproducible(t *testing.T) {
	dict := []string{"one", "two", "three", "four", "five"}
	a, err := New(dict, WithSeed(42))
	require.NoError(t, err)
	b, err := New(dict, WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, a.More(20), b.More(20))
}

func TestGeneratorWeakCharsBias(t *testing.T) {
	dict := []string{"zzz", "aaa"}
	g, err := New(dict, WithSeed(1), WithWeakChars(map[rune]struct{}{'z': {}}, 20))
	require.NoError(t, err)

	counts := map[string]int{}
	for _, w := range g.More(1000) {
		counts[w]++
	}
	assert.Greater(t, counts["zzz"], counts["aaa"]*5)
}

func TestSequenceCycles(t *testing.T) {
	s, err := NewSequence([]string{"the", "quick", "brown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "quick"}, s.More(2))
	assert.Equal(t, []string{"brown", "the", "quick", "brown"}, s.More(4))
}

func TestGeneratorSetWeakChars(t *testing.T) {
	g, err := New([]string{"zzz", "abc"}, WithSeed(7))
	require.NoError(t, err)
	g.SetWeakChars(map[rune]struct{}{'z': {}}, 10)
	zCount := 0
	for _, w := range g.More(1000) {
		if w == "zzz" {
			zCount++
		}
	}
	assert.Greater(t, zCount, 800)

	g.SetWeakChars(nil, 10)
	assert.Nil(t, g.weights)
}
