package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%03d", i)
	}
	return strings.Join(words, " ")
}

func TestWordWindowOverlap(t *testing.T) {
	w := NewWordWindow(100, 20, 30)
	chunks := w.Split(numberedWords(260))
	require.True(t, len(chunks) >= 2)

	for n := 0; n < len(chunks)-1; n++ {
		cur := strings.Fields(chunks[n].Content)
		next := strings.Fields(chunks[n+1].Content)
		require.True(t, len(cur) >= 20)
		assert.Equal(t, cur[len(cur)-20:], next[:20], "chunk %d tail must reappear as chunk %d head", n, n+1)
	}
}

func TestWordWindowDropsBelowMinimum(t *testing.T) {
	w := NewWordWindow(100, 20, 30)
	assert.Empty(t, w.Split("hi there"))
	assert.Empty(t, w.Split("   "))
	assert.Empty(t, w.Split(""))
}

func TestWordWindowEmitsFinalPartialWindow(t *testing.T) {
	// 130 words: full window of 100, then a partial of 50 (overlap 20).
	w := NewWordWindow(100, 20, 30)
	chunks := w.Split(numberedWords(130))
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0].Content), 100)
	assert.Len(t, strings.Fields(chunks[1].Content), 50)
}

func TestWordWindowDeterministic(t *testing.T) {
	w := NewWordWindow(100, 20, 30)
	text := numberedWords(333)
	assert.Equal(t, w.Split(text), w.Split(text))
}

func TestWordWindowIndicesContiguous(t *testing.T) {
	w := NewWordWindow(10, 2, 1)
	chunks := w.Split(numberedWords(40))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestNewWordWindowClampsInvalidParams(t *testing.T) {
	w := NewWordWindow(0, -5, -1)
	assert.Equal(t, DefaultWindowSize, w.Size)
	assert.Equal(t, 0, w.Overlap)
	assert.Equal(t, DefaultMinChars, w.MinChars)

	// overlap >= size must not produce a non-advancing window
	w = NewWordWindow(10, 10, 0)
	assert.Equal(t, 0, w.Overlap)
}

func TestCharBudgetPacksWholeWords(t *testing.T) {
	c := NewCharBudget(20, 1)
	chunks := c.Split("alpha beta gamma delta epsilon zeta")
	require.NotEmpty(t, chunks)

	var rebuilt []string
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 20)
		rebuilt = append(rebuilt, strings.Fields(ch.Content)...)
	}
	// no word is split or lost
	assert.Equal(t, strings.Fields("alpha beta gamma delta epsilon zeta"), rebuilt)
}

func TestCharBudgetDropsBelowMinimum(t *testing.T) {
	c := NewCharBudget(500, 30)
	assert.Empty(t, c.Split("hi there"))
}

func TestCharBudgetDeterministic(t *testing.T) {
	c := NewCharBudget(64, 10)
	text := numberedWords(100)
	assert.Equal(t, c.Split(text), c.Split(text))
}

func TestFromEnv(t *testing.T) {
	assert.IsType(t, CharBudget{}, FromEnv("chars"))
	assert.IsType(t, WordWindow{}, FromEnv("words"))
	assert.IsType(t, WordWindow{}, FromEnv(""))
}
