// Package chunker splits finalized transcript segments into bounded text
// windows suitable for embedding. Both strategies are pure: splitting the
// same input twice yields the same chunks.
package chunker

import "strings"

const (
	DefaultWindowSize = 100 // words per chunk
	DefaultOverlap    = 20  // words shared between consecutive chunks
	DefaultMinChars   = 30  // chunks shorter than this are dropped
	DefaultCharBudget = 500 // bytes per chunk for the character-budget strategy
)

// Chunk is an immutable text window cut from one segment. Index is the
// position within the emitted sequence, contiguous from 0.
type Chunk struct {
	Content   string
	Index     int
	SegmentID string
}

// Strategy turns a segment of text into zero or more chunks.
type Strategy interface {
	Split(text string) []Chunk
}

// WordWindow slides a fixed word-count window over the text, advancing by
// Size-Overlap words per step, so consecutive chunks share Overlap words.
// The trailing partial window is still emitted when it clears MinChars.
type WordWindow struct {
	Size     int
	Overlap  int
	MinChars int
}

func NewWordWindow(size, overlap, minChars int) WordWindow {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if minChars < 0 {
		minChars = DefaultMinChars
	}
	return WordWindow{Size: size, Overlap: overlap, MinChars: minChars}
}

func (w WordWindow) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := w.Size - w.Overlap
	var chunks []Chunk
	for i := 0; i < len(words); i += step {
		end := i + w.Size
		if end > len(words) {
			end = len(words)
		}
		content := strings.Join(words[i:end], " ")
		if len(content) >= w.MinChars {
			chunks = append(chunks, Chunk{Content: content, Index: len(chunks)})
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}

// CharBudget packs whole words greedily until appending the next word would
// exceed the byte budget, then starts a new chunk. Used for short buffered
// text where fixed word windows would mostly produce one partial chunk.
type CharBudget struct {
	Budget   int
	MinChars int
}

func NewCharBudget(budget, minChars int) CharBudget {
	if budget <= 0 {
		budget = DefaultCharBudget
	}
	if minChars < 0 {
		minChars = DefaultMinChars
	}
	return CharBudget{Budget: budget, MinChars: minChars}
}

func (c CharBudget) Split(text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	var b strings.Builder
	emit := func() {
		if b.Len() >= c.MinChars {
			chunks = append(chunks, Chunk{Content: b.String(), Index: len(chunks)})
		}
		b.Reset()
	}

	for _, word := range words {
		if b.Len() > 0 && b.Len()+1+len(word) > c.Budget {
			emit()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	emit()
	return chunks
}

// FromEnv maps a CHUNK_STRATEGY value to a strategy with default parameters.
func FromEnv(name string) Strategy {
	if strings.EqualFold(strings.TrimSpace(name), "chars") {
		return NewCharBudget(DefaultCharBudget, DefaultMinChars)
	}
	return NewWordWindow(DefaultWindowSize, DefaultOverlap, DefaultMinChars)
}
