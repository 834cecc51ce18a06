package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordTokenCounter(t *testing.T) {
	counter := WordTokenCounter{}

	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 1, counter.Count("hello"))
	// 4 words * 0.75 = 3
	assert.Equal(t, 3, counter.Count("one two three four"))
	// 2 words * 0.75 = 1.5, rounds to 2
	assert.Equal(t, 2, counter.Count("hello world"))
}

func TestTiktokenCounterNeverFails(t *testing.T) {
	counter := NewTokenCounter("")

	assert.Equal(t, 0, counter.Count(""))
	assert.GreaterOrEqual(t, counter.Count("The quick brown fox jumps over the lazy dog."), 1)

	// Deterministic across calls.
	text := "Counting tokens should be a pure function of the input text."
	assert.Equal(t, counter.Count(text), counter.Count(text))
}

func TestTiktokenCounterUnknownEncodingFallsBack(t *testing.T) {
	counter := NewTokenCounter("no-such-encoding")
	fallback := WordTokenCounter{}

	text := "one two three four five six"
	assert.Equal(t, fallback.Count(text), counter.Count(text))
}
