package chunk

import (
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens in a string. Implementations range from
// simple word counting to model-specific subword tokenization. Counts are
// used for reporting and sizing heuristics only, so they may be
// approximate.
type TokenCounter interface {
	// Count returns a non-negative token count for the text.
	Count(text string) int
}

// WordTokenCounter estimates tokens from whitespace-delimited words using
// the usual ~0.75 tokens-per-word ratio of English text.
type WordTokenCounter struct{}

// Count returns round(words * 0.75).
func (WordTokenCounter) Count(text string) int {
	return int(math.Round(float64(len(strings.Fields(text))) * 0.75))
}

// TiktokenCounter counts tokens with a tiktoken encoding, lazily acquired
// on first use. When the encoding cannot be loaded it degrades to the
// word-count estimate and never fails.
type TiktokenCounter struct {
	encodingName string
	once         sync.Once
	enc          *tiktoken.Tiktoken
	fallback     WordTokenCounter
}

// DefaultEncoding is the tokenizer encoding used when none is configured.
// cl100k_base matches the GPT-4 family of models.
const DefaultEncoding = "cl100k_base"

// NewTokenCounter creates a TiktokenCounter for the given encoding name.
// An empty name selects DefaultEncoding. Construction never fails; an
// unavailable encoding is detected on first Count and the counter degrades
// to the word-count fallback for the rest of its life.
func NewTokenCounter(encodingName string) *TiktokenCounter {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	return &TiktokenCounter{encodingName: encodingName}
}

// Count returns the number of tokens in text according to the configured
// encoding, or the word-count estimate when the tokenizer is unavailable.
func (tc *TiktokenCounter) Count(text string) int {
	tc.once.Do(func() {
		enc, err := tiktoken.GetEncoding(tc.encodingName)
		if err != nil {
			GlobalLogger.Warn("tokenizer encoding unavailable, using word-count estimate",
				"encoding", tc.encodingName, "error", err)
			return
		}
		tc.enc = enc
	})
	if tc.enc == nil {
		return tc.fallback.Count(text)
	}
	return len(tc.enc.Encode(text, nil, nil))
}
