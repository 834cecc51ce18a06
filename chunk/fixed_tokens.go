package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func init() {
	RegisterStrategy(StrategyFixedSizeTokens, NewTokenWindowChunker)
}

// StrategyFixedSizeTokens names the token-window fixed-size strategy.
const StrategyFixedSizeTokens = "fixed_size_tokens"

// TokenWindowChunker builds chunks by accumulating sentences until a token
// budget is reached, then re-includes enough trailing sentences from the
// previous chunk to cover the configured token overlap. Sentences whose
// own token count exceeds the budget are pre-split on words.
type TokenWindowChunker struct {
	chunkSize    int
	chunkOverlap int
	counter      TokenCounter
	split        func(string) []string
}

// NewTokenWindowChunker builds the strategy from parameters:
//   - chunk_size: token budget per chunk (default 200), must be positive
//   - chunk_overlap: token overlap between chunks (default 50),
//     must be non-negative and strictly less than chunk_size
//   - encoding: tokenizer encoding name (default cl100k_base)
func NewTokenWindowChunker(params Params) (Strategy, error) {
	c := &TokenWindowChunker{
		chunkSize:    params.Int("chunk_size", 200),
		chunkOverlap: params.Int("chunk_overlap", 50),
		counter:      NewTokenCounter(params.String("encoding", "")),
		split:        SmartSplitSentences,
	}
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", c.chunkSize)
	}
	if c.chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk_overlap cannot be negative, got %d", c.chunkOverlap)
	}
	if c.chunkOverlap >= c.chunkSize {
		return nil, fmt.Errorf("chunk_overlap (%d) must be less than chunk_size (%d)",
			c.chunkOverlap, c.chunkSize)
	}
	return c, nil
}

func (c *TokenWindowChunker) Name() string { return StrategyFixedSizeTokens }

// Config describes the strategy's effective configuration.
func (c *TokenWindowChunker) Config() Params {
	return Params{
		"strategy_name": c.Name(),
		"chunk_size":    c.chunkSize,
		"chunk_overlap": c.chunkOverlap,
	}
}

// ChunkDocument splits the cleaned text into sentences and windows them by
// token count with overlap.
func (c *TokenWindowChunker) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	if err := validateDocument(c.Name(), doc); err != nil {
		return nil, err
	}
	text := CleanText(doc.FullText)
	if text == "" {
		GlobalLogger.Warn("no text content after cleaning", "document", doc.DocumentID)
		return nil, nil
	}

	sentences := c.normalizeSentences(c.split(text))
	pieces := c.window(sentences)

	chunks := make([]DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		start, end := approxOffsets(text, piece.text, i, c.chunkSize-c.chunkOverlap)
		chunks = append(chunks, DocumentChunk{
			ChunkID:       chunkID(doc.DocumentID, c.Name(), i),
			DocumentID:    doc.DocumentID,
			StrategyName:  c.Name(),
			Content:       piece.text,
			StartPosition: start,
			EndPosition:   end,
			TokenCount:    piece.tokens,
			Metadata: map[string]interface{}{
				"title":           doc.Title,
				"authors":         doc.Authors,
				"chunk_index":     i,
				"total_chunks":    0, // back-filled by the pipeline
				"start_sentence":  piece.startSentence,
				"end_sentence":    piece.endSentence,
				"strategy_config": c.Config(),
			},
			CreatedAt: time.Now(),
		})
	}

	GlobalLogger.Info("created chunks",
		"strategy", c.Name(), "document", doc.DocumentID, "chunks", len(chunks))
	return chunks, nil
}

// normalizeSentences pre-splits any sentence whose token count alone
// exceeds the chunk budget into word runs that fit.
func (c *TokenWindowChunker) normalizeSentences(sentences []string) []string {
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if c.counter.Count(s) <= c.chunkSize {
			out = append(out, s)
			continue
		}
		words := strings.Fields(s)
		var run []string
		runTokens := 0
		for _, w := range words {
			wt := c.counter.Count(w)
			if runTokens+wt > c.chunkSize && len(run) > 0 {
				out = append(out, strings.Join(run, " "))
				run = run[:0]
				runTokens = 0
			}
			run = append(run, w)
			runTokens += wt
		}
		if len(run) > 0 {
			out = append(out, strings.Join(run, " "))
		}
	}
	return out
}

type tokenPiece struct {
	text          string
	tokens        int
	startSentence int
	endSentence   int
}

// window accumulates sentences into token-budget pieces, starting each new
// piece with the trailing sentences of the previous one to cover the
// overlap budget.
func (c *TokenWindowChunker) window(sentences []string) []tokenPiece {
	var pieces []tokenPiece
	var current tokenPiece
	currentTokens := 0

	for i, sentence := range sentences {
		sentenceTokens := c.counter.Count(sentence)

		if currentTokens+sentenceTokens > c.chunkSize && currentTokens > 0 {
			current.text = strings.TrimSpace(current.text)
			current.tokens = currentTokens
			pieces = append(pieces, current)

			overlapStart := current.endSentence - c.overlapSentences(sentences, current.endSentence)
			if overlapStart < current.startSentence {
				overlapStart = current.startSentence
			}
			current = tokenPiece{
				text:          strings.Join(sentences[overlapStart:i+1], " "),
				startSentence: overlapStart,
				endSentence:   i + 1,
			}
			currentTokens = 0
			for j := overlapStart; j <= i; j++ {
				currentTokens += c.counter.Count(sentences[j])
			}
		} else {
			if currentTokens == 0 {
				current.startSentence = i
				current.text = sentence
			} else {
				current.text += " " + sentence
			}
			current.endSentence = i + 1
			currentTokens += sentenceTokens
		}
	}

	if currentTokens > 0 {
		current.text = strings.TrimSpace(current.text)
		current.tokens = currentTokens
		pieces = append(pieces, current)
	}
	return pieces
}

// overlapSentences reports how many sentences from the end of the previous
// chunk are needed to reach the configured token overlap.
func (c *TokenWindowChunker) overlapSentences(sentences []string, endSentence int) int {
	tokens := 0
	count := 0
	for i := endSentence - 1; i >= 0 && tokens < c.chunkOverlap; i-- {
		tokens += c.counter.Count(sentences[i])
		count++
	}
	return count
}
