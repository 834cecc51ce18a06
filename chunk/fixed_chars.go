package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

func init() {
	RegisterStrategy(StrategyFixedSizeChars, NewFixedSizeChunker)
}

// StrategyFixedSizeChars names the character-ratio fixed-size strategy.
const StrategyFixedSizeChars = "fixed_size_chars"

// boundaryLookback is how far the splitter searches backwards from a
// window edge for a boundary character before giving up and cutting
// mid-text.
const boundaryLookback = 100

// FixedSizeChunker splits text into chunks close to a target size with no
// semantic awareness and no overlap. The token target is converted to a
// character budget up front so splitting needs no tokenizer in the loop.
type FixedSizeChunker struct {
	chunkSize      int
	charsPerToken  float64
	chunkSizeChars int
	counter        TokenCounter
}

// NewFixedSizeChunker builds the strategy from parameters:
//   - chunk_size: tokens per chunk (default 1000), must be positive
//   - chars_per_token: character-to-token ratio (default 4.0)
func NewFixedSizeChunker(params Params) (Strategy, error) {
	c := &FixedSizeChunker{
		chunkSize:     params.Int("chunk_size", 1000),
		charsPerToken: params.Float("chars_per_token", 4.0),
		counter:       NewTokenCounter(params.String("encoding", "")),
	}
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", c.chunkSize)
	}
	if c.charsPerToken <= 0 {
		return nil, fmt.Errorf("chars_per_token must be positive, got %v", c.charsPerToken)
	}
	c.chunkSizeChars = int(float64(c.chunkSize) * c.charsPerToken)
	if c.chunkSizeChars < 1 {
		return nil, fmt.Errorf("chunk_size (%d) * chars_per_token (%v) must yield at least one character",
			c.chunkSize, c.charsPerToken)
	}
	return c, nil
}

func (c *FixedSizeChunker) Name() string { return StrategyFixedSizeChars }

// Config describes the strategy's effective configuration.
func (c *FixedSizeChunker) Config() Params {
	return Params{
		"strategy_name":   c.Name(),
		"chunk_size":      c.chunkSize,
		"chars_per_token": c.charsPerToken,
	}
}

// ChunkDocument splits the document's cleaned text into character-budget
// windows, cutting each window back to the nearest boundary character so
// words are not split. Text shorter than one window yields a single chunk;
// empty cleaned text yields no chunks.
func (c *FixedSizeChunker) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	if err := validateDocument(c.Name(), doc); err != nil {
		return nil, err
	}
	text := CleanText(doc.FullText)
	if text == "" {
		GlobalLogger.Warn("no text content after cleaning", "document", doc.DocumentID)
		return nil, nil
	}

	spans := c.splitByChars(text)
	chunks := make([]DocumentChunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, c.newChunk(doc, sp, i))
	}

	GlobalLogger.Info("created chunks",
		"strategy", c.Name(), "document", doc.DocumentID, "chunks", len(chunks))
	return chunks, nil
}

// charSpan is a cut fragment with the offsets it was taken from.
type charSpan struct {
	start   int
	end     int
	content string
}

var boundaryChars = map[byte]bool{
	' ': true, '\n': true, '\r': true, '\t': true,
	'.': true, '!': true, '?': true, ';': true, ',': true,
}

func (c *FixedSizeChunker) splitByChars(text string) []charSpan {
	if len(text) <= c.chunkSizeChars {
		return []charSpan{{start: 0, end: len(text), content: text}}
	}

	var spans []charSpan
	start := 0
	for start < len(text) {
		end := start + c.chunkSizeChars
		if end >= len(text) {
			end = len(text)
		} else {
			cut := -1
			searchStart := end - boundaryLookback
			if searchStart < start {
				searchStart = start
			}
			for i := end - 1; i >= searchStart; i-- {
				if boundaryChars[text[i]] {
					cut = i + 1
					break
				}
			}
			if cut > start {
				end = cut
			} else {
				// No boundary nearby; avoid cutting inside a rune.
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
			}
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			spans = append(spans, charSpan{start: start, end: end, content: content})
		}
		if end >= len(text) {
			break
		}
		start = end
	}
	return spans
}

func (c *FixedSizeChunker) newChunk(doc *ProcessedDocument, sp charSpan, index int) DocumentChunk {
	return DocumentChunk{
		ChunkID:       chunkID(doc.DocumentID, c.Name(), index),
		DocumentID:    doc.DocumentID,
		StrategyName:  c.Name(),
		Content:       sp.content,
		StartPosition: sp.start,
		EndPosition:   sp.end,
		TokenCount:    int(float64(len(sp.content)) / c.charsPerToken),
		Metadata: map[string]interface{}{
			"title":           doc.Title,
			"authors":         doc.Authors,
			"chunk_index":     index,
			"total_chunks":    0, // back-filled by the pipeline
			"strategy_config": c.Config(),
		},
		CreatedAt: time.Now(),
	}
}
