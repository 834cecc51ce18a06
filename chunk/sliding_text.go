package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"
)

func init() {
	RegisterStrategy(StrategySlidingText, NewSlidingTextChunker)
}

// StrategySlidingText names the sliding-window-on-text strategy.
const StrategySlidingText = "sliding_text"

// defaultSeparators is the coarsest-to-finest separator order: paragraph
// break, line break, word break, then "split anywhere".
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// SlidingTextChunker produces overlapping chunks that respect document
// structure cues. Splitting is delegated to a recursive character splitter
// that tries the coarsest separator first and recurses with finer ones for
// oversized pieces; when the delegate is unavailable or fails, a pure
// scanning fallback walks the text with a fixed window and a paragraph
// break search near the window edge.
type SlidingTextChunker struct {
	chunkSize     int
	chunkOverlap  int
	separators    []string
	keepSeparator bool
	counter       TokenCounter

	// delegate is the structured splitting capability; nil selects the
	// scanning fallback.
	delegate textsplitter.TextSplitter
}

// NewSlidingTextChunker builds the strategy from parameters:
//   - chunk_size: characters per chunk (default 1000), must be positive
//   - chunk_overlap: characters of overlap (default 200), non-negative and
//     strictly less than chunk_size
//   - separators: ordered separator list, coarsest first
//   - keep_separator: retain separators on the pieces (default false)
//   - encoding: tokenizer encoding for chunk token counts
func NewSlidingTextChunker(params Params) (Strategy, error) {
	c := &SlidingTextChunker{
		chunkSize:     params.Int("chunk_size", 1000),
		chunkOverlap:  params.Int("chunk_overlap", 200),
		separators:    params.StringSlice("separators", defaultSeparators),
		keepSeparator: params.Bool("keep_separator", false),
		counter:       NewTokenCounter(params.String("encoding", "")),
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
	if len(c.separators) == 0 {
		c.separators = defaultSeparators
	}

	c.delegate = textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(c.separators),
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
		textsplitter.WithKeepSeparator(c.keepSeparator),
	)
	return c, nil
}

func (c *SlidingTextChunker) Name() string { return StrategySlidingText }

// Config describes the strategy's effective configuration.
func (c *SlidingTextChunker) Config() Params {
	return Params{
		"strategy_name":  c.Name(),
		"chunk_size":     c.chunkSize,
		"chunk_overlap":  c.chunkOverlap,
		"separators":     c.separators,
		"keep_separator": c.keepSeparator,
	}
}

// ChunkDocument splits the cleaned text with the delegated splitter, or the
// scanning fallback when the delegate is unavailable.
func (c *SlidingTextChunker) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	if err := validateDocument(c.Name(), doc); err != nil {
		return nil, err
	}
	text := CleanText(doc.FullText)
	if text == "" {
		GlobalLogger.Warn("no text content after cleaning", "document", doc.DocumentID)
		return nil, nil
	}

	pieces := c.splitText(text)

	chunks := make([]DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		start, end := approxOffsets(text, piece, i, c.chunkSize-c.chunkOverlap)
		chunks = append(chunks, DocumentChunk{
			ChunkID:       chunkID(doc.DocumentID, c.Name(), i),
			DocumentID:    doc.DocumentID,
			StrategyName:  c.Name(),
			Content:       piece,
			StartPosition: start,
			EndPosition:   end,
			TokenCount:    c.counter.Count(piece),
			Metadata: map[string]interface{}{
				"title":           doc.Title,
				"authors":         doc.Authors,
				"chunk_index":     i,
				"total_chunks":    0, // back-filled by the pipeline
				"overlap_size":    c.chunkOverlap,
				"separators_used": c.separators,
				"strategy_config": c.Config(),
			},
			CreatedAt: time.Now(),
		})
	}

	GlobalLogger.Info("created chunks",
		"strategy", c.Name(), "document", doc.DocumentID, "chunks", len(chunks))
	return chunks, nil
}

func (c *SlidingTextChunker) splitText(text string) []string {
	if c.delegate != nil {
		pieces, err := c.delegate.SplitText(text)
		if err == nil {
			out := pieces[:0]
			for _, p := range pieces {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
		GlobalLogger.Warn("delegated text splitter failed, using scanning fallback", "error", err)
	}
	return c.fallbackSplit(text)
}

// fallbackSplit walks the text with a fixed window, searching around the
// window edge for a paragraph break to cut at, then advances the cursor by
// window minus overlap.
func (c *SlidingTextChunker) fallbackSplit(text string) []string {
	var pieces []string
	pos := 0

	for pos < len(text) {
		end := pos + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			searchStart := end - boundaryLookback
			if searchStart < pos {
				searchStart = pos
			}
			searchEnd := end + boundaryLookback
			if searchEnd > len(text) {
				searchEnd = len(text)
			}
			if idx := strings.Index(text[searchStart:searchEnd], "\n\n"); idx != -1 {
				cut := searchStart + idx + 2
				if cut > pos+c.chunkSize/2 {
					end = cut
				}
			}
		}

		if piece := strings.TrimSpace(text[pos:end]); piece != "" {
			pieces = append(pieces, piece)
		}
		if end >= len(text) {
			break
		}
		next := end - c.chunkOverlap
		if next <= pos {
			next = pos + 1
		}
		pos = next
	}
	return pieces
}
