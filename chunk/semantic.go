package chunk

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chunkline/chunkline/chunk/providers"
)

func init() {
	RegisterStrategy(StrategySemantic, NewSemanticChunker)
}

// StrategySemantic names the semantic similarity strategy.
const StrategySemantic = "semantic"

// SemanticChunker places chunk boundaries at points of low topical
// continuity: sentences are embedded, cosine similarity is computed
// between consecutive pairs, and a breakpoint is marked wherever
// similarity drops below the threshold. When the embedding capability is
// unavailable or fails, the strategy degrades to sliding-text chunking
// bounded by max_chunk_size and relabels the output.
type SemanticChunker struct {
	provider  string
	model     string
	threshold float64
	minSize   int
	maxSize   int
	batchSize int
	counter   TokenCounter

	embedOnce sync.Once
	embedder  providers.Embedder
	embedErr  error
}

// NewSemanticChunker builds the strategy from parameters:
//   - embedding_provider: registered provider name (default "openai")
//   - embedding_model: model identifier passed to the provider
//   - similarity_threshold: breakpoint threshold in [0,1] (default 0.8)
//   - min_chunk_size / max_chunk_size: character bounds (defaults 200 /
//     2000), min must be positive and strictly less than max
//   - batch_size: sentences per embedding call (default 32)
func NewSemanticChunker(params Params) (Strategy, error) {
	c := &SemanticChunker{
		provider:  params.String("embedding_provider", "openai"),
		model:     params.String("embedding_model", "text-embedding-3-small"),
		threshold: params.Float("similarity_threshold", 0.8),
		minSize:   params.Int("min_chunk_size", 200),
		maxSize:   params.Int("max_chunk_size", 2000),
		batchSize: params.Int("batch_size", 32),
		counter:   NewTokenCounter(params.String("encoding", "")),
	}
	if c.threshold < 0 || c.threshold > 1 {
		return nil, fmt.Errorf("similarity_threshold must be between 0 and 1, got %v", c.threshold)
	}
	if c.minSize <= 0 {
		return nil, fmt.Errorf("min_chunk_size must be positive, got %d", c.minSize)
	}
	if c.maxSize <= c.minSize {
		return nil, fmt.Errorf("max_chunk_size (%d) must be greater than min_chunk_size (%d)",
			c.maxSize, c.minSize)
	}
	if c.batchSize <= 0 {
		c.batchSize = 32
	}
	return c, nil
}

func (c *SemanticChunker) Name() string { return StrategySemantic }

// Config describes the strategy's effective configuration.
func (c *SemanticChunker) Config() Params {
	return Params{
		"strategy_name":        c.Name(),
		"embedding_provider":   c.provider,
		"embedding_model":      c.model,
		"similarity_threshold": c.threshold,
		"min_chunk_size":       c.minSize,
		"max_chunk_size":       c.maxSize,
		"batch_size":           c.batchSize,
	}
}

// resolveEmbedder acquires the embedding client once per strategy
// instance. An unavailable provider is recorded as a state, not raised on
// every call.
func (c *SemanticChunker) resolveEmbedder() (providers.Embedder, error) {
	c.embedOnce.Do(func() {
		factory, err := providers.GetEmbedderFactory(c.provider)
		if err != nil {
			c.embedErr = err
			return
		}
		c.embedder, c.embedErr = factory(map[string]interface{}{
			"api_key": os.Getenv("OPENAI_API_KEY"),
			"model":   c.model,
		})
	})
	return c.embedder, c.embedErr
}

// ChunkDocument chunks at semantic breakpoints, or falls back to
// sliding-text chunking when embeddings cannot be obtained. Embedding
// failures are never surfaced as hard failures.
func (c *SemanticChunker) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	if err := validateDocument(c.Name(), doc); err != nil {
		return nil, err
	}
	text := CleanText(doc.FullText)
	if text == "" {
		GlobalLogger.Warn("no text content after cleaning", "document", doc.DocumentID)
		return nil, nil
	}

	pieces, err := c.semanticSplit(ctx, text)
	if err != nil {
		GlobalLogger.Warn("semantic splitting unavailable, falling back to sliding-text",
			"document", doc.DocumentID, "error", err)
		return c.fallbackTextChunking(ctx, doc)
	}

	chunks := make([]DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, c.newChunk(doc, text, piece, i))
	}

	GlobalLogger.Info("created chunks",
		"strategy", c.Name(), "document", doc.DocumentID, "chunks", len(chunks))
	return chunks, nil
}

// semanticSplit returns chunk texts cut at similarity breakpoints and
// post-processed against the size bounds.
func (c *SemanticChunker) semanticSplit(ctx context.Context, text string) ([]string, error) {
	sentences := SplitSentences(text)
	if len(sentences) <= 1 {
		return c.applySizeBounds(sentences), nil
	}

	embedder, err := c.resolveEmbedder()
	if err != nil {
		return nil, fmt.Errorf("embedding capability unavailable: %w", err)
	}

	vectors, err := c.embedBatched(ctx, embedder, sentences)
	if err != nil {
		return nil, fmt.Errorf("computing sentence embeddings: %w", err)
	}

	// A breakpoint before sentence i means similarity(i-1, i) dropped
	// below the threshold.
	var pieces []string
	spanStart := 0
	for i := 1; i < len(sentences); i++ {
		if cosineSimilarity(vectors[i-1], vectors[i]) < c.threshold {
			pieces = append(pieces, strings.Join(sentences[spanStart:i], " "))
			spanStart = i
		}
	}
	pieces = append(pieces, strings.Join(sentences[spanStart:], " "))

	return c.applySizeBounds(pieces), nil
}

func (c *SemanticChunker) embedBatched(ctx context.Context, embedder providers.Embedder, sentences []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(sentences))
	for start := 0; start < len(sentences); start += c.batchSize {
		end := start + c.batchSize
		if end > len(sentences) {
			end = len(sentences)
		}
		batch, err := embedder.Embed(ctx, sentences[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	if len(vectors) != len(sentences) {
		return nil, fmt.Errorf("expected %d sentence embeddings, got %d", len(sentences), len(vectors))
	}
	return vectors, nil
}

// applySizeBounds merges pieces below the minimum size into their
// predecessor and re-splits pieces above the maximum by sentence.
func (c *SemanticChunker) applySizeBounds(pieces []string) []string {
	var bounded []string
	for _, piece := range pieces {
		switch {
		case len(piece) < c.minSize && len(bounded) > 0:
			bounded[len(bounded)-1] += "\n\n" + piece
		case len(piece) > c.maxSize:
			bounded = append(bounded, c.splitBySentenceSize(piece)...)
		default:
			bounded = append(bounded, piece)
		}
	}

	out := bounded[:0]
	for _, piece := range bounded {
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
	}
	return out
}

// splitBySentenceSize re-splits an oversized piece into sentence runs that
// stay within the maximum chunk size. A single sentence that exceeds the
// maximum on its own carries no boundary to cut at, so it is split on
// words instead.
func (c *SemanticChunker) splitBySentenceSize(piece string) []string {
	var out []string
	var run []string
	size := 0
	flush := func() {
		if len(run) > 0 {
			out = append(out, strings.Join(run, " "))
			run = run[:0]
			size = 0
		}
	}

	for _, s := range SplitSentences(piece) {
		if len(s) > c.maxSize {
			for _, w := range strings.Fields(s) {
				if size+len(w)+1 > c.maxSize {
					flush()
				}
				run = append(run, w)
				size += len(w) + 1
			}
			continue
		}
		if size+len(s)+1 > c.maxSize {
			flush()
		}
		run = append(run, s)
		size += len(s) + 1
	}
	flush()
	return out
}

// fallbackTextChunking runs the sliding-text strategy bounded by the
// maximum chunk size and relabels its output with this strategy's
// identity.
func (c *SemanticChunker) fallbackTextChunking(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	overlap := c.maxSize / 10
	fallback, err := NewSlidingTextChunker(Params{
		"chunk_size":    c.maxSize,
		"chunk_overlap": overlap,
	})
	if err != nil {
		return nil, err
	}
	chunks, err := fallback.ChunkDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].StrategyName = c.Name()
		chunks[i].ChunkID = chunkID(doc.DocumentID, c.Name(), i)
	}
	return chunks, nil
}

func (c *SemanticChunker) newChunk(doc *ProcessedDocument, sourceText, content string, index int) DocumentChunk {
	start, end := approxOffsets(sourceText, content, index, 1000)
	return DocumentChunk{
		ChunkID:       chunkID(doc.DocumentID, c.Name(), index),
		DocumentID:    doc.DocumentID,
		StrategyName:  c.Name(),
		Content:       content,
		StartPosition: start,
		EndPosition:   end,
		TokenCount:    c.counter.Count(content),
		Metadata: map[string]interface{}{
			"title":                doc.Title,
			"authors":              doc.Authors,
			"chunk_index":          index,
			"total_chunks":         0, // back-filled by the pipeline
			"chunk_size":           len(content),
			"embedding_model":      c.model,
			"similarity_threshold": c.threshold,
			"strategy_config":      c.Config(),
		},
		CreatedAt: time.Now(),
	}
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when either has zero magnitude or the dimensions differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
