// Package chunkline provides a high-level interface for preparing
// long-form documents for retrieval: it splits them into bounded,
// semantically useful chunks under several interchangeable strategies and
// measures the strategies' output quality and performance side by side.
//
// The heavy lifting lives in the chunk package; this package re-exports
// the types and wires functional options into pipeline construction.
package chunkline

import (
	"github.com/chunkline/chunkline/chunk"
)

// ProcessedDocument is a unit of source text ready for chunking, produced
// by an extraction collaborator.
type ProcessedDocument = chunk.ProcessedDocument

// Element is a structured content unit from a layout-aware extractor.
type Element = chunk.Element

// DocumentChunk is one output unit of a chunking strategy.
type DocumentChunk = chunk.DocumentChunk

// ChunkingStatistics aggregates chunk measurements for one
// (document, strategy) pair.
type ChunkingStatistics = chunk.ChunkingStatistics

// ChunkingResult is the outcome of running one strategy on one document.
type ChunkingResult = chunk.ChunkingResult

// ComparisonReport compares strategies across a batch of results.
type ComparisonReport = chunk.ComparisonReport

// Params carries strategy-specific configuration values.
type Params = chunk.Params

// Config is the process-wide chunking configuration.
type Config = chunk.Config

// Strategy is one algorithm for turning a document into chunks.
type Strategy = chunk.Strategy

// TokenCounter counts tokens in text. Implementations range from simple
// word counting to model-specific subword tokenization.
type TokenCounter = chunk.TokenCounter

// Registered strategy names.
const (
	StrategyFixedSizeChars  = chunk.StrategyFixedSizeChars
	StrategyFixedSizeTokens = chunk.StrategyFixedSizeTokens
	StrategySlidingText     = chunk.StrategySlidingText
	StrategySlidingElements = chunk.StrategySlidingElements
	StrategySemantic        = chunk.StrategySemantic
)

// NewTokenCounter creates a token counter for the given tiktoken encoding
// name (e.g. "cl100k_base"). It degrades to a word-count estimate when the
// encoding is unavailable and never fails.
func NewTokenCounter(encoding string) TokenCounter {
	return chunk.NewTokenCounter(encoding)
}

// NewWordTokenCounter creates a simple word-based token counter, suitable
// when exact token counts are not critical.
func NewWordTokenCounter() TokenCounter {
	return chunk.WordTokenCounter{}
}

// NewStrategy constructs a single registered strategy with the given
// parameters, outside of any pipeline.
func NewStrategy(name string, params Params) (Strategy, error) {
	return chunk.NewStrategy(name, params)
}

// RegisteredStrategies returns the names of all registered chunking
// strategies.
func RegisteredStrategies() []string {
	return chunk.RegisteredStrategies()
}
