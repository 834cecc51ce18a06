// Package chunk implements the document chunking engine: the strategy
// abstraction, the splitting algorithms, per-chunk statistics and quality
// scoring, and the pipeline that runs (document, strategy) combinations
// with isolated failure handling and parallel batch execution.
package chunk

import (
	"time"
)

// Element is a structured content unit produced by an upstream layout-aware
// extractor, such as a title, a paragraph of narrative text, or a table.
type Element struct {
	// Type is the element's type tag, e.g. "Title", "Header", "NarrativeText".
	Type string `json:"type"`
	// Text is the element's textual content.
	Text string `json:"text"`
	// PageNumber is the page the element was extracted from, when known.
	PageNumber int `json:"page_number,omitempty"`
	// StartPosition and EndPosition are character offsets into the source
	// text, when the extractor tracked them.
	StartPosition int `json:"start_position,omitempty"`
	EndPosition   int `json:"end_position,omitempty"`
}

// ProcessedDocument is a unit of source text ready for chunking. It is
// constructed by an external extraction collaborator and is never mutated
// by any chunking strategy.
type ProcessedDocument struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Authors    []string `json:"authors,omitempty"`
	Abstract   string   `json:"abstract,omitempty"`
	// FullText must be non-empty for chunking to proceed.
	FullText string `json:"full_text"`
	// Elements is the optional ordered sequence of structured content
	// blocks, used by the element-based strategies.
	Elements []Element              `json:"elements,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// ProcessingMethod records which extraction backend produced the
	// document.
	ProcessingMethod string    `json:"processing_method,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// DocumentChunk is one output unit of a chunking strategy.
//
// StartPosition and EndPosition are best-effort character offsets into the
// source text. Strategies that cannot track exact offsets recover them by
// substring search or index arithmetic, so they are approximate.
type DocumentChunk struct {
	// ChunkID is derived deterministically from the document ID, the
	// strategy name and the zero-padded ordinal index.
	ChunkID       string `json:"chunk_id"`
	DocumentID    string `json:"document_id"`
	StrategyName  string `json:"strategy_name"`
	Content       string `json:"content"`
	StartPosition int    `json:"start_position"`
	EndPosition   int    `json:"end_position"`
	TokenCount    int    `json:"token_count"`
	// Metadata always carries "chunk_index" and, after pipeline
	// post-processing, "total_chunks".
	Metadata map[string]interface{} `json:"metadata"`
	// Elements holds the structured elements this chunk was built from,
	// when the strategy is element-based.
	Elements  []Element `json:"elements,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChunkingStatistics aggregates chunk measurements for one
// (document, strategy) pair. All fields are zero when the chunk list is
// empty.
type ChunkingStatistics struct {
	TotalChunks   int     `json:"total_chunks"`
	AvgChunkSize  float64 `json:"avg_chunk_size"`
	MinChunkSize  int     `json:"min_chunk_size"`
	MaxChunkSize  int     `json:"max_chunk_size"`
	AvgTokenCount float64 `json:"avg_token_count"`
	MinTokenCount int     `json:"min_token_count"`
	MaxTokenCount int     `json:"max_token_count"`
	// ProcessingTime is wall-clock seconds spent in the strategy.
	ProcessingTime float64 `json:"processing_time"`
	// MemoryUsageMB is the heap growth observed during chunking, when
	// measurable.
	MemoryUsageMB *float64 `json:"memory_usage_mb,omitempty"`
}

// ChunkingResult is the outcome of running one strategy on one document.
// Success=false implies an empty chunk list and zeroed statistics.
type ChunkingResult struct {
	StrategyName string             `json:"strategy_name"`
	DocumentID   string             `json:"document_id"`
	Chunks       []DocumentChunk    `json:"chunks"`
	Statistics   ChunkingStatistics `json:"statistics"`
	Success      bool               `json:"success"`
	ErrorMessage string             `json:"error_message,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Params carries strategy-specific configuration as loose key/value pairs,
// the same shape the configuration file deserializes into. Accessors
// tolerate both native Go numbers and the float64 values JSON decoding
// produces.
type Params map[string]interface{}

// Int returns the integer value for key, or def when absent or not numeric.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Float returns the float value for key, or def when absent or not numeric.
func (p Params) Float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// String returns the string value for key, or def when absent.
func (p Params) String(key string, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// StringSlice returns the string list for key, or def when absent. JSON
// decoding yields []interface{}, which is converted element by element.
func (p Params) StringSlice(key string, def []string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) > 0 || len(v) == 0 {
			return out
		}
	}
	return def
}

// Config is the process-wide chunking configuration: the ordered set of
// enabled strategies, their parameters, and the batching knobs. It is
// created once per pipeline run and never mutated afterwards.
type Config struct {
	EnabledStrategies []string          `json:"enabled_strategies"`
	StrategyConfigs   map[string]Params `json:"strategy_configs"`
	BatchSize         int               `json:"batch_size"`
	MaxWorkers        int               `json:"max_workers"`
}

// StrategyParams returns the parameters configured for a strategy, or an
// empty Params when none are set.
func (c *Config) StrategyParams(name string) Params {
	if p, ok := c.StrategyConfigs[name]; ok {
		return p
	}
	return Params{}
}

// IsStrategyEnabled reports whether a strategy appears in the enabled set.
func (c *Config) IsStrategyEnabled(name string) bool {
	for _, s := range c.EnabledStrategies {
		if s == name {
			return true
		}
	}
	return false
}
