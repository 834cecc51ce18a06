package chunk

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Strategy is one algorithm for turning a document into an ordered
// sequence of chunks. Implementations are safe to use from a single
// goroutine; the pipeline constructs a fresh set per worker.
type Strategy interface {
	// Name returns the strategy's registered name, used in chunk IDs and
	// result maps.
	Name() string

	// ChunkDocument splits the document into chunks. The returned slice is
	// empty (not an error) for documents whose cleaned text is empty.
	// Blocking work, such as embedding calls, honors ctx.
	ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error)

	// Config describes the strategy's effective configuration.
	Config() Params
}

// StrategyFactory builds a Strategy from loose configuration parameters.
// Invalid parameters are rejected here, at construction time.
type StrategyFactory func(params Params) (Strategy, error)

var (
	strategyFactories = make(map[string]StrategyFactory)
	strategyMu        sync.RWMutex
)

// RegisterStrategy adds a strategy factory under the given name,
// overwriting any previous registration.
func RegisterStrategy(name string, factory StrategyFactory) {
	strategyMu.Lock()
	defer strategyMu.Unlock()
	strategyFactories[name] = factory
}

// NewStrategy constructs the named strategy with the given parameters.
func NewStrategy(name string, params Params) (Strategy, error) {
	strategyMu.RLock()
	factory, ok := strategyFactories[name]
	strategyMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", name)
	}
	return factory(params)
}

// RegisteredStrategies returns the names of all registered strategies.
func RegisteredStrategies() []string {
	strategyMu.RLock()
	defer strategyMu.RUnlock()
	names := make([]string, 0, len(strategyFactories))
	for name := range strategyFactories {
		names = append(names, name)
	}
	return names
}

// ChunkingError is a document-level chunking failure carrying the strategy
// and document it belongs to. The pipeline converts it into a failed
// ChunkingResult rather than propagating it.
type ChunkingError struct {
	Strategy   string
	DocumentID string
	Msg        string
	Err        error
}

func (e *ChunkingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (strategy=%s document=%s)", e.Msg, e.Err, e.Strategy, e.DocumentID)
	}
	return fmt.Sprintf("%s (strategy=%s document=%s)", e.Msg, e.Strategy, e.DocumentID)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

// validateDocument checks the invariants every strategy relies on: a
// non-empty document ID and non-empty full text.
func validateDocument(strategy string, doc *ProcessedDocument) error {
	if doc == nil {
		return &ChunkingError{Strategy: strategy, Msg: "document is nil"}
	}
	if doc.DocumentID == "" {
		return &ChunkingError{Strategy: strategy, Msg: "document has no document_id"}
	}
	if strings.TrimSpace(doc.FullText) == "" {
		return &ChunkingError{Strategy: strategy, DocumentID: doc.DocumentID,
			Msg: "document has no full_text content"}
	}
	return nil
}

// chunkID derives the deterministic chunk identifier from document ID,
// strategy name and zero-padded ordinal index.
func chunkID(documentID, strategyName string, index int) string {
	return fmt.Sprintf("%s_%s_%03d", documentID, strategyName, index)
}

// ProcessWithStats runs a strategy's pure chunking call wrapped with
// timing and memory instrumentation, converting any error into a failed
// ChunkingResult with zeroed statistics.
func ProcessWithStats(ctx context.Context, s Strategy, doc *ProcessedDocument) ChunkingResult {
	start := time.Now()
	startHeap := heapAllocMB()

	chunks, err := s.ChunkDocument(ctx, doc)
	elapsed := time.Since(start).Seconds()

	docID := ""
	if doc != nil {
		docID = doc.DocumentID
	}

	if err != nil {
		GlobalLogger.Error("chunking failed",
			"strategy", s.Name(), "document", docID, "error", err)
		return ChunkingResult{
			StrategyName: s.Name(),
			DocumentID:   docID,
			Chunks:       nil,
			Statistics:   ChunkingStatistics{ProcessingTime: elapsed},
			Success:      false,
			ErrorMessage: err.Error(),
			CreatedAt:    time.Now(),
		}
	}

	var memUsage *float64
	if endHeap := heapAllocMB(); endHeap > startHeap {
		delta := endHeap - startHeap
		memUsage = &delta
	}

	return ChunkingResult{
		StrategyName: s.Name(),
		DocumentID:   docID,
		Chunks:       chunks,
		Statistics:   ComputeStatistics(chunks, elapsed, memUsage),
		Success:      true,
		CreatedAt:    time.Now(),
	}
}

// ComputeStatistics aggregates chunk sizes and token counts. An empty
// chunk list yields all-zero statistics apart from the processing time.
func ComputeStatistics(chunks []DocumentChunk, processingTime float64, memUsage *float64) ChunkingStatistics {
	stats := ChunkingStatistics{
		ProcessingTime: processingTime,
		MemoryUsageMB:  memUsage,
	}
	if len(chunks) == 0 {
		return stats
	}

	stats.TotalChunks = len(chunks)
	stats.MinChunkSize = len(chunks[0].Content)
	stats.MinTokenCount = chunks[0].TokenCount

	var sizeSum, tokenSum int
	for _, c := range chunks {
		size := len(c.Content)
		sizeSum += size
		tokenSum += c.TokenCount
		if size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
		if c.TokenCount < stats.MinTokenCount {
			stats.MinTokenCount = c.TokenCount
		}
		if c.TokenCount > stats.MaxTokenCount {
			stats.MaxTokenCount = c.TokenCount
		}
	}
	stats.AvgChunkSize = float64(sizeSum) / float64(len(chunks))
	stats.AvgTokenCount = float64(tokenSum) / float64(len(chunks))
	return stats
}

// heapAllocMB reports the current heap allocation in MB. This is the Go
// counterpart of per-process RSS sampling; it only feeds the optional
// memory_usage_mb statistic.
func heapAllocMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / 1024 / 1024
}
