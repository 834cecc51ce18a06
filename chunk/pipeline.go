package chunk

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConfig returns the built-in pipeline configuration: every
// registered strategy enabled with its library defaults, batches of 10
// documents, four workers.
func DefaultConfig() *Config {
	return &Config{
		EnabledStrategies: []string{
			StrategyFixedSizeChars,
			StrategyFixedSizeTokens,
			StrategySlidingText,
			StrategySlidingElements,
			StrategySemantic,
		},
		StrategyConfigs: map[string]Params{
			StrategyFixedSizeChars: {
				"chunk_size":      1000,
				"chars_per_token": 4.0,
			},
			StrategyFixedSizeTokens: {
				"chunk_size":    200,
				"chunk_overlap": 50,
			},
			StrategySlidingText: {
				"chunk_size":    1000,
				"chunk_overlap": 80,
				"separators":    []string{"\n\n", "\n", " ", ""},
			},
			StrategySlidingElements: {
				"max_elements_per_chunk": 10,
				"overlap_percentage":     0.2,
				"priority_elements":      []string{"Title", "Header", "NarrativeText"},
				"respect_boundaries":     true,
			},
			StrategySemantic: {
				"embedding_model":      "text-embedding-3-small",
				"similarity_threshold": 0.8,
				"min_chunk_size":       200,
				"max_chunk_size":       2000,
				"batch_size":           32,
			},
		},
		BatchSize:  10,
		MaxWorkers: 4,
	}
}

// Pipeline owns configured strategy instances and runs documents through
// them: one document against one or many strategies, or batches of
// documents in parallel, with per-(document, strategy) failure isolation.
// The pipeline holds no per-document state between calls.
type Pipeline struct {
	config     *Config
	strategies map[string]Strategy
	order      []string
}

// NewPipeline creates a pipeline from the configuration, instantiating one
// strategy per enabled name. A strategy whose construction fails is logged
// and skipped; the pipeline continues with the rest. A nil config selects
// DefaultConfig.
func NewPipeline(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Pipeline{config: cfg}
	p.strategies, p.order = buildStrategies(cfg)
	if len(p.strategies) == 0 {
		return nil, fmt.Errorf("no strategies could be initialized from %d enabled", len(cfg.EnabledStrategies))
	}
	GlobalLogger.Info("initialized chunking pipeline", "strategies", p.order)
	return p, nil
}

// buildStrategies instantiates the enabled strategies, preserving the
// configured order. Workers call this again so no strategy instance is
// ever shared across goroutines.
func buildStrategies(cfg *Config) (map[string]Strategy, []string) {
	strategies := make(map[string]Strategy, len(cfg.EnabledStrategies))
	var order []string
	for _, name := range cfg.EnabledStrategies {
		s, err := NewStrategy(name, cfg.StrategyParams(name))
		if err != nil {
			GlobalLogger.Error("failed to initialize strategy", "strategy", name, "error", err)
			continue
		}
		strategies[name] = s
		order = append(order, name)
	}
	return strategies, order
}

// Strategies returns the names of the successfully initialized strategies,
// in configuration order.
func (p *Pipeline) Strategies() []string {
	return append([]string(nil), p.order...)
}

// StrategyConfig returns the effective configuration of one initialized
// strategy.
func (p *Pipeline) StrategyConfig(name string) (Params, error) {
	s, ok := p.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy not available: %s", name)
	}
	return s.Config(), nil
}

// ProcessDocument runs the document through the requested strategies (all
// initialized strategies when none are named) and returns one result per
// strategy. A failure in one strategy never affects another; it is
// captured as a failed ChunkingResult. Each chunk's total_chunks metadata
// is back-filled once the final count is known.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *ProcessedDocument, strategies ...string) map[string]ChunkingResult {
	if len(strategies) == 0 {
		strategies = p.order
	}

	results := make(map[string]ChunkingResult, len(strategies))
	for _, name := range strategies {
		s, ok := p.strategies[name]
		if !ok {
			GlobalLogger.Warn("strategy not available, skipping", "strategy", name)
			continue
		}

		result := ProcessWithStats(ctx, s, doc)
		for i := range result.Chunks {
			// Registered third-party strategies may leave Metadata nil.
			if result.Chunks[i].Metadata == nil {
				result.Chunks[i].Metadata = map[string]interface{}{}
			}
			result.Chunks[i].Metadata["total_chunks"] = len(result.Chunks)
		}
		results[name] = result

		docID := ""
		if doc != nil {
			docID = doc.DocumentID
		}
		GlobalLogger.Info("processed document",
			"document", docID, "strategy", name,
			"chunks", len(result.Chunks), "success", result.Success)
	}
	return results
}

// ProcessDocumentsBatch runs many documents through the requested
// strategies, in parallel batches bounded by maxWorkers (the configured
// default when <= 0). Each worker reconstructs its own strategy instances
// from the shared configuration, so no mutable state crosses goroutines. A
// worker-level panic yields an empty result map for that document, never a
// pipeline abort. The result map is keyed by document ID; completion order
// within a batch is unspecified.
func (p *Pipeline) ProcessDocumentsBatch(ctx context.Context, documents []*ProcessedDocument, strategies []string, maxWorkers int) map[string]map[string]ChunkingResult {
	if len(documents) == 0 {
		return map[string]map[string]ChunkingResult{}
	}
	if maxWorkers <= 0 {
		maxWorkers = p.config.MaxWorkers
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	batchSize := p.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(documents)
	}

	GlobalLogger.Info("processing documents in batches",
		"documents", len(documents), "batch_size", batchSize, "max_workers", maxWorkers)

	results := make(map[string]map[string]ChunkingResult, len(documents))
	var mu sync.Mutex

	for batchStart := 0; batchStart < len(documents); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(documents) {
			batchEnd = len(documents)
		}
		batch := documents[batchStart:batchEnd]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxWorkers)
		for _, doc := range batch {
			doc := doc
			g.Go(func() error {
				docResults := p.processInWorker(gctx, doc, strategies)
				mu.Lock()
				results[doc.DocumentID] = docResults
				mu.Unlock()
				return nil
			})
		}
		// Workers always return nil; failures are isolated per document.
		_ = g.Wait()

		GlobalLogger.Info("completed batch", "batch", batchStart/batchSize+1)
	}
	return results
}

// processInWorker chunks one document with a freshly constructed strategy
// set. A panic inside a strategy is contained to this document.
func (p *Pipeline) processInWorker(ctx context.Context, doc *ProcessedDocument, strategies []string) (results map[string]ChunkingResult) {
	results = map[string]ChunkingResult{}
	defer func() {
		if r := recover(); r != nil {
			GlobalLogger.Error("worker failed", "document", doc.DocumentID, "panic", r)
			results = map[string]ChunkingResult{}
		}
	}()

	worker := &Pipeline{config: p.config}
	worker.strategies, worker.order = buildStrategies(p.config)
	results = worker.ProcessDocument(ctx, doc, strategies...)
	return results
}

// StrategyPerformance aggregates one strategy's behavior across all
// processed documents.
type StrategyPerformance struct {
	SuccessRate             float64 `json:"success_rate"`
	AvgChunksPerDocument    float64 `json:"avg_chunks_per_document"`
	AvgProcessingTimePerDoc float64 `json:"avg_processing_time_per_document"`
	AvgChunkSize            float64 `json:"avg_chunk_size"`
	AvgTokenCount           float64 `json:"avg_token_count"`
	TotalChunks             int     `json:"total_chunks"`
}

// ComparisonReport compares strategies across a batch of results.
type ComparisonReport struct {
	GeneratedAt             time.Time                      `json:"generated_at"`
	TotalDocumentsProcessed int                            `json:"total_documents_processed"`
	StrategiesCompared      []string                       `json:"strategies_compared"`
	StrategyPerformance     map[string]StrategyPerformance `json:"strategy_performance"`
}

// GenerateComparisonReport aggregates success rate, chunk counts,
// processing time and chunk/token sizes per strategy across the results of
// a batch run.
func (p *Pipeline) GenerateComparisonReport(results map[string]map[string]ChunkingResult) *ComparisonReport {
	if len(results) == 0 {
		return &ComparisonReport{
			GeneratedAt:         time.Now(),
			StrategyPerformance: map[string]StrategyPerformance{},
		}
	}

	type tally struct {
		documents      int
		successful     int
		chunks         int
		processingTime float64
		sizeSum        int
		tokenSum       int
	}
	tallies := make(map[string]*tally)

	for _, docResults := range results {
		for name, result := range docResults {
			t, ok := tallies[name]
			if !ok {
				t = &tally{}
				tallies[name] = t
			}
			t.documents++
			if !result.Success {
				continue
			}
			t.successful++
			t.chunks += len(result.Chunks)
			t.processingTime += result.Statistics.ProcessingTime
			for _, c := range result.Chunks {
				t.sizeSum += len(c.Content)
				t.tokenSum += c.TokenCount
			}
		}
	}

	report := &ComparisonReport{
		GeneratedAt:             time.Now(),
		TotalDocumentsProcessed: len(results),
		StrategyPerformance:     make(map[string]StrategyPerformance, len(tallies)),
	}
	for name, t := range tallies {
		report.StrategiesCompared = append(report.StrategiesCompared, name)
		perf := StrategyPerformance{TotalChunks: t.chunks}
		if t.documents > 0 {
			perf.SuccessRate = float64(t.successful) / float64(t.documents)
		}
		if t.successful > 0 {
			perf.AvgChunksPerDocument = float64(t.chunks) / float64(t.successful)
			perf.AvgProcessingTimePerDoc = t.processingTime / float64(t.successful)
		}
		if t.chunks > 0 {
			perf.AvgChunkSize = float64(t.sizeSum) / float64(t.chunks)
			perf.AvgTokenCount = float64(t.tokenSum) / float64(t.chunks)
		}
		report.StrategyPerformance[name] = perf
	}
	sort.Strings(report.StrategiesCompared)
	return report
}
