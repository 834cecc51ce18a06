package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipelineTestConfig enables only the strategies that need no external
// services.
func pipelineTestConfig() *Config {
	return &Config{
		EnabledStrategies: []string{StrategyFixedSizeChars, StrategySlidingText},
		StrategyConfigs: map[string]Params{
			StrategyFixedSizeChars: {"chunk_size": 50, "chars_per_token": 4.0},
			StrategySlidingText:    {"chunk_size": 200, "chunk_overlap": 40},
		},
		BatchSize:  2,
		MaxWorkers: 2,
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p, err := NewPipeline(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		StrategyFixedSizeChars,
		StrategyFixedSizeTokens,
		StrategySlidingText,
		StrategySlidingElements,
		StrategySemantic,
	}, p.Strategies())
}

func TestNewPipelineSkipsBrokenStrategies(t *testing.T) {
	cfg := pipelineTestConfig()
	cfg.StrategyConfigs[StrategyFixedSizeChars] = Params{"chunk_size": -1}

	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{StrategySlidingText}, p.Strategies())
}

func TestNewPipelineAllStrategiesBroken(t *testing.T) {
	cfg := &Config{
		EnabledStrategies: []string{"no_such_strategy"},
	}
	_, err := NewPipeline(cfg)
	assert.Error(t, err)
}

func TestPipelineStrategyConfig(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	cfg, err := p.StrategyConfig(StrategyFixedSizeChars)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Int("chunk_size", 0))

	_, err = p.StrategyConfig("no_such_strategy")
	assert.Error(t, err)
}

func TestProcessDocument(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	doc := testDocument("doc1", strings.Repeat("A sentence of respectable length for the pipeline. ", 40))
	results := p.ProcessDocument(context.Background(), doc)
	require.Len(t, results, 2)

	for name, result := range results {
		assert.True(t, result.Success, "strategy %s failed: %s", name, result.ErrorMessage)
		assert.Equal(t, name, result.StrategyName)
		assert.Equal(t, "doc1", result.DocumentID)
		assert.NotEmpty(t, result.Chunks)
		assert.Empty(t, result.ErrorMessage)

		stats := result.Statistics
		assert.Equal(t, len(result.Chunks), stats.TotalChunks)
		assert.GreaterOrEqual(t, stats.ProcessingTime, 0.0)
		assert.LessOrEqual(t, float64(stats.MinChunkSize), stats.AvgChunkSize)
		assert.LessOrEqual(t, stats.AvgChunkSize, float64(stats.MaxChunkSize))
		assert.LessOrEqual(t, float64(stats.MinTokenCount), stats.AvgTokenCount)

		// total_chunks is back-filled once the count is known.
		for _, ch := range result.Chunks {
			assert.Equal(t, len(result.Chunks), ch.Metadata["total_chunks"])
		}
	}
}

func TestProcessDocumentSubset(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	doc := testDocument("doc1", "Some text for a single strategy run.")
	results := p.ProcessDocument(context.Background(), doc, StrategySlidingText)
	require.Len(t, results, 1)
	assert.Contains(t, results, StrategySlidingText)

	// Unknown names are skipped, not errors.
	results = p.ProcessDocument(context.Background(), doc, "no_such_strategy")
	assert.Empty(t, results)
}

func TestProcessDocumentFailureIsCaptured(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	results := p.ProcessDocument(context.Background(), testDocument("doc1", "   "))
	require.Len(t, results, 2)
	for _, result := range results {
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.ErrorMessage)
		assert.Empty(t, result.Chunks)
		assert.Equal(t, 0, result.Statistics.TotalChunks)
	}
}

// bareStrategy mimics a third-party registration that returns chunks
// without populating Metadata.
type bareStrategy struct{}

func (bareStrategy) Name() string { return "bare_chunks_test" }
func (bareStrategy) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	return []DocumentChunk{{
		ChunkID:      chunkID(doc.DocumentID, "bare_chunks_test", 0),
		DocumentID:   doc.DocumentID,
		StrategyName: "bare_chunks_test",
		Content:      doc.FullText,
		TokenCount:   1,
	}}, nil
}
func (bareStrategy) Config() Params { return Params{} }

func TestProcessDocumentToleratesNilChunkMetadata(t *testing.T) {
	RegisterStrategy("bare_chunks_test", func(Params) (Strategy, error) {
		return bareStrategy{}, nil
	})

	p, err := NewPipeline(&Config{EnabledStrategies: []string{"bare_chunks_test"}})
	require.NoError(t, err)

	results := p.ProcessDocument(context.Background(), testDocument("doc1", "text"))
	require.Len(t, results, 1)

	result := results["bare_chunks_test"]
	require.True(t, result.Success)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, 1, result.Chunks[0].Metadata["total_chunks"])
}

func TestProcessDocumentsBatchFailureIsolation(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	documents := []*ProcessedDocument{
		testDocument("doc1", strings.Repeat("Document one has plenty of text to chunk. ", 20)),
		testDocument("doc2", "   "),
		testDocument("doc3", strings.Repeat("Document three has plenty of text as well. ", 20)),
	}

	results := p.ProcessDocumentsBatch(context.Background(), documents, nil, 2)
	require.Len(t, results, 3)

	for _, docID := range []string{"doc1", "doc3"} {
		docResults := results[docID]
		require.Len(t, docResults, 2, "missing results for %s", docID)
		for name, result := range docResults {
			assert.True(t, result.Success, "strategy %s failed on %s", name, docID)
			assert.NotEmpty(t, result.Chunks)
		}
	}

	// The blank document fails on every strategy without disturbing the
	// other documents.
	for _, result := range results["doc2"] {
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.ErrorMessage)
	}
}

func TestProcessDocumentsBatchEmpty(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	results := p.ProcessDocumentsBatch(context.Background(), nil, nil, 2)
	assert.Empty(t, results)
}

func TestProcessDocumentIdempotent(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	doc := testDocument("doc1", strings.Repeat("Identical input should give identical chunks. ", 30))
	first := p.ProcessDocument(context.Background(), doc)
	second := p.ProcessDocument(context.Background(), doc)

	require.Equal(t, len(first), len(second))
	for name := range first {
		a, b := first[name], second[name]
		require.Equal(t, len(a.Chunks), len(b.Chunks), "strategy %s", name)
		for i := range a.Chunks {
			assert.Equal(t, a.Chunks[i].ChunkID, b.Chunks[i].ChunkID)
			assert.Equal(t, a.Chunks[i].Content, b.Chunks[i].Content)
			assert.Equal(t, a.Chunks[i].TokenCount, b.Chunks[i].TokenCount)
		}
	}
}

func TestGenerateComparisonReport(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	documents := []*ProcessedDocument{
		testDocument("doc1", strings.Repeat("Document one text for the report. ", 20)),
		testDocument("doc2", "   "),
		testDocument("doc3", strings.Repeat("Document three text for the report. ", 20)),
	}
	results := p.ProcessDocumentsBatch(context.Background(), documents, nil, 2)

	report := p.GenerateComparisonReport(results)
	assert.Equal(t, 3, report.TotalDocumentsProcessed)
	assert.Equal(t, []string{StrategyFixedSizeChars, StrategySlidingText}, report.StrategiesCompared)
	assert.False(t, report.GeneratedAt.IsZero())

	for name, perf := range report.StrategyPerformance {
		assert.InDelta(t, 2.0/3.0, perf.SuccessRate, 0.001, "strategy %s", name)
		assert.Greater(t, perf.TotalChunks, 0)
		assert.Greater(t, perf.AvgChunksPerDocument, 0.0)
		assert.Greater(t, perf.AvgChunkSize, 0.0)
		assert.Greater(t, perf.AvgTokenCount, 0.0)
	}
}

func TestGenerateComparisonReportEmpty(t *testing.T) {
	p, err := NewPipeline(pipelineTestConfig())
	require.NoError(t, err)

	report := p.GenerateComparisonReport(nil)
	assert.Equal(t, 0, report.TotalDocumentsProcessed)
	assert.Empty(t, report.StrategyPerformance)
}
