package chunk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkline/chunkline/chunk/providers"
)

// topicEmbedder returns axis-aligned vectors keyed by the leading word of
// each sentence, so similarity is 1 within a topic and 0 across topics.
type topicEmbedder struct{}

func (topicEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		if strings.HasPrefix(strings.ToLower(text), "alpha") {
			vectors[i] = []float64{1, 0}
		} else {
			vectors[i] = []float64{0, 1}
		}
	}
	return vectors, nil
}

func (topicEmbedder) Dimension() (int, error) { return 2, nil }

// failingEmbedder always errors, exercising the runtime-failure path.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) Dimension() (int, error) { return 0, nil }

func init() {
	providers.RegisterEmbedder("topic_test", func(config map[string]interface{}) (providers.Embedder, error) {
		return topicEmbedder{}, nil
	})
	providers.RegisterEmbedder("failing_test", func(config map[string]interface{}) (providers.Embedder, error) {
		return failingEmbedder{}, nil
	})
}

func TestNewSemanticChunkerValidation(t *testing.T) {
	_, err := NewSemanticChunker(Params{"similarity_threshold": 1.5})
	assert.Error(t, err)

	_, err = NewSemanticChunker(Params{"similarity_threshold": -0.1})
	assert.Error(t, err)

	_, err = NewSemanticChunker(Params{"min_chunk_size": 0})
	assert.Error(t, err)

	_, err = NewSemanticChunker(Params{"min_chunk_size": 500, "max_chunk_size": 500})
	assert.Error(t, err)

	s, err := NewSemanticChunker(nil)
	require.NoError(t, err)
	assert.Equal(t, StrategySemantic, s.Name())
	assert.Equal(t, "openai", s.Config().String("embedding_provider", ""))
	assert.InDelta(t, 0.8, s.Config().Float("similarity_threshold", 0), 0.001)
}

func TestSemanticBreakpointsAtTopicShift(t *testing.T) {
	s, err := NewSemanticChunker(Params{
		"embedding_provider":   "topic_test",
		"similarity_threshold": 0.8,
		"min_chunk_size":       10,
		"max_chunk_size":       2000,
	})
	require.NoError(t, err)

	doc := testDocument("doc1",
		"Alpha topic opens the discussion here. Alpha topic continues in the same vein. "+
			"Beta topic changes the subject entirely. Beta topic stays on the new subject.")

	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Content, "Alpha topic opens")
	assert.Contains(t, chunks[0].Content, "Alpha topic continues")
	assert.NotContains(t, chunks[0].Content, "Beta")
	assert.Contains(t, chunks[1].Content, "Beta topic changes")
	assert.NotContains(t, chunks[1].Content, "Alpha")

	assert.Equal(t, "doc1_semantic_000", chunks[0].ChunkID)
	assert.Equal(t, "doc1_semantic_001", chunks[1].ChunkID)
}

func TestSemanticMergesSmallPieces(t *testing.T) {
	s, err := NewSemanticChunker(Params{
		"embedding_provider":   "topic_test",
		"similarity_threshold": 0.8,
		"min_chunk_size":       500,
		"max_chunk_size":       2000,
	})
	require.NoError(t, err)

	// Both topic pieces are far below min_chunk_size, so the second is
	// merged into the first.
	doc := testDocument("doc1",
		"Alpha topic sentence one. Alpha topic sentence two. Beta topic sentence one.")
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Alpha topic sentence one")
	assert.Contains(t, chunks[0].Content, "Beta topic sentence one")
}

func TestSemanticFallbackMatchesRelabeledSlidingText(t *testing.T) {
	maxSize := 400
	s, err := NewSemanticChunker(Params{
		"embedding_provider": "no_such_provider",
		"min_chunk_size":     100,
		"max_chunk_size":     maxSize,
	})
	require.NoError(t, err)

	doc := testDocument("doc1", numberedSentences(60))
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	reference, err := NewSlidingTextChunker(Params{
		"chunk_size":    maxSize,
		"chunk_overlap": maxSize / 10,
	})
	require.NoError(t, err)
	refChunks, err := reference.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, len(refChunks), len(chunks))
	for i := range chunks {
		assert.Equal(t, refChunks[i].Content, chunks[i].Content)
		assert.Equal(t, StrategySemantic, chunks[i].StrategyName)
		assert.Equal(t, fmt.Sprintf("doc1_semantic_%03d", i), chunks[i].ChunkID)
	}
}

func TestSemanticFallbackOnEmbeddingFailure(t *testing.T) {
	s, err := NewSemanticChunker(Params{
		"embedding_provider": "failing_test",
		"min_chunk_size":     100,
		"max_chunk_size":     500,
	})
	require.NoError(t, err)

	doc := testDocument("doc1", numberedSentences(40))
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, StrategySemantic, ch.StrategyName)
	}
}

func TestSemanticBoundsUnterminatedText(t *testing.T) {
	s, err := NewSemanticChunker(Params{
		"embedding_provider": "topic_test",
		"min_chunk_size":     10,
		"max_chunk_size":     100,
	})
	require.NoError(t, err)

	// No terminators, so the whole document is one "sentence" far above
	// max_chunk_size. The size bounds still apply.
	doc := testDocument("doc1", strings.Repeat("alpha beta gamma delta ", 20))
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, ch := range chunks {
		assert.Equal(t, StrategySemantic, ch.StrategyName)
		assert.NotEmpty(t, ch.Content)
		assert.LessOrEqual(t, len(ch.Content), 100)
	}

	// Every word survives the re-split.
	total := 0
	for _, ch := range chunks {
		total += len(strings.Fields(ch.Content))
	}
	assert.Equal(t, 80, total)
}

func TestSemanticSingleSentence(t *testing.T) {
	s, err := NewSemanticChunker(Params{
		"embedding_provider": "no_such_provider",
		"min_chunk_size":     10,
		"max_chunk_size":     100,
	})
	require.NoError(t, err)

	// One sentence needs no embeddings, so even an unavailable provider
	// produces a direct result.
	chunks, err := s.ChunkDocument(context.Background(), testDocument("doc1", "A single sentence document."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, StrategySemantic, chunks[0].StrategyName)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}), 0.001)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 0.001)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 0.001)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
