package chunk

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusIndex is a thin client pushing chunks into a Milvus collection so
// an external search backend can serve them. It carries no chunking logic.
type MilvusIndex struct {
	client     client.Client
	collection string
	dim        int
}

// NewMilvusIndex connects to a Milvus instance and targets the named
// collection for vectors of the given dimension.
func NewMilvusIndex(ctx context.Context, address, collection string, dim int) (*MilvusIndex, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dim)
	}
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	return &MilvusIndex{client: c, collection: collection, dim: dim}, nil
}

// Close releases the client connection.
func (m *MilvusIndex) Close() error {
	return m.client.Close()
}

// EnsureCollection creates the chunk collection, its HNSW index and loads
// it, unless it already exists.
func (m *MilvusIndex) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		return m.client.LoadCollection(ctx, m.collection, false)
	}

	schema := entity.NewSchema().
		WithName(m.collection).
		WithDescription("document chunks with embeddings").
		WithField(entity.NewField().WithName("chunk_id").
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(256).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName("document_id").
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
		WithField(entity.NewField().WithName("strategy_name").
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName("content").
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
		WithField(entity.NewField().WithName("token_count").
			WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dim)))

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 200)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.collection, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return m.client.LoadCollection(ctx, m.collection, false)
}

// Insert pushes chunks and their embeddings into the collection. vectors
// must have one embedding per chunk.
func (m *MilvusIndex) Insert(ctx context.Context, chunks []DocumentChunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	names := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	tokens := make([]int64, len(chunks))
	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ChunkID
		docIDs[i] = c.DocumentID
		names[i] = c.StrategyName
		contents[i] = c.Content
		tokens[i] = int64(c.TokenCount)
		vec := make([]float32, len(vectors[i]))
		for j, v := range vectors[i] {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}

	_, err := m.client.Insert(ctx, m.collection, "",
		entity.NewColumnVarChar("chunk_id", ids),
		entity.NewColumnVarChar("document_id", docIDs),
		entity.NewColumnVarChar("strategy_name", names),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnInt64("token_count", tokens),
		entity.NewColumnFloatVector("embedding", m.dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

// Flush makes pending inserts durable and searchable.
func (m *MilvusIndex) Flush(ctx context.Context) error {
	return m.client.Flush(ctx, m.collection, false)
}

// Search returns the chunk IDs and similarity scores of the topK chunks
// closest to the query vector.
func (m *MilvusIndex) Search(ctx context.Context, vector []float64, topK int) ([]string, []float32, error) {
	query := make([]float32, len(vector))
	for i, v := range vector {
		query[i] = float32(v)
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := m.client.Search(ctx, m.collection, nil, "", []string{"chunk_id"},
		[]entity.Vector{entity.FloatVector(query)}, "embedding", entity.COSINE, topK, sp)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil, nil
	}

	idCol, ok := results[0].IDs.(*entity.ColumnVarChar)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected ID column type %T", results[0].IDs)
	}
	return idCol.Data(), results[0].Scores, nil
}
