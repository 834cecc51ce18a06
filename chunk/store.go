package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// ResultStore persists chunking output into chromem collections, one
// collection per strategy. It is a thin persistence collaborator: the
// chunking core itself performs no I/O.
type ResultStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
}

// NewResultStore opens a persistent store at path, or an in-memory store
// when path is empty. The embedding function is used by chromem to embed
// chunk contents on insert; pass chromem.NewEmbeddingFuncOpenAI(...) or
// any compatible function.
func NewResultStore(path string, embedFunc chromem.EmbeddingFunc) (*ResultStore, error) {
	if embedFunc == nil {
		return nil, fmt.Errorf("embedding function is required")
	}

	var db *chromem.DB
	var err error
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open persistent store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &ResultStore{db: db, embedFunc: embedFunc}, nil
}

// SaveResult writes a successful result's chunks into the strategy's
// collection. Failed results are skipped with a warning, since they carry
// no chunks.
func (s *ResultStore) SaveResult(ctx context.Context, result ChunkingResult) error {
	if !result.Success {
		GlobalLogger.Warn("skipping failed result",
			"strategy", result.StrategyName, "document", result.DocumentID,
			"error", result.ErrorMessage)
		return nil
	}
	if len(result.Chunks) == 0 {
		return nil
	}

	col, err := s.db.GetOrCreateCollection("chunks_"+result.StrategyName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("failed to open collection for %s: %w", result.StrategyName, err)
	}

	docs := make([]chromem.Document, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		docs = append(docs, chromem.Document{
			ID:      c.ChunkID,
			Content: c.Content,
			Metadata: map[string]string{
				"document_id":   c.DocumentID,
				"strategy_name": c.StrategyName,
				"chunk_index":   strconv.Itoa(metadataInt(c.Metadata, "chunk_index")),
				"token_count":   strconv.Itoa(c.TokenCount),
			},
		})
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	GlobalLogger.Info("stored chunks",
		"strategy", result.StrategyName, "document", result.DocumentID,
		"chunks", len(docs))
	return nil
}

// Query returns the IDs of the most similar stored chunks for a strategy.
func (s *ResultStore) Query(ctx context.Context, strategyName, query string, topK int) ([]string, error) {
	col := s.db.GetCollection("chunks_"+strategyName, s.embedFunc)
	if col == nil {
		return nil, fmt.Errorf("no stored chunks for strategy: %s", strategyName)
	}
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}
	results, err := col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// WriteReport serializes a comparison report to a JSON file.
func WriteReport(path string, report *ComparisonReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	GlobalLogger.Info("saved comparison report", "path", path)
	return nil
}

// metadataInt reads an integer out of loose chunk metadata.
func metadataInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
