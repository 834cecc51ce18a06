package chunkline

import (
	"time"

	"github.com/chunkline/chunkline/chunk"
)

// NewDocument builds a ProcessedDocument from an identifier, a title and
// the full text, ready to hand to a pipeline.
func NewDocument(documentID, title, fullText string) *ProcessedDocument {
	return &ProcessedDocument{
		DocumentID: documentID,
		Title:      title,
		FullText:   fullText,
		Metadata:   map[string]interface{}{},
		CreatedAt:  time.Now(),
	}
}

// ParserManager routes files to per-type parsers producing
// ProcessedDocument values.
type ParserManager = chunk.ParserManager

// NewParserManager creates a parser manager with PDF and plain-text
// parsers registered.
func NewParserManager() *ParserManager {
	return chunk.NewParserManager()
}

// LoadDocument parses a file into a ProcessedDocument using the default
// parser set.
func LoadDocument(path string) (*ProcessedDocument, error) {
	doc, err := chunk.NewParserManager().Parse(path)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
