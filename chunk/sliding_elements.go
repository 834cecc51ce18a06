package chunk

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func init() {
	RegisterStrategy(StrategySlidingElements, NewSlidingElementsChunker)
}

// StrategySlidingElements names the sliding-window-on-elements strategy.
const StrategySlidingElements = "sliding_elements"

// SlidingElementsChunker windows pre-segmented structural elements instead
// of raw text, preserving element boundaries. In boundary-respecting mode
// elements are first grouped so each priority element (Title, Header, ...)
// begins a fresh group; windows then overlap within each group. Documents
// without elements fall back to the sliding-text strategy, relabeled.
type SlidingElementsChunker struct {
	maxElements       int
	overlapPct        float64
	priority          []string
	respectBoundaries bool
	counter           TokenCounter
}

// NewSlidingElementsChunker builds the strategy from parameters:
//   - max_elements_per_chunk: window size in elements (default 10),
//     must be positive
//   - overlap_percentage: window overlap in [0,1) (default 0.2)
//   - priority_elements: element types that open a new group
//   - respect_boundaries: group before windowing (default true)
func NewSlidingElementsChunker(params Params) (Strategy, error) {
	c := &SlidingElementsChunker{
		maxElements:       params.Int("max_elements_per_chunk", 10),
		overlapPct:        params.Float("overlap_percentage", 0.2),
		priority:          params.StringSlice("priority_elements", []string{"Title", "Header", "NarrativeText"}),
		respectBoundaries: params.Bool("respect_boundaries", true),
		counter:           NewTokenCounter(params.String("encoding", "")),
	}
	if c.maxElements <= 0 {
		return nil, fmt.Errorf("max_elements_per_chunk must be positive, got %d", c.maxElements)
	}
	if c.overlapPct < 0 || c.overlapPct >= 1 {
		return nil, fmt.Errorf("overlap_percentage must be in [0,1), got %v", c.overlapPct)
	}
	return c, nil
}

func (c *SlidingElementsChunker) Name() string { return StrategySlidingElements }

// Config describes the strategy's effective configuration.
func (c *SlidingElementsChunker) Config() Params {
	return Params{
		"strategy_name":          c.Name(),
		"max_elements_per_chunk": c.maxElements,
		"overlap_percentage":     c.overlapPct,
		"priority_elements":      c.priority,
		"respect_boundaries":     c.respectBoundaries,
	}
}

// ChunkDocument windows the document's elements, or falls back to text
// chunking when the document carries none.
func (c *SlidingElementsChunker) ChunkDocument(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	if err := validateDocument(c.Name(), doc); err != nil {
		return nil, err
	}

	if len(doc.Elements) == 0 {
		GlobalLogger.Warn("no elements on document, falling back to text chunking",
			"document", doc.DocumentID)
		return c.fallbackTextChunking(ctx, doc)
	}

	var chunks []DocumentChunk
	if c.respectBoundaries {
		for _, group := range GroupElementsByPriority(doc.Elements, c.priority) {
			chunks = c.appendWindowed(chunks, group, doc)
		}
	} else {
		chunks = c.appendWindowed(chunks, doc.Elements, doc)
	}

	GlobalLogger.Info("created chunks",
		"strategy", c.Name(), "document", doc.DocumentID, "chunks", len(chunks))
	return chunks, nil
}

// appendWindowed materializes one chunk per overlapping window over the
// element run, skipping windows whose combined text is empty.
func (c *SlidingElementsChunker) appendWindowed(chunks []DocumentChunk, elements []Element, doc *ProcessedDocument) []DocumentChunk {
	for _, span := range WindowSpans(len(elements), c.maxElements, c.overlapPct) {
		subset := elements[span.Start:span.End]
		content := ElementText(subset)
		if strings.TrimSpace(content) == "" {
			continue
		}
		chunks = append(chunks, c.newChunk(doc, content, subset, len(chunks)))
	}
	return chunks
}

// fallbackTextChunking runs the sliding-text strategy and relabels its
// output with this strategy's name and chunk IDs.
func (c *SlidingElementsChunker) fallbackTextChunking(ctx context.Context, doc *ProcessedDocument) ([]DocumentChunk, error) {
	fallback, err := NewSlidingTextChunker(Params{
		"chunk_size":    1000,
		"chunk_overlap": 200,
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

func (c *SlidingElementsChunker) newChunk(doc *ProcessedDocument, content string, elements []Element, index int) DocumentChunk {
	startPos := 0
	endPos := len(content)
	if len(elements) > 0 {
		if first := elements[0]; first.StartPosition > 0 {
			startPos = first.StartPosition
		}
		if last := elements[len(elements)-1]; last.EndPosition > 0 {
			endPos = last.EndPosition
		}
	}

	types := make([]string, 0, len(elements))
	pages := make([]int, 0, len(elements))
	for _, el := range elements {
		t := el.Type
		if t == "" {
			t = "Unknown"
		}
		types = append(types, t)
		page := el.PageNumber
		if page == 0 {
			page = 1
		}
		pages = append(pages, page)
	}

	return DocumentChunk{
		ChunkID:       chunkID(doc.DocumentID, c.Name(), index),
		DocumentID:    doc.DocumentID,
		StrategyName:  c.Name(),
		Content:       content,
		StartPosition: startPos,
		EndPosition:   endPos,
		TokenCount:    c.counter.Count(content),
		Metadata: map[string]interface{}{
			"title":              doc.Title,
			"authors":            doc.Authors,
			"chunk_index":        index,
			"total_chunks":       0, // back-filled by the pipeline
			"element_count":      len(elements),
			"element_types":      types,
			"page_numbers":       uniqueSortedInts(pages),
			"overlap_percentage": c.overlapPct,
			"strategy_config":    c.Config(),
		},
		Elements:  append([]Element{}, elements...),
		CreatedAt: time.Now(),
	}
}
