package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeElements(n int, typ string, page int) []Element {
	elements := make([]Element, n)
	pos := 0
	for i := range elements {
		text := fmt.Sprintf("%s element %03d body text.", typ, i)
		elements[i] = Element{
			Type:          typ,
			Text:          text,
			PageNumber:    page,
			StartPosition: pos,
			EndPosition:   pos + len(text),
		}
		pos += len(text) + 2
	}
	return elements
}

func elementDocument(id string, elements []Element) *ProcessedDocument {
	return &ProcessedDocument{
		DocumentID: id,
		Title:      "Elements Document",
		FullText:   ElementText(elements),
		Elements:   elements,
	}
}

func TestNewSlidingElementsChunkerValidation(t *testing.T) {
	_, err := NewSlidingElementsChunker(Params{"max_elements_per_chunk": 0})
	assert.Error(t, err)

	_, err = NewSlidingElementsChunker(Params{"overlap_percentage": 1.0})
	assert.Error(t, err)

	_, err = NewSlidingElementsChunker(Params{"overlap_percentage": -0.1})
	assert.Error(t, err)

	s, err := NewSlidingElementsChunker(nil)
	require.NoError(t, err)
	assert.Equal(t, StrategySlidingElements, s.Name())
	assert.Equal(t, 10, s.Config().Int("max_elements_per_chunk", 0))
	assert.InDelta(t, 0.2, s.Config().Float("overlap_percentage", 0), 0.001)
}

func TestSlidingElementsWindowsOverlap(t *testing.T) {
	s, err := NewSlidingElementsChunker(Params{
		"max_elements_per_chunk": 4,
		"overlap_percentage":     0.25,
		"respect_boundaries":     false,
	})
	require.NoError(t, err)

	doc := elementDocument("doc1", makeElements(10, "NarrativeText", 1))
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, fmt.Sprintf("doc1_sliding_elements_%03d", i), ch.ChunkID)
		assert.NotEmpty(t, ch.Content)
		assert.LessOrEqual(t, ch.Metadata["element_count"].(int), 4)
		assert.NotEmpty(t, ch.Elements)
	}

	// Consecutive windows share at least one element.
	for i := 1; i < len(chunks); i++ {
		prevLast := chunks[i-1].Elements[len(chunks[i-1].Elements)-1]
		curFirst := chunks[i].Elements[0]
		assert.GreaterOrEqual(t, prevLast.StartPosition, curFirst.StartPosition)
	}

	// Every element's text lands in at least one chunk.
	all := strings.Join(collectContents(chunks), "\n\n")
	for i := 0; i < 10; i++ {
		assert.Contains(t, all, fmt.Sprintf("element %03d", i))
	}
}

func TestSlidingElementsRespectsBoundaries(t *testing.T) {
	s, err := NewSlidingElementsChunker(Params{
		"max_elements_per_chunk": 10,
		"priority_elements":      []string{"Title"},
		"respect_boundaries":     true,
	})
	require.NoError(t, err)

	elements := []Element{
		{Type: "Title", Text: "Section One", PageNumber: 1},
		{Type: "NarrativeText", Text: "First section body.", PageNumber: 1},
		{Type: "Title", Text: "Section Two", PageNumber: 2},
		{Type: "NarrativeText", Text: "Second section body.", PageNumber: 2},
	}
	doc := elementDocument("doc1", elements)

	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Each title starts its own chunk; section contents never mix.
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Section One"))
	assert.NotContains(t, chunks[0].Content, "Second section")
	assert.True(t, strings.HasPrefix(chunks[1].Content, "Section Two"))
	assert.NotContains(t, chunks[1].Content, "First section")

	assert.Equal(t, []int{1}, chunks[0].Metadata["page_numbers"])
	assert.Equal(t, []int{2}, chunks[1].Metadata["page_numbers"])
	assert.Equal(t, []string{"Title", "NarrativeText"}, chunks[0].Metadata["element_types"])
}

func TestSlidingElementsFallbackWithoutElements(t *testing.T) {
	s, err := NewSlidingElementsChunker(nil)
	require.NoError(t, err)

	doc := testDocument("doc1", strings.Repeat("Plain text with no structural elements at all. ", 60))
	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Fallback output carries this strategy's name and ID scheme.
	for i, ch := range chunks {
		assert.Equal(t, StrategySlidingElements, ch.StrategyName)
		assert.Equal(t, fmt.Sprintf("doc1_sliding_elements_%03d", i), ch.ChunkID)
	}
}

func TestSlidingElementsSkipsEmptyWindows(t *testing.T) {
	s, err := NewSlidingElementsChunker(Params{
		"max_elements_per_chunk": 2,
		"respect_boundaries":     false,
	})
	require.NoError(t, err)

	elements := []Element{
		{Type: "NarrativeText", Text: "Real content here."},
		{Type: "NarrativeText", Text: "   "},
		{Type: "NarrativeText", Text: ""},
		{Type: "NarrativeText", Text: "More real content."},
	}
	doc := elementDocument("doc1", elements)
	doc.FullText = "Real content here. More real content."

	chunks, err := s.ChunkDocument(context.Background(), doc)
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
	}
}
