package chunk

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	manyDotsRe   = regexp.MustCompile(`\.{3,}`)
	manyDashesRe = regexp.MustCompile(`-{2,}`)
	sentenceRe   = regexp.MustCompile(`[.!?]+\s+`)
	terminatorRe = regexp.MustCompile(`[.!?]+`)
	paragraphRe  = regexp.MustCompile(`\n\n+`)
)

// CleanText normalizes raw document text: collapses whitespace runs, trims
// the ends, and squashes common PDF artifacts such as dotted leaders and
// dash rules.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = manyDotsRe.ReplaceAllString(text, "...")
	text = manyDashesRe.ReplaceAllString(text, "--")
	return text
}

// ElementText joins the non-empty element texts with blank-line
// separators, the same framing the upstream extractor uses between blocks.
func ElementText(elements []Element) string {
	texts := make([]string, 0, len(elements))
	for _, el := range elements {
		if t := strings.TrimSpace(el.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, "\n\n")
}

// GroupElementsByPriority partitions elements into groups, starting a new
// group whenever an element of a priority type (Title, Header, ...) is
// encountered, so each heading begins a fresh group.
func GroupElementsByPriority(elements []Element, priority []string) [][]Element {
	if len(elements) == 0 {
		return nil
	}
	if len(priority) == 0 {
		priority = []string{"Title", "Header", "NarrativeText"}
	}
	prioritySet := make(map[string]bool, len(priority))
	for _, p := range priority {
		prioritySet[p] = true
	}

	var groups [][]Element
	var current []Element
	for _, el := range elements {
		if prioritySet[el.Type] && len(current) > 0 {
			groups = append(groups, current)
			current = []Element{el}
		} else {
			current = append(current, el)
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// Span is a half-open [Start, End) index range over an element sequence.
type Span struct {
	Start int
	End   int
}

// WindowSpans computes overlapping index windows over n elements. Windows
// are `window` elements wide and advance by window minus the overlap,
// where the overlap is round(window*overlapPct) and never less than one
// element.
func WindowSpans(n, window int, overlapPct float64) []Span {
	if n <= 0 || window <= 0 {
		return nil
	}
	overlap := int(float64(window)*overlapPct + 0.5)
	if overlap < 1 {
		overlap = 1
	}
	if overlap >= window {
		overlap = window - 1
	}
	step := window - overlap
	if step < 1 {
		step = 1
	}

	var spans []Span
	for start := 0; start < n; start += step {
		end := start + window
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
		if end >= n {
			break
		}
	}
	return spans
}

// SplitSentences splits text on terminal punctuation followed by
// whitespace. Trailing text without a terminator is kept as a final
// sentence.
func SplitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// SmartSplitSentences is a punctuation-aware splitter that keeps the
// terminators on each sentence and does not break inside double quotes.
func SmartSplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	inQuote := false

	for _, r := range text {
		current.WriteRune(r)
		if r == '"' {
			inQuote = !inQuote
		}
		if (r == '.' || r == '!' || r == '?') && !inQuote {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// TextStatistics are basic shape measurements of a text.
type TextStatistics struct {
	CharacterCount int `json:"character_count"`
	WordCount      int `json:"word_count"`
	SentenceCount  int `json:"sentence_count"`
	ParagraphCount int `json:"paragraph_count"`
}

// ComputeTextStatistics counts characters, words, sentence terminators and
// blank-line separated paragraphs.
func ComputeTextStatistics(text string) TextStatistics {
	if text == "" {
		return TextStatistics{}
	}
	paragraphs := 0
	for _, p := range paragraphRe.Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	return TextStatistics{
		CharacterCount: len(text),
		WordCount:      len(strings.Fields(text)),
		SentenceCount:  len(terminatorRe.FindAllString(text, -1)),
		ParagraphCount: paragraphs,
	}
}

// ChunkQuality is a heuristic quality assessment of one chunk.
type ChunkQuality struct {
	QualityScore   float64  `json:"quality_score"`
	Issues         []string `json:"issues"`
	CharacterCount int      `json:"character_count"`
	WordCount      int      `json:"word_count"`
	StartsWell     bool     `json:"starts_well"`
	EndsWell       bool     `json:"ends_well"`
}

// AssessChunkQuality scores a chunk on simple textual heuristics: length,
// sentence framing, word repetition, and token-count consistency. The
// score starts at 1.0 and is multiplied down per issue.
func AssessChunkQuality(chunk DocumentChunk) ChunkQuality {
	content := strings.TrimSpace(chunk.Content)
	words := strings.Fields(strings.ToLower(content))

	q := ChunkQuality{
		QualityScore:   1.0,
		Issues:         []string{},
		CharacterCount: len(content),
		WordCount:      len(words),
	}

	if len(content) < 50 {
		q.Issues = append(q.Issues, "Content too short (< 50 characters)")
		q.QualityScore *= 0.5
	}

	if content != "" {
		first := []rune(content)[0]
		q.StartsWell = unicode.IsUpper(first)
		last := content[len(content)-1]
		q.EndsWell = last == '.' || last == '!' || last == '?'
	}
	if content != "" && !q.StartsWell {
		q.Issues = append(q.Issues, "Doesn't start with capital letter")
		q.QualityScore *= 0.8
	}
	if content != "" && !q.EndsWell {
		q.Issues = append(q.Issues, "Doesn't end with sentence terminator")
		q.QualityScore *= 0.8
	}

	if len(words) > 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < 0.3 {
			q.Issues = append(q.Issues, "High word repetition")
			q.QualityScore *= 0.6
		}
	}

	estimated := float64(len(words)) * 0.75
	if diff := float64(chunk.TokenCount) - estimated; diff > estimated*0.5 || diff < -estimated*0.5 {
		q.Issues = append(q.Issues, "Token count seems inconsistent")
		q.QualityScore *= 0.9
	}

	return q
}

// MergeSmallChunks merges chunks shorter than minSize into their following
// neighbor within the same document. Chunk IDs of the merged survivors are
// kept from the leading chunk.
func MergeSmallChunks(chunks []DocumentChunk, minSize int) []DocumentChunk {
	if len(chunks) == 0 || minSize <= 0 {
		return chunks
	}

	var merged []DocumentChunk
	for i := 0; i < len(chunks); {
		current := chunks[i]
		if len(current.Content) < minSize && i+1 < len(chunks) &&
			current.DocumentID == chunks[i+1].DocumentID {
			next := chunks[i+1]
			combined := current
			combined.Content = current.Content + "\n\n" + next.Content
			combined.EndPosition = next.EndPosition
			combined.TokenCount = current.TokenCount + next.TokenCount
			combined.Elements = append(append([]Element{}, current.Elements...), next.Elements...)
			meta := make(map[string]interface{}, len(current.Metadata)+1)
			for k, v := range current.Metadata {
				meta[k] = v
			}
			meta["merged_from"] = []string{current.ChunkID, next.ChunkID}
			combined.Metadata = meta
			merged = append(merged, combined)
			i += 2
		} else {
			merged = append(merged, current)
			i++
		}
	}
	return merged
}

// approxOffsets recovers best-effort character offsets for a chunk by
// searching for its leading substring in the source text. When the probe
// is not found, an index-based estimate with the given stride is used.
// Exact tracking would require a different algorithm, so callers treat
// these as approximate.
func approxOffsets(source, chunkText string, index, stride int) (int, int) {
	probe := chunkText
	if len(probe) > 100 {
		probe = probe[:100]
	}
	start := strings.Index(source, probe)
	if start < 0 {
		start = index * stride
		if start > len(source) {
			start = len(source)
		}
	}
	end := start + len(chunkText)
	if end > len(source) {
		end = len(source)
	}
	return start, end
}

// uniqueSortedInts deduplicates and sorts a list of page numbers.
func uniqueSortedInts(values []int) []int {
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
