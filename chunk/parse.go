package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Parser extracts a ProcessedDocument from a file. Implementations exist
// per file type; the ParserManager routes files to the right one.
type Parser interface {
	Parse(filePath string) (ProcessedDocument, error)
}

// ParserManager coordinates document extraction by routing files to the
// registered Parser for their detected type.
type ParserManager struct {
	fileTypeDetector func(string) string
	parsers          map[string]Parser
}

// NewParserManager creates a ParserManager with parsers for PDF and plain
// text files registered.
func NewParserManager() *ParserManager {
	pm := &ParserManager{
		fileTypeDetector: detectFileType,
		parsers:          make(map[string]Parser),
	}
	pm.parsers["pdf"] = &PDFParser{}
	pm.parsers["text"] = &TextParser{}
	return pm
}

// Parse extracts a document from the file, choosing the parser by detected
// file type.
func (pm *ParserManager) Parse(filePath string) (ProcessedDocument, error) {
	fileType := pm.fileTypeDetector(filePath)
	parser, ok := pm.parsers[fileType]
	if !ok {
		return ProcessedDocument{}, fmt.Errorf("no parser available for file type: %s", fileType)
	}
	doc, err := parser.Parse(filePath)
	if err != nil {
		GlobalLogger.Error("failed to parse document", "path", filePath, "error", err)
		return ProcessedDocument{}, err
	}
	GlobalLogger.Debug("parsed document", "path", filePath, "type", fileType)
	return doc, nil
}

// SetFileTypeDetector replaces the extension-based file type detection.
func (pm *ParserManager) SetFileTypeDetector(detector func(string) string) {
	pm.fileTypeDetector = detector
}

// AddParser registers a parser for an additional file type.
func (pm *ParserManager) AddParser(fileType string, parser Parser) {
	pm.parsers[fileType] = parser
}

func detectFileType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return "pdf"
	case ".txt", ".md":
		return "text"
	default:
		return "unknown"
	}
}

// documentID derives a stable document identifier from the file name.
func documentID(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PDFParser extracts text from PDF files page by page.
type PDFParser struct{}

// Parse extracts the PDF's plain text into a ProcessedDocument. Pages are
// separated with blank lines.
func (p *PDFParser) Parse(filePath string) (ProcessedDocument, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return ProcessedDocument{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return ProcessedDocument{}, fmt.Errorf("failed to get file info: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return ProcessedDocument{}, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var text strings.Builder
	var elements []Element
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return ProcessedDocument{}, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		if strings.TrimSpace(content) != "" {
			elements = append(elements, Element{
				Type:       "NarrativeText",
				Text:       content,
				PageNumber: i,
			})
		}
		text.WriteString(content)
		text.WriteString("\n\n")
	}

	return ProcessedDocument{
		DocumentID: documentID(filePath),
		Title:      documentID(filePath),
		FullText:   text.String(),
		Elements:   elements,
		Metadata: map[string]interface{}{
			"file_type": "pdf",
			"file_path": filePath,
		},
		ProcessingMethod: "pdf",
		CreatedAt:        time.Now(),
	}, nil
}

// TextParser reads plain text files whole.
type TextParser struct{}

// Parse reads the file content into a ProcessedDocument.
func (p *TextParser) Parse(filePath string) (ProcessedDocument, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return ProcessedDocument{}, fmt.Errorf("failed to read file: %w", err)
	}
	return ProcessedDocument{
		DocumentID: documentID(filePath),
		Title:      documentID(filePath),
		FullText:   string(content),
		Metadata: map[string]interface{}{
			"file_type": "text",
			"file_path": filePath,
		},
		ProcessingMethod: "text",
		CreatedAt:        time.Now(),
	}, nil
}
