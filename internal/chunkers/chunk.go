// Package chunkers implements the document chunking engine: the chunk data
// model, token-aware splitting, hierarchy construction, validation, format
// detection, and one structural decomposer per supported document format.
package chunkers

import (
	"time"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// Category is the invariant top-level kind of a chunk. Every concrete
// SpecificType belongs to exactly one Category.
type Category int

const (
	CategoryStructural Category = iota
	CategoryContent
	CategoryVisual
	CategoryTable
)

func (c Category) String() string {
	switch c {
	case CategoryStructural:
		return "Structural"
	case CategoryContent:
		return "Content"
	case CategoryVisual:
		return "Visual"
	case CategoryTable:
		return "Table"
	default:
		return "Unknown"
	}
}

// AnnotationKind identifies the kind of inline formatting span.
type AnnotationKind int

const (
	AnnotationBold AnnotationKind = iota
	AnnotationItalic
	AnnotationUnderline
	AnnotationStrikethrough
	AnnotationLink
	AnnotationImage
	AnnotationCode
	AnnotationHighlight
	AnnotationSubscript
	AnnotationSuperscript
)

// Annotation is a formatting span over a Content chunk's Content string.
// Spans are half-open ([Start, End)), non-negative, and bounded by the
// length of the owning chunk's Content. Overlapping spans are permitted.
type Annotation struct {
	Kind       AnnotationKind
	Start      int
	End        int
	Attributes map[string]string
}

// Metadata carries source-tracking information common to every chunk.
type Metadata struct {
	DocumentType      string
	SourcePath        string
	SourceID          string
	InternalHierarchy string
	ExternalHierarchy string
	PageNumber        *int
	SheetName         string
	Tags              []string
	BoundingBox       string
	Language          string
	CreatedAt         time.Time
	Custom            map[string]string
}

// QualityMetrics captures the size/quality characteristics of a chunk.
type QualityMetrics struct {
	TokenCount           int
	CharacterCount       int
	WordCount            int
	SemanticCompleteness float64
}

// TableInfo describes the shape of a tabular region.
type TableInfo struct {
	RowCount        int
	ColumnCount     int
	Headers         []string
	HasHeaderRow    bool
	HasMergedCells  bool
	PreferredFormat SerializationFormat
}

// SerializationFormat is the serialization chosen for a Table chunk's body.
type SerializationFormat int

const (
	SerializationMarkdown SerializationFormat = iota
	SerializationCSV
	SerializationJSON
	SerializationHTML
)

func (f SerializationFormat) String() string {
	switch f {
	case SerializationMarkdown:
		return "Markdown"
	case SerializationCSV:
		return "CSV"
	case SerializationJSON:
		return "JSON"
	case SerializationHTML:
		return "HTML"
	default:
		return "Markdown"
	}
}

// StructuralExtra holds fields specific to Structural-category subtypes
// (Section, Page, Slide, Worksheet, PDF Document). Only the fields relevant
// to the concrete SpecificType are populated; the rest stay at zero value.
type StructuralExtra struct {
	Summary string

	// Section (Markdown/HTML/PlainText/DOCX headings)
	HeadingLevel int
	HeadingText  string
	HeadingType  string // PlainText heading detection method
	TagName      string // HTML
	ElementID    string // HTML
	CSSClasses   []string
	Role         string // ARIA role

	// PDF Document / Page
	PDFVersion   string
	PageCount    int
	Title        string
	Author       string
	Subject      string
	CreatedDate  *time.Time
	ModifiedDate *time.Time
	Encrypted    bool
	PageNumber   int
	PageWidth    float64
	PageHeight   float64
	Rotation     int
	WordCount    int

	// Slide (PPTX)
	SlideNumber int
	ShapeCount  int

	// Worksheet (XLSX)
	SheetIndex  int
	IsHidden    bool
	UsedRange   string
	RowCount    int
	ColumnCount int

	// CSV Document
	Delimiter    string
	HasHeaderRow bool
	Headers      []string
	Encoding     string
}

// ContentExtra holds fields specific to Content-category subtypes
// (Paragraph, ListItem, CodeBlock, Quote, Title, Notes, Formula, PDF
// paragraph).
type ContentExtra struct {
	Text            string
	HTMLContent     string
	MarkdownContent string
	Annotations     []Annotation
	Keywords        []string

	// ListItem
	IsOrdered  bool
	ItemNumber int
	ListLevel  int
	IsNumbered bool

	// CodeBlock
	Language   string
	IsFenced   bool
	IsMonospace bool

	// Quote
	QuoteDepth int

	// PPTX Title / Notes
	SlideNumber int
	NotesLength int

	// XLSX Formula
	CellReference   string
	Formula         string
	CalculatedValue string
	FormulaType     string
	ReferencedCells []string

	// PDF Paragraph
	PageNumber      int
	ParagraphIndex  int
	IsLikelyHeading bool
}

// VisualExtra holds fields specific to Visual-category subtypes (Image,
// chart, SmartArt).
type VisualExtra struct {
	BinaryReference      string
	Caption              string
	GeneratedDescription string
	MediaType            string
	Width                int
	Height                int
	VisualType           string // "image", "chart", "smartart"
	ChartType             string
	DataRange             string
	SeriesNames           []string
	AxesTitles            []string
	HasLegend             bool
	AnchorCell            string // XLSX
}

// TableExtra holds fields specific to Table-category subtypes (generic
// table, CSV row, spreadsheet row).
type TableExtra struct {
	Content             string
	SerializedTable     string
	SerializationFormat SerializationFormat
	Info                TableInfo

	// CSV Row
	Fields          []string
	RawRow          string
	HasQuotedFields bool
}

// Chunk is the flattened tagged-sum representation of every chunk category.
// Exactly one of Structural, Content, Visual, Table is non-nil; which one is
// determined by Category.
type Chunk struct {
	ID             chunkid.ID
	ParentID       chunkid.ID
	HasParent      bool
	AncestorIDs    []chunkid.ID
	Depth          int
	SequenceNumber int
	SpecificType   string
	Category       Category
	Metadata       Metadata
	QualityMetrics *QualityMetrics

	Structural *StructuralExtra
	Content    *ContentExtra
	Visual     *VisualExtra
	Table      *TableExtra
}

// PlainText returns the embeddable text of a chunk, if any. Structural
// chunks (other than their optional Summary) do not carry retrievable text.
func (c *Chunk) PlainText() string {
	switch {
	case c.Content != nil:
		return c.Content.Text
	case c.Table != nil:
		return c.Table.Content
	default:
		return ""
	}
}
