package chunkers

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// DOCX XML shapes: only the subset of the WordprocessingML schema this
// chunker decomposes (spec §4.9).

type docxBody struct {
	XMLName xml.Name       `xml:"body"`
	Blocks  []docxBlockXML `xml:",any"`
}

// docxBlockXML captures either a <w:p> or a <w:tbl> in document order;
// encoding/xml does not preserve heterogeneous sibling order across typed
// fields, so both shapes are decoded into every block and disambiguated by
// XMLName.
type docxBlockXML struct {
	XMLName xml.Name
	PPr     *docxPPr   `xml:"pPr"`
	Runs    []docxRun  `xml:"r"`
	Rows    []docxRow  `xml:"tr"`
}

type docxPPr struct {
	Style *docxVal `xml:"pStyle"`
	NumPr *docxNumPr `xml:"numPr"`
}

type docxNumPr struct {
	Ilvl  *docxVal `xml:"ilvl"`
	NumID *docxVal `xml:"numId"`
}

type docxVal struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	RPr  *docxRPr `xml:"rPr"`
	Text []string `xml:"t"`
}

type docxRPr struct {
	Bold      *struct{} `xml:"b"`
	Italic    *struct{} `xml:"i"`
	Underline *struct{} `xml:"u"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	CellPr     *docxCellPr    `xml:"tcPr"`
	Paragraphs []docxBlockXML `xml:"p"`
}

type docxCellPr struct {
	GridSpan *docxVal `xml:"gridSpan"`
	VMerge   *struct{} `xml:"vMerge"`
}

type docxCoreProps struct {
	Creator string `xml:"creator"`
}

var docxHeadingStyles = map[string]int{
	"title": 1, "subtitle": 2,
	"heading1": 1, "heading2": 2, "heading3": 3, "heading4": 4,
	"heading5": 5, "heading6": 6, "heading7": 7, "heading8": 8, "heading9": 9,
}

// DOCXChunker decomposes a Word OOXML package opened as a ZIP archive,
// decoding word/document.xml's paragraphs and tables (spec §4.9).
type DOCXChunker struct{}

// NewDOCXChunker constructs a DOCXChunker. Stateless and reusable.
func NewDOCXChunker() *DOCXChunker {
	return &DOCXChunker{}
}

func (c *DOCXChunker) Name() string               { return "docx" }
func (c *DOCXChunker) DocumentType() DocumentType { return DocumentDOCX }

func (c *DOCXChunker) CanHandle(peek []byte) bool {
	return sniffZIPWithPart(peek, "word/document.xml")
}

type docxHeadingFrame struct {
	chunk *Chunk
	level int
}

func (c *DOCXChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("docx: content is empty")
	}

	zr, err := zip.NewReader(strings.NewReader(string(content)), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("docx: open package: %w", err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = readZipFile(f)
			if err != nil {
				return nil, nil, fmt.Errorf("docx: read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return nil, nil, invalidArgf("docx: missing word/document.xml")
	}

	// document.xml's root element is <w:document>; the paragraphs and tables
	// live in its <w:body> child.
	var doc struct {
		Body docxBody `xml:"body"`
	}
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return nil, nil, fmt.Errorf("docx: parse document.xml: %w", err)
	}
	body := doc.Body

	counter := resolveCounter(opts)
	var chunks []*Chunk
	var stack []docxHeadingFrame
	seq := 0

	parentOf := func() (chunkid.ID, bool) {
		if len(stack) == 0 {
			return chunkid.ID{}, false
		}
		return stack[len(stack)-1].chunk.ID, true
	}

	addContent := func(specificType, body string, decorate func(*ContentExtra)) {
		if strings.TrimSpace(body) == "" {
			return
		}
		pid, hasParent := parentOf()
		parts := []string{body}
		if opts.MaxTokens > 0 && counter.Count(body) > opts.MaxTokens {
			if split, err := counter.SplitBatches(body, opts.MaxTokens, opts.OverlapTokens); err == nil && len(split) > 1 {
				parts = split
			}
		}
		for i, part := range parts {
			seq++
			ce := &ContentExtra{Text: part}
			if decorate != nil {
				decorate(ce)
			}
			chunk := &Chunk{
				ID:             chunkid.New(),
				Category:       CategoryContent,
				SpecificType:   specificType,
				SequenceNumber: seq,
				Content:        ce,
				QualityMetrics: &QualityMetrics{
					TokenCount:           counter.Count(part),
					CharacterCount:       len(part),
					WordCount:            len(strings.Fields(part)),
					SemanticCompleteness: fragmentCompleteness(i, len(parts)),
				},
			}
			if hasParent {
				chunk.ParentID = pid
				chunk.HasParent = true
			}
			chunks = append(chunks, chunk)
		}
	}

	for _, block := range body.Blocks {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		switch block.XMLName.Local {
		case "tbl":
			seq++
			tableChunk := buildDocxTableChunk(block, &seq)
			if pid, ok := parentOf(); ok {
				tableChunk.ParentID = pid
				tableChunk.HasParent = true
			}
			chunks = append(chunks, tableChunk)

		case "p":
			text, annotations := docxRunText(block.Runs)
			styleName := ""
			if block.PPr != nil && block.PPr.Style != nil {
				styleName = strings.ToLower(block.PPr.Style.Val)
			}

			if level, ok := docxHeadingStyles[styleName]; ok {
				seq++
				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				h := &Chunk{
					ID:             chunkid.New(),
					Category:       CategoryStructural,
					SpecificType:   "heading",
					SequenceNumber: seq,
					Structural: &StructuralExtra{
						HeadingLevel: level,
						HeadingText:  text,
						HeadingType:  "docx_style",
					},
				}
				if pid, ok := parentOf(); ok {
					h.ParentID = pid
					h.HasParent = true
				}
				chunks = append(chunks, h)
				stack = append(stack, docxHeadingFrame{chunk: h, level: level})
				continue
			}

			if block.PPr != nil && block.PPr.NumPr != nil {
				ilvl, _ := strconv.Atoi(valOf(block.PPr.NumPr.Ilvl))
				addContent("list_item", text, func(ce *ContentExtra) {
					ce.ListLevel = ilvl
					ce.IsOrdered = true
					ce.IsNumbered = true
					ce.Annotations = annotations
				})
				continue
			}

			if strings.Contains(styleName, "code") || strings.Contains(styleName, "htmlpreformatted") {
				addContent("code_block", text, func(ce *ContentExtra) {
					ce.IsMonospace = true
					ce.Annotations = annotations
				})
				continue
			}

			addContent("paragraph", text, func(ce *ContentExtra) {
				ce.Annotations = annotations
			})
		}
	}

	var warnings []ChunkingWarning
	if len(chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "docx document produced no chunks",
		})
	}
	return chunks, warnings, nil
}

func valOf(v *docxVal) string {
	if v == nil {
		return ""
	}
	return v.Val
}

// docxRunText concatenates a paragraph's run text, recording an Annotation
// for each bold/italic/underline run over the accumulated text's offsets.
func docxRunText(runs []docxRun) (string, []Annotation) {
	var sb strings.Builder
	var annotations []Annotation
	for _, r := range runs {
		start := sb.Len()
		for _, t := range r.Text {
			sb.WriteString(t)
		}
		end := sb.Len()
		if r.RPr == nil || end == start {
			continue
		}
		if r.RPr.Bold != nil {
			annotations = append(annotations, Annotation{Kind: AnnotationBold, Start: start, End: end})
		}
		if r.RPr.Italic != nil {
			annotations = append(annotations, Annotation{Kind: AnnotationItalic, Start: start, End: end})
		}
		if r.RPr.Underline != nil {
			annotations = append(annotations, Annotation{Kind: AnnotationUnderline, Start: start, End: end})
		}
	}
	return sb.String(), annotations
}

func buildDocxTableChunk(block docxBlockXML, seq *int) *Chunk {
	var headers []string
	var rows [][]string
	hasMerged := false

	for i, row := range block.Rows {
		var cells []string
		for _, cell := range row.Cells {
			if cell.CellPr != nil && (cell.CellPr.VMerge != nil || cell.CellPr.GridSpan != nil) {
				hasMerged = true
			}
			var text strings.Builder
			for _, p := range cell.Paragraphs {
				t, _ := docxRunText(p.Runs)
				text.WriteString(t)
			}
			cells = append(cells, strings.TrimSpace(text.String()))
		}
		if i == 0 {
			headers = cells
		} else {
			rows = append(rows, cells)
		}
	}

	serialized := serializeMarkdownTable(headers, rows)
	return &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryTable,
		SpecificType:   "table",
		SequenceNumber: *seq,
		Table: &TableExtra{
			Content:             serialized,
			SerializedTable:     serialized,
			SerializationFormat: SerializationMarkdown,
			Info: TableInfo{
				RowCount:        len(rows),
				ColumnCount:     len(headers),
				Headers:         headers,
				HasHeaderRow:    len(headers) > 0,
				HasMergedCells:  hasMerged,
				PreferredFormat: SerializationMarkdown,
			},
		},
	}
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
