package chunkers

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// XLSX XML shapes: the subset of SpreadsheetML this chunker decomposes —
// workbook.xml for sheet order, sheetN.xml for cells, sharedStrings.xml for
// the interned string table (spec §4.11).

type xlsxWorkbookXML struct {
	Sheets []xlsxSheetRef `xml:"sheets>sheet"`
}

type xlsxSheetRef struct {
	Name    string `xml:"name,attr"`
	SheetID string `xml:"sheetId,attr"`
	State   string `xml:"state,attr"`
}

type xlsxWorksheetXML struct {
	SheetData xlsxSheetData `xml:"sheetData"`
}

type xlsxSheetData struct {
	Rows []xlsxRow `xml:"row"`
}

type xlsxRow struct {
	Ref   string     `xml:"r,attr"`
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref     string      `xml:"r,attr"`
	Type    string      `xml:"t,attr"`
	Formula *xlsxFormula `xml:"f"`
	Value   string      `xml:"v"`
}

type xlsxFormula struct {
	Text string `xml:",chardata"`
}

type xlsxSharedStringsXML struct {
	Items []xlsxSI `xml:"si"`
}

type xlsxSI struct {
	Text string   `xml:"t"`
	Runs []xlsxSI `xml:"r>t"`
}

var xlsxFormulaFunc = regexp.MustCompile(`^=([A-Z]+)\(`)
var xlsxCellRefPattern = regexp.MustCompile(`[A-Z]+\d+`)

// XLSXChunker decomposes an Excel OOXML package: one Worksheet chunk per
// sheet, one Table chunk covering its used range, and one Formula chunk
// per formula-bearing cell (spec §4.11).
type XLSXChunker struct{}

// NewXLSXChunker constructs an XLSXChunker. Stateless and reusable.
func NewXLSXChunker() *XLSXChunker {
	return &XLSXChunker{}
}

func (c *XLSXChunker) Name() string               { return "xlsx" }
func (c *XLSXChunker) DocumentType() DocumentType { return DocumentXLSX }

func (c *XLSXChunker) CanHandle(peek []byte) bool {
	return sniffZIPWithPart(peek, "xl/workbook.xml")
}

func (c *XLSXChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("xlsx: content is empty")
	}

	zr, err := zip.NewReader(strings.NewReader(string(content)), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: open package: %w", err)
	}
	byName := map[string]*zip.File{}
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	wbFile, ok := byName["xl/workbook.xml"]
	if !ok {
		return nil, nil, invalidArgf("xlsx: missing xl/workbook.xml")
	}
	wbRaw, err := readZipFile(wbFile)
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx: read workbook.xml: %w", err)
	}
	var workbook xlsxWorkbookXML
	if err := xml.Unmarshal(wbRaw, &workbook); err != nil {
		return nil, nil, fmt.Errorf("xlsx: parse workbook.xml: %w", err)
	}

	shared := loadSharedStrings(byName)
	counter := resolveCounter(opts)

	var chunks []*Chunk
	var warnings []ChunkingWarning
	seq := 0

	for idx, sheetRef := range workbook.Sheets {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		sheetFile, ok := byName[fmt.Sprintf("xl/worksheets/sheet%d.xml", idx+1)]
		if !ok {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeMalformedInput,
				Message: fmt.Sprintf("sheet %q: worksheet part not found", sheetRef.Name),
			})
			continue
		}
		raw, err := readZipFile(sheetFile)
		if err != nil {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeMalformedInput,
				Message: fmt.Sprintf("sheet %q: %v", sheetRef.Name, err),
			})
			continue
		}
		var ws xlsxWorksheetXML
		if err := xml.Unmarshal(raw, &ws); err != nil {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeMalformedInput,
				Message: fmt.Sprintf("sheet %q: parse: %v", sheetRef.Name, err),
			})
			continue
		}

		grid, colCount := resolveCellGrid(ws, shared)
		usedRange := ""
		if len(grid) > 0 {
			usedRange = fmt.Sprintf("A1:%s%d", columnLetter(colCount), len(grid))
		}

		hasHeader, headers := detectXLSXHeader(grid)

		seq++
		sheetID := chunkid.New()
		sheetChunk := &Chunk{
			ID:             sheetID,
			Category:       CategoryStructural,
			SpecificType:   "worksheet",
			SequenceNumber: seq,
			Structural: &StructuralExtra{
				SheetIndex:  idx,
				IsHidden:    sheetRef.State == "hidden" || sheetRef.State == "veryHidden",
				UsedRange:   usedRange,
				RowCount:    len(grid),
				ColumnCount: colCount,
			},
			Metadata: Metadata{SheetName: sheetRef.Name},
		}
		chunks = append(chunks, sheetChunk)

		dataRows := grid
		if hasHeader {
			dataRows = grid[1:]
		}
		if len(dataRows) > 0 {
			var rows [][]string
			for _, r := range dataRows {
				rows = append(rows, r)
			}
			serialized := serializeMarkdownTable(headers, rows)
			seq++
			chunks = append(chunks, &Chunk{
				ID:             chunkid.New(),
				ParentID:       sheetID,
				HasParent:      true,
				Category:       CategoryTable,
				SpecificType:   "table",
				SequenceNumber: seq,
				Table: &TableExtra{
					Content:             serialized,
					SerializedTable:     serialized,
					SerializationFormat: SerializationMarkdown,
					Info: TableInfo{
						RowCount:        len(rows),
						ColumnCount:     colCount,
						Headers:         headers,
						HasHeaderRow:    hasHeader,
						PreferredFormat: SerializationMarkdown,
					},
				},
			})
		}

		for _, row := range ws.SheetData.Rows {
			for _, cell := range row.Cells {
				if cell.Formula == nil {
					continue
				}
				formula := "=" + strings.TrimPrefix(strings.TrimSpace(cell.Formula.Text), "=")
				funcName := ""
				if m := xlsxFormulaFunc.FindStringSubmatch(formula); m != nil {
					funcName = m[1]
				}
				seq++
				text := fmt.Sprintf("%s: %s", cell.Ref, formula)
				chunks = append(chunks, &Chunk{
					ID:             chunkid.New(),
					ParentID:       sheetID,
					HasParent:      true,
					Category:       CategoryContent,
					SpecificType:   "formula",
					SequenceNumber: seq,
					Content: &ContentExtra{
						Text:            text,
						CellReference:   cell.Ref,
						Formula:         formula,
						CalculatedValue: cell.Value,
						FormulaType:     funcName,
						ReferencedCells: xlsxCellRefPattern.FindAllString(formula, -1),
					},
					QualityMetrics: &QualityMetrics{
						TokenCount:           counter.Count(text),
						CharacterCount:       len(text),
						WordCount:            len(strings.Fields(text)),
						SemanticCompleteness: 1.0,
					},
				})
			}
		}
	}

	if len(chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "xlsx workbook produced no chunks",
		})
	}
	return chunks, warnings, nil
}

func loadSharedStrings(byName map[string]*zip.File) []string {
	f, ok := byName["xl/sharedStrings.xml"]
	if !ok {
		return nil
	}
	raw, err := readZipFile(f)
	if err != nil {
		return nil
	}
	var shared xlsxSharedStringsXML
	if err := xml.Unmarshal(raw, &shared); err != nil {
		return nil
	}
	out := make([]string, len(shared.Items))
	for i, si := range shared.Items {
		if si.Text != "" {
			out[i] = si.Text
			continue
		}
		var sb strings.Builder
		for _, run := range si.Runs {
			sb.WriteString(run.Text)
		}
		out[i] = sb.String()
	}
	return out
}

func cellText(cell xlsxCell, shared []string) string {
	if cell.Type == "s" {
		idx, err := strconv.Atoi(cell.Value)
		if err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
	}
	return cell.Value
}

// resolveCellGrid materializes the worksheet into a dense row/column grid
// (gaps filled with empty strings), sized to the widest row present. Each
// cell goes to the column its reference names, or to its position in the
// row when it has no reference; there is one grid row per <row> element.
func resolveCellGrid(ws xlsxWorksheetXML, shared []string) ([][]string, int) {
	column := func(c xlsxCell, i int) int {
		n := 0
		for _, r := range c.Ref {
			if r < 'A' || r > 'Z' {
				break
			}
			n = n*26 + int(r-'A'+1)
		}
		if n == 0 {
			return i
		}
		return n - 1
	}
	colCount := 0
	for _, row := range ws.SheetData.Rows {
		for i, c := range row.Cells {
			if n := column(c, i) + 1; n > colCount {
				colCount = n
			}
		}
	}
	grid := make([][]string, 0, len(ws.SheetData.Rows))
	for _, row := range ws.SheetData.Rows {
		cells := make([]string, colCount)
		for i, c := range row.Cells {
			cells[column(c, i)] = cellText(c, shared)
		}
		grid = append(grid, cells)
	}
	return grid, colCount
}

// detectXLSXHeader implements the 60%-non-numeric-text header band test of
// spec §4.11.
func detectXLSXHeader(grid [][]string) (bool, []string) {
	if len(grid) == 0 {
		return false, nil
	}
	first := grid[0]
	if len(first) == 0 {
		return false, nil
	}
	nonNumeric := 0
	for _, v := range first {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			nonNumeric++
		}
	}
	if float64(nonNumeric)/float64(len(first)) >= 0.60 {
		return true, first
	}
	return false, nil
}

func columnLetter(n int) string {
	if n <= 0 {
		n = 1
	}
	var letters []byte
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}
	return string(letters)
}
