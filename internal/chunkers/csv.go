package chunkers

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// CSVChunker sniffs the delimiter from the first non-empty lines, then
// streams the file through encoding/csv, emitting one Document chunk
// followed by one Table chunk per data row.
type CSVChunker struct{}

// NewCSVChunker constructs a CSVChunker. Stateless and reusable.
func NewCSVChunker() *CSVChunker {
	return &CSVChunker{}
}

func (c *CSVChunker) Name() string               { return "csv" }
func (c *CSVChunker) DocumentType() DocumentType { return DocumentCSV }

func (c *CSVChunker) CanHandle(peek []byte) bool {
	return sniffCSV(peek)
}

var csvDelimiterCandidates = []byte{',', '\t', ';', '|'}

// detectDelimiter implements spec §4.12 step 2: score each candidate by
// consistency across the first non-empty lines, preferring a delimiter every
// sampled line agrees on.
func detectDelimiter(peek []byte) byte {
	lines := nonEmptyLines(peek, 5)
	if len(lines) == 0 {
		return ','
	}

	best := byte(',')
	bestScore := 0
	for _, delim := range csvDelimiterCandidates {
		counts := make([]int, 0, len(lines))
		for _, line := range lines {
			counts = append(counts, countUnquoted(line, delim))
		}
		consistent := true
		for _, n := range counts {
			if n != counts[0] {
				consistent = false
				break
			}
		}
		var score int
		switch {
		case consistent && counts[0] > 0:
			score = counts[0] * 100
		default:
			score = maxInt(counts)
		}
		if score > bestScore {
			bestScore = score
			best = delim
		}
	}
	return best
}

func countUnquoted(line []byte, delim byte) int {
	count := 0
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case delim:
			if !inQuotes {
				count++
			}
		}
	}
	return count
}

func maxInt(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func (c *CSVChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("csv: content is empty")
	}

	peek := content
	if len(peek) > sniffPeekSize {
		peek = peek[:sniffPeekSize]
	}
	delimiter := detectDelimiter(peek)

	rawLines := splitLines(content)

	reader := csv.NewReader(strings.NewReader(string(content)))
	reader.Comma = rune(delimiter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	var warnings []ChunkingWarning
	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeSkippedMalformedRow,
				Message: "skipped malformed row: " + err.Error(),
			})
			lineNo++
			continue
		}
		rows = append(rows, record)
		lineNo++
	}

	if len(rows) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "csv document produced no rows",
		})
		return nil, warnings, nil
	}

	hasHeader, headers := detectCSVHeader(rows[0])
	dataRows := rows
	if hasHeader {
		dataRows = rows[1:]
	}

	columnCount := len(headers)
	if !hasHeader && len(dataRows) > 0 {
		columnCount = len(dataRows[0])
	}

	var chunks []*Chunk
	seq := 0
	seq++
	docID := chunkid.New()
	doc := &Chunk{
		ID:             docID,
		Category:       CategoryStructural,
		SpecificType:   "document",
		SequenceNumber: seq,
		Structural: &StructuralExtra{
			Delimiter:    string(delimiter),
			HasHeaderRow: hasHeader,
			Headers:      headers,
			RowCount:     len(dataRows),
			ColumnCount:  columnCount,
		},
	}
	chunks = append(chunks, doc)

	counter := resolveCounter(opts)
	for idx, row := range dataRows {
		if hasHeader && len(row) != len(headers) {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeSkippedMalformedRow,
				Message: "row field count does not match header count",
			})
			continue
		}

		rawRow := ""
		if hasHeader {
			rawRow = rawLines.atDataRow(idx, 1)
		} else {
			rawRow = rawLines.atDataRow(idx, 0)
		}

		rowText := formatRowText(headers, row, hasHeader)
		serialized := serializeCSVRowMarkdown(headers, row, hasHeader)

		seq++
		chunk := &Chunk{
			ID:             chunkid.New(),
			ParentID:       docID,
			HasParent:      true,
			Category:       CategoryTable,
			SpecificType:   "row",
			SequenceNumber: seq,
			Table: &TableExtra{
				Content:             rowText,
				SerializedTable:     serialized,
				SerializationFormat: SerializationMarkdown,
				Fields:              row,
				RawRow:              rawRow,
				HasQuotedFields:     strings.Contains(rawRow, `"`),
				Info: TableInfo{
					RowCount:        1,
					ColumnCount:     len(row),
					Headers:         headers,
					HasHeaderRow:    hasHeader,
					PreferredFormat: SerializationMarkdown,
				},
			},
			QualityMetrics: &QualityMetrics{
				TokenCount:           counter.Count(rowText),
				CharacterCount:       len(rowText),
				WordCount:            len(strings.Fields(rowText)),
				SemanticCompleteness: 1.0,
			},
		}
		chunks = append(chunks, chunk)
	}

	return chunks, warnings, nil
}

// csvRawLines holds the original source lines so a Row chunk's RawRow can
// report the exact line the parser consumed, independent of any
// re-quoting encoding/csv would introduce on re-serialization.
type csvRawLines []string

func splitLines(content []byte) csvRawLines {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}

// atDataRow returns the raw source line for the i-th data row (0-based,
// after skipping `skip` header lines). Returns empty only when the index is
// past the last line; source lines and parsed records are paired by
// position, so a quoted field embedding a literal newline, or a blank line
// the parser skipped, shifts the line reported for every later row.
func (l csvRawLines) atDataRow(i, skip int) string {
	idx := i + skip
	if idx < 0 || idx >= len(l) {
		return ""
	}
	return l[idx]
}

func detectCSVHeader(first []string) (bool, []string) {
	if len(first) == 0 {
		return false, nil
	}
	nonNumeric := 0
	for _, f := range first {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			nonNumeric++
		}
	}
	if float64(nonNumeric)/float64(len(first)) >= 0.70 {
		return true, first
	}
	return false, nil
}

func formatRowText(headers, row []string, hasHeader bool) string {
	if !hasHeader {
		return strings.Join(row, ", ")
	}
	n := len(row)
	if len(headers) < n {
		n = len(headers)
	}
	pairs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, headers[i]+": "+row[i])
	}
	return strings.Join(pairs, ", ")
}

func serializeCSVRowMarkdown(headers, row []string, hasHeader bool) string {
	var sb strings.Builder
	if hasHeader {
		sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		sb.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	}
	sb.WriteString("| " + strings.Join(row, " | ") + " |")
	return sb.String()
}
