package chunkers

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestXLSX assembles a minimal SpreadsheetML package: one workbook.xml
// sheet reference plus one xl/worksheets/sheetN.xml body, the subset of the
// schema xlsx.go actually decodes.
func buildTestXLSX(t *testing.T, sheetName, sheetXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	wb := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<workbook><sheets><sheet name="` + sheetName + `" sheetId="1"/></sheets></workbook>`
	f, err := w.Create("xl/workbook.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(wb))
	require.NoError(t, err)

	f, err = w.Create("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(sheetXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestXLSXChunker_CanHandle(t *testing.T) {
	c := NewXLSXChunker()
	content := buildTestXLSX(t, "Sheet1", `<worksheet><sheetData></sheetData></worksheet>`)
	assert.True(t, c.CanHandle(content))
	assert.False(t, c.CanHandle([]byte("not a zip")))
}

func TestXLSXChunker_HeaderAndDataRows(t *testing.T) {
	c := NewXLSXChunker()
	sheet := `<worksheet><sheetData>` +
		`<row r="1"><c r="A1"><v>Name</v></c><c r="B1"><v>Age</v></c></row>` +
		`<row r="2"><c r="A2"><v>Alice</v></c><c r="B2"><v>30</v></c></row>` +
		`</sheetData></worksheet>`
	content := buildTestXLSX(t, "People", sheet)

	chunks, warnings, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 2)

	sheetChunk := chunks[0]
	assert.Equal(t, "worksheet", sheetChunk.SpecificType)
	assert.Equal(t, "People", sheetChunk.Metadata.SheetName)
	assert.Equal(t, 2, sheetChunk.Structural.RowCount)

	tbl := chunks[1]
	assert.Equal(t, CategoryTable, tbl.Category)
	assert.Equal(t, sheetChunk.ID, tbl.ParentID)
	assert.True(t, tbl.Table.Info.HasHeaderRow)
	assert.Equal(t, []string{"Name", "Age"}, tbl.Table.Info.Headers)
	assert.Equal(t, 1, tbl.Table.Info.RowCount)
}

func TestXLSXChunker_FormulaCell(t *testing.T) {
	c := NewXLSXChunker()
	sheet := `<worksheet><sheetData>` +
		`<row r="1"><c r="A1"><v>10</v></c></row>` +
		`<row r="2"><c r="A2"><f>SUM(A1:A1)</f><v>10</v></c></row>` +
		`</sheetData></worksheet>`
	content := buildTestXLSX(t, "Calc", sheet)

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)

	var formula *Chunk
	for _, ch := range chunks {
		if ch.SpecificType == "formula" {
			formula = ch
		}
	}
	require.NotNil(t, formula)
	assert.Equal(t, "A2", formula.Content.CellReference)
	assert.Equal(t, "SUM", formula.Content.FormulaType)
	assert.Equal(t, 1.0, formula.QualityMetrics.SemanticCompleteness)
}

func TestXLSXChunker_EmptyContentErrors(t *testing.T) {
	c := NewXLSXChunker()
	_, _, err := c.Chunk(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestXLSXChunker_MissingWorkbookErrors(t *testing.T) {
	c := NewXLSXChunker()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("xl/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = c.Chunk(context.Background(), buf.Bytes(), DefaultOptions())
	assert.Error(t, err)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
}
