package chunkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFChunker_CanHandle(t *testing.T) {
	c := NewPDFChunker()
	assert.True(t, c.CanHandle([]byte("%PDF-1.7\n")))
	assert.False(t, c.CanHandle([]byte("not a pdf")))
}

func TestExtractShowTextOperands_OnlyTjTJAttributed(t *testing.T) {
	// A literal string consumed by some other operator (here a stand-in for
	// Do/BDC-style operand use) is dropped; only the operand actually
	// consumed by Tj is attributed as visible text.
	stream := []byte(`BT (not visible text) Do (Hello World) Tj ET`)
	got := extractShowTextOperands(stream)
	assert.Equal(t, "Hello World", got)
}

func TestExtractShowTextOperands_TJArray(t *testing.T) {
	stream := []byte(`BT [(Hel) -20 (lo)] TJ ET`)
	got := extractShowTextOperands(stream)
	assert.Equal(t, "Hel lo", got)
}

func TestExtractShowTextOperands_MultipleShowOps(t *testing.T) {
	stream := []byte(`BT (First line) Tj (Second line) Tj ET`)
	got := extractShowTextOperands(stream)
	assert.Equal(t, "First line Second line", got)
}

func TestReadPDFLiteralString_Escapes(t *testing.T) {
	lit, next := readPDFLiteralString([]byte(`(line one\nline two\)escaped\(paren)rest`), 0)
	assert.Equal(t, "line one\nline two)escaped(paren", lit)
	assert.Equal(t, `(line one\nline two\)escaped\(paren)`, string([]byte(`(line one\nline two\)escaped\(paren)rest`)[:next]))
}

func TestReadPDFLiteralString_NestedParens(t *testing.T) {
	lit, _ := readPDFLiteralString([]byte(`(outer (inner) text)`), 0)
	assert.Equal(t, "outer (inner) text", lit)
}

func TestReadPDFOperatorToken(t *testing.T) {
	tok, next := readPDFOperatorToken([]byte("Tj "), 0)
	assert.Equal(t, "Tj", tok)
	assert.Equal(t, 2, next)

	tok, _ = readPDFOperatorToken([]byte("T* "), 0)
	assert.Equal(t, "T*", tok)
}

func TestSplitPDFParagraphs(t *testing.T) {
	paras := splitPDFParagraphs("First paragraph.\n\nSecond paragraph.\n\n\nThird.")
	assert.Equal(t, []string{"First paragraph.", "Second paragraph.", "Third."}, paras)
}

func TestIsLikelyPDFHeading(t *testing.T) {
	assert.True(t, isLikelyPDFHeading("Chapter One"))
	assert.True(t, isLikelyPDFHeading("INTRODUCTION"))
	assert.False(t, isLikelyPDFHeading("This is a regular sentence that ends with a period."))
	assert.False(t, isLikelyPDFHeading(""))
}

func TestParsePDFDate(t *testing.T) {
	d := parsePDFDate("D:20230615120000")
	if assert.NotNil(t, d) {
		assert.Equal(t, 2023, d.Year())
	}

	dateOnly := parsePDFDate("D:20230615")
	if assert.NotNil(t, dateOnly) {
		assert.Equal(t, 6, int(dateOnly.Month()))
	}

	assert.Nil(t, parsePDFDate("garbage"))
}
