package chunkers

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDOCX builds a minimal, valid WordprocessingML zip package with
// one <w:p> per entry in paragraphs, mirroring the subset of the OOXML
// schema docx.go actually decodes.
func createTestDOCX(t *testing.T, paragraphs []struct{ text, style string }) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	for _, p := range paragraphs {
		doc += `<w:p>`
		if p.style != "" {
			doc += `<w:pPr><w:pStyle w:val="` + p.style + `"/></w:pPr>`
		}
		doc += `<w:r><w:t>` + p.text + `</w:t></w:r></w:p>`
	}
	doc += `</w:body></w:document>`

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(doc))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDOCXChunker_CanHandle(t *testing.T) {
	c := NewDOCXChunker()
	content := createTestDOCX(t, []struct{ text, style string }{{"hello", ""}})
	assert.True(t, c.CanHandle(content))
	assert.False(t, c.CanHandle([]byte("not a zip")))
}

func TestDOCXChunker_HeadingsAndParagraphs(t *testing.T) {
	c := NewDOCXChunker()
	content := createTestDOCX(t, []struct{ text, style string }{
		{"Title", "Heading1"},
		{"Intro paragraph.", ""},
		{"Subsection", "Heading2"},
		{"Nested paragraph.", ""},
	})

	chunks, warnings, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 4)

	title := chunks[0]
	assert.Equal(t, "heading", title.SpecificType)
	assert.Equal(t, 1, title.Structural.HeadingLevel)

	intro := chunks[1]
	assert.Equal(t, CategoryContent, intro.Category)
	assert.Equal(t, title.ID, intro.ParentID)
	assert.Equal(t, 1.0, intro.QualityMetrics.SemanticCompleteness)

	sub := chunks[2]
	assert.Equal(t, 2, sub.Structural.HeadingLevel)
	assert.Equal(t, title.ID, sub.ParentID)

	nested := chunks[3]
	assert.Equal(t, sub.ID, nested.ParentID)
}

func TestDOCXChunker_EmptyContentErrors(t *testing.T) {
	c := NewDOCXChunker()
	_, _, err := c.Chunk(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestDOCXChunker_InvalidZipErrors(t *testing.T) {
	c := NewDOCXChunker()
	_, _, err := c.Chunk(context.Background(), []byte("this is not a zip file"), DefaultOptions())
	assert.Error(t, err)
}

func TestDOCXChunker_MissingDocumentXMLErrors(t *testing.T) {
	c := NewDOCXChunker()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = c.Chunk(context.Background(), buf.Bytes(), DefaultOptions())
	assert.Error(t, err)
}
