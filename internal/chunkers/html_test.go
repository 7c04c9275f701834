package chunkers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLChunker_CanHandle(t *testing.T) {
	c := NewHTMLChunker()
	assert.True(t, c.CanHandle([]byte("<!DOCTYPE html><html><body><p>hi</p></body></html>")))
	assert.False(t, c.CanHandle([]byte("plain text, no markup")))
}

func TestHTMLChunker_HeadingsAndParagraphs(t *testing.T) {
	c := NewHTMLChunker()
	content := []byte(`<html><body><h1>Title</h1><p>Intro.</p><h2>Section</h2><p>Body.</p></body></html>`)

	chunks, warnings, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 4)

	assert.Equal(t, "heading", chunks[0].SpecificType)
	assert.Equal(t, 1, chunks[0].Structural.HeadingLevel)

	assert.Equal(t, "paragraph", chunks[1].SpecificType)
	assert.True(t, chunks[1].HasParent)
	assert.Equal(t, chunks[0].ID, chunks[1].ParentID)
	assert.Equal(t, 1.0, chunks[1].QualityMetrics.SemanticCompleteness)

	assert.Equal(t, "heading", chunks[2].SpecificType)
	assert.Equal(t, chunks[0].ID, chunks[2].ParentID)

	assert.Equal(t, chunks[2].ID, chunks[3].ParentID)
}

func TestHTMLChunker_LandmarkScopedToSubtree(t *testing.T) {
	c := NewHTMLChunker()
	content := []byte(`<html><body><article><p>inside</p></article><p>outside</p></body></html>`)

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	section := chunks[0]
	assert.Equal(t, "section", section.SpecificType)

	inside := chunks[1]
	assert.True(t, inside.HasParent)
	assert.Equal(t, section.ID, inside.ParentID)

	outside := chunks[2]
	assert.False(t, outside.HasParent)
}

func TestHTMLChunker_Table(t *testing.T) {
	c := NewHTMLChunker()
	content := []byte(`<html><body><table><thead><tr><th>A</th><th>B</th></tr></thead><tbody><tr><td>1</td><td>2</td></tr></tbody></table></body></html>`)

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	tbl := chunks[0]
	assert.Equal(t, CategoryTable, tbl.Category)
	assert.True(t, tbl.Table.Info.HasHeaderRow)
	assert.Equal(t, []string{"A", "B"}, tbl.Table.Info.Headers)
	assert.Equal(t, 1, tbl.Table.Info.RowCount)
}

func TestHTMLChunker_Image(t *testing.T) {
	c := NewHTMLChunker()
	content := []byte(`<html><body><img src="pic.png" alt="a cat"></body></html>`)

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, CategoryVisual, chunks[0].Category)
	assert.Equal(t, "a cat", chunks[0].Visual.Caption)
}

func TestHTMLChunker_EmptyContentErrors(t *testing.T) {
	c := NewHTMLChunker()
	_, _, err := c.Chunk(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestHTMLChunker_ExcludedTagsStripped(t *testing.T) {
	c := NewHTMLChunker()
	content := []byte(`<html><body><script>evil()</script><p>safe text</p></body></html>`)

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "safe text", chunks[0].Content.Text)
}
