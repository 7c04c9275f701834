package chunkers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownChunker_CanHandle(t *testing.T) {
	c := NewMarkdownChunker()
	assert.True(t, c.CanHandle([]byte("# Title\n\nbody")))
	assert.True(t, c.CanHandle([]byte("```go\ncode\n```")))
	assert.False(t, c.CanHandle([]byte("plain prose, no markup")))
}

func TestMarkdownChunker_HeadingHierarchy(t *testing.T) {
	c := NewMarkdownChunker()
	content := []byte("# Title\n\nIntro paragraph.\n\n## Section\n\nSection body.\n")

	chunks, warnings, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 4)

	title := chunks[0]
	assert.Equal(t, CategoryStructural, title.Category)
	require.NotNil(t, title.Structural)
	assert.Equal(t, 1, title.Structural.HeadingLevel)
	assert.False(t, title.HasParent)

	intro := chunks[1]
	assert.Equal(t, CategoryContent, intro.Category)
	assert.True(t, intro.HasParent)
	assert.Equal(t, title.ID, intro.ParentID)
	require.NotNil(t, intro.QualityMetrics)
	assert.Equal(t, 1.0, intro.QualityMetrics.SemanticCompleteness)

	section := chunks[2]
	assert.Equal(t, 2, section.Structural.HeadingLevel)
	assert.Equal(t, title.ID, section.ParentID)

	sectionBody := chunks[3]
	assert.Equal(t, section.ID, sectionBody.ParentID)
}

func TestMarkdownChunker_FencedCodeBlock(t *testing.T) {
	c := NewMarkdownChunker()
	content := []byte("```go\nfunc main() {}\n```\n")

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "code_block", chunks[0].SpecificType)
	assert.Equal(t, "go", chunks[0].Content.Language)
	assert.True(t, chunks[0].Content.IsFenced)
}

func TestMarkdownChunker_ListItems(t *testing.T) {
	c := NewMarkdownChunker()
	content := []byte("- one\n- two\n- three\n")

	chunks, _, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, "list_item", ch.SpecificType)
		assert.Equal(t, i+1, ch.Content.ItemNumber)
		assert.False(t, ch.Content.IsOrdered)
	}
}

func TestMarkdownChunker_EmptyContentErrors(t *testing.T) {
	c := NewMarkdownChunker()
	_, _, err := c.Chunk(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestMarkdownChunker_EmptyDocumentWarns(t *testing.T) {
	c := NewMarkdownChunker()
	chunks, warnings, err := c.Chunk(context.Background(), []byte("   \n"), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeEmptyDocument, warnings[0].Code)
}

// TestMarkdownChunker_SplitFragmentsGetReducedCompleteness exercises spec
// §4.1/§3.5: a paragraph split across the token budget reads as incomplete
// except for its final fragment.
func TestMarkdownChunker_SplitFragmentsGetReducedCompleteness(t *testing.T) {
	c := NewMarkdownChunker()
	long := ""
	for i := 0; i < 400; i++ {
		long += "word "
	}
	content := []byte(long)

	opts := DefaultOptions()
	opts.MaxTokens = 20
	opts.OverlapTokens = 2
	opts.TokenCountingMethod = EncodingCharacterBased
	opts.TokenCounter = NewTokenCounter(EncodingCharacterBased)

	chunks, _, err := c.Chunk(context.Background(), content, opts)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		if i == len(chunks)-1 {
			assert.Equal(t, 1.0, ch.QualityMetrics.SemanticCompleteness)
		} else {
			assert.Equal(t, 0.7, ch.QualityMetrics.SemanticCompleteness)
		}
	}
}
