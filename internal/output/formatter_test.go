package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/docuchunk/docuchunk/internal/chunkers"
	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

func testResult() chunkers.ChunkingResult {
	rootID := chunkid.New()
	childID := chunkid.New()

	return chunkers.ChunkingResult{
		Success: true,
		Chunks: []*chunkers.Chunk{
			{
				ID:             rootID,
				Category:       chunkers.CategoryStructural,
				SpecificType:   "section",
				SequenceNumber: 1,
				Structural:     &chunkers.StructuralExtra{HeadingLevel: 1, HeadingText: "Intro"},
			},
			{
				ID:             childID,
				ParentID:       rootID,
				HasParent:      true,
				Depth:          1,
				Category:       chunkers.CategoryContent,
				SpecificType:   "paragraph",
				SequenceNumber: 2,
				Content:        &chunkers.ContentExtra{Text: "Hello world, this is a test paragraph."},
				QualityMetrics: &chunkers.QualityMetrics{TokenCount: 8, CharacterCount: 39, WordCount: 7},
			},
		},
		Statistics: chunkers.Statistics{
			TotalChunks: 2,
			CountsByCategory: map[chunkers.Category]int{
				chunkers.CategoryStructural: 1,
				chunkers.CategoryContent:    1,
			},
			MaxDepth:    1,
			TotalTokens: 8,
			AvgTokens:   8,
		},
		Warnings: []chunkers.ChunkingWarning{
			{Level: chunkers.LevelInfo, Code: chunkers.CodeEmptyDocument, Message: "example warning"},
		},
	}
}

func TestFormatMarkdown(t *testing.T) {
	formatter := NewFormatter(false)
	output := formatter.FormatMarkdown(testResult())

	if output == "" {
		t.Fatal("FormatMarkdown returned empty string")
	}

	expectedStrings := []string{
		"# Chunking Result (2 chunks)",
		"Structural/section",
		"Content/paragraph",
		"Hello world",
		"example warning",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("Output missing expected string: %q", expected)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	formatter := NewFormatter(false)
	output, err := formatter.FormatJSON(testResult())
	if err != nil {
		t.Fatalf("FormatJSON failed: %v", err)
	}

	var parsed jsonResult
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if !parsed.Success {
		t.Error("Success should be true")
	}
	if len(parsed.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(parsed.Chunks))
	}
	if parsed.Chunks[1].ParentID == "" {
		t.Error("child chunk should carry a parent id")
	}
	if parsed.Chunks[1].Text != "Hello world, this is a test paragraph." {
		t.Errorf("unexpected text: %q", parsed.Chunks[1].Text)
	}
	if parsed.Statistics.TotalChunks != 2 {
		t.Errorf("TotalChunks = %d, want 2", parsed.Statistics.TotalChunks)
	}
	if len(parsed.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(parsed.Warnings))
	}
}

func TestFormatMarkdownTruncatesLongText(t *testing.T) {
	formatter := NewFormatter(false)
	long := strings.Repeat("word ", 40)
	result := chunkers.ChunkingResult{
		Chunks: []*chunkers.Chunk{{
			ID:           chunkid.New(),
			Category:     chunkers.CategoryContent,
			SpecificType: "paragraph",
			Content:      &chunkers.ContentExtra{Text: long},
		}},
	}
	output := formatter.FormatMarkdown(result)
	if strings.Contains(output, long) {
		t.Error("expected long text to be truncated")
	}
	if !strings.Contains(output, "…") {
		t.Error("expected truncation ellipsis")
	}
}
