// Package output renders a chunkers.ChunkingResult for the chunk CLI
// command, as Markdown (human review) or JSON (machine consumption).
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docuchunk/docuchunk/internal/chunkers"
)

// Formatter generates chunk CLI output in various formats.
type Formatter struct {
	verbose bool
}

// NewFormatter creates a new output formatter.
func NewFormatter(verbose bool) *Formatter {
	return &Formatter{verbose: verbose}
}

// jsonChunk is the wire shape of a single chunk in JSON output: the common
// header plus whichever typed extra is populated, flattened into one object
// so a consumer need not branch on Category to read Text/Content.
type jsonChunk struct {
	ID             string           `json:"id"`
	ParentID       string           `json:"parent_id,omitempty"`
	Depth          int              `json:"depth"`
	SequenceNumber int              `json:"sequence_number"`
	Category       string           `json:"category"`
	SpecificType   string           `json:"specific_type"`
	Text           string           `json:"text,omitempty"`
	TokenCount      int             `json:"token_count,omitempty"`
	Structural     *chunkers.StructuralExtra `json:"structural,omitempty"`
	Content        *chunkers.ContentExtra    `json:"content,omitempty"`
	Visual         *chunkers.VisualExtra     `json:"visual,omitempty"`
	Table          *chunkers.TableExtra      `json:"table,omitempty"`
}

// jsonResult is the wire shape of FormatJSON's top-level object.
type jsonResult struct {
	Success    bool                       `json:"success"`
	Chunks     []jsonChunk                `json:"chunks"`
	Statistics jsonStatistics             `json:"statistics"`
	Warnings   []jsonWarning              `json:"warnings,omitempty"`
}

type jsonStatistics struct {
	TotalChunks  int            `json:"total_chunks"`
	CountsByType map[string]int `json:"counts_by_category"`
	MaxDepth     int            `json:"max_depth"`
	TotalTokens  int            `json:"total_tokens"`
	AvgTokens    float64        `json:"avg_tokens"`
}

type jsonWarning struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FormatJSON renders a ChunkingResult as indented JSON.
func (f *Formatter) FormatJSON(result chunkers.ChunkingResult) (string, error) {
	out := jsonResult{
		Success: result.Success,
		Statistics: jsonStatistics{
			TotalChunks: result.Statistics.TotalChunks,
			MaxDepth:    result.Statistics.MaxDepth,
			TotalTokens: result.Statistics.TotalTokens,
			AvgTokens:   result.Statistics.AvgTokens,
		},
	}
	out.Statistics.CountsByType = map[string]int{}
	for cat, n := range result.Statistics.CountsByCategory {
		out.Statistics.CountsByType[cat.String()] = n
	}
	for _, c := range result.Chunks {
		jc := jsonChunk{
			ID:             c.ID.String(),
			Depth:          c.Depth,
			SequenceNumber: c.SequenceNumber,
			Category:       c.Category.String(),
			SpecificType:   c.SpecificType,
			Text:           c.PlainText(),
			Structural:     c.Structural,
			Content:        c.Content,
			Visual:         c.Visual,
			Table:          c.Table,
		}
		if c.HasParent {
			jc.ParentID = c.ParentID.String()
		}
		if c.QualityMetrics != nil {
			jc.TokenCount = c.QualityMetrics.TokenCount
		}
		out.Chunks = append(out.Chunks, jc)
	}
	for _, w := range result.Warnings {
		out.Warnings = append(out.Warnings, jsonWarning{
			Level:   w.Level.String(),
			Code:    string(w.Code),
			Message: w.Message,
		})
	}

	jsonBytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("output: marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// FormatMarkdown renders a ChunkingResult as a Markdown outline: a
// statistics header, any warnings, then one bullet per chunk of every
// category, indented by its Depth.
func (f *Formatter) FormatMarkdown(result chunkers.ChunkingResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Chunking Result (%d chunks)\n\n", result.Statistics.TotalChunks))
	sb.WriteString(fmt.Sprintf("Tokens: %d total, %.1f avg | Max depth: %d\n\n",
		result.Statistics.TotalTokens, result.Statistics.AvgTokens, result.Statistics.MaxDepth))

	if len(result.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range result.Warnings {
			sb.WriteString(fmt.Sprintf("- **%s** [%s]: %s\n", w.Level, w.Code, w.Message))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Chunks\n\n")
	for _, c := range result.Chunks {
		indent := strings.Repeat("  ", c.Depth)
		sb.WriteString(fmt.Sprintf("%s- `%s` **%s/%s**", indent, shortID(c.ID.String()), c.Category, c.SpecificType))
		if text := c.PlainText(); text != "" {
			sb.WriteString(": " + truncate(text, 80))
		}
		if c.QualityMetrics != nil {
			sb.WriteString(fmt.Sprintf(" (%d tok)", c.QualityMetrics.TokenCount))
		}
		sb.WriteString("\n")
	}

	if result.Validation != nil && !f.verbose {
		sb.WriteString(fmt.Sprintf("\n%d validation issue(s)\n", len(result.Validation.Issues)))
	}
	if result.Validation != nil && f.verbose {
		sb.WriteString("\n## Validation Issues\n\n")
		for _, issue := range result.Validation.Issues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue.Message))
		}
	}

	return sb.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
