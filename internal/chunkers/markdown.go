package chunkers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// MarkdownChunker parses Markdown source into a goldmark AST and emits one
// Structural chunk per heading plus one Content chunk per block-level node
// under that heading, preserving heading-based hierarchy.
type MarkdownChunker struct {
	md goldmark.Markdown
}

// NewMarkdownChunker constructs a MarkdownChunker with GFM extensions
// (tables, strikethrough, autolinks) and auto-generated heading IDs enabled.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (c *MarkdownChunker) Name() string           { return "markdown" }
func (c *MarkdownChunker) DocumentType() DocumentType { return DocumentMarkdown }

func (c *MarkdownChunker) CanHandle(peek []byte) bool {
	return sniffMarkdown(peek)
}

// headingFrame tracks the chunk stack while walking the AST so sibling
// content nodes attach to the most recent heading at or above their level.
type headingFrame struct {
	chunk *Chunk
	level int
}

// markdownBuilder carries the per-call state threaded through the AST walk:
// the running chunk list, sequence counter, heading stack, and the token
// counter resolved once from Options.
type markdownBuilder struct {
	opts    Options
	counter TokenCounter
	chunks  []*Chunk
	stack   []headingFrame
	seq     int
}

func (c *MarkdownChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("markdown: content is empty")
	}

	source := content
	doc := c.md.Parser().Parse(text.NewReader(source))

	b := &markdownBuilder{opts: opts, counter: resolveCounter(opts)}
	var warnings []ChunkingWarning

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n == doc {
			return ast.WalkContinue, nil
		}
		select {
		case <-ctx.Done():
			return ast.WalkStop, ctx.Err()
		default:
		}

		switch node := n.(type) {
		case *ast.Heading:
			b.addHeading(node, source)
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			body := extractLines(node, source)
			lang := string(node.Language(source))
			b.addContent("code_block", body, func(ce *ContentExtra) {
				ce.Language = lang
				ce.IsFenced = true
				ce.IsMonospace = true
			})
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			body := extractLines(node, source)
			b.addContent("code_block", body, func(ce *ContentExtra) {
				ce.IsFenced = false
				ce.IsMonospace = true
			})
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			if _, isListItem := n.Parent().(*ast.ListItem); isListItem {
				return ast.WalkContinue, nil
			}
			body := extractText(node, source)
			if strings.TrimSpace(body) == "" {
				return ast.WalkSkipChildren, nil
			}
			b.addContent("paragraph", body, nil)
			return ast.WalkSkipChildren, nil

		case *ast.List:
			itemNum := 1
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				li, ok := item.(*ast.ListItem)
				if !ok {
					continue
				}
				body := extractText(li, source)
				n := itemNum
				b.addContent("list_item", body, func(ce *ContentExtra) {
					ce.IsOrdered = node.IsOrdered()
					ce.ItemNumber = n
					ce.IsNumbered = node.IsOrdered()
				})
				itemNum++
			}
			return ast.WalkSkipChildren, nil

		case *ast.Blockquote:
			body := extractText(node, source)
			b.addContent("blockquote", body, func(ce *ContentExtra) {
				ce.QuoteDepth = 1
			})
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("markdown: walk: %w", err)
	}

	if len(b.chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "markdown document produced no chunks",
		})
	}

	return b.chunks, warnings, nil
}

// parentOf returns the id of the nearest heading chunk strictly above level,
// and whether one exists. An empty, false result means the chunk is a root.
func (b *markdownBuilder) parentOf(level int) (chunkid.ID, bool) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].level < level {
			return b.stack[i].chunk.ID, true
		}
	}
	return chunkid.ID{}, false
}

func (b *markdownBuilder) addHeading(node *ast.Heading, source []byte) {
	b.seq++
	headingText := extractText(node, source)

	h := &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryStructural,
		SpecificType:   "heading",
		SequenceNumber: b.seq,
		Structural: &StructuralExtra{
			HeadingLevel: node.Level,
			HeadingText:  headingText,
			HeadingType:  "markdown",
		},
	}
	if parentID, ok := b.parentOf(node.Level); ok {
		h.ParentID = parentID
		h.HasParent = true
	}
	b.chunks = append(b.chunks, h)

	for len(b.stack) > 0 && b.stack[len(b.stack)-1].level >= node.Level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	b.stack = append(b.stack, headingFrame{chunk: h, level: node.Level})
}

// addContent emits one Content chunk for body, splitting it into
// token-budgeted, overlapping parts when it exceeds opts.MaxTokens. decorate
// may be nil; it is applied to every emitted part's ContentExtra before the
// shared Text/token fields are set.
func (b *markdownBuilder) addContent(specificType, body string, decorate func(*ContentExtra)) {
	parentID, hasParent := b.parentOf(maxHeadingLevel(b.stack) + 1)

	parts := []string{body}
	if b.opts.MaxTokens > 0 && b.counter.Count(body) > b.opts.MaxTokens {
		if split, err := b.counter.SplitBatches(body, b.opts.MaxTokens, b.opts.OverlapTokens); err == nil && len(split) > 1 {
			parts = split
		}
	}

	for i, part := range parts {
		b.seq++
		ce := &ContentExtra{Text: part}
		if decorate != nil {
			decorate(ce)
		}
		chunk := &Chunk{
			ID:             chunkid.New(),
			Category:       CategoryContent,
			SpecificType:   specificType,
			SequenceNumber: b.seq,
			Content:        ce,
			QualityMetrics: &QualityMetrics{
				TokenCount:           b.counter.Count(part),
				CharacterCount:       len(part),
				WordCount:            countWords(part),
				SemanticCompleteness: fragmentCompleteness(i, len(parts)),
			},
		}
		if hasParent {
			chunk.ParentID = parentID
			chunk.HasParent = true
		}
		b.chunks = append(b.chunks, chunk)
	}
}

func countWords(s string) int {
	return len(strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) }))
}

func maxHeadingLevel(stack []headingFrame) int {
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1].level
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

func extractLines(n ast.Node, source []byte) string {
	lines := n.Lines()
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}
