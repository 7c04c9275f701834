package chunkers

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

var (
	ptNumberedHeading = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.+)$`)
	ptPrefixedHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	ptBulletItem      = regexp.MustCompile(`^[-*\x{2022}]\s+(.+)$`)
	ptNumberedItem    = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	ptUnderline1      = regexp.MustCompile(`^=+$`)
	ptUnderline2      = regexp.MustCompile(`^-+$`)
	ptSentenceEnd     = regexp.MustCompile(`[.!?,;:]$`)
)

// PlainTextChunker parses a .txt file into structured chunks via a small,
// ordered set of line heuristics; there is no single source of truth for
// document structure in unstructured text (spec §4.8).
type PlainTextChunker struct{}

// NewPlainTextChunker constructs a PlainTextChunker. Stateless and reusable.
func NewPlainTextChunker() *PlainTextChunker {
	return &PlainTextChunker{}
}

func (c *PlainTextChunker) Name() string               { return "plaintext" }
func (c *PlainTextChunker) DocumentType() DocumentType { return DocumentPlainText }

func (c *PlainTextChunker) CanHandle(peek []byte) bool {
	// PlainText is the catch-all: any input not claimed by a more specific
	// sniff in registration order falls through to it.
	return true
}

type ptHeadingFrame struct {
	chunk *Chunk
	level int
}

func (c *PlainTextChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("plaintext: content is empty")
	}

	normalized := strings.ReplaceAll(string(content), "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	rawLines := strings.Split(normalized, "\n")

	counter := resolveCounter(opts)
	var chunks []*Chunk
	var stack []ptHeadingFrame
	seq := 0

	parentOf := func() (chunkid.ID, bool) {
		if len(stack) == 0 {
			return chunkid.ID{}, false
		}
		return stack[len(stack)-1].chunk.ID, true
	}

	pushHeading := func(level int, text, headingType string) {
		seq++
		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		h := &Chunk{
			ID:             chunkid.New(),
			Category:       CategoryStructural,
			SpecificType:   "heading",
			SequenceNumber: seq,
			Structural: &StructuralExtra{
				HeadingLevel: level,
				HeadingText:  text,
				HeadingType:  headingType,
			},
		}
		if pid, ok := parentOf(); ok {
			h.ParentID = pid
			h.HasParent = true
		}
		chunks = append(chunks, h)
		stack = append(stack, ptHeadingFrame{chunk: h, level: level})
	}

	addContent := func(specificType, body string, decorate func(*ContentExtra)) {
		pid, hasParent := parentOf()
		parts := []string{body}
		if opts.MaxTokens > 0 && counter.Count(body) > opts.MaxTokens {
			if split, err := counter.SplitBatches(body, opts.MaxTokens, opts.OverlapTokens); err == nil && len(split) > 1 {
				parts = split
			}
		}
		for i, part := range parts {
			seq++
			ce := &ContentExtra{Text: part}
			if decorate != nil {
				decorate(ce)
			}
			chunk := &Chunk{
				ID:             chunkid.New(),
				Category:       CategoryContent,
				SpecificType:   specificType,
				SequenceNumber: seq,
				Content:        ce,
				QualityMetrics: &QualityMetrics{
					TokenCount:           counter.Count(part),
					CharacterCount:       len(part),
					WordCount:            len(strings.Fields(part)),
					SemanticCompleteness: fragmentCompleteness(i, len(parts)),
				},
			}
			if hasParent {
				chunk.ParentID = pid
				chunk.HasParent = true
			}
			chunks = append(chunks, chunk)
		}
	}

	i := 0
	n := len(rawLines)
	var paraBuf []string
	var codeBuf []string
	flushParagraph := func() {
		if len(paraBuf) == 0 {
			return
		}
		addContent("paragraph", strings.Join(paraBuf, "\n"), nil)
		paraBuf = nil
	}
	flushIndentedCode := func() {
		if len(codeBuf) == 0 {
			return
		}
		addContent("code_block", strings.Join(codeBuf, "\n"), func(ce *ContentExtra) {
			ce.IsFenced = false
			ce.IsMonospace = true
		})
		codeBuf = nil
	}

	for i < n {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		line := rawLines[i]
		trimmed := strings.TrimSpace(line)

		// Fenced code block.
		if strings.HasPrefix(trimmed, "```") {
			flushParagraph()
			flushIndentedCode()
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			var body []string
			i++
			for i < n && !strings.HasPrefix(strings.TrimSpace(rawLines[i]), "```") {
				body = append(body, rawLines[i])
				i++
			}
			if i < n {
				i++ // consume closing fence
			}
			addContent("code_block", strings.Join(body, "\n"), func(ce *ContentExtra) {
				ce.Language = lang
				ce.IsFenced = true
				ce.IsMonospace = true
			})
			continue
		}

		// Indented code block: >=4 spaces or a leading tab.
		if trimmed != "" && (strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")) {
			flushParagraph()
			codeBuf = append(codeBuf, strings.TrimPrefix(strings.TrimPrefix(line, "\t"), "    "))
			i++
			continue
		}
		flushIndentedCode()

		if trimmed == "" {
			flushParagraph()
			i++
			continue
		}

		// Underlined heading: next line is all '=' or all '-' and at least
		// as long as the text.
		if i+1 < n {
			next := strings.TrimSpace(rawLines[i+1])
			if next != "" && len(next) >= len(trimmed) {
				if ptUnderline1.MatchString(next) {
					flushParagraph()
					pushHeading(1, trimmed, "Underlined")
					i += 2
					continue
				}
				if ptUnderline2.MatchString(next) {
					flushParagraph()
					pushHeading(2, trimmed, "Underlined")
					i += 2
					continue
				}
			}
		}

		// ALL-CAPS heading.
		if isAllCapsHeading(trimmed) {
			flushParagraph()
			pushHeading(1, trimmed, "AllCaps")
			i++
			continue
		}

		// Prefixed heading (#, ##, ...).
		if m := ptPrefixedHeading.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			pushHeading(len(m[1]), strings.TrimSpace(m[2]), "Prefixed")
			i++
			continue
		}

		// Numbered heading (1., 1.1, 1.1.1 ...). Only treated as a heading
		// when the remainder reads like a title, not a list item: short and
		// capitalized-ish; otherwise it falls through to numbered list item.
		if m := ptNumberedHeading.FindStringSubmatch(trimmed); m != nil && looksLikeHeadingTitle(m[2]) {
			flushParagraph()
			level := strings.Count(m[1], ".") + 1
			pushHeading(level, strings.TrimSpace(m[2]), "Numbered")
			i++
			continue
		}

		// Bullet list item.
		if m := ptBulletItem.FindStringSubmatch(trimmed); m != nil {
			flushParagraph()
			addContent("list_item", m[1], func(ce *ContentExtra) {
				ce.IsOrdered = false
			})
			i++
			continue
		}

		// Numbered list item.
		if ptNumberedItem.MatchString(trimmed) {
			flushParagraph()
			addContent("list_item", trimmed, func(ce *ContentExtra) {
				ce.IsOrdered = true
				ce.IsNumbered = true
			})
			i++
			continue
		}

		// Otherwise, accumulate into the current paragraph.
		paraBuf = append(paraBuf, trimmed)
		i++
	}
	flushIndentedCode()
	flushParagraph()

	var warnings []ChunkingWarning
	if len(chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "plain text document produced no chunks",
		})
	}
	return chunks, warnings, nil
}

func isAllCapsHeading(line string) bool {
	if len(line) == 0 || len(line) > 80 {
		return false
	}
	if ptSentenceEnd.MatchString(line) {
		return false
	}
	hasAlpha := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasAlpha = true
		}
	}
	return hasAlpha
}

func looksLikeHeadingTitle(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 80 || strings.HasSuffix(s, ".") {
		return false
	}
	return unicode.IsUpper([]rune(s)[0])
}
