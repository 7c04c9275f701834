package chunkers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/docuchunk/docuchunk/internal/filetype"
	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// headingTagLevels maps h1-h6 to their heading level.
var headingTagLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// landmarkTags are block containers emitted as Section chunks with a DOM
// scope (they close when the element's subtree finishes), distinct from
// headings whose scope is level-based rather than tree-based.
var landmarkTags = map[string]bool{
	"article": true, "section": true, "main": true,
	"aside": true, "header": true, "footer": true, "nav": true,
}

// excludedTags are stripped entirely, including their text content.
var excludedTags = map[string]bool{
	"script": true, "style": true,
}

var inlineAnnotationKinds = map[string]AnnotationKind{
	"b": AnnotationBold, "strong": AnnotationBold,
	"i": AnnotationItalic, "em": AnnotationItalic,
	"u": AnnotationUnderline,
	"s": AnnotationStrikethrough, "del": AnnotationStrikethrough,
	"code": AnnotationCode,
	"mark": AnnotationHighlight,
	"sub":  AnnotationSubscript,
	"sup":  AnnotationSuperscript,
	"a":    AnnotationLink,
}

// HTMLChunker parses HTML with a permissive HTML5 parser and walks the
// resulting node tree in document order, emitting one Structural chunk per
// heading/landmark, one Content chunk per paragraph/list-item/code block/
// blockquote, one Table chunk per table, and one Visual chunk per image.
type HTMLChunker struct{}

// NewHTMLChunker constructs an HTMLChunker. Instances are stateless and
// reusable across calls.
func NewHTMLChunker() *HTMLChunker {
	return &HTMLChunker{}
}

func (c *HTMLChunker) Name() string               { return "html" }
func (c *HTMLChunker) DocumentType() DocumentType { return DocumentHTML }

func (c *HTMLChunker) CanHandle(peek []byte) bool {
	return sniffHTML(peek)
}

// htmlFrame is a scope on the section stack: either a heading (domOwner
// nil, popped by level) or a landmark element (domOwner set, popped when
// its subtree finishes).
type htmlFrame struct {
	chunk    *Chunk
	level    int
	domOwner *html.Node
}

type htmlBuilder struct {
	opts    Options
	counter TokenCounter
	chunks  []*Chunk
	stack   []htmlFrame
	seq     int
}

func (c *HTMLChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("html: content is empty")
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("html: parse: %w", err)
	}

	b := &htmlBuilder{opts: opts, counter: resolveCounter(opts)}
	if err := b.walk(ctx, doc); err != nil {
		return nil, nil, err
	}

	var warnings []ChunkingWarning
	if len(b.chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "html document produced no chunks",
		})
	}
	return b.chunks, warnings, nil
}

func (b *htmlBuilder) parent() (chunkid.ID, bool) {
	if len(b.stack) == 0 {
		return chunkid.ID{}, false
	}
	return b.stack[len(b.stack)-1].chunk.ID, true
}

func (b *htmlBuilder) walk(ctx context.Context, n *html.Node) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if n.Type == html.ElementNode && excludedTags[n.Data] {
		return nil
	}

	switch n.Type {
	case html.ElementNode:
		switch {
		case headingTagLevels[n.Data] != 0:
			b.openHeading(n)
		case landmarkTags[n.Data]:
			b.openLandmark(n)
		case n.DataAtom == atom.P:
			b.emitParagraph(n)
			return nil
		case n.DataAtom == atom.Li:
			b.emitListItem(n)
			return nil
		case n.DataAtom == atom.Pre || (n.DataAtom == atom.Code && n.Parent != nil && n.Parent.DataAtom != atom.Pre):
			b.emitCodeBlock(n)
			return nil
		case n.DataAtom == atom.Blockquote:
			b.emitBlockquote(n)
			return nil
		case n.DataAtom == atom.Table:
			b.emitTable(n)
			return nil
		case n.DataAtom == atom.Img:
			b.emitImage(n)
			return nil
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := b.walk(ctx, child); err != nil {
			return err
		}
	}

	if n.Type == html.ElementNode && landmarkTags[n.Data] {
		b.closeLandmark(n)
	}

	return nil
}

func (b *htmlBuilder) openHeading(n *html.Node) {
	level := headingTagLevels[n.Data]
	text, _ := extractInline(n)

	for len(b.stack) > 0 && b.stack[len(b.stack)-1].domOwner == nil && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}

	b.seq++
	h := &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryStructural,
		SpecificType:   "heading",
		SequenceNumber: b.seq,
		Structural: &StructuralExtra{
			HeadingLevel: level,
			HeadingText:  text,
			TagName:      n.Data,
			ElementID:    attrOf(n, "id"),
			CSSClasses:   classesOf(n),
			Role:         attrOf(n, "role"),
		},
	}
	if pid, ok := b.parent(); ok {
		h.ParentID = pid
		h.HasParent = true
	}
	b.chunks = append(b.chunks, h)
	b.stack = append(b.stack, htmlFrame{chunk: h, level: level})
}

func (b *htmlBuilder) openLandmark(n *html.Node) {
	b.seq++
	h := &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryStructural,
		SpecificType:   "section",
		SequenceNumber: b.seq,
		Structural: &StructuralExtra{
			TagName:    n.Data,
			ElementID:  attrOf(n, "id"),
			CSSClasses: classesOf(n),
			Role:       attrOf(n, "role"),
		},
	}
	if pid, ok := b.parent(); ok {
		h.ParentID = pid
		h.HasParent = true
	}
	b.chunks = append(b.chunks, h)
	b.stack = append(b.stack, htmlFrame{chunk: h, level: len(b.stack) + 1, domOwner: n})
}

func (b *htmlBuilder) closeLandmark(n *html.Node) {
	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		if top.domOwner == n {
			return
		}
	}
}

func (b *htmlBuilder) emitParagraph(n *html.Node) {
	text, annotations := extractInline(n)
	if strings.TrimSpace(text) == "" {
		return
	}
	b.addContent("paragraph", text, annotations, nil)
}

func (b *htmlBuilder) emitListItem(n *html.Node) {
	text, annotations := extractInline(n)
	if strings.TrimSpace(text) == "" {
		return
	}
	ordered := n.Parent != nil && n.Parent.DataAtom == atom.Ol
	b.addContent("list_item", text, annotations, func(ce *ContentExtra) {
		ce.IsOrdered = ordered
		ce.IsNumbered = ordered
	})
}

func (b *htmlBuilder) emitCodeBlock(n *html.Node) {
	text := rawText(n)
	lang := ""
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == atom.Code {
			lang = languageFromClass(classesOf(child))
		}
	}
	if lang == "" {
		lang = languageFromClass(classesOf(n))
	}
	b.addContent("code_block", text, nil, func(ce *ContentExtra) {
		ce.Language = lang
		ce.IsFenced = true
		ce.IsMonospace = true
	})
}

func (b *htmlBuilder) emitBlockquote(n *html.Node) {
	text, annotations := extractInline(n)
	b.addContent("blockquote", text, annotations, func(ce *ContentExtra) {
		ce.QuoteDepth = 1
	})
}

func (b *htmlBuilder) emitTable(n *html.Node) {
	var headers []string
	var rows [][]string
	var hasHeaderRow bool

	var walkRows func(*html.Node, bool)
	walkRows = func(node *html.Node, insideHead bool) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			switch {
			case child.DataAtom == atom.Thead:
				walkRows(child, true)
			case child.DataAtom == atom.Tbody || child.DataAtom == atom.Tfoot:
				walkRows(child, insideHead)
			case child.DataAtom == atom.Tr:
				var row []string
				isHeaderRow := insideHead
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.DataAtom == atom.Td || cell.DataAtom == atom.Th {
						text, _ := extractInline(cell)
						row = append(row, strings.TrimSpace(text))
						if cell.DataAtom == atom.Th {
							isHeaderRow = true
						}
					}
				}
				if len(row) == 0 {
					continue
				}
				if isHeaderRow && headers == nil {
					headers = row
					hasHeaderRow = true
				} else {
					rows = append(rows, row)
				}
			}
		}
	}
	walkRows(n, false)

	serialized := serializeMarkdownTable(headers, rows)

	b.seq++
	chunk := &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryTable,
		SpecificType:   "table",
		SequenceNumber: b.seq,
		Table: &TableExtra{
			Content:             serialized,
			SerializedTable:     serialized,
			SerializationFormat: SerializationMarkdown,
			Info: TableInfo{
				RowCount:        len(rows),
				ColumnCount:     len(headers),
				Headers:         headers,
				HasHeaderRow:    hasHeaderRow,
				PreferredFormat: SerializationMarkdown,
			},
		},
	}
	if pid, ok := b.parent(); ok {
		chunk.ParentID = pid
		chunk.HasParent = true
	}
	b.chunks = append(b.chunks, chunk)
}

func (b *htmlBuilder) emitImage(n *html.Node) {
	src := attrOf(n, "src")
	b.seq++
	chunk := &Chunk{
		ID:             chunkid.New(),
		Category:       CategoryVisual,
		SpecificType:   "image",
		SequenceNumber: b.seq,
		Visual: &VisualExtra{
			BinaryReference: src,
			Caption:         attrOf(n, "alt"),
			VisualType:      "image",
			MediaType:       filetype.DetectMIME(src, nil),
		},
	}
	if pid, ok := b.parent(); ok {
		chunk.ParentID = pid
		chunk.HasParent = true
	}
	b.chunks = append(b.chunks, chunk)
}

// addContent emits a Content chunk, splitting on the token budget and
// filling QualityMetrics exactly as the Markdown chunker does.
func (b *htmlBuilder) addContent(specificType, text string, annotations []Annotation, decorate func(*ContentExtra)) {
	parentID, hasParent := b.parent()

	parts := []string{text}
	if b.opts.MaxTokens > 0 && b.counter.Count(text) > b.opts.MaxTokens {
		if split, err := b.counter.SplitBatches(text, b.opts.MaxTokens, b.opts.OverlapTokens); err == nil && len(split) > 1 {
			parts = split
			annotations = nil // offsets no longer apply once the text is re-split
		}
	}

	for i, part := range parts {
		b.seq++
		ce := &ContentExtra{Text: part, Annotations: annotations}
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
				WordCount:            len(strings.Fields(part)),
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

// extractInline walks n's subtree, concatenating text nodes and recording an
// Annotation for each recognized inline element over the accumulated text's
// byte offsets.
func extractInline(n *html.Node) (string, []Annotation) {
	var sb strings.Builder
	var annotations []Annotation

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type != html.ElementNode {
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
			return
		}
		if excludedTags[node.Data] {
			return
		}

		start := sb.Len()
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		end := sb.Len()

		if kind, ok := inlineAnnotationKinds[node.Data]; ok && end > start {
			ann := Annotation{Kind: kind, Start: start, End: end}
			if kind == AnnotationLink {
				if href := attrOf(node, "href"); href != "" {
					ann.Attributes = map[string]string{"href": href}
				}
			}
			annotations = append(annotations, ann)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String()), annotations
}

// rawText concatenates text nodes verbatim, without trimming, for
// whitespace-sensitive content such as code blocks.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimRight(sb.String(), "\n")
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func classesOf(n *html.Node) []string {
	classes := attrOf(n, "class")
	if classes == "" {
		return nil
	}
	return strings.Fields(classes)
}

func languageFromClass(classes []string) string {
	for _, cl := range classes {
		if strings.HasPrefix(cl, "language-") {
			return strings.TrimPrefix(cl, "language-")
		}
		if strings.HasPrefix(cl, "lang-") {
			return strings.TrimPrefix(cl, "lang-")
		}
	}
	return ""
}

func serializeMarkdownTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	if len(headers) > 0 {
		sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		sb.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	}
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
