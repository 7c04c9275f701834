package chunkers

import (
	"bytes"
	"context"
	"regexp"
	"strings"
)

// DocumentType identifies a supported source format.
type DocumentType string

const (
	DocumentMarkdown  DocumentType = "Markdown"
	DocumentHTML      DocumentType = "HTML"
	DocumentPlainText DocumentType = "PlainText"
	DocumentDOCX      DocumentType = "DOCX"
	DocumentPPTX      DocumentType = "PPTX"
	DocumentXLSX      DocumentType = "XLSX"
	DocumentCSV       DocumentType = "CSV"
	DocumentPDF       DocumentType = "PDF"
)

// extensionHints maps a lowercase file extension to its DocumentType, per
// spec §4.5 "By file-name hint".
var extensionHints = map[string]DocumentType{
	".md":       DocumentMarkdown,
	".markdown": DocumentMarkdown,
	".html":     DocumentHTML,
	".htm":      DocumentHTML,
	".txt":      DocumentPlainText,
	".docx":     DocumentDOCX,
	".pptx":     DocumentPPTX,
	".xlsx":     DocumentXLSX,
	".csv":      DocumentCSV,
	".pdf":      DocumentPDF,
}

// FormatChunker parses a single document's bytes into a flat, sequence-
// ordered chunk list. Implementations must not mutate shared state between
// calls and must clear any per-run state at entry (spec §5, "Chunker
// instances are expected to be reusable").
type FormatChunker interface {
	// Name is the chunker's identifier, used for dispatcher registration
	// order and diagnostics.
	Name() string

	// DocumentType is the format this chunker decomposes.
	DocumentType() DocumentType

	// CanHandle sniffs a peeked prefix (at most 8KB) of the input and
	// reports whether this chunker claims the stream. It must not consume
	// or otherwise mutate the peeked bytes.
	CanHandle(peek []byte) bool

	// Chunk parses the full input and emits the flat chunk list in
	// document order, with SequenceNumber assigned. Depth and AncestorIDs
	// are left unset; the engine fills them via BuildHierarchy.
	Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error)
}

// Registry maps DocumentType and content-sniffed signatures to a
// FormatChunker, in registration order — grounded on the same
// priority/fallback registry shape used throughout the example pack, but
// keyed by fixed DocumentType rather than MIME/priority ranking, per
// spec §4.5's "ties resolved by registration order" rule.
type Registry struct {
	byType []FormatChunker
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a chunker. Registration order determines content-sniffing
// tie-breaking order.
func (r *Registry) Register(c FormatChunker) {
	r.byType = append(r.byType, c)
}

// Get returns the chunker registered for an explicit DocumentType, or nil.
func (r *Registry) Get(dt DocumentType) FormatChunker {
	for _, c := range r.byType {
		if c.DocumentType() == dt {
			return c
		}
	}
	return nil
}

// DetectByExtension resolves a DocumentType from a file name's extension.
func DetectByExtension(fileName string) (DocumentType, bool) {
	ext := strings.ToLower(extOf(fileName))
	dt, ok := extensionHints[ext]
	return dt, ok
}

func extOf(fileName string) string {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 {
		return ""
	}
	return fileName[idx:]
}

const sniffPeekSize = 8 * 1024

var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	pdfMagic = []byte("%PDF-")

	htmlSignals   = regexp.MustCompile(`(?i)<html|<!doctype|<body|<div|<p>`)
	mdHeadingLine = regexp.MustCompile(`(?m)^#{1,6} `)
	mdFence       = regexp.MustCompile("```")
	mdTableRow    = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)
)

// DetectByContent implements spec §4.5's content-sniffing path: peek at
// most sniffPeekSize bytes (the caller is responsible for restoring stream
// position — DetectByContent itself never consumes a stream, only a byte
// slice), and test each registered chunker's CanHandle in registration
// order.
func (r *Registry) DetectByContent(peek []byte) (FormatChunker, bool) {
	if len(peek) > sniffPeekSize {
		peek = peek[:sniffPeekSize]
	}
	for _, c := range r.byType {
		if c.CanHandle(peek) {
			return c, true
		}
	}
	return nil, false
}

// sniffPDF reports the magic-byte test for PDF.
func sniffPDF(peek []byte) bool {
	return bytes.HasPrefix(peek, pdfMagic)
}

// sniffZIPWithPart reports whether peek starts with the ZIP local-file
// magic and the named OOXML sentinel part appears anywhere in the peeked
// window. A true content-sniffing implementation would walk the ZIP central
// directory; scanning the peek window for the part's path is a bounded,
// allocation-free approximation appropriate for an 8KB sniff budget, since
// the sentinel parts in question are conventionally stored near the start
// of small OOXML packages.
func sniffZIPWithPart(peek []byte, part string) bool {
	if !bytes.HasPrefix(peek, zipMagic) {
		return false
	}
	return bytes.Contains(peek, []byte(part))
}

func sniffHTML(peek []byte) bool {
	return htmlSignals.Match(peek)
}

func sniffMarkdown(peek []byte) bool {
	return mdHeadingLine.Match(peek) || mdFence.Match(peek) || mdTableRow.Match(peek)
}

// sniffCSV implements spec §4.5's CSV content test: at least one delimiter
// candidate present, consistently, across the first non-empty lines (up to
// 10).
func sniffCSV(peek []byte) bool {
	lines := nonEmptyLines(peek, 10)
	if len(lines) == 0 {
		return false
	}
	for _, delim := range []byte{',', '\t', ';', '|'} {
		count := -1
		consistent := true
		for _, line := range lines {
			n := bytes.Count(line, []byte{delim})
			if n == 0 {
				consistent = false
				break
			}
			if count == -1 {
				count = n
			} else if n != count {
				consistent = false
				break
			}
		}
		if consistent && count > 0 {
			return true
		}
	}
	return false
}

func nonEmptyLines(peek []byte, limit int) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(peek, []byte{'\n'}) {
		trimmed := bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(trimmed)) == 0 {
			continue
		}
		lines = append(lines, trimmed)
		if len(lines) >= limit {
			break
		}
	}
	return lines
}
