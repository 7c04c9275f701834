package chunkers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/docuchunk/docuchunk/internal/providers"
	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// OutputFormat records whether the caller asked for a flat or a
// hierarchical delivery. The engine does not read it and Chunk has no
// Children field: a ChunkingResult always holds the flat list in sequence
// order, with the hierarchy carried by ParentID and AncestorIDs.
type OutputFormat int

const (
	OutputFlat OutputFormat = iota
	OutputHierarchical
)

// Options configures a chunking run. Per spec §6.2, "all others are
// additive" — adding a field here never changes the meaning of an existing
// one.
type Options struct {
	MaxTokens           int
	OverlapTokens       int
	TokenCounter        TokenCounter
	TokenCountingMethod Encoding

	ExtractImages             bool
	GenerateImageDescriptions bool
	GenerateSummaries         bool
	ExtractKeywordsOpt        bool
	PreserveFormatting        bool
	GenerateMarkdown          bool
	OutputFormat              OutputFormat
	EnableStreaming           bool
	ValidateChunks            bool

	Tags              []string
	ExternalHierarchy string
	SourceID          string
	TableFormat       SerializationFormat

	ImageDescriber providers.ImageDescriptionProvider
	LLM            providers.LLMProvider

	Logger *slog.Logger
}

// DefaultOptions returns sane defaults: CL100K counting, a 512-token
// budget, 64-token overlap, Markdown table serialization, validation on.
func DefaultOptions() Options {
	return Options{
		MaxTokens:           512,
		OverlapTokens:       64,
		TokenCountingMethod: EncodingCL100K,
		ExtractImages:       true,
		TableFormat:         SerializationMarkdown,
		ValidateChunks:      true,
		OutputFormat:        OutputFlat,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) validate() error {
	if o.MaxTokens <= 0 {
		return invalidArgf("MaxTokens must be positive, got %d", o.MaxTokens)
	}
	if o.OverlapTokens >= o.MaxTokens {
		return invalidArgf("OverlapTokens (%d) must be < MaxTokens (%d)", o.OverlapTokens, o.MaxTokens)
	}
	if o.OverlapTokens < 0 {
		return invalidArgf("OverlapTokens must be non-negative, got %d", o.OverlapTokens)
	}
	return nil
}

// Statistics summarizes a finished chunk list.
type Statistics struct {
	TotalChunks        int
	CountsByCategory    map[Category]int
	MaxDepth            int
	ProcessingTime      time.Duration
	TotalTokens         int
	AvgTokens           float64
	MinTokens           int
	MaxTokens           int
	SpecificTypeCounts  map[string]int
}

// ChunkingResult is the outcome of a chunking run.
type ChunkingResult struct {
	Success    bool
	Chunks     []*Chunk
	Statistics Statistics
	Warnings   []ChunkingWarning
	Validation *ValidationResult
}

// Engine is the public facade over the chunking subsystem: it resolves a
// FormatChunker via the Registry, runs it, builds hierarchy, optionally
// validates, and computes statistics. It catches every chunker-level fault
// so no panic or error from a FormatChunker ever crosses the engine
// boundary (spec §4.4, §7).
type Engine struct {
	registry *Registry
}

// NewEngine builds an Engine over the standard set of format chunkers.
func NewEngine() *Engine {
	e := &Engine{registry: NewRegistry()}
	e.registry.Register(NewMarkdownChunker())
	e.registry.Register(NewHTMLChunker())
	e.registry.Register(NewDOCXChunker())
	e.registry.Register(NewPPTXChunker())
	e.registry.Register(NewXLSXChunker())
	e.registry.Register(NewCSVChunker())
	e.registry.Register(NewPDFChunker())
	// PlainText claims every input, so it goes last.
	e.registry.Register(NewPlainTextChunker())
	return e
}

// Registry exposes the underlying registry so callers may add custom
// chunkers (spec §9: "fixed static table ... plus user-added entries").
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Chunk resolves a chunker by explicit DocumentType, runs it, and returns
// the finished ChunkingResult.
func (e *Engine) Chunk(ctx context.Context, content []byte, dt DocumentType, opts Options) (ChunkingResult, error) {
	if err := opts.validate(); err != nil {
		return ChunkingResult{}, err
	}

	fc := e.registry.Get(dt)
	if fc == nil {
		return ChunkingResult{}, invalidArgf("no chunker registered for document type %q", dt)
	}
	return e.run(ctx, fc, content, opts), nil
}

// ChunkAuto detects the DocumentType first by file-name hint, else by
// content sniffing, then runs the resolved chunker.
func (e *Engine) ChunkAuto(ctx context.Context, content []byte, fileNameHint string, opts Options) (ChunkingResult, error) {
	if err := opts.validate(); err != nil {
		return ChunkingResult{}, err
	}

	var fc FormatChunker
	if fileNameHint != "" {
		if dt, ok := DetectByExtension(fileNameHint); ok {
			fc = e.registry.Get(dt)
		}
	}
	if fc == nil {
		peek := content
		if len(peek) > sniffPeekSize {
			peek = peek[:sniffPeekSize]
		}
		detected, ok := e.registry.DetectByContent(peek)
		if !ok {
			return ChunkingResult{
				Success: false,
				Warnings: []ChunkingWarning{{
					Level:   LevelError,
					Code:    CodeUnsupportedFormat,
					Message: "no registered chunker claimed this input",
				}},
			}, nil
		}
		fc = detected
	}

	return e.run(ctx, fc, content, opts), nil
}

// ChunkFile is a convenience wrapper reading path and delegating to
// ChunkAuto using the file's own name as the extension hint.
func (e *Engine) ChunkFile(ctx context.Context, path string, opts Options) (ChunkingResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ChunkingResult{}, fmt.Errorf("chunkers: reading file %q: %w", path, err)
	}
	return e.ChunkAuto(ctx, content, path, opts)
}

func (e *Engine) run(ctx context.Context, fc FormatChunker, content []byte, opts Options) ChunkingResult {
	start := time.Now()
	logger := opts.logger()

	result := e.invokeChunker(ctx, fc, content, opts)
	if !result.Success {
		result.Statistics.ProcessingTime = time.Since(start)
		logWarnings(logger, result.Warnings)
		return result
	}

	hierarchyWarnings := BuildHierarchy(result.Chunks)
	result.Warnings = append(result.Warnings, hierarchyWarnings...)

	result.Warnings = append(result.Warnings, annotateWithLLM(ctx, result.Chunks, opts)...)

	if opts.ValidateChunks {
		v := Validate(result.Chunks, ValidateOptions{MaxTokens: opts.MaxTokens})
		result.Validation = &v
	}

	result.Statistics = computeStatistics(result.Chunks, time.Since(start))
	result.Success = !hasErrorWarning(result.Warnings)

	logWarnings(logger, result.Warnings)
	return result
}

// annotateWithLLM fills in StructuralExtra.Summary and ContentExtra.Keywords
// via opts.LLM when the corresponding option flags are set and a usable
// provider was configured (spec §6.1: "absent a provider, the fields stay
// unset and no warning is raised").
func annotateWithLLM(ctx context.Context, chunks []*Chunk, opts Options) []ChunkingWarning {
	if opts.LLM == nil || !opts.LLM.Available() {
		return nil
	}
	if !opts.GenerateSummaries && !opts.ExtractKeywordsOpt {
		return nil
	}

	var warnings []ChunkingWarning
	for _, c := range chunks {
		select {
		case <-ctx.Done():
			return warnings
		default:
		}

		if opts.GenerateSummaries && c.Category == CategoryStructural && c.Structural != nil {
			// Section/Slide/Worksheet/Page chunks carry a heading or title
			// but no body text of their own; summarize their children's text.
			text := concatenateChildText(chunks, c.ID)
			if strings.TrimSpace(text) == "" {
				continue
			}
			summary, err := opts.LLM.Summarize(ctx, text, summaryMaxTokens)
			if err != nil {
				warnings = append(warnings, ChunkingWarning{
					Level:   LevelWarning,
					Code:    CodeProviderFailure,
					Message: fmt.Sprintf("summarize chunk %s: %v", c.ID, err),
				})
				continue
			}
			c.Structural.Summary = summary
		}

		if opts.ExtractKeywordsOpt && c.Category == CategoryContent && c.Content != nil && c.Content.Text != "" {
			keywords, err := opts.LLM.ExtractKeywords(ctx, c.Content.Text, keywordMaxCount)
			if err != nil {
				warnings = append(warnings, ChunkingWarning{
					Level:   LevelWarning,
					Code:    CodeProviderFailure,
					Message: fmt.Sprintf("extract keywords for chunk %s: %v", c.ID, err),
				})
				continue
			}
			c.Content.Keywords = keywords
		}
	}
	return warnings
}

const (
	summaryMaxTokens = 128
	keywordMaxCount  = 8
)

// concatenateChildText joins the Content-chunk text of every direct child
// of parentID, in sequence order, for use as LLM summarization input.
func concatenateChildText(chunks []*Chunk, parentID chunkid.ID) string {
	var parts []string
	for _, c := range chunks {
		if !c.HasParent || c.ParentID != parentID {
			continue
		}
		if c.Category == CategoryContent && c.Content != nil {
			parts = append(parts, c.Content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// invokeChunker wraps the FormatChunker call so a panic degrades to a
// failed ChunkingResult instead of propagating to the caller, per spec
// §4.4: "It does not propagate panics to the caller."
func (e *Engine) invokeChunker(ctx context.Context, fc FormatChunker, content []byte, opts Options) (result ChunkingResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ChunkingResult{
				Success: false,
				Warnings: []ChunkingWarning{{
					Level:   LevelError,
					Code:    CodeMalformedInput,
					Message: fmt.Sprintf("chunker panicked: %v", r),
				}},
			}
		}
	}()

	select {
	case <-ctx.Done():
		return ChunkingResult{
			Success:  false,
			Warnings: []ChunkingWarning{{Level: LevelError, Code: CodeCancelled, Message: "cancelled before chunking started"}},
		}
	default:
	}

	chunks, warnings, err := fc.Chunk(ctx, content, opts)
	if err != nil {
		return ChunkingResult{
			Success: false,
			Warnings: append(warnings, ChunkingWarning{
				Level:   LevelError,
				Code:    CodeMalformedInput,
				Message: err.Error(),
			}),
		}
	}

	return ChunkingResult{
		Success:  true,
		Chunks:   chunks,
		Warnings: warnings,
	}
}

func hasErrorWarning(warnings []ChunkingWarning) bool {
	for _, w := range warnings {
		if w.Level == LevelError {
			return true
		}
	}
	return false
}

func computeStatistics(chunks []*Chunk, elapsed time.Duration) Statistics {
	stats := Statistics{
		TotalChunks:       len(chunks),
		CountsByCategory:   map[Category]int{},
		SpecificTypeCounts: map[string]int{},
		ProcessingTime:     elapsed,
	}

	var totalTokens int
	var tokenSamples int
	minTokens := -1
	maxTokens := 0
	maxDepth := 0

	for _, c := range chunks {
		stats.CountsByCategory[c.Category]++
		stats.SpecificTypeCounts[c.SpecificType]++
		if c.Depth > maxDepth {
			maxDepth = c.Depth
		}
		if c.QualityMetrics != nil {
			tc := c.QualityMetrics.TokenCount
			totalTokens += tc
			tokenSamples++
			if minTokens == -1 || tc < minTokens {
				minTokens = tc
			}
			if tc > maxTokens {
				maxTokens = tc
			}
		}
	}

	stats.MaxDepth = maxDepth
	stats.TotalTokens = totalTokens
	if tokenSamples > 0 {
		stats.AvgTokens = float64(totalTokens) / float64(tokenSamples)
		stats.MinTokens = minTokens
		stats.MaxTokens = maxTokens
	}

	return stats
}

func logWarnings(logger *slog.Logger, warnings []ChunkingWarning) {
	for _, w := range warnings {
		attrs := []any{"code", string(w.Code)}
		if w.ChunkID != nil {
			attrs = append(attrs, "chunk_id", w.ChunkID.String())
		}
		switch w.Level {
		case LevelError:
			logger.Error(w.Message, attrs...)
		case LevelWarning:
			logger.Warn(w.Message, attrs...)
		default:
			logger.Debug(w.Message, attrs...)
		}
	}
}
