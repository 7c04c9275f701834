// Package chunk implements the `docuchunk chunk` command: run the chunking
// engine over one input file and print the result as Markdown or JSON.
package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docuchunk/docuchunk/internal/chunkers"
	"github.com/docuchunk/docuchunk/internal/config"
	"github.com/docuchunk/docuchunk/internal/output"
	"github.com/docuchunk/docuchunk/internal/providers"
	"github.com/docuchunk/docuchunk/internal/providers/gemini"
	"github.com/docuchunk/docuchunk/internal/providers/openai"
)

var (
	flagFormat           string
	flagMaxTokens        int
	flagOverlapTokens    int
	flagTokenCounting    string
	flagNoValidate       bool
	flagDescribeImages   bool
	flagSummarize        bool
	flagExtractKeywords  bool
	flagImageProvider    string
	flagLLMProvider      string
)

// ChunkCmd runs the chunking engine over a single input file.
var ChunkCmd = &cobra.Command{
	Use:   "chunk <path>",
	Short: "Chunk a document into structural, content, visual, and table units",
	Long: "Chunk reads a single file, detects its document format, and runs the " +
		"chunking engine over its content, printing the resulting chunks as " +
		"Markdown (for review) or JSON (for downstream ingestion).",
	Example: `  # Chunk a markdown file and print a Markdown outline
  docuchunk chunk README.md

  # Chunk a PDF and emit JSON, with image descriptions via OpenAI
  docuchunk chunk report.pdf --format json --describe-images`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateChunk,
	RunE:    runChunk,
}

func init() {
	cfg := config.NewDefaultConfig()

	ChunkCmd.Flags().StringVar(&flagFormat, "format", "markdown", "Output format: markdown or json")
	ChunkCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", cfg.Chunking.MaxTokens, "Maximum tokens per content chunk")
	ChunkCmd.Flags().IntVar(&flagOverlapTokens, "overlap-tokens", cfg.Chunking.OverlapTokens, "Token overlap between split batches")
	ChunkCmd.Flags().StringVar(&flagTokenCounting, "token-counting", cfg.Chunking.TokenCountingMethod, "Token counting method: cl100k, p50k, r50k, or character")
	ChunkCmd.Flags().BoolVar(&flagNoValidate, "no-validate", false, "Skip invariant validation")
	ChunkCmd.Flags().BoolVar(&flagDescribeImages, "describe-images", false, "Generate image descriptions for Visual chunks")
	ChunkCmd.Flags().BoolVar(&flagSummarize, "summarize", false, "Generate LLM summaries for structural chunks from their content children")
	ChunkCmd.Flags().BoolVar(&flagExtractKeywords, "extract-keywords", false, "Extract keywords for Content chunks via the configured LLM provider")
	ChunkCmd.Flags().StringVar(&flagImageProvider, "image-provider", cfg.Images.Provider, "Image description provider: openai or gemini")
	ChunkCmd.Flags().StringVar(&flagLLMProvider, "llm-provider", cfg.LLM.Provider, "LLM provider: openai or gemini")
}

func validateChunk(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	switch flagFormat {
	case "markdown", "json":
	default:
		return fmt.Errorf("chunk: invalid --format %q, want markdown or json", flagFormat)
	}
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("chunk: reading %q: %w", path, err)
	}

	encoding, err := parseEncoding(flagTokenCounting)
	if err != nil {
		return err
	}

	opts := chunkers.DefaultOptions()
	opts.MaxTokens = flagMaxTokens
	opts.OverlapTokens = flagOverlapTokens
	opts.TokenCountingMethod = encoding
	opts.TokenCounter = chunkers.NewTokenCounter(encoding)
	opts.ValidateChunks = !flagNoValidate
	opts.ExtractKeywordsOpt = flagExtractKeywords
	opts.GenerateSummaries = flagSummarize
	opts.GenerateImageDescriptions = flagDescribeImages

	registry := providers.NewRegistry()
	registerProviders(registry)
	limiters := providers.NewRateLimiterManager()

	if flagDescribeImages {
		if p, err := registry.GetImageDescription(flagImageProvider); err == nil && p.Available() {
			opts.ImageDescriber = limiters.WrapImageDescription(p)
		}
	}
	if flagSummarize || flagExtractKeywords {
		if p, err := registry.GetLLM(flagLLMProvider); err == nil && p.Available() {
			opts.LLM = limiters.WrapLLM(p)
		}
	}
	if active := limiters.Active(); len(active) > 0 {
		slog.Default().Debug("rate limiting enabled", "providers", active)
	}

	engine := chunkers.NewEngine()
	result, err := engine.ChunkFile(context.Background(), path, opts)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	formatter := output.NewFormatter(false)
	var rendered string
	switch flagFormat {
	case "json":
		rendered, err = formatter.FormatJSON(result)
	default:
		rendered = formatter.FormatMarkdown(result)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	if !result.Success {
		return fmt.Errorf("chunk: run reported failure; see warnings above")
	}
	return nil
}

func registerProviders(registry *providers.Registry) {
	op := openai.New()
	_ = registry.RegisterImageDescription(op)
	_ = registry.RegisterLLM(op)

	gp := gemini.New()
	_ = registry.RegisterImageDescription(gp)
	_ = registry.RegisterLLM(gp)
}

func parseEncoding(s string) (chunkers.Encoding, error) {
	switch strings.ToLower(s) {
	case "cl100k", "cl100k_base":
		return chunkers.EncodingCL100K, nil
	case "p50k", "p50k_base":
		return chunkers.EncodingP50K, nil
	case "r50k", "r50k_base":
		return chunkers.EncodingR50K, nil
	case "character", "character_based":
		return chunkers.EncodingCharacterBased, nil
	default:
		return 0, fmt.Errorf("chunk: unknown --token-counting value %q", s)
	}
}
