package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docuchunk/docuchunk/cmd/chunk"
	"github.com/docuchunk/docuchunk/cmd/version"
	"github.com/docuchunk/docuchunk/internal/config"
	"github.com/docuchunk/docuchunk/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

// Quiet suppresses non-error output when true
var Quiet bool

var rootCmd = &cobra.Command{
	Use:   "docuchunk",
	Short: "A format-aware document chunking engine for RAG pipelines",
	Long: "docuchunk reads a document in any of its supported formats (Markdown, HTML, " +
		"plain text, DOCX, PPTX, XLSX, CSV, PDF) and decomposes it into a hierarchy of " +
		"structural, content, visual, and table chunks sized for retrieval-augmented " +
		"generation, with optional LLM-backed summarization, keyword extraction, and " +
		"image description.\n\n",
	PersistentPreRunE: runInitialize,
}

func init() {
	// Create logging Manager in bootstrap mode (stderr text only)
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	// Register global flags
	rootCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", false, "Suppress non-error output")

	// Register subcommands
	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(chunk.ChunkCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	// Initialize config subsystem
	if err := config.Init(); err != nil {
		return err
	}

	// Upgrade logging after config is available
	cfg := config.Get()
	logFile := config.ExpandPath(cfg.LogFile)
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		// Don't return error - continue with bootstrap mode
	}

	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	// Ensure logging is properly closed on exit
	defer func() { _ = logManager.Close() }()

	err := rootCmd.Execute()

	if err != nil {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
