package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

// validLLMProviders lists recognized LLM providers.
var validLLMProviders = map[string]bool{
	"openai": true,
	"gemini": true,
}

// validImagesProviders lists recognized image-description providers.
var validImagesProviders = map[string]bool{
	"openai": true,
	"gemini": true,
}

// validTokenCountingMethods lists recognized tokens.Encoding names.
var validTokenCountingMethods = map[string]bool{
	"cl100k":    true,
	"p50k":      true,
	"r50k":      true,
	"character": true,
}

// validTableFormats lists recognized table serialization formats.
var validTableFormats = map[string]bool{
	"markdown": true,
	"csv":      true,
	"json":     true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Chunking.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "chunking.max_tokens",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Chunking.MaxTokens),
		})
	}

	if cfg.Chunking.OverlapTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "chunking.overlap_tokens",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Chunking.OverlapTokens),
		})
	}

	if cfg.Chunking.MaxTokens > 0 && cfg.Chunking.OverlapTokens >= cfg.Chunking.MaxTokens {
		errs = append(errs, ValidationError{
			Field:   "chunking.overlap_tokens",
			Message: fmt.Sprintf("must be smaller than max_tokens (%d), got %d", cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens),
		})
	}

	if !validTokenCountingMethods[cfg.Chunking.TokenCountingMethod] {
		errs = append(errs, ValidationError{
			Field:   "chunking.token_counting_method",
			Message: fmt.Sprintf("must be one of: cl100k, p50k, r50k, character; got %q", cfg.Chunking.TokenCountingMethod),
		})
	}

	if cfg.Chunking.TableFormat != "" && !validTableFormats[cfg.Chunking.TableFormat] {
		errs = append(errs, ValidationError{
			Field:   "chunking.table_format",
			Message: fmt.Sprintf("must be one of: markdown, csv, json; got %q", cfg.Chunking.TableFormat),
		})
	}

	if cfg.LLM.Provider != "" && !validLLMProviders[cfg.LLM.Provider] {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("must be one of: openai, gemini; got %q", cfg.LLM.Provider),
		})
	}

	if cfg.Images.Provider != "" && !validImagesProviders[cfg.Images.Provider] {
		errs = append(errs, ValidationError{
			Field:   "images.provider",
			Message: fmt.Sprintf("must be one of: openai, gemini; got %q", cfg.Images.Provider),
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
