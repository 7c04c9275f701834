// Package providers defines the capability contracts the chunking engine
// invokes for optional enrichment (image description, LLM summarization and
// keyword extraction), plus concrete adapters in the openai and gemini
// subpackages. The engine itself only ever depends on the interfaces in
// this file; a caller wires a concrete adapter into chunkers.Options.
package providers

import (
	"context"
	"time"
)

// ProviderType distinguishes the two capability contracts the engine
// consumes.
type ProviderType string

const (
	ProviderTypeImageDescription ProviderType = "image-description"
	ProviderTypeLLM              ProviderType = "llm"
)

// Provider is the base interface shared by every concrete adapter.
type Provider interface {
	Name() string
	Type() ProviderType
	Available() bool
	RateLimit() RateLimitConfig
}

// RateLimitConfig bounds outbound request volume for a provider.
type RateLimitConfig struct {
	RequestsPerMinute int
	TokensPerMinute   int
	BurstSize         int
}

// ImageDescription is the result of describing a single image, per spec
// §6.1.
type ImageDescription struct {
	Description    string
	Confidence     float64
	DetectedObjects []string
	DetectedText    string
}

// ImageDescriptionProvider describes visual chunks. Called only when
// chunkers.Options.GenerateImageDescriptions is set; failure yields a
// warning and leaves GeneratedDescription unset (spec §6.1).
type ImageDescriptionProvider interface {
	Provider

	Describe(ctx context.Context, imageBytes []byte, mediaType string, existingCaption string) (ImageDescription, error)
}

// LLMProvider summarizes Structural chunks and extracts keywords from
// Content chunks. Called only when enabled; on failure the engine leaves
// the summary or keywords unset and records a CodeProviderFailure warning.
type LLMProvider interface {
	Provider

	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
	ExtractKeywords(ctx context.Context, text string, maxKeywords int) ([]string, error)
}

// Timestamped is embedded by concrete adapter results that want a
// generation timestamp without depending on chunkers.
type Timestamped struct {
	GeneratedAt time.Time
}
