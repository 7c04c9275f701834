// Package openai adapts github.com/sashabaranov/go-openai to the engine's
// providers.ImageDescriptionProvider and providers.LLMProvider contracts.
// Nothing in internal/chunkers imports this package directly; a caller
// (typically the chunk CLI command) wires a *Provider into
// chunkers.Options.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docuchunk/docuchunk/internal/providers"
)

const defaultModel = openai.GPT4oMini

// Provider implements providers.ImageDescriptionProvider and
// providers.LLMProvider over the OpenAI chat completions API.
type Provider struct {
	client *openai.Client
	apiKey string
	model  string
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// New constructs a Provider, reading OPENAI_API_KEY from the environment
// unless overridden by a future WithAPIKey option.
func New(opts ...Option) *Provider {
	apiKey := os.Getenv("OPENAI_API_KEY")
	p := &Provider{
		apiKey: apiKey,
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.apiKey != "" {
		p.client = openai.NewClient(p.apiKey)
	}
	return p
}

func (p *Provider) Name() string                        { return "openai" }
func (p *Provider) Type() providers.ProviderType        { return providers.ProviderTypeLLM }
func (p *Provider) Available() bool                      { return p.client != nil }
func (p *Provider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{RequestsPerMinute: 60, TokensPerMinute: 150000, BurstSize: 10}
}

// Summarize produces a short summary of text, bounded by maxTokens.
func (p *Provider) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	if !p.Available() {
		return "", fmt.Errorf("openai: provider not available; OPENAI_API_KEY not set")
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Summarize the given text in a single concise paragraph."},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("openai: summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: summarize: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractKeywords returns up to maxKeywords important terms from text.
func (p *Provider) ExtractKeywords(ctx context.Context, text string, maxKeywords int) ([]string, error) {
	if !p.Available() {
		return nil, fmt.Errorf("openai: provider not available; OPENAI_API_KEY not set")
	}

	prompt := fmt.Sprintf("List up to %d important keywords from the text below as a comma-separated line, nothing else.", maxKeywords)
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   128,
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: extract keywords: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	var keywords []string
	for _, raw := range strings.Split(resp.Choices[0].Message.Content, ",") {
		kw := strings.TrimSpace(raw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords, nil
}

// Describe asks a vision-capable chat model to describe an image.
func (p *Provider) Describe(ctx context.Context, imageBytes []byte, mediaType, existingCaption string) (providers.ImageDescription, error) {
	if !p.Available() {
		return providers.ImageDescription{}, fmt.Errorf("openai: provider not available; OPENAI_API_KEY not set")
	}

	encoded := base64.StdEncoding.EncodeToString(imageBytes)
	prompt := "Describe this image in one or two sentences."
	if existingCaption != "" {
		prompt += fmt.Sprintf(" The document's own caption reads: %q.", existingCaption)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: fmt.Sprintf("data:%s;base64,%s", mediaType, encoded),
						},
					},
				},
			},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return providers.ImageDescription{}, fmt.Errorf("openai: describe: %w", err)
	}
	if len(resp.Choices) == 0 {
		return providers.ImageDescription{}, fmt.Errorf("openai: describe: empty response")
	}

	return providers.ImageDescription{
		Description: strings.TrimSpace(resp.Choices[0].Message.Content),
		Confidence:  0.8,
	}, nil
}
