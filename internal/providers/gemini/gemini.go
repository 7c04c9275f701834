// Package gemini adapts github.com/google/generative-ai-go's genai client
// to the engine's providers.ImageDescriptionProvider and providers.LLMProvider
// contracts. Nothing in internal/chunkers imports this package directly.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/docuchunk/docuchunk/internal/providers"
)

const defaultModel = "gemini-1.5-flash"

// Provider implements providers.ImageDescriptionProvider and
// providers.LLMProvider over the Gemini generative-content API.
type Provider struct {
	client *genai.Client
	apiKey string
	model  string
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel overrides the default Gemini model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// New constructs a Provider, reading GOOGLE_API_KEY from the environment.
// The underlying client is lazily dialed on first use so New never blocks
// on network I/O.
func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey: os.Getenv("GOOGLE_API_KEY"),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string                 { return "gemini" }
func (p *Provider) Type() providers.ProviderType { return providers.ProviderTypeLLM }
func (p *Provider) Available() bool              { return p.apiKey != "" }
func (p *Provider) RateLimit() providers.RateLimitConfig {
	return providers.RateLimitConfig{RequestsPerMinute: 60, TokensPerMinute: 100000, BurstSize: 10}
}

func (p *Provider) client_(ctx context.Context) (*genai.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("gemini: provider not available; GOOGLE_API_KEY not set")
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: dialing client: %w", err)
	}
	p.client = c
	return c, nil
}

// Summarize produces a short summary of text.
func (p *Provider) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	client, err := p.client_(ctx)
	if err != nil {
		return "", err
	}
	model := client.GenerativeModel(p.model)
	model.SetMaxOutputTokens(int32(maxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text("Summarize the following text in a single concise paragraph:\n\n"+text))
	if err != nil {
		return "", fmt.Errorf("gemini: summarize: %w", err)
	}
	return strings.TrimSpace(firstText(resp)), nil
}

// ExtractKeywords returns up to maxKeywords important terms from text.
func (p *Provider) ExtractKeywords(ctx context.Context, text string, maxKeywords int) ([]string, error) {
	client, err := p.client_(ctx)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(p.model)

	prompt := fmt.Sprintf("List up to %d important keywords from the text below as a comma-separated line, nothing else.\n\n%s", maxKeywords, text)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: extract keywords: %w", err)
	}

	var keywords []string
	for _, raw := range strings.Split(firstText(resp), ",") {
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

// Describe asks Gemini's multimodal input to describe an image.
func (p *Provider) Describe(ctx context.Context, imageBytes []byte, mediaType, existingCaption string) (providers.ImageDescription, error) {
	client, err := p.client_(ctx)
	if err != nil {
		return providers.ImageDescription{}, err
	}
	model := client.GenerativeModel(p.model)

	prompt := "Describe this image in one or two sentences."
	if existingCaption != "" {
		prompt += fmt.Sprintf(" The document's own caption reads: %q.", existingCaption)
	}

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(formatSuffix(mediaType), imageBytes),
		genai.Text(prompt),
	)
	if err != nil {
		return providers.ImageDescription{}, fmt.Errorf("gemini: describe: %w", err)
	}

	return providers.ImageDescription{
		Description: strings.TrimSpace(firstText(resp)),
		Confidence:  0.8,
	}, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func formatSuffix(mediaType string) string {
	switch mediaType {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}
