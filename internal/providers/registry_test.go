package providers

import (
	"context"
	"testing"
)

type mockImageProvider struct {
	name      string
	available bool
}

func (p *mockImageProvider) Name() string               { return p.name }
func (p *mockImageProvider) Type() ProviderType         { return ProviderTypeImageDescription }
func (p *mockImageProvider) Available() bool            { return p.available }
func (p *mockImageProvider) RateLimit() RateLimitConfig { return RateLimitConfig{} }
func (p *mockImageProvider) Describe(ctx context.Context, imageBytes []byte, mediaType, existingCaption string) (ImageDescription, error) {
	return ImageDescription{}, nil
}

type mockLLMProvider struct {
	name      string
	available bool
}

func (p *mockLLMProvider) Name() string               { return p.name }
func (p *mockLLMProvider) Type() ProviderType         { return ProviderTypeLLM }
func (p *mockLLMProvider) Available() bool            { return p.available }
func (p *mockLLMProvider) RateLimit() RateLimitConfig { return RateLimitConfig{} }
func (p *mockLLMProvider) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	return "", nil
}
func (p *mockLLMProvider) ExtractKeywords(ctx context.Context, text string, maxKeywords int) ([]string, error) {
	return nil, nil
}

func TestRegistry_RegisterImageDescription(t *testing.T) {
	r := NewRegistry()

	p := &mockImageProvider{name: "test", available: true}
	if err := r.RegisterImageDescription(p); err != nil {
		t.Fatalf("RegisterImageDescription failed: %v", err)
	}

	if err := r.RegisterImageDescription(p); err != ErrProviderExists {
		t.Errorf("expected ErrProviderExists, got %v", err)
	}
}

func TestRegistry_RegisterLLM(t *testing.T) {
	r := NewRegistry()

	p := &mockLLMProvider{name: "test", available: true}
	if err := r.RegisterLLM(p); err != nil {
		t.Fatalf("RegisterLLM failed: %v", err)
	}

	if err := r.RegisterLLM(p); err != ErrProviderExists {
		t.Errorf("expected ErrProviderExists, got %v", err)
	}
}

func TestRegistry_GetImageDescription(t *testing.T) {
	r := NewRegistry()
	p := &mockImageProvider{name: "test", available: true}
	_ = r.RegisterImageDescription(p)

	got, err := r.GetImageDescription("test")
	if err != nil {
		t.Fatalf("GetImageDescription failed: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got %s", got.Name())
	}

	if _, err := r.GetImageDescription("nonexistent"); err != ErrProviderNotFound {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_GetLLM(t *testing.T) {
	r := NewRegistry()
	p := &mockLLMProvider{name: "test", available: true}
	_ = r.RegisterLLM(p)

	got, err := r.GetLLM("test")
	if err != nil {
		t.Fatalf("GetLLM failed: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got %s", got.Name())
	}

	if _, err := r.GetLLM("nonexistent"); err != ErrProviderNotFound {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_DefaultImageDescription(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefaultImageDescription(); err != ErrNoAvailableProvider {
		t.Errorf("expected ErrNoAvailableProvider, got %v", err)
	}

	p := &mockImageProvider{name: "test", available: true}
	_ = r.RegisterImageDescription(p)

	got, err := r.DefaultImageDescription()
	if err != nil {
		t.Fatalf("DefaultImageDescription failed: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got %s", got.Name())
	}
}

func TestRegistry_DefaultLLM(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefaultLLM(); err != ErrNoAvailableProvider {
		t.Errorf("expected ErrNoAvailableProvider, got %v", err)
	}

	p := &mockLLMProvider{name: "test", available: true}
	_ = r.RegisterLLM(p)

	got, err := r.DefaultLLM()
	if err != nil {
		t.Fatalf("DefaultLLM failed: %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("expected name 'test', got %s", got.Name())
	}
}

func TestRegistry_ListImageDescription(t *testing.T) {
	r := NewRegistry()

	p1 := &mockImageProvider{name: "provider1", available: true}
	p2 := &mockImageProvider{name: "provider2", available: false}
	_ = r.RegisterImageDescription(p1)
	_ = r.RegisterImageDescription(p2)

	all := r.ListImageDescription()
	if len(all) != 2 {
		t.Errorf("expected 2 providers, got %d", len(all))
	}
}

func TestRegistry_ListLLM(t *testing.T) {
	r := NewRegistry()

	p1 := &mockLLMProvider{name: "provider1", available: true}
	p2 := &mockLLMProvider{name: "provider2", available: false}
	_ = r.RegisterLLM(p1)
	_ = r.RegisterLLM(p2)

	all := r.ListLLM()
	if len(all) != 2 {
		t.Errorf("expected 2 providers, got %d", len(all))
	}
}
