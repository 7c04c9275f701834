package chunkers

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchunk/docuchunk/internal/providers"
)

const pptxPresentationXML = `<?xml version="1.0"?><p:presentation xmlns:p="x"/>`

const pptxSlide1XML = `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld>
    <p:spTree>
      <p:sp>
        <p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
        <p:txBody><a:p><a:r><a:t>Slide One</a:t></a:r></a:p></p:txBody>
      </p:sp>
      <p:pic>
        <p:nvPicPr><p:cNvPr name="Picture 1"/></p:nvPicPr>
        <p:blipFill><a:blip r:embed="rId2"/></p:blipFill>
      </p:pic>
    </p:spTree>
  </p:cSld>
</p:sld>`

const pptxSlide1Rels = `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="image" Target="../media/image1.png"/>
</Relationships>`

func buildPPTXFixture(t *testing.T, imageBytes []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"ppt/presentation.xml":              pptxPresentationXML,
		"ppt/slides/slide1.xml":             pptxSlide1XML,
		"ppt/slides/_rels/slide1.xml.rels":  pptxSlide1Rels,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	w, err := zw.Create("ppt/media/image1.png")
	require.NoError(t, err)
	_, err = w.Write(imageBytes)
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestPPTXChunker_CanHandle(t *testing.T) {
	c := NewPPTXChunker()
	content := buildPPTXFixture(t, []byte("fake-png-bytes"))
	assert.True(t, c.CanHandle(content))
}

func TestPPTXChunker_Chunk_SlideTitleAndImage(t *testing.T) {
	c := NewPPTXChunker()
	content := buildPPTXFixture(t, []byte("fake-png-bytes"))

	chunks, warnings, err := c.Chunk(context.Background(), content, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 3) // slide + title + image

	slide := chunks[0]
	assert.Equal(t, CategoryStructural, slide.Category)
	assert.Equal(t, "slide", slide.SpecificType)

	title := chunks[1]
	assert.Equal(t, "title", title.SpecificType)
	require.NotNil(t, title.Content)
	assert.Equal(t, "Slide One", title.Content.Text)

	img := chunks[2]
	assert.Equal(t, CategoryVisual, img.Category)
	require.NotNil(t, img.Visual)
	assert.Equal(t, "Picture 1", img.Visual.Caption)
	assert.NotEmpty(t, img.Visual.BinaryReference, "resolved media bytes should be hashed")
	assert.NotEmpty(t, img.Visual.MediaType)
}

func TestPPTXChunker_Chunk_EmptyContent(t *testing.T) {
	c := NewPPTXChunker()
	_, _, err := c.Chunk(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

type stubImageDescriber struct {
	description string
}

func (s *stubImageDescriber) Name() string                        { return "stub" }
func (s *stubImageDescriber) Type() providers.ProviderType         { return providers.ProviderTypeImageDescription }
func (s *stubImageDescriber) Available() bool                      { return true }
func (s *stubImageDescriber) RateLimit() providers.RateLimitConfig { return providers.RateLimitConfig{} }
func (s *stubImageDescriber) Describe(ctx context.Context, imageBytes []byte, mediaType, existingCaption string) (providers.ImageDescription, error) {
	return providers.ImageDescription{Description: s.description}, nil
}

func TestPPTXChunker_Chunk_GeneratesImageDescription(t *testing.T) {
	c := NewPPTXChunker()
	content := buildPPTXFixture(t, []byte("fake-png-bytes"))

	opts := DefaultOptions()
	opts.GenerateImageDescriptions = true
	opts.ImageDescriber = &stubImageDescriber{description: "a red square"}

	chunks, warnings, err := c.Chunk(context.Background(), content, opts)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, chunks, 3)

	img := chunks[2]
	require.NotNil(t, img.Visual)
	assert.Equal(t, "a red square", img.Visual.GeneratedDescription)
}
