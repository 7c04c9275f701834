package chunkers

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/docuchunk/docuchunk/internal/filetype"
	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// pptxSlideXML is the subset of the PresentationML slide schema this
// chunker decomposes: a shape tree of text boxes, placeholders, tables,
// and pictures (spec §4.10). Each kind is decoded into its own slice, so a
// slide's chunks come out as all text shapes, then all tables, then all
// pictures; the Z-order between shapes of different kinds is not kept.
type pptxSlideXML struct {
	XMLName xml.Name      `xml:"sld"`
	CSld    pptxCommonSld `xml:"cSld"`
}

type pptxCommonSld struct {
	SpTree pptxSpTree `xml:"spTree"`
}

type pptxSpTree struct {
	Shapes  []pptxShape   `xml:"sp"`
	Tables  []pptxGraphicFrame `xml:"graphicFrame"`
	Pics    []pptxPic     `xml:"pic"`
}

type pptxShape struct {
	NvSpPr pptxNvSpPr  `xml:"nvSpPr"`
	TxBody *pptxTxBody `xml:"txBody"`
}

type pptxNvSpPr struct {
	NvPr pptxNvPr `xml:"nvPr"`
}

type pptxNvPr struct {
	PlaceHolder *pptxPlaceholder `xml:"ph"`
}

type pptxPlaceholder struct {
	Type string `xml:"type,attr"`
}

type pptxTxBody struct {
	Paragraphs []pptxTxParagraph `xml:"p"`
}

type pptxTxParagraph struct {
	Runs []pptxTxRun `xml:"r"`
}

type pptxTxRun struct {
	Text string `xml:"t"`
}

type pptxGraphicFrame struct {
	Table *pptxTable `xml:"graphic>graphicData>tbl"`
}

type pptxTable struct {
	Rows []pptxTableRow `xml:"tr"`
}

type pptxTableRow struct {
	Cells []pptxTableCell `xml:"tc"`
}

type pptxTableCell struct {
	TxBody pptxTxBody `xml:"txBody"`
}

type pptxPic struct {
	NvPicPr  pptxNvPicPr  `xml:"nvPicPr"`
	BlipFill pptxBlipFill `xml:"blipFill"`
}

type pptxNvPicPr struct {
	CNvPr pptxCNvPr `xml:"cNvPr"`
}

type pptxCNvPr struct {
	Name string `xml:"name,attr"`
}

type pptxBlipFill struct {
	Blip pptxBlip `xml:"blip"`
}

type pptxBlip struct {
	Embed string `xml:"embed,attr"`
}

type pptxNotesSlideXML struct {
	CSld pptxCommonSld `xml:"cSld"`
}

// pptxRelationships is the part-relationship table PowerPoint stores
// alongside each slide (ppt/slides/_rels/slideN.xml.rels), mapping the
// r:embed/r:id attributes shapes reference to the actual media parts.
type pptxRelationships struct {
	Relationships []pptxRelationship `xml:"Relationship"`
}

type pptxRelationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

func pptxLoadRelationships(zr *zip.Reader, slideNum int) map[string]string {
	relPath := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	for _, f := range zr.File {
		if f.Name != relPath {
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return nil
		}
		var rels pptxRelationships
		if err := xml.Unmarshal(raw, &rels); err != nil {
			return nil
		}
		out := make(map[string]string, len(rels.Relationships))
		for _, r := range rels.Relationships {
			out[r.ID] = r.Target
		}
		return out
	}
	return nil
}

// pptxResolveMedia follows a relationship ID to the media part's bytes.
// Targets are stored relative to ppt/slides/, so "../media/image1.png"
// resolves to "ppt/media/image1.png".
func pptxResolveMedia(zr *zip.Reader, rels map[string]string, embedID string) (name string, data []byte, ok bool) {
	target, found := rels[embedID]
	if !found {
		return "", nil, false
	}
	resolved := path.Clean(path.Join("ppt/slides", target))
	for _, f := range zr.File {
		if f.Name == resolved {
			raw, err := readZipFile(f)
			if err != nil {
				return "", nil, false
			}
			return path.Base(resolved), raw, true
		}
	}
	return "", nil, false
}

// PPTXChunker decomposes a PowerPoint OOXML package: one Slide chunk per
// slide, one Content/Table/Visual chunk per shape in the slide's shape
// tree, and one Notes chunk per slide carrying speaker notes (spec §4.10).
type PPTXChunker struct{}

// NewPPTXChunker constructs a PPTXChunker. Stateless and reusable.
func NewPPTXChunker() *PPTXChunker {
	return &PPTXChunker{}
}

func (c *PPTXChunker) Name() string               { return "pptx" }
func (c *PPTXChunker) DocumentType() DocumentType { return DocumentPPTX }

func (c *PPTXChunker) CanHandle(peek []byte) bool {
	return sniffZIPWithPart(peek, "ppt/presentation.xml")
}

func (c *PPTXChunker) Chunk(ctx context.Context, content []byte, opts Options) ([]*Chunk, []ChunkingWarning, error) {
	if len(content) == 0 {
		return nil, nil, invalidArgf("pptx: content is empty")
	}

	zr, err := zip.NewReader(strings.NewReader(string(content)), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("pptx: open package: %w", err)
	}

	slideFiles := map[int]*zip.File{}
	notesFiles := map[int]*zip.File{}
	for _, f := range zr.File {
		if n, ok := slideIndexOf(f.Name, "ppt/slides/slide", ".xml"); ok {
			slideFiles[n] = f
		}
		if n, ok := slideIndexOf(f.Name, "ppt/notesSlides/notesSlide", ".xml"); ok {
			notesFiles[n] = f
		}
	}

	order := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		order = append(order, n)
	}
	sort.Ints(order)

	counter := resolveCounter(opts)
	var chunks []*Chunk
	var warnings []ChunkingWarning
	seq := 0

	for _, slideNum := range order {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		raw, err := readZipFile(slideFiles[slideNum])
		if err != nil {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeMalformedInput,
				Message: fmt.Sprintf("slide %d: %v", slideNum, err),
			})
			continue
		}
		var slide pptxSlideXML
		if err := xml.Unmarshal(raw, &slide); err != nil {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeMalformedInput,
				Message: fmt.Sprintf("slide %d: parse: %v", slideNum, err),
			})
			continue
		}

		shapeCount := len(slide.CSld.SpTree.Shapes) + len(slide.CSld.SpTree.Tables) + len(slide.CSld.SpTree.Pics)

		seq++
		slideID := chunkid.New()
		slideChunk := &Chunk{
			ID:             slideID,
			Category:       CategoryStructural,
			SpecificType:   "slide",
			SequenceNumber: seq,
			Structural: &StructuralExtra{
				SlideNumber: slideNum,
				ShapeCount:  shapeCount,
			},
		}
		chunks = append(chunks, slideChunk)

		for _, shape := range slide.CSld.SpTree.Shapes {
			text := pptxShapeText(shape)
			if strings.TrimSpace(text) == "" {
				continue
			}
			isTitle := shape.NvSpPr.NvPr.PlaceHolder != nil && shape.NvSpPr.NvPr.PlaceHolder.Type == "title"
			specificType := "content"
			if isTitle {
				specificType = "title"
			}
			seq++
			chunks = append(chunks, &Chunk{
				ID:             chunkid.New(),
				ParentID:       slideID,
				HasParent:      true,
				Category:       CategoryContent,
				SpecificType:   specificType,
				SequenceNumber: seq,
				Content: &ContentExtra{
					Text:        text,
					SlideNumber: slideNum,
				},
				QualityMetrics: &QualityMetrics{
					TokenCount:           counter.Count(text),
					CharacterCount:       len(text),
					WordCount:            len(strings.Fields(text)),
					SemanticCompleteness: 1.0,
				},
			})
		}

		for _, frame := range slide.CSld.SpTree.Tables {
			if frame.Table == nil {
				continue
			}
			seq++
			chunks = append(chunks, buildPptxTableChunk(*frame.Table, slideID, seq))
		}

		var slideRels map[string]string
		for _, pic := range slide.CSld.SpTree.Pics {
			seq++
			visual := &VisualExtra{
				Caption:    pic.NvPicPr.CNvPr.Name,
				VisualType: "image",
			}

			if embedID := pic.BlipFill.Blip.Embed; embedID != "" {
				if slideRels == nil {
					slideRels = pptxLoadRelationships(zr, slideNum)
				}
				if name, data, ok := pptxResolveMedia(zr, slideRels, embedID); ok {
					mediaType := filetype.DetectMIME(name, data)
					visual.MediaType = mediaType
					visual.BinaryReference = filetype.HashBytes(data)

					if opts.GenerateImageDescriptions && opts.ImageDescriber != nil && opts.ImageDescriber.Available() {
						desc, err := opts.ImageDescriber.Describe(ctx, data, mediaType, visual.Caption)
						if err != nil {
							warnings = append(warnings, ChunkingWarning{
								Level:   LevelWarning,
								Code:    CodeProviderFailure,
								Message: fmt.Sprintf("slide %d: image description: %v", slideNum, err),
							})
						} else {
							visual.GeneratedDescription = desc.Description
						}
					}
				}
			}

			chunks = append(chunks, &Chunk{
				ID:             chunkid.New(),
				ParentID:       slideID,
				HasParent:      true,
				Category:       CategoryVisual,
				SpecificType:   "image",
				SequenceNumber: seq,
				Visual:         visual,
			})
		}

		if notesFile, ok := notesFiles[slideNum]; ok {
			if notesText, err := pptxNotesText(notesFile); err == nil && strings.TrimSpace(notesText) != "" {
				seq++
				chunks = append(chunks, &Chunk{
					ID:             chunkid.New(),
					ParentID:       slideID,
					HasParent:      true,
					Category:       CategoryContent,
					SpecificType:   "notes",
					SequenceNumber: seq,
					Content: &ContentExtra{
						Text:        notesText,
						SlideNumber: slideNum,
						NotesLength: len(notesText),
					},
					QualityMetrics: &QualityMetrics{
						TokenCount:           counter.Count(notesText),
						CharacterCount:       len(notesText),
						WordCount:            len(strings.Fields(notesText)),
						SemanticCompleteness: 1.0,
					},
				})
			}
		}
	}

	if len(chunks) == 0 {
		warnings = append(warnings, ChunkingWarning{
			Level:   LevelInfo,
			Code:    CodeEmptyDocument,
			Message: "pptx document produced no chunks",
		})
	}
	return chunks, warnings, nil
}

func pptxShapeText(shape pptxShape) string {
	if shape.TxBody == nil {
		return ""
	}
	var paras []string
	for _, p := range shape.TxBody.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			sb.WriteString(r.Text)
		}
		paras = append(paras, sb.String())
	}
	return strings.TrimSpace(strings.Join(paras, "\n"))
}

func pptxNotesText(f *zip.File) (string, error) {
	raw, err := readZipFile(f)
	if err != nil {
		return "", err
	}
	var notes pptxNotesSlideXML
	if err := xml.Unmarshal(raw, &notes); err != nil {
		return "", err
	}
	var lines []string
	for _, shape := range notes.CSld.SpTree.Shapes {
		if text := pptxShapeText(shape); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func buildPptxTableChunk(table pptxTable, parentID chunkid.ID, seq int) *Chunk {
	var headers []string
	var rows [][]string
	for i, row := range table.Rows {
		var cells []string
		for _, cell := range row.Cells {
			var sb strings.Builder
			for _, p := range cell.TxBody.Paragraphs {
				for _, r := range p.Runs {
					sb.WriteString(r.Text)
				}
			}
			cells = append(cells, strings.TrimSpace(sb.String()))
		}
		if i == 0 {
			headers = cells
		} else {
			rows = append(rows, cells)
		}
	}
	serialized := serializeMarkdownTable(headers, rows)
	return &Chunk{
		ID:             chunkid.New(),
		ParentID:       parentID,
		HasParent:      true,
		Category:       CategoryTable,
		SpecificType:   "table",
		SequenceNumber: seq,
		Table: &TableExtra{
			Content:             serialized,
			SerializedTable:     serialized,
			SerializationFormat: SerializationMarkdown,
			Info: TableInfo{
				RowCount:        len(rows),
				ColumnCount:     len(headers),
				Headers:         headers,
				HasHeaderRow:    len(headers) > 0,
				PreferredFormat: SerializationMarkdown,
			},
		},
	}
}

// slideIndexOf extracts the numeric index from a part name of the form
// prefix+N+suffix (e.g. "ppt/slides/slide12.xml" with prefix
// "ppt/slides/slide" and suffix ".xml" yields 12).
func slideIndexOf(name, prefix, suffix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	numStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, false
	}
	return n, true
}
