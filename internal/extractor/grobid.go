package extractor

import (
	"context"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// grobidAPI is the service surface GrobidExtractor needs.
type grobidAPI interface {
	ProcessFulltext(ctx context.Context, filename string, data []byte) (*TEIDocument, error)
}

const defaultAnalysisPages = 30

// GrobidExtractorOptions configures a GrobidExtractor.
type GrobidExtractorOptions struct {
	// ExtractMeta copies title, authors, DOI, date, and abstract from the
	// analysis onto the document.
	ExtractMeta bool

	// MaxPages truncates longer documents before submission; 30 when zero.
	MaxPages int

	// Run launches qpdf for the truncation; RunCommand when nil.
	Run Runner

	// WorkDir hosts truncated copies.
	WorkDir string

	Logger *logrus.Logger
}

// GrobidExtractor runs structure-aware PDF analysis: section headings,
// sentence-level text units, and layout boxes normalized to the unit square.
type GrobidExtractor struct {
	client      grobidAPI
	extractMeta bool
	maxPages    int
	run         Runner
	workDir     string
	log         *logrus.Logger
}

// NewGrobidExtractor creates the stage around a GROBID client.
func NewGrobidExtractor(client grobidAPI, opts GrobidExtractorOptions) *GrobidExtractor {
	e := &GrobidExtractor{
		client:      client,
		extractMeta: opts.ExtractMeta,
		maxPages:    opts.MaxPages,
		run:         opts.Run,
		workDir:     opts.WorkDir,
		log:         opts.Logger,
	}
	if e.maxPages <= 0 {
		e.maxPages = defaultAnalysisPages
	}
	if e.run == nil {
		e.run = RunCommand
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *GrobidExtractor) Name() string { return "grobid_extractor" }

func (e *GrobidExtractor) Mode() batch.Mode { return batch.Threads }

func (e *GrobidExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}

	data, err := e.payload(ctx, d)
	if err != nil {
		return nil, err
	}
	res, err := e.client.ProcessFulltext(ctx, f.Name(), data)
	if err != nil {
		return nil, err
	}

	if e.extractMeta {
		applyTEIMetadata(d, res)
	}
	appendTEIChunks(d, res)
	return d, nil
}

// payload returns the bytes to submit, truncating documents over the page
// cap first.
func (e *GrobidExtractor) payload(ctx context.Context, d *doc.Document) ([]byte, error) {
	f := d.File()
	npages := d.MetaInfo.FileFeatures.NPages
	if npages == nil || *npages <= e.maxPages {
		data, err := f.Bytes()
		if err != nil {
			return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
		}
		return data, nil
	}
	e.log.WithFields(logrus.Fields{"file": f.Name(), "pages": *npages}).
		Info("truncating before structure analysis")
	return truncatePDF(ctx, e.run, e.workDir, f, e.maxPages)
}

func applyTEIMetadata(d *doc.Document, res *TEIDocument) {
	m := &d.MetaInfo
	m.DOI = res.DOI
	m.Title = res.Title
	m.Authors = res.Authors
	m.PubDate = res.PubDate
	m.Abstract = res.Abstract
}

// appendTEIChunks turns each sentence unit into a TEXT chunk. The chunk page
// is the unit's dominant page; boxes on other pages are dropped and the rest
// merge into one normalized bounding box.
func appendTEIChunks(d *doc.Document, res *TEIDocument) {
	for _, sec := range res.Sections {
		for _, unit := range sec.Units {
			text := strings.TrimSpace(unit.Text)
			if text == "" {
				continue
			}
			ch := doc.Chunk{Text: text, Section: sec.Heading, Type: doc.ChunkText}
			if page, ok := dominantPage(unit.Coords); ok {
				p := page
				ch.Page = &p
				if box, ok := normalizedBox(unit.Coords, page, res.Pages); ok {
					ch.Coordinates = box
				}
			}
			d.Chunks = append(d.Chunks, ch)
		}
	}
}

// dominantPage returns the page carrying most of the unit's boxes, lowest
// page number on ties.
func dominantPage(coords []TEICoord) (int, bool) {
	if len(coords) == 0 {
		return 0, false
	}
	counts := map[int]int{}
	for _, c := range coords {
		counts[c.Page]++
	}
	best, bestCount := 0, 0
	for page, n := range counts {
		if n > bestCount || (n == bestCount && page < best) {
			best, bestCount = page, n
		}
	}
	return best, true
}

// normalizedBox merges the unit's boxes on page into one rectangle in the
// unit square. The service measures y from the top of the surface; the
// stored box is bottom-left origin.
func normalizedBox(coords []TEICoord, page int, pages map[int]TEIPage) (doc.Coordinates, bool) {
	surface, ok := pages[page]
	if !ok {
		return nil, false
	}
	width := surface.LRX - surface.ULX
	height := surface.LRY - surface.ULY
	if width <= 0 || height <= 0 {
		return nil, false
	}

	first := true
	var xmin, ymin, xmax, ymax float64
	for _, c := range coords {
		if c.Page != page {
			continue
		}
		x2, y2 := c.X+c.W, c.Y+c.H
		if first {
			xmin, ymin, xmax, ymax = c.X, c.Y, x2, y2
			first = false
			continue
		}
		xmin = math.Min(xmin, c.X)
		ymin = math.Min(ymin, c.Y)
		xmax = math.Max(xmax, x2)
		ymax = math.Max(ymax, y2)
	}
	if first {
		return nil, false
	}

	return doc.NewCoordinates(
		(xmin-surface.ULX)/width,
		1-(ymax-surface.ULY)/height,
		(xmax-surface.ULX)/width,
		1-(ymin-surface.ULY)/height,
	), true
}
