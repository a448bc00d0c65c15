package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/llm"
)

const (
	defaultVisualPages = 3
	renderDPI          = 100

	visualTemperature = 0.2
	visualMaxTokens   = 1000
)

// VisualExtractorOptions configures a VisualExtractor.
type VisualExtractorOptions struct {
	// MaxPages caps how many leading pages are described; 3 when zero.
	MaxPages int

	// UpdateThumbnail stores the first rendered page as the document
	// thumbnail.
	UpdateThumbnail bool

	// Run launches pdftoppm; RunCommand when nil.
	Run Runner

	// WorkDir hosts the rendered pages.
	WorkDir string

	Logger *logrus.Logger
}

// VisualExtractor renders the leading pages of a PDF and asks a vision model
// to describe each one. Every described page becomes a VISUAL_PAGE chunk
// carrying the page image; the first render can double as the thumbnail.
type VisualExtractor struct {
	client          llm.Client
	maxPages        int
	updateThumbnail bool
	run             Runner
	workDir         string
	log             *logrus.Logger
}

// NewVisualExtractor creates the stage around a vision-capable model client.
func NewVisualExtractor(client llm.Client, opts VisualExtractorOptions) *VisualExtractor {
	e := &VisualExtractor{
		client:          client,
		maxPages:        opts.MaxPages,
		updateThumbnail: opts.UpdateThumbnail,
		run:             opts.Run,
		workDir:         opts.WorkDir,
		log:             opts.Logger,
	}
	if e.maxPages <= 0 {
		e.maxPages = defaultVisualPages
	}
	if e.run == nil {
		e.run = RunCommand
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *VisualExtractor) Name() string { return "visual_extractor" }

func (e *VisualExtractor) Mode() batch.Mode { return batch.Threads }

func (e *VisualExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	pages, err := e.renderPages(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, doc.Errorf(doc.KindExternal, e.Name(), "no pages rendered for %s", key)
	}
	if e.updateThumbnail {
		d.MetaInfo.Thumbnail = pages[0]
	}

	prompt := llm.SystemPrompt(llm.PurposeVision, d.MetaInfo.Language)
	for i, img := range pages {
		resp, err := e.client.Complete(ctx, llm.Request{
			User:        prompt,
			Images:      [][]byte{img},
			Temperature: visualTemperature,
			MaxTokens:   visualMaxTokens,
		})
		if err != nil {
			return nil, err
		}
		resp = strings.TrimSpace(resp)
		if resp == "" {
			continue
		}
		page := i + 1
		d.Chunks = append(d.Chunks, doc.Chunk{
			Page:                 &page,
			Text:                 resp,
			Type:                 doc.ChunkVisualPage,
			NonEmbeddableContent: img,
		})
	}
	return d, nil
}

// renderPages rasterizes the first maxPages pages to PNG, in page order.
func (e *VisualExtractor) renderPages(ctx context.Context, f *doc.File) ([][]byte, error) {
	src, err := f.Path(e.workDir)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	dir, err := os.MkdirTemp(e.workDir, "pages-")
	if err != nil {
		return nil, fmt.Errorf("extractor: mkdir under %s: %w", e.workDir, err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	_, _, err = e.run(ctx, nil,
		"pdftoppm", "-png", "-r", strconv.Itoa(renderDPI),
		"-f", "1", "-l", strconv.Itoa(e.maxPages), src, prefix)
	if err != nil {
		return nil, err
	}
	return readRenderedPages(dir)
}

// readRenderedPages loads pdftoppm output in numeric page order; lexical
// order misleads once page numbers reach two digits.
func readRenderedPages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("extractor: list rendered pages: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".png") {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ni, nj := pageIndex(names[i]), pageIndex(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})

	pages := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("extractor: read rendered page: %w", err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}

// pageIndex pulls the trailing page number out of a pdftoppm output name
// like page-07.png.
func pageIndex(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return 0
	}
	return n
}
