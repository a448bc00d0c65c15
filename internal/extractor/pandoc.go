package extractor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

const defaultPandocLines = 12

// PandocExtractorOptions configures a PandocExtractor.
type PandocExtractorOptions struct {
	// LinesPerChunk sets the text chunk size; 12 when zero.
	LinesPerChunk int

	// Run launches pandoc; RunCommand when nil.
	Run Runner

	// WorkDir hosts extracted media.
	WorkDir string

	Logger *logrus.Logger
}

// PandocExtractor renders a document as markdown with pandoc. Body lines are
// grouped into TEXT chunks; images referenced by the markdown are extracted
// and kept as locked FIGURE chunks.
type PandocExtractor struct {
	linesPerChunk int
	run           Runner
	workDir       string
	log           *logrus.Logger
}

// NewPandocExtractor creates the stage.
func NewPandocExtractor(opts PandocExtractorOptions) *PandocExtractor {
	e := &PandocExtractor{
		linesPerChunk: opts.LinesPerChunk,
		run:           opts.Run,
		workDir:       opts.WorkDir,
		log:           opts.Logger,
	}
	if e.linesPerChunk <= 0 {
		e.linesPerChunk = defaultPandocLines
	}
	if e.run == nil {
		e.run = RunCommand
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *PandocExtractor) Name() string { return "pandoc_extractor" }

func (e *PandocExtractor) Mode() batch.Mode { return batch.Threads }

func (e *PandocExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	src, err := f.Path(e.workDir)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	mediaDir, err := os.MkdirTemp(e.workDir, "media-")
	if err != nil {
		return nil, fmt.Errorf("extractor: mkdir under %s: %w", e.workDir, err)
	}
	defer os.RemoveAll(mediaDir)

	out, _, err := e.run(ctx, nil,
		"pandoc", "--columns=130", "--extract-media="+mediaDir, "-t", "markdown", src)
	if err != nil {
		return nil, err
	}
	for _, block := range textutil.SplitLines(string(out), e.linesPerChunk, textutil.KeepContentLines) {
		d.Chunks = append(d.Chunks, doc.Chunk{Text: block, Type: doc.ChunkText})
	}
	if err := appendMediaFigures(d, mediaDir); err != nil {
		return nil, err
	}
	return d, nil
}

// appendMediaFigures loads every extracted media file as a locked figure.
func appendMediaFigures(d *doc.Document, mediaDir string) error {
	return filepath.WalkDir(mediaDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("extractor: read media %s: %w", filepath.Base(path), err)
		}
		d.Chunks = append(d.Chunks, doc.Chunk{
			Type:                 doc.ChunkFigure,
			Locked:               true,
			NonEmbeddableContent: data,
		})
		return nil
	})
}
