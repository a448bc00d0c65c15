package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// Thumbnailer renders a small preview for each document: PDFs through
// pdftoppm, office formats through one libreoffice batch conversion.
// Previews are cosmetic, so the stage records no failures; files it cannot
// render keep an empty thumbnail.
type Thumbnailer struct {
	run     Runner
	workDir string
	log     *logrus.Logger
}

// NewThumbnailer creates the stage. A nil run means RunCommand.
func NewThumbnailer(run Runner, workDir string, log *logrus.Logger) *Thumbnailer {
	if run == nil {
		run = RunCommand
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Thumbnailer{run: run, workDir: workDir, log: log}
}

func (t *Thumbnailer) Name() string { return "thumbnailer" }

func (t *Thumbnailer) Mode() batch.Mode { return batch.Processes }

// Process renders a single document; batches go through ProcessBatch.
func (t *Thumbnailer) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	docs := orderedmap.New[string, *doc.Document]()
	docs.Set(key, d)
	ok, _ := t.ProcessBatch(ctx, docs)
	out, _ := ok.Get(key)
	return out, nil
}

func (t *Thumbnailer) ProcessBatch(ctx context.Context, docs *orderedmap.OrderedMap[string, *doc.Document]) (*orderedmap.OrderedMap[string, *doc.Document], map[string]*doc.ProcessingError) {
	var office []*doc.Document
	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		d := pair.Value
		f := d.File()
		if f == nil {
			continue
		}
		if f.Ext() == "pdf" {
			t.renderPDF(ctx, d)
		} else {
			office = append(office, d)
		}
	}
	if len(office) > 0 {
		t.renderOffice(ctx, office)
	}
	return docs, nil
}

// renderPDF rasterizes page one.
func (t *Thumbnailer) renderPDF(ctx context.Context, d *doc.Document) {
	f := d.File()
	src, err := f.Path(t.workDir)
	if err != nil {
		t.log.WithError(err).WithField("file", f.Name()).Warn("thumbnail skipped")
		return
	}
	dir, err := os.MkdirTemp(t.workDir, "thumb-")
	if err != nil {
		t.log.WithError(err).Warn("thumbnail skipped")
		return
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "thumb")
	if _, _, err := t.run(ctx, nil,
		"pdftoppm", "-png", "-r", strconv.Itoa(renderDPI),
		"-f", "1", "-l", "1", src, prefix); err != nil {
		t.log.WithError(err).WithField("file", f.Name()).Warn("thumbnail skipped")
		return
	}
	pages, err := readRenderedPages(dir)
	if err != nil || len(pages) == 0 {
		t.log.WithField("file", f.Name()).Warn("thumbnail skipped")
		return
	}
	d.MetaInfo.Thumbnail = pages[0]
}

// renderOffice converts the documents to PNG in one libreoffice invocation
// and collects whatever came out.
func (t *Thumbnailer) renderOffice(ctx context.Context, docs []*doc.Document) {
	dir, err := os.MkdirTemp(t.workDir, "thumbs-")
	if err != nil {
		t.log.WithError(err).Warn("thumbnails skipped")
		return
	}
	defer os.RemoveAll(dir)

	type target struct {
		d   *doc.Document
		src string
	}
	var targets []target
	args := []string{"--headless", "--convert-to", "png", "--outdir", dir}
	for _, d := range docs {
		src, err := d.File().Path(t.workDir)
		if err != nil {
			t.log.WithError(err).WithField("file", d.Filename()).Warn("thumbnail skipped")
			continue
		}
		targets = append(targets, target{d: d, src: src})
		args = append(args, src)
	}
	if len(targets) == 0 {
		return
	}
	if _, _, err := t.run(ctx, nil, "libreoffice", args...); err != nil {
		t.log.WithError(err).Warn("thumbnails skipped")
		return
	}

	for _, tg := range targets {
		base := filepath.Base(tg.src)
		name := strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		tg.d.MetaInfo.Thumbnail = data
	}
}
