package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// LibreOfficeConverter rewrites documents into the target format through one
// libreoffice batch invocation. The tool's exit status is unreliable, so
// success is judged per file by whether the converted artifact exists.
// Converted files land in the stage's work directory and the document file
// is relocated onto them; the work directory outlives the stage and is
// cleaned up by the batch owner.
type LibreOfficeConverter struct {
	run     Runner
	workDir string
	target  string
	log     *logrus.Logger
}

// NewLibreOfficeConverter creates a converter to target, for example "docx"
// for legacy word files or "pdf" for slide decks.
func NewLibreOfficeConverter(run Runner, workDir, target string, log *logrus.Logger) *LibreOfficeConverter {
	if run == nil {
		run = RunCommand
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LibreOfficeConverter{run: run, workDir: workDir, target: target, log: log}
}

func (c *LibreOfficeConverter) Name() string { return "libreoffice_converter" }

func (c *LibreOfficeConverter) Mode() batch.Mode { return batch.Processes }

// Process converts a single document; batches go through ProcessBatch.
func (c *LibreOfficeConverter) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	docs := orderedmap.New[string, *doc.Document]()
	docs.Set(key, d)
	ok, errs := c.ProcessBatch(ctx, docs)
	if pe := errs[key]; pe != nil {
		return nil, pe
	}
	out, _ := ok.Get(key)
	return out, nil
}

func (c *LibreOfficeConverter) ProcessBatch(ctx context.Context, docs *orderedmap.OrderedMap[string, *doc.Document]) (*orderedmap.OrderedMap[string, *doc.Document], map[string]*doc.ProcessingError) {
	ok := orderedmap.New[string, *doc.Document]()
	failures := map[string]*doc.ProcessingError{}

	outDir, err := os.MkdirTemp(c.workDir, "convert-")
	if err != nil {
		for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
			failures[pair.Key] = doc.Errorf(doc.KindExternal, c.Name(), "create output dir: %v", err)
		}
		return ok, failures
	}

	type target struct {
		key string
		d   *doc.Document
		src string
	}
	var targets []target
	args := []string{"--headless", "--convert-to", c.target, "--outdir", outDir}
	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		f := pair.Value.File()
		if f == nil {
			failures[pair.Key] = doc.Errorf(doc.KindTypeMismatch, c.Name(), "document %s has no file", pair.Key)
			continue
		}
		src, err := f.Path(c.workDir)
		if err != nil {
			failures[pair.Key] = doc.NewProcessingError(doc.KindInput, c.Name(), err)
			continue
		}
		targets = append(targets, target{key: pair.Key, d: pair.Value, src: src})
		args = append(args, src)
	}

	var stderrTail string
	if len(targets) > 0 {
		_, stderr, err := c.run(ctx, nil, "libreoffice", args...)
		stderrTail = errTail(stderr)
		if err != nil {
			c.log.WithError(err).Warn("libreoffice conversion reported failure")
		}
	}

	for _, tg := range targets {
		base := filepath.Base(tg.src)
		converted := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+"."+c.target)
		if _, err := os.Stat(converted); err != nil {
			failures[tg.key] = doc.Errorf(doc.KindExternal, c.Name(), "no conversion output for %s: %s", base, stderrTail)
			continue
		}
		tg.d.File().Relocate(converted)
		ok.Set(tg.key, tg.d)
	}
	return ok, failures
}
