// Package ferret wires configuration, service clients, and the extraction
// pipelines into one entry point. A Ferret routes a batch of input files to
// per-extension pipelines and returns one document per input, in input
// order, with failures isolated per file.
package ferret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/extractor"
	"github.com/dusk-indust/pdferret/internal/llm"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// InFile is one input to ExtractBatch. Contents come from Data or from a
// path on disk; Data wins when both are set. The filename routes the file to
// a pipeline, so anonymous streams without one cannot be processed.
type InFile struct {
	// Filename is the display name and routing key. Path-backed inputs
	// default to the path basename; inputs with neither get a generated
	// key and fail routing.
	Filename string

	Data []byte
	Path string

	// Language overrides the batch default language for this file.
	Language string

	// ExtraMetainfo is copied into the document's extra metadata.
	ExtraMetainfo map[string]string
}

// Option configures a Ferret.
type Option func(*Ferret)

// WithLogger replaces the standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(f *Ferret) { f.log = log }
}

// WithRunner replaces the subprocess runner used by every tool-shaped stage.
func WithRunner(run extractor.Runner) Option {
	return func(f *Ferret) { f.run = run }
}

// WithTikaClient replaces the Tika client built from config.
func WithTikaClient(c *extractor.TikaClient) Option {
	return func(f *Ferret) { f.tika = c }
}

// WithGrobidClient replaces the GROBID client built from config.
func WithGrobidClient(c *extractor.GrobidClient) Option {
	return func(f *Ferret) { f.grobid = c }
}

// WithUnstructuredClient replaces the unstructured-io client built from
// config.
func WithUnstructuredClient(c *extractor.UnstructuredClient) Option {
	return func(f *Ferret) { f.unstructured = c }
}

// WithTextClient fixes the text model client instead of dialing one per
// call.
func WithTextClient(c llm.Client) Option {
	return func(f *Ferret) { f.textClient = c }
}

// WithVisionClient fixes the vision model client instead of dialing one per
// call.
func WithVisionClient(c llm.Client) Option {
	return func(f *Ferret) { f.visionClient = c }
}

// CallOption adjusts a single ExtractBatch call. Empty values keep the
// configured defaults.
type CallOption func(*callParams)

type callParams struct {
	textModel   string
	visionModel string
	engine      string
}

// WithTextModel selects the text model for this call.
func WithTextModel(name string) CallOption {
	return func(p *callParams) {
		if name != "" {
			p.textModel = name
		}
	}
}

// WithVisionModel selects the vision model for this call.
func WithVisionModel(name string) CallOption {
	return func(p *callParams) {
		if name != "" {
			p.visionModel = name
		}
	}
}

// WithEngine selects the PDF engine for this call.
func WithEngine(name string) CallOption {
	return func(p *callParams) {
		if name != "" {
			p.engine = name
		}
	}
}

// Ferret dispatches batches of files to per-extension pipelines.
type Ferret struct {
	cfg config.Config
	log *logrus.Logger
	run extractor.Runner

	tika         *extractor.TikaClient
	grobid       *extractor.GrobidClient
	unstructured *extractor.UnstructuredClient

	textClient   llm.Client
	visionClient llm.Client

	speller *textutil.Speller
	ocr     extractor.OCRStrategy
}

// New validates the configuration and prepares the service clients. Model
// clients are dialed per call so per-request model names take effect.
func New(cfg config.Config, opts ...Option) (*Ferret, error) {
	f := &Ferret{cfg: cfg, log: logrus.StandardLogger(), run: extractor.RunCommand}
	for _, opt := range opts {
		opt(f)
	}

	ocr, err := extractor.ParseOCRStrategy(cfg.TikaOCRStrategy)
	if err != nil {
		return nil, fmt.Errorf("ferret: %w", err)
	}
	f.ocr = ocr
	if err := validEngine(cfg.PDFEngine); err != nil {
		return nil, err
	}

	if f.tika == nil {
		f.tika = extractor.NewTikaClient(cfg.TikaServerURL)
	}
	if f.grobid == nil {
		f.grobid = extractor.NewGrobidClient(cfg.GrobidURL)
	}
	if f.unstructured == nil {
		f.unstructured = extractor.NewUnstructuredClient(cfg.UnstructuredURL)
	}

	f.speller = textutil.NewSpeller()
	if cfg.DictDir != "" {
		if err := f.speller.LoadDictionaries(cfg.DictDir); err != nil {
			f.log.WithError(err).WithField("dir", cfg.DictDir).Warn("spell dictionaries not loaded")
		}
	}
	return f, nil
}

func validEngine(engine string) error {
	switch engine {
	case config.EngineTika, config.EngineGrobid, config.EngineUnstructured:
		return nil
	}
	return fmt.Errorf("ferret: unknown pdf engine %q", engine)
}

// ExtractBatch runs every input through the pipeline its extension maps to.
// The returned documents match the inputs in count and order; an input that
// fails contributes a stub document plus an entry in the error slice. The
// call itself errors only on invalid parameters, duplicate filenames, or a
// missing scratch directory.
func (f *Ferret) ExtractBatch(ctx context.Context, files []InFile, defaultLang string, opts ...CallOption) ([]*doc.Document, []*doc.ProcessingError, error) {
	params := callParams{
		textModel:   f.cfg.TextModel,
		visionModel: f.cfg.VisionModel,
		engine:      f.cfg.PDFEngine,
	}
	for _, opt := range opts {
		opt(&params)
	}
	if err := validEngine(params.engine); err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(files))
	seen := make(map[string]struct{}, len(files))
	for i, in := range files {
		key := keyFor(in)
		if _, dup := seen[key]; dup {
			return nil, nil, fmt.Errorf("ferret: input %q: %w", key, doc.ErrDuplicateInput)
		}
		seen[key] = struct{}{}
		keys[i] = key
	}

	workDir, err := os.MkdirTemp("", "pdferret-")
	if err != nil {
		return nil, nil, fmt.Errorf("ferret: scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	reg, err := f.buildRegistry(ctx, workDir, params)
	if err != nil {
		return nil, nil, err
	}

	groups := map[string]*orderedmap.OrderedMap[string, *doc.Document]{}
	results := make(map[string]*doc.Document, len(files))
	failures := make(map[string]*doc.ProcessingError)

	for i, in := range files {
		key := keys[i]
		ext := extOfKey(key)
		if _, found := reg.Lookup(ext); !found {
			pe := doc.NewProcessingError(doc.KindInput, "", fmt.Errorf("%s: %w", key, doc.ErrNoPipeline))
			pe.File = key
			failures[key] = pe
			continue
		}
		d, err := seed(key, in, defaultLang)
		if err != nil {
			failures[key] = doc.Promote(err, "", key)
			continue
		}
		g := groups[ext]
		if g == nil {
			g = orderedmap.New[string, *doc.Document]()
			groups[ext] = g
		}
		g.Set(key, d)
	}

	bopts := batch.Options{Workers: f.cfg.NProc, BatchSize: f.cfg.BatchSize}
	for ext, g := range groups {
		p, _ := reg.Lookup(ext)
		ok, errs := p.Run(ctx, g, bopts)
		for pair := ok.Oldest(); pair != nil; pair = pair.Next() {
			results[pair.Key] = pair.Value
		}
		for key, pe := range errs {
			failures[key] = pe
		}
	}

	docs := make([]*doc.Document, len(files))
	var errs []*doc.ProcessingError
	for i, key := range keys {
		if d, found := results[key]; found {
			docs[i] = d
			continue
		}
		docs[i] = doc.NewDocument(key, nil)
		pe := failures[key]
		if pe == nil {
			pe = doc.Errorf(doc.KindExternal, "", "no result for %s", key)
		}
		if pe.File == "" {
			pe.File = key
		}
		errs = append(errs, pe)
	}
	return docs, errs, nil
}

func keyFor(in InFile) string {
	if in.Filename != "" {
		return in.Filename
	}
	if in.Path != "" {
		return filepath.Base(in.Path)
	}
	return uuid.NewString()
}

func extOfKey(key string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(key)), ".")
}

// seed builds the document a pipeline starts from.
func seed(key string, in InFile, defaultLang string) (*doc.Document, error) {
	var file *doc.File
	switch {
	case in.Data != nil:
		file = doc.NewFileFromBytes(key, in.Data)
	case in.Path != "":
		file = doc.NewFileFromPath(in.Path)
	default:
		return nil, doc.Errorf(doc.KindInput, "", "input %s has no content", key)
	}
	d := doc.NewDocument(key, file)
	lang := in.Language
	if lang == "" {
		lang = defaultLang
	}
	d.MetaInfo.Language = lang
	for k, v := range in.ExtraMetainfo {
		d.MetaInfo.SetExtra(k, v)
	}
	return d, nil
}
