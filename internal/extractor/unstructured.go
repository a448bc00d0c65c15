package extractor

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// partitionAPI is the service surface UnstructuredExtractor needs.
type partitionAPI interface {
	Partition(ctx context.Context, filename string, data []byte, strategy string) ([]Element, error)
}

// Partitioning strategies.
const (
	StrategyAuto  = "auto"
	StrategyFast  = "fast"
	StrategyHiRes = "hi_res"
)

const defaultMinElementLen = 20

// UnstructuredExtractorOptions configures an UnstructuredExtractor.
type UnstructuredExtractorOptions struct {
	// Strategy for documents with a text layer; scanned documents always
	// use hi_res. Defaults to auto.
	Strategy string

	// MinTextLen drops text elements shorter than this; 20 when zero.
	MinTextLen int

	// Batch bounds worker fan-out for the non-scanned half of a batch.
	Batch batch.Options

	Logger *logrus.Logger
}

// UnstructuredExtractor partitions documents through an unstructured-io
// server. The batch is split by the scanned flag: born-digital files fan out
// across workers, scanned files run one at a time because hi_res layout
// analysis is memory-hungry.
type UnstructuredExtractor struct {
	client     partitionAPI
	strategy   string
	minTextLen int
	opts       batch.Options
	log        *logrus.Logger
}

// NewUnstructuredExtractor creates the stage around a partitioning client.
func NewUnstructuredExtractor(client partitionAPI, opts UnstructuredExtractorOptions) *UnstructuredExtractor {
	e := &UnstructuredExtractor{
		client:     client,
		strategy:   opts.Strategy,
		minTextLen: opts.MinTextLen,
		opts:       opts.Batch,
		log:        opts.Logger,
	}
	if e.strategy == "" {
		e.strategy = StrategyAuto
	}
	if e.minTextLen <= 0 {
		e.minTextLen = defaultMinElementLen
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *UnstructuredExtractor) Name() string { return "unstructured_extractor" }

func (e *UnstructuredExtractor) Mode() batch.Mode { return batch.Threads }

// Process partitions a single document with the configured strategy.
func (e *UnstructuredExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	strategy := e.strategy
	if isScanned(d) {
		strategy = StrategyHiRes
	}
	return e.processOne(ctx, key, d, strategy)
}

// ProcessBatch splits the batch by the scanned flag and partitions each half
// with the right strategy and scheduling.
func (e *UnstructuredExtractor) ProcessBatch(ctx context.Context, docs *orderedmap.OrderedMap[string, *doc.Document]) (*orderedmap.OrderedMap[string, *doc.Document], map[string]*doc.ProcessingError) {
	native := orderedmap.New[string, *doc.Document]()
	scanned := orderedmap.New[string, *doc.Document]()
	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		if isScanned(pair.Value) {
			scanned.Set(pair.Key, pair.Value)
		} else {
			native.Set(pair.Key, pair.Value)
		}
	}
	e.log.WithFields(logrus.Fields{
		"native":  native.Len(),
		"scanned": scanned.Len(),
	}).Info("partitioning batch")

	nativeOK, failures := batch.Run(ctx, batch.Threads, native, e.opts, func(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
		return e.processOne(ctx, key, d, e.strategy)
	})
	scannedOK, scannedErrs := batch.Run(ctx, batch.Serial, scanned, e.opts, func(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
		return e.processOne(ctx, key, d, StrategyHiRes)
	})
	for k, pe := range scannedErrs {
		failures[k] = pe
	}

	// Reassemble in the batch's insertion order.
	ok := orderedmap.New[string, *doc.Document]()
	for pair := docs.Oldest(); pair != nil; pair = pair.Next() {
		if d, found := nativeOK.Get(pair.Key); found {
			ok.Set(pair.Key, d)
		} else if d, found := scannedOK.Get(pair.Key); found {
			ok.Set(pair.Key, d)
		}
	}
	return ok, failures
}

func (e *UnstructuredExtractor) processOne(ctx context.Context, key string, d *doc.Document, strategy string) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	elements, err := e.client.Partition(ctx, f.Name(), data, strategy)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		e.appendElement(d, el)
	}
	return d, nil
}

// appendElement maps one layout element onto a chunk. Tables keep their HTML
// rendition as non-embeddable content; text fragments below the length floor
// are noise and are dropped.
func (e *UnstructuredExtractor) appendElement(d *doc.Document, el Element) {
	switch el.Type {
	case "Table":
		ch := doc.Chunk{
			Type:                 doc.ChunkTable,
			Locked:               true,
			NonEmbeddableContent: []byte(el.Metadata.TextAsHTML),
		}
		setElementPlacement(&ch, el)
		d.Chunks = append(d.Chunks, ch)
	case "NarrativeText", "Text":
		if utf8.RuneCountInString(el.Text) < e.minTextLen {
			return
		}
		ch := doc.Chunk{Text: el.Text, Type: doc.ChunkText}
		setElementPlacement(&ch, el)
		d.Chunks = append(d.Chunks, ch)
	}
}

// setElementPlacement fills page and normalized coordinates. The service
// reports polygon points top-left origin in layout pixels; the stored box is
// bottom-left origin in the unit square.
func setElementPlacement(ch *doc.Chunk, el Element) {
	if el.Metadata.PageNumber > 0 {
		page := el.Metadata.PageNumber
		ch.Page = &page
	}
	co := el.Metadata.Coordinates
	if co == nil || len(co.Points) == 0 || co.LayoutWidth <= 0 || co.LayoutHeight <= 0 {
		return
	}

	first := true
	var xmin, xmax, ymin, ymax float64
	for _, p := range co.Points {
		if len(p) < 2 {
			continue
		}
		x := p[0] / co.LayoutWidth
		y := p[1] / co.LayoutHeight
		if first {
			xmin, xmax, ymin, ymax = x, x, y, y
			first = false
			continue
		}
		xmin = math.Min(xmin, x)
		xmax = math.Max(xmax, x)
		ymin = math.Min(ymin, y)
		ymax = math.Max(ymax, y)
	}
	if first {
		return
	}
	ch.Coordinates = doc.NewCoordinates(xmin, 1-ymax, xmax, 1-ymin)
}

// isScanned reads the scanned flag, false when undetermined.
func isScanned(d *doc.Document) bool {
	s := d.MetaInfo.FileFeatures.IsScanned
	return s != nil && *s
}
