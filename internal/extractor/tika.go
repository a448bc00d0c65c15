package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// tikaAPI is the service surface TikaExtractor needs. *TikaClient implements
// it; tests substitute a stub.
type tikaAPI interface {
	Parse(ctx context.Context, filename string, data []byte, strategy OCRStrategy) (string, error)
	Meta(ctx context.Context, filename string, data []byte) (map[string]any, error)
	Unpack(ctx context.Context, filename string, data []byte) ([]Attachment, error)
}

// MarkdownConverter turns service HTML into markdown.
type MarkdownConverter func(ctx context.Context, html string) (string, error)

// NewPandocConverter returns a MarkdownConverter that pipes the HTML through
// pandoc. A nil run means RunCommand.
func NewPandocConverter(run Runner) MarkdownConverter {
	if run == nil {
		run = RunCommand
	}
	return func(ctx context.Context, html string) (string, error) {
		out, _, err := run(ctx, []byte(html), "pandoc", "-f", "html", "-t", "markdown")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

const defaultTikaLines = 15

// TikaExtractorOptions configures a TikaExtractor.
type TikaExtractorOptions struct {
	// OCRStrategy is forwarded to the service.
	OCRStrategy OCRStrategy

	// SaveRawMetadata stores the full metadata map as JSON under the
	// pdf_metadata extra key.
	SaveRawMetadata bool

	// LinesPerChunk sets the text chunk size; 15 when zero.
	LinesPerChunk int

	// Convert renders the service HTML as markdown; pandoc when nil.
	Convert MarkdownConverter

	Logger *logrus.Logger
}

// TikaExtractor extracts text, figures, and descriptive metadata through a
// Tika server. The HTML rendition is converted to markdown and grouped into
// TEXT chunks; embedded images come back as locked FIGURE chunks.
type TikaExtractor struct {
	client        tikaAPI
	convert       MarkdownConverter
	ocr           OCRStrategy
	saveRaw       bool
	linesPerChunk int
	log           *logrus.Logger
}

// NewTikaExtractor creates the stage around a Tika client.
func NewTikaExtractor(client tikaAPI, opts TikaExtractorOptions) *TikaExtractor {
	e := &TikaExtractor{
		client:        client,
		convert:       opts.Convert,
		ocr:           opts.OCRStrategy,
		saveRaw:       opts.SaveRawMetadata,
		linesPerChunk: opts.LinesPerChunk,
		log:           opts.Logger,
	}
	if e.convert == nil {
		e.convert = NewPandocConverter(nil)
	}
	if e.linesPerChunk <= 0 {
		e.linesPerChunk = defaultTikaLines
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *TikaExtractor) Name() string { return "tika_extractor" }

func (e *TikaExtractor) Mode() batch.Mode { return batch.Threads }

func (e *TikaExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}

	html, err := e.client.Parse(ctx, f.Name(), data, e.ocr)
	if err != nil {
		return nil, err
	}

	meta, err := e.client.Meta(ctx, f.Name(), data)
	if err != nil {
		// A missing metadata record degrades the document; it does not
		// fail it.
		e.log.WithError(err).WithField("file", key).Warn("tika metadata fetch failed")
	}
	if meta != nil {
		e.applyMetadata(d, meta)
	}

	markdown, err := e.convert(ctx, html)
	if err != nil {
		return nil, err
	}
	for _, block := range textutil.SplitLines(markdown, e.linesPerChunk, textutil.KeepContentLines) {
		d.Chunks = append(d.Chunks, doc.Chunk{Text: block, Type: doc.ChunkText})
	}

	atts, err := e.client.Unpack(ctx, f.Name(), data)
	if err != nil {
		return nil, err
	}
	for _, att := range atts {
		if !IsImageAttachment(att.Name) {
			continue
		}
		d.Chunks = append(d.Chunks, doc.Chunk{
			Type:                 doc.ChunkFigure,
			Locked:               true,
			NonEmbeddableContent: att.Data,
		})
	}
	return d, nil
}

// Descriptive metadata tags in preference order.
var (
	titleTags   = []string{"dc:title", "pdf:docinfo:title"}
	authorTags  = []string{"dc:creator", "pdf:docinfo:creator"}
	pubDateTags = []string{
		"xmp:CreateDate", "xmpMM:History:When", "xmp:MetadataDate",
		"dcterms:created", "pdf:docinfo:created",
	}
)

var doiRe = regexp.MustCompile(`\b10\.\d{4,9}/[-.;()/:\w]+`)

// applyMetadata maps raw service metadata onto the document, filling only
// fields that are still empty.
func (e *TikaExtractor) applyMetadata(d *doc.Document, meta map[string]any) {
	m := &d.MetaInfo

	raw, err := sonic.MarshalString(meta)
	if err != nil {
		raw = ""
	}
	if e.saveRaw && raw != "" {
		m.SetExtra("pdf_metadata", raw)
	}

	if m.Title == "" {
		m.Title = metaString(meta, titleTags...)
	}
	if len(m.Authors) == 0 {
		m.Authors = metaStrings(meta, authorTags...)
	}
	if m.PubDate == "" {
		m.PubDate = metaString(meta, pubDateTags...)
	}
	if m.DOI == "" && raw != "" {
		m.DOI = doiRe.FindString(raw)
	}
}

// metaString returns the first non-empty string under keys. List values
// yield their first string element.
func metaString(meta map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := meta[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// metaStrings returns the values under the first matching key as a list.
// Scalar strings split on the ";" convention used by author fields.
func metaStrings(meta map[string]any, keys ...string) []string {
	for _, k := range keys {
		var out []string
		switch v := meta[k].(type) {
		case string:
			for _, part := range strings.Split(v, ";") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}
