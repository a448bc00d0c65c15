package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dslipak/pdf"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

const (
	defaultProbePages    = 3
	defaultProbeMinChars = 50
)

// FileInfoExtractorOptions configures a FileInfoExtractor.
type FileInfoExtractorOptions struct {
	// MaxPages caps the pages kept when a file must be rewritten by OCR;
	// 30 when zero.
	MaxPages int

	// ProbePages and ProbeMinChars control the text-layer probe: fewer
	// than ProbeMinChars characters across the first ProbePages pages
	// sends the file through OCR.
	ProbePages    int
	ProbeMinChars int

	// Run launches qpdf and ocrmypdf; RunCommand when nil.
	Run Runner

	// WorkDir hosts OCR scratch files.
	WorkDir string

	Logger *logrus.Logger
}

// FileInfoExtractor inspects a PDF ahead of the content stages: page count,
// scanned-or-born-digital classification, language, and an OCR rewrite for
// files whose text layer is missing.
type FileInfoExtractor struct {
	maxPages      int
	probePages    int
	probeMinChars int
	run           Runner
	workDir       string
	log           *logrus.Logger
}

// NewFileInfoExtractor creates the stage.
func NewFileInfoExtractor(opts FileInfoExtractorOptions) *FileInfoExtractor {
	e := &FileInfoExtractor{
		maxPages:      opts.MaxPages,
		probePages:    opts.ProbePages,
		probeMinChars: opts.ProbeMinChars,
		run:           opts.Run,
		workDir:       opts.WorkDir,
		log:           opts.Logger,
	}
	if e.maxPages <= 0 {
		e.maxPages = defaultAnalysisPages
	}
	if e.probePages <= 0 {
		e.probePages = defaultProbePages
	}
	if e.probeMinChars <= 0 {
		e.probeMinChars = defaultProbeMinChars
	}
	if e.run == nil {
		e.run = RunCommand
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *FileInfoExtractor) Name() string { return "file_info" }

func (e *FileInfoExtractor) Mode() batch.Mode { return batch.Processes }

func (e *FileInfoExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}

	reader, err := openPDF(data)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindParse, e.Name(), err)
	}
	npages := reader.NumPage()
	d.MetaInfo.FileFeatures.NPages = &npages
	scanned := isScannedPDF(reader)
	d.MetaInfo.FileFeatures.IsScanned = &scanned

	probe := probeText(reader, e.probePages)
	if utf8.RuneCountInString(strings.TrimSpace(probe)) < e.probeMinChars {
		data, err = e.recoverTextLayer(ctx, f, npages)
		if err != nil {
			return nil, err
		}
		f.Replace(data)
		if reader, err = openPDF(data); err != nil {
			return nil, doc.NewProcessingError(doc.KindParse, e.Name(), fmt.Errorf("reopen after OCR: %w", err))
		}
		probe = probeText(reader, e.probePages)
	}

	lang := textutil.DetectLanguage(probe)
	d.MetaInfo.DetectedLanguage = lang
	if d.MetaInfo.Language == "" {
		d.MetaInfo.Language = lang
	}
	return d, nil
}

// recoverTextLayer reruns OCR over the file, truncating oversized documents
// first so the rewrite stays bounded.
func (e *FileInfoExtractor) recoverTextLayer(ctx context.Context, f *doc.File, npages int) ([]byte, error) {
	if npages > e.maxPages {
		truncated, err := truncatePDF(ctx, e.run, e.workDir, f, e.maxPages)
		if err != nil {
			return nil, err
		}
		f.Replace(truncated)
	}
	src, err := f.Path(e.workDir)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	dir, err := os.MkdirTemp(e.workDir, "ocr-")
	if err != nil {
		return nil, fmt.Errorf("extractor: mkdir under %s: %w", e.workDir, err)
	}
	dst := filepath.Join(dir, "ocr.pdf")
	if _, _, err := e.run(ctx, nil, "ocrmypdf", "--redo-ocr", src, dst); err != nil {
		return nil, err
	}
	out, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("extractor: read OCR output: %w", err)
	}
	e.log.WithField("file", f.Name()).Info("rebuilt text layer with OCR")
	return out, nil
}

// openPDF parses in-memory PDF bytes.
func openPDF(data []byte) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// probeText collects the plain text of the first maxPages pages. Pages that
// fail to decode contribute nothing.
func probeText(r *pdf.Reader, maxPages int) string {
	var b strings.Builder
	n := min(maxPages, r.NumPage())
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
