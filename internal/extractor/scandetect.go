package extractor

import (
	"context"
	"math"
	"sort"

	"github.com/dslipak/pdf"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

// Scanned-document detection. A file counts as scanned when every page is
// dominated by a single page-sized image: the image count equals the page
// count, the typical image covers its page, and the sizes barely vary
// across pages.

// ScanDetector classifies a PDF as scanned or born-digital. It is a light
// alternative to FileInfoExtractor for recipes that need the verdict but
// not the text-layer probe or the OCR rewrite; documents already carrying
// a verdict pass through untouched.
type ScanDetector struct{}

// NewScanDetector creates the stage.
func NewScanDetector() *ScanDetector { return &ScanDetector{} }

func (s *ScanDetector) Name() string { return "scan_detector" }

func (s *ScanDetector) Mode() batch.Mode { return batch.Threads }

func (s *ScanDetector) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	if d.MetaInfo.FileFeatures.IsScanned != nil {
		return d, nil
	}
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, s.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, s.Name(), err)
	}
	reader, err := openPDF(data)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindParse, s.Name(), err)
	}
	if d.MetaInfo.FileFeatures.NPages == nil {
		npages := reader.NumPage()
		d.MetaInfo.FileFeatures.NPages = &npages
	}
	scanned := isScannedPDF(reader)
	d.MetaInfo.FileFeatures.IsScanned = &scanned
	return d, nil
}

// isScannedPDF applies the detection rule to a parsed file.
func isScannedPDF(r *pdf.Reader) bool {
	return looksScanned(imageRatios(r), r.NumPage())
}

// looksScanned evaluates per-image (height/pageHeight, width/pageWidth)
// ratios against the page count.
func looksScanned(ratios [][2]float64, npages int) bool {
	if npages == 0 || len(ratios) != npages {
		return false
	}

	covering := make([]float64, 0, len(ratios)*2)
	for _, r := range ratios {
		for _, v := range r {
			if v >= 1 {
				covering = append(covering, 1)
			} else {
				covering = append(covering, 0)
			}
		}
	}
	if median(covering) < 1 {
		return false
	}

	hMed := medianOf(ratios, 0)
	wMed := medianOf(ratios, 1)
	devs := make([]float64, 0, len(ratios)*2)
	for _, r := range ratios {
		devs = append(devs, math.Abs(r[0]-hMed), math.Abs(r[1]-wMed))
	}
	return median(devs) <= 0.1
}

// imageRatios returns (height/pageHeight, width/pageWidth) for every image
// XObject reachable from each page's resources.
func imageRatios(r *pdf.Reader) [][2]float64 {
	var out [][2]float64
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		mb := inheritedAttr(p.V, "MediaBox")
		if mb.IsNull() || mb.Len() < 4 {
			continue
		}
		pageW := mb.Index(2).Float64() - mb.Index(0).Float64()
		pageH := mb.Index(3).Float64() - mb.Index(1).Float64()
		if pageW <= 0 || pageH <= 0 {
			continue
		}
		collectImageRatios(inheritedAttr(p.V, "Resources"), pageW, pageH, 0, &out)
	}
	return out
}

// collectImageRatios walks a resource dictionary for image XObjects,
// descending into form XObjects. Depth is capped because object graphs can
// cycle.
func collectImageRatios(res pdf.Value, pageW, pageH float64, depth int, out *[][2]float64) {
	if depth > 4 || res.IsNull() {
		return
	}
	xo := res.Key("XObject")
	if xo.IsNull() {
		return
	}
	for _, name := range xo.Keys() {
		obj := xo.Key(name)
		switch obj.Key("Subtype").Name() {
		case "Image":
			h := obj.Key("Height").Float64()
			w := obj.Key("Width").Float64()
			if h > 0 && w > 0 {
				*out = append(*out, [2]float64{h / pageH, w / pageW})
			}
		case "Form":
			collectImageRatios(obj.Key("Resources"), pageW, pageH, depth+1, out)
		}
	}
}

// inheritedAttr resolves a page attribute, walking up the page tree for
// inheritable entries such as MediaBox and Resources.
func inheritedAttr(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 16 && !v.IsNull(); depth++ {
		if attr := v.Key(key); !attr.IsNull() {
			return attr
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// median of a copy; the input stays untouched.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func medianOf(ratios [][2]float64, col int) float64 {
	vals := make([]float64, len(ratios))
	for i, r := range ratios {
		vals[i] = r[col]
	}
	return median(vals)
}
