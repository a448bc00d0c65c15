package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// OfficeMetaExtractor pulls the metadata XML parts out of OOXML and
// OpenDocument containers and stores their cleaned union under the
// office_metainfo extra key. Non-archive inputs pass through untouched,
// since legacy binary formats reach this stage before conversion.
type OfficeMetaExtractor struct {
	log *logrus.Logger
}

// NewOfficeMetaExtractor creates the stage.
func NewOfficeMetaExtractor(log *logrus.Logger) *OfficeMetaExtractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OfficeMetaExtractor{log: log}
}

func (e *OfficeMetaExtractor) Name() string { return "office_metadata" }

func (e *OfficeMetaExtractor) Mode() batch.Mode { return batch.Threads }

func (e *OfficeMetaExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.log.WithField("file", key).Debug("not a zip container, no office metadata")
		return d, nil
	}

	var parts []string
	for _, zf := range zr.File {
		if !isOfficeMetaPart(zf.Name) {
			continue
		}
		raw, err := readZipFile(zf)
		if err != nil {
			return nil, doc.NewProcessingError(doc.KindParse, e.Name(), err)
		}
		cleaned, err := textutil.CleanXML(raw)
		if err != nil {
			return nil, doc.NewProcessingError(doc.KindParse, e.Name(), err)
		}
		parts = append(parts, cleaned)
	}
	d.MetaInfo.SetExtra("office_metainfo", strings.Join(parts, "\n"))
	return d, nil
}

// isOfficeMetaPart matches the docProps parts of OOXML containers and the
// meta.xml part of OpenDocument containers.
func isOfficeMetaPart(name string) bool {
	if strings.HasPrefix(name, "docProps") && strings.HasSuffix(name, ".xml") {
		return true
	}
	return name == "meta.xml"
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("extractor: open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("extractor: read %s: %w", zf.Name, err)
	}
	return data, nil
}
