package extractor

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
)

// OCRStrategy tells the text extraction service how to treat pages that are
// images. The wire values are the lowercase strings Tika expects.
type OCRStrategy string

const (
	// OCRAuto lets the service decide per page.
	OCRAuto OCRStrategy = "auto"

	// OCRNone skips OCR entirely.
	OCRNone OCRStrategy = "no_ocr"

	// OCROnly discards the text layer and OCRs every page.
	OCROnly OCRStrategy = "ocr_only"

	// OCRAndText runs OCR and merges the result with the text layer.
	OCRAndText OCRStrategy = "ocr_and_text_extraction"
)

// ParseOCRStrategy reads an OCR strategy from configuration. Matching is
// case-insensitive because the environment convention spells these uppercase.
// The empty string means OCRNone.
func ParseOCRStrategy(s string) (OCRStrategy, error) {
	switch OCRStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return OCRNone, nil
	case OCRAuto:
		return OCRAuto, nil
	case OCRNone:
		return OCRNone, nil
	case OCROnly:
		return OCROnly, nil
	case OCRAndText:
		return OCRAndText, nil
	}
	return "", fmt.Errorf("extractor: unknown OCR strategy %q", s)
}

// Attachment is one embedded file unpacked from a document.
type Attachment struct {
	Name string
	Data []byte
}

// TikaClient talks to an Apache Tika server: Parse renders a document as
// HTML, Meta returns the raw metadata map, Unpack extracts embedded files.
type TikaClient struct {
	service
}

// NewTikaClient creates a client for the Tika server at base.
func NewTikaClient(base string, opts ...ClientOption) *TikaClient {
	return &TikaClient{service: newService(base, opts...)}
}

// Parse renders the document as HTML. The strategy controls whether page
// images go through OCR.
func (c *TikaClient) Parse(ctx context.Context, filename string, data []byte, strategy OCRStrategy) (string, error) {
	headers := map[string]string{
		"Accept":              "text/html",
		"Content-Disposition": contentDisposition(filename),
	}
	if strategy != "" {
		headers["X-Tika-PDFocrStrategy"] = string(strategy)
	}
	body, err := c.send(ctx, http.MethodPut, "/tika", bytes.NewReader(data), headers)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Meta fetches the raw metadata map for the document.
func (c *TikaClient) Meta(ctx context.Context, filename string, data []byte) (map[string]any, error) {
	headers := map[string]string{
		"Accept":              "application/json",
		"Content-Disposition": contentDisposition(filename),
	}
	body, err := c.send(ctx, http.MethodPut, "/meta", bytes.NewReader(data), headers)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if err := sonic.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("extractor: decode metadata: %w", err)
	}
	return meta, nil
}

// Unpack extracts the files embedded in the document. Inline PDF images are
// requested and the OCR strategy is pinned to auto so image-only pages still
// yield their pictures.
func (c *TikaClient) Unpack(ctx context.Context, filename string, data []byte) ([]Attachment, error) {
	headers := map[string]string{
		"Accept":                        "application/x-tar",
		"Content-Disposition":           contentDisposition(filename),
		"X-Tika-PDFextractInlineImages": "true",
		"X-Tika-PDFocrStrategy":         string(OCRAuto),
	}
	body, err := c.send(ctx, http.MethodPut, "/unpack", bytes.NewReader(data), headers)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	return readTar(body)
}

// readTar collects the regular files of a tar stream.
func readTar(data []byte) ([]Attachment, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var out []Attachment
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extractor: read unpack archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("extractor: read unpacked %s: %w", hdr.Name, err)
		}
		out = append(out, Attachment{Name: hdr.Name, Data: content})
	}
	return out, nil
}

// contentDisposition names the upload; non-ASCII filenames are escaped.
func contentDisposition(filename string) string {
	return "attachment; filename=" + url.PathEscape(filepath.Base(filename))
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tiff": true, ".tif": true, ".svg": true, ".webp": true, ".emf": true,
	".wmf": true, ".ico": true, ".jfif": true, ".heif": true, ".heic": true,
	".dds": true, ".pcx": true, ".eps": true, ".psd": true,
}

// IsImageAttachment reports whether the attachment name carries an image
// extension.
func IsImageAttachment(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
