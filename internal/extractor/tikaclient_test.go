package extractor

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOCRStrategy_AcceptsUppercaseEnvSpelling(t *testing.T) {
	cases := map[string]OCRStrategy{
		"":                        OCRNone,
		"NO_OCR":                  OCRNone,
		"no_ocr":                  OCRNone,
		"AUTO":                    OCRAuto,
		"ocr_only":                OCROnly,
		"OCR_AND_TEXT_EXTRACTION": OCRAndText,
		" auto ":                  OCRAuto,
	}
	for in, want := range cases {
		got, err := ParseOCRStrategy(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseOCRStrategy_RejectsUnknownValues(t *testing.T) {
	_, err := ParseOCRStrategy("sometimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sometimes")
}

func TestIsImageAttachment(t *testing.T) {
	assert.True(t, IsImageAttachment("figure-1.png"))
	assert.True(t, IsImageAttachment("IMAGE.JPG"))
	assert.True(t, IsImageAttachment("embedded/icon.webp"))
	assert.False(t, IsImageAttachment("notes.txt"))
	assert.False(t, IsImageAttachment("archive.tar"))
	assert.False(t, IsImageAttachment("no-extension"))
}

func TestTikaClient_Parse_SendsOCRHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "text/html", r.Header.Get("Accept"))
		assert.Equal(t, "auto", r.Header.Get("X-Tika-PDFocrStrategy"))
		assert.Contains(t, r.Header.Get("Content-Disposition"), "scan.pdf")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer ts.Close()

	client := NewTikaClient(ts.URL)
	html, err := client.Parse(context.Background(), "scan.pdf", []byte("%PDF"), OCRAuto)

	require.NoError(t, err)
	assert.Contains(t, html, "hello")
}

func TestTikaClient_Meta_DecodesMap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"dc:title":"A Title","xmpTPg:NPages":"4"}`))
	}))
	defer ts.Close()

	client := NewTikaClient(ts.URL)
	meta, err := client.Meta(context.Background(), "a.pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, "A Title", meta["dc:title"])
}

func TestTikaClient_Unpack_ReadsTar(t *testing.T) {
	var archive bytes.Buffer
	tw := tar.NewWriter(&archive)
	for name, content := range map[string]string{
		"image0.jpg":   "jpegbytes",
		"metadata.txt": "k=v",
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/unpack", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("X-Tika-PDFextractInlineImages"))
		assert.Equal(t, "auto", r.Header.Get("X-Tika-PDFocrStrategy"))
		w.Write(archive.Bytes())
	}))
	defer ts.Close()

	client := NewTikaClient(ts.URL)
	atts, err := client.Unpack(context.Background(), "a.pdf", []byte("%PDF"))

	require.NoError(t, err)
	require.Len(t, atts, 2)
	byName := map[string][]byte{}
	for _, att := range atts {
		byName[att.Name] = att.Data
	}
	assert.Equal(t, []byte("jpegbytes"), byName["image0.jpg"])
	assert.Equal(t, []byte("k=v"), byName["metadata.txt"])
}

func TestTikaClient_Unpack_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewTikaClient(ts.URL)
	atts, err := client.Unpack(context.Background(), "a.pdf", []byte("%PDF"))

	require.NoError(t, err)
	assert.Empty(t, atts)
}

func TestTikaClient_ServerErrorCarriesStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tika exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewTikaClient(ts.URL)
	_, err := client.Parse(context.Background(), "a.pdf", []byte("%PDF"), OCRNone)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Contains(t, err.Error(), "tika exploded")
}
