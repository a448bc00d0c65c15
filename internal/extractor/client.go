package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// service is the shared plumbing of the extraction service clients: a base
// URL and an *http.Client. The default timeout is generous because OCR and
// layout analysis on large files run for minutes.
type service struct {
	base string
	http *http.Client
}

// ClientOption configures one of the extraction service clients.
type ClientOption func(*service)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(s *service) {
		s.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(s *service) {
		s.http = hc
	}
}

func newService(base string, opts ...ClientOption) service {
	s := service{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 3 * time.Minute},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// send performs one HTTP exchange and returns the response body. Statuses
// outside the 2xx range become errors carrying the body tail; 204 returns a
// nil body.
func (s *service) send(ctx context.Context, method, path string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("extractor: create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("extractor: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("extractor: %s %s: HTTP %d: %s", method, path, resp.StatusCode, errTail(respBody))
	}
	return respBody, nil
}

// multipartBody assembles a multipart form with one file field plus extra
// string fields. Field names may repeat.
func multipartBody(fileField, filename string, data []byte, fields [][2]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, "", fmt.Errorf("extractor: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("extractor: build form: %w", err)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("extractor: build form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("extractor: build form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
