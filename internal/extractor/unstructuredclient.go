package extractor

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// Element is one layout element from the partitioning service.
type Element struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Metadata ElementMetadata `json:"metadata"`
}

// ElementMetadata carries the element fields the extractor consumes.
type ElementMetadata struct {
	PageNumber  int                 `json:"page_number"`
	TextAsHTML  string              `json:"text_as_html"`
	Coordinates *ElementCoordinates `json:"coordinates"`
}

// ElementCoordinates is the element's polygon in layout space, origin top
// left.
type ElementCoordinates struct {
	Points       [][]float64 `json:"points"`
	LayoutWidth  float64     `json:"layout_width"`
	LayoutHeight float64     `json:"layout_height"`
}

// UnstructuredClient calls an unstructured-io partitioning server.
type UnstructuredClient struct {
	service
}

// NewUnstructuredClient creates a client for the partitioning server at base.
func NewUnstructuredClient(base string, opts ...ClientOption) *UnstructuredClient {
	return &UnstructuredClient{service: newService(base, opts...)}
}

// Partition submits the document for layout partitioning and returns the
// elements in reading order.
func (c *UnstructuredClient) Partition(ctx context.Context, filename string, data []byte, strategy string) ([]Element, error) {
	body, contentType, err := multipartBody("files", filepath.Base(filename), data, [][2]string{
		{"strategy", strategy},
		{"coordinates", "true"},
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/general/v0/general", body, map[string]string{
		"Content-Type": contentType,
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}
	var elements []Element
	if err := sonic.Unmarshal(resp, &elements); err != nil {
		return nil, fmt.Errorf("extractor: decode elements: %w", err)
	}
	return elements, nil
}
