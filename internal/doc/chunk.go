// Package doc defines the data model shared by every extraction stage:
// documents, chunks, file handles, and the processing error taxonomy.
package doc

// ChunkType classifies the content of a Chunk.
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkFigure     ChunkType = "figure"
	ChunkTable      ChunkType = "table"
	ChunkEquation   ChunkType = "equation"
	ChunkOther      ChunkType = "other"
	ChunkVisualPage ChunkType = "visual_page"
)

// Coordinates locates a chunk on its page as two points
// [(xmin,ymin),(xmax,ymax)] in relative units. Both axes run 0..1 against the
// page size and the y-axis points up, following the PDF convention. An empty
// value means the location is unknown.
type Coordinates [][2]float64

// NewCoordinates builds a bounding box from the four edges, clamping each
// value into [0,1].
func NewCoordinates(xmin, ymin, xmax, ymax float64) Coordinates {
	return Coordinates{
		{clamp01(xmin), clamp01(ymin)},
		{clamp01(xmax), clamp01(ymax)},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Chunk is one ordered piece of extracted content. Order within a Document is
// meaningful: it is the reading order of the source file.
type Chunk struct {
	// Page is the 1-based page number the chunk came from, nil when the
	// source has no page structure.
	Page *int `json:"page"`

	// Coordinates is the chunk's bounding box on Page, empty when unknown.
	Coordinates Coordinates `json:"coordinates"`

	// Section names the document section the chunk belongs to, if known.
	Section string `json:"section"`

	// Prefix and Suffix carry overlap context from neighboring chunks.
	// They are display aids, not part of the chunk's own text.
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`

	// Text is the chunk content. For figure and visual-page chunks this is
	// a caption or generated description.
	Text string `json:"text"`

	// Locked marks a chunk that chunkers must pass through untouched:
	// never split, merged, filtered, or cleaned.
	Locked bool `json:"locked"`

	// Type classifies the chunk. The zero value is treated as ChunkText.
	Type ChunkType `json:"chunk_type"`

	// NonEmbeddableContent holds binary payload that accompanies the chunk
	// but cannot be embedded as text, typically image bytes for figure and
	// visual-page chunks. Serialized as base64, or null when images are not
	// requested.
	NonEmbeddableContent []byte `json:"non_embeddable_content,omitempty"`
}

// EffectiveType returns the chunk type, mapping the zero value to ChunkText.
func (c *Chunk) EffectiveType() ChunkType {
	if c.Type == "" {
		return ChunkText
	}
	return c.Type
}
