package extractor

import (
	"context"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// RawTextExtractor turns plain text files into line-grouped TEXT chunks.
// Only blank lines are dropped; short lines carry meaning in plain text.
type RawTextExtractor struct {
	linesPerChunk int
}

// NewRawTextExtractor creates the stage; linesPerChunk falls back to 12.
func NewRawTextExtractor(linesPerChunk int) *RawTextExtractor {
	if linesPerChunk <= 0 {
		linesPerChunk = defaultPandocLines
	}
	return &RawTextExtractor{linesPerChunk: linesPerChunk}
}

func (e *RawTextExtractor) Name() string { return "raw_text_extractor" }

func (e *RawTextExtractor) Mode() batch.Mode { return batch.Threads }

func (e *RawTextExtractor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	f := d.File()
	if f == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, e.Name(), "document %s has no file", key)
	}
	data, err := f.Bytes()
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, e.Name(), err)
	}
	for _, block := range textutil.SplitLines(string(data), e.linesPerChunk, nil) {
		d.Chunks = append(d.Chunks, doc.Chunk{Text: block, Type: doc.ChunkText})
	}
	return d, nil
}
