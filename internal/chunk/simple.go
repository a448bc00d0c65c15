package chunk

import (
	"context"
	"strings"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// SimpleChunker defaults.
const (
	DefaultLinesPerChunk = 12
	DefaultMaxLength     = 2000
)

// SimpleChunker regroups the lines of markdown-origin TEXT chunks into
// uniform blocks: at most LinesPerChunk lines and at most MaxLength
// characters per block, with boilerplate lines filtered out. With a non-zero
// Overlap, neighboring blocks share context through the prefix and suffix
// fields. Locked and non-TEXT chunks pass through at the end.
type SimpleChunker struct {
	linesPerChunk int
	maxLength     int
	overlap       int
}

// NewSimpleChunker builds the chunker; non-positive arguments fall back to
// the defaults (overlap defaults to none).
func NewSimpleChunker(linesPerChunk, maxLength, overlap int) *SimpleChunker {
	if linesPerChunk <= 0 {
		linesPerChunk = DefaultLinesPerChunk
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if overlap < 0 {
		overlap = 0
	}
	return &SimpleChunker{linesPerChunk: linesPerChunk, maxLength: maxLength, overlap: overlap}
}

func (c *SimpleChunker) Name() string     { return "simple_chunker" }
func (c *SimpleChunker) Mode() batch.Mode { return batch.Serial }

// Process regroups d's unlocked TEXT chunks.
func (c *SimpleChunker) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	if d == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, c.Name(), "nil document for %s", key)
	}
	if len(d.Chunks) == 0 {
		return d, nil
	}

	var regrouped, passthrough []doc.Chunk
	for _, ch := range d.Chunks {
		if ch.Locked || ch.EffectiveType() != doc.ChunkText {
			passthrough = append(passthrough, ch)
			continue
		}
		regrouped = append(regrouped, c.regroup(ch)...)
	}

	c.applyOverlap(regrouped)
	d.Chunks = append(regrouped, passthrough...)
	return d, nil
}

// regroup splits one source chunk into line blocks, inheriting page and
// section from the source.
func (c *SimpleChunker) regroup(src doc.Chunk) []doc.Chunk {
	var blocks []string
	var lines []string
	length := 0

	flush := func() {
		if len(lines) > 0 {
			blocks = append(blocks, strings.Join(lines, "\n"))
			lines = nil
			length = 0
		}
	}

	for _, line := range strings.Split(src.Text, "\n") {
		if !textutil.KeepContentLines(line) {
			continue
		}
		if len(lines) >= c.linesPerChunk || (length > 0 && length+runeLen(line) > c.maxLength) {
			flush()
		}
		lines = append(lines, line)
		length += runeLen(line) + 1
	}
	flush()

	out := make([]doc.Chunk, 0, len(blocks))
	for _, text := range blocks {
		ch := src
		ch.Text = text
		ch.Coordinates = nil
		out = append(out, ch)
	}
	return out
}

// applyOverlap copies a tail of each chunk into the next one's prefix and a
// head of the following chunk into the suffix.
func (c *SimpleChunker) applyOverlap(chunks []doc.Chunk) {
	if c.overlap == 0 {
		return
	}
	for i := range chunks {
		if i > 0 {
			chunks[i].Prefix = tailRunes(chunks[i-1].Text, c.overlap)
		}
		if i < len(chunks)-1 {
			chunks[i].Suffix = headRunes(chunks[i+1].Text, c.overlap)
		}
	}
}

func tailRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
