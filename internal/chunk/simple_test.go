package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pdferret/internal/doc"
)

func mdLines(n int) string {
	var lines []string
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("line %02d carries markdown content", i))
	}
	return strings.Join(lines, "\n")
}

func TestSimpleChunker_GroupsLines(t *testing.T) {
	c := NewSimpleChunker(12, 0, 0)
	d, err := c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: mdLines(30)}))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 3)
	assert.Len(t, strings.Split(d.Chunks[0].Text, "\n"), 12)
	assert.Len(t, strings.Split(d.Chunks[1].Text, "\n"), 12)
	assert.Len(t, strings.Split(d.Chunks[2].Text, "\n"), 6)
}

func TestSimpleChunker_FiltersBoilerplateLines(t *testing.T) {
	text := strings.Join([]string{
		"real content line one",
		"![](media/image3.png)",
		"::: {.figure}",
		"x",
		"",
		"real content line two",
	}, "\n")

	c := NewSimpleChunker(12, 0, 0)
	d, err := c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: text}))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 1)
	assert.Equal(t, "real content line one\nreal content line two", d.Chunks[0].Text)
}

func TestSimpleChunker_FlushesAtMaxLength(t *testing.T) {
	long := strings.Repeat("a", 100)
	text := strings.Join([]string{long, long, long, long}, "\n")

	c := NewSimpleChunker(12, 250, 0)
	d, err := c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: text}))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 2)
	assert.Equal(t, long+"\n"+long, d.Chunks[0].Text)
	assert.Equal(t, long+"\n"+long, d.Chunks[1].Text)
}

func TestSimpleChunker_OverlapPrefixSuffix(t *testing.T) {
	c := NewSimpleChunker(2, 0, 10)
	d, err := c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: mdLines(6)}))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 3)
	first, mid, last := d.Chunks[0], d.Chunks[1], d.Chunks[2]

	assert.Empty(t, first.Prefix)
	assert.Equal(t, headRunes(mid.Text, 10), first.Suffix)
	assert.Equal(t, tailRunes(first.Text, 10), mid.Prefix)
	assert.Equal(t, headRunes(last.Text, 10), mid.Suffix)
	assert.Equal(t, tailRunes(mid.Text, 10), last.Prefix)
	assert.Empty(t, last.Suffix)
}

func TestSimpleChunker_PreservesPageAndSection(t *testing.T) {
	src := doc.Chunk{Text: mdLines(4), Page: intPtr(2), Section: "Results"}

	c := NewSimpleChunker(2, 0, 0)
	d, err := c.Process(context.Background(), "k", textDoc("en", src))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 2)
	for _, ch := range d.Chunks {
		assert.Equal(t, 2, *ch.Page)
		assert.Equal(t, "Results", ch.Section)
	}
}

func TestSimpleChunker_LockedAndNonTextPassThrough(t *testing.T) {
	fig := doc.Chunk{Type: doc.ChunkFigure, Locked: true, NonEmbeddableContent: []byte{1, 2, 3}}
	tbl := doc.Chunk{Type: doc.ChunkTable, Text: "| x |", NonEmbeddableContent: []byte("| x |")}

	c := NewSimpleChunker(12, 0, 0)
	d, err := c.Process(context.Background(), "k",
		textDoc("en", fig, doc.Chunk{Text: mdLines(3)}, tbl))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 3)
	assert.Equal(t, doc.ChunkText, d.Chunks[0].EffectiveType())
	assert.Equal(t, fig, d.Chunks[1])
	assert.Equal(t, tbl, d.Chunks[2])
}

func TestSimpleChunker_EmptyDocumentUnchanged(t *testing.T) {
	c := NewSimpleChunker(0, 0, 0)
	d, err := c.Process(context.Background(), "k", textDoc("en"))
	require.NoError(t, err)
	assert.Empty(t, d.Chunks)
}
