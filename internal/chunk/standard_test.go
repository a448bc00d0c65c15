package chunk

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

func intPtr(i int) *int { return &i }

// sentenceOf builds a single sentence of exactly n runes, starting with a
// capitalized word so the tokenizer treats it as a sentence opener.
func sentenceOf(lead string, n int) string {
	s := lead
	for len(s) < n-1 {
		s += " pad"
	}
	return s[:n-1] + "."
}

func textDoc(lang string, chunks ...doc.Chunk) *doc.Document {
	d := doc.NewDocument("test.pdf", doc.NewFileFromBytes("test.pdf", []byte("x")))
	d.MetaInfo.Language = lang
	d.Chunks = chunks
	return d
}

func TestStandardChunker_SplitsOversizedChunks(t *testing.T) {
	var sents []string
	for i := 0; i < 6; i++ {
		sents = append(sents, sentenceOf(fmt.Sprintf("Sentence number %d starts here", i), 250))
	}
	text := strings.Join(sents, " ")
	require.Greater(t, len(text), BSoft)

	c := NewStandardChunker(nil, false)
	d, err := c.Process(context.Background(), "test.pdf", textDoc("en", doc.Chunk{Text: text}))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(d.Chunks), 2)
	var rebuilt []string
	for _, ch := range d.Chunks {
		assert.LessOrEqual(t, len(ch.Text), BHard)
		rebuilt = append(rebuilt, ch.Text)
	}
	// Splitting respects sentence boundaries, so rejoining reconstructs
	// the original text.
	assert.Equal(t, text, strings.Join(rebuilt, " "))
}

func TestStandardChunker_SplitDistributesCoordinatesTopDown(t *testing.T) {
	s1 := sentenceOf("The first block starts here", 700)
	s2 := sentenceOf("Second block begins now", 700)
	ch := doc.Chunk{
		Text:        s1 + " " + s2,
		Page:        intPtr(3),
		Coordinates: doc.NewCoordinates(0.1, 0.0, 0.9, 1.0),
	}

	c := NewStandardChunker(nil, false)
	d, err := c.Process(context.Background(), "test.pdf", textDoc("en", ch))
	require.NoError(t, err)
	require.Len(t, d.Chunks, 2)

	top, bottom := d.Chunks[0], d.Chunks[1]
	require.Len(t, top.Coordinates, 2)
	require.Len(t, bottom.Coordinates, 2)

	// Reading order runs top-down in a y-up coordinate system.
	assert.Equal(t, 1.0, top.Coordinates[1][1])
	assert.Equal(t, 0.0, bottom.Coordinates[0][1])
	assert.InDelta(t, 0.5, top.Coordinates[0][1], 0.02)
	assert.InDelta(t, top.Coordinates[0][1], bottom.Coordinates[1][1], 1e-9)

	for _, sub := range d.Chunks {
		assert.Equal(t, 0.1, sub.Coordinates[0][0])
		assert.Equal(t, 0.9, sub.Coordinates[1][0])
		assert.Equal(t, 3, *sub.Page)
		for _, p := range sub.Coordinates {
			assert.GreaterOrEqual(t, p[0], 0.0)
			assert.LessOrEqual(t, p[0], 1.0)
			assert.GreaterOrEqual(t, p[1], 0.0)
			assert.LessOrEqual(t, p[1], 1.0)
		}
	}
}

func TestStandardChunker_FilterLengthBoundary(t *testing.T) {
	c := NewStandardChunker(nil, false)

	exact := strings.Repeat("x", MinChunkLen)
	d, err := c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: exact}))
	require.NoError(t, err)
	require.Len(t, d.Chunks, 1)
	assert.Equal(t, exact, d.Chunks[0].Text)

	short := strings.Repeat("x", MinChunkLen-1)
	d, err = c.Process(context.Background(), "k", textDoc("en", doc.Chunk{Text: short}))
	require.NoError(t, err)
	assert.Empty(t, d.Chunks)
}

func TestStandardChunker_FilterSpellcheck(t *testing.T) {
	speller := textutil.NewSpeller()
	speller.AddWords("en", "document", "processing", "pipeline", "batch", "extraction", "handles", "cleanly")

	good := "document processing pipeline handles batch extraction cleanly every single time around"
	bad := "zxqwv gkrtp mnbvc qwerty asdfgh zxcvbn plokij uhygtf rdeswa qazwsx edcrfv tgbyhn"

	c := NewStandardChunker(speller, false)
	d, err := c.Process(context.Background(), "k", textDoc("en",
		doc.Chunk{Text: good},
		doc.Chunk{Text: bad},
	))
	require.NoError(t, err)
	require.Len(t, d.Chunks, 1)
	assert.Equal(t, good, d.Chunks[0].Text)
}

func TestStandardChunker_MergesUndersizedNeighbors(t *testing.T) {
	a := doc.Chunk{
		Text:        sentenceOf("Alpha section opens the page", 300),
		Page:        intPtr(1),
		Coordinates: doc.NewCoordinates(0.1, 0.5, 0.4, 0.9),
	}
	b := doc.Chunk{
		Text:        sentenceOf("Beta section closes the page", 300),
		Page:        intPtr(1),
		Coordinates: doc.NewCoordinates(0.2, 0.1, 0.5, 0.45),
	}

	c := NewStandardChunker(nil, false)
	d, err := c.Process(context.Background(), "k", textDoc("en", a, b))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 1)
	merged := d.Chunks[0]
	assert.Equal(t, a.Text+" "+b.Text, merged.Text)
	assert.Equal(t, doc.NewCoordinates(0.1, 0.1, 0.5, 0.9), merged.Coordinates)
	assert.Equal(t, 1, *merged.Page)
}

func TestStandardChunker_MergeAcrossPagesKeepsFirstBox(t *testing.T) {
	a := doc.Chunk{Text: sentenceOf("Page one text", 200), Page: intPtr(1), Coordinates: doc.NewCoordinates(0, 0, 0.5, 0.5)}
	b := doc.Chunk{Text: sentenceOf("Page two text", 200), Page: intPtr(2), Coordinates: doc.NewCoordinates(0.5, 0.5, 1, 1)}

	c := NewStandardChunker(nil, false)
	d, err := c.Process(context.Background(), "k", textDoc("en", a, b))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 1)
	assert.Equal(t, a.Coordinates, d.Chunks[0].Coordinates)
	assert.Equal(t, 1, *d.Chunks[0].Page)
}

func TestStandardChunker_MergeStopsAtSoftLimit(t *testing.T) {
	big := doc.Chunk{Text: sentenceOf("This chunk is already long enough", 800)}
	small := doc.Chunk{Text: sentenceOf("Short trailing chunk", 100)}

	c := NewStandardChunker(nil, false)
	d, err := c.Process(context.Background(), "k", textDoc("en", big, small))
	require.NoError(t, err)

	// 800 is past ASoft, so the small neighbor must not be absorbed.
	require.Len(t, d.Chunks, 2)
	assert.Equal(t, big.Text, d.Chunks[0].Text)
	assert.Equal(t, small.Text, d.Chunks[1].Text)
}

func TestStandardChunker_LockedAndNonTextPassThrough(t *testing.T) {
	locked1 := doc.Chunk{Text: "L1", Locked: true}
	fig := doc.Chunk{Type: doc.ChunkFigure, NonEmbeddableContent: []byte{0xFF, 0xD8}, Locked: true}
	tbl := doc.Chunk{Type: doc.ChunkTable, Text: "| a | b |", NonEmbeddableContent: []byte("| a | b |")}
	locked2 := doc.Chunk{Text: strings.Repeat("y", 2000), Locked: true}
	text := doc.Chunk{Text: sentenceOf("Regular prose in the middle", 400)}

	c := NewStandardChunker(nil, true)
	d, err := c.Process(context.Background(), "k",
		textDoc("en", locked1, text, fig, tbl, locked2))
	require.NoError(t, err)

	require.Len(t, d.Chunks, 5)
	// Processed text first, then the untouched chunks in original
	// relative order. The oversized locked chunk was neither split nor
	// cleaned, the short one was not filtered.
	assert.Equal(t, locked1, d.Chunks[1])
	assert.Equal(t, fig, d.Chunks[2])
	assert.Equal(t, tbl, d.Chunks[3])
	assert.Equal(t, locked2, d.Chunks[4])
}

func TestStandardChunker_EmptyDocumentUnchanged(t *testing.T) {
	c := NewStandardChunker(nil, true)
	d, err := c.Process(context.Background(), "k", textDoc("en"))
	require.NoError(t, err)
	assert.Empty(t, d.Chunks)
}

func TestStandardChunker_NilDocument(t *testing.T) {
	c := NewStandardChunker(nil, true)
	_, err := c.Process(context.Background(), "k", nil)
	require.Error(t, err)

	var pe *doc.ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, doc.KindTypeMismatch, pe.Kind)
}

func TestStandardChunker_Idempotent(t *testing.T) {
	mk := func() *doc.Document {
		return textDoc("en",
			doc.Chunk{Text: sentenceOf("Opening paragraph with plenty of words", 800)},
			doc.Chunk{Text: sentenceOf("Closing paragraph with plenty of words", 900)},
			doc.Chunk{Text: "figure caption", Type: doc.ChunkFigure, Locked: true},
		)
	}

	c := NewStandardChunker(nil, true)
	once, err := c.Process(context.Background(), "k", mk())
	require.NoError(t, err)
	snapshot := append([]doc.Chunk(nil), once.Chunks...)

	twice, err := c.Process(context.Background(), "k", once)
	require.NoError(t, err)
	assert.Equal(t, snapshot, twice.Chunks)
}

func TestPartitionList_BalancedSums(t *testing.T) {
	a := []int{5, 5, 5, 5, 5, 5}
	parts := partitionList(a, 3)

	require.Len(t, parts, 3)
	for _, p := range parts {
		sum := 0
		for _, v := range p {
			sum += v
		}
		assert.Equal(t, 10, sum)
	}
}

func TestPartitionList_Degenerate(t *testing.T) {
	a := []int{1, 2, 3}

	whole := partitionList(a, 1)
	require.Len(t, whole, 1)
	assert.Equal(t, a, whole[0])

	singles := partitionList(a, 5)
	require.Len(t, singles, 3)
	for i, p := range singles {
		assert.Equal(t, []int{a[i]}, p)
	}
}

func TestPartitionList_CoversInputExactly(t *testing.T) {
	a := []int{40, 3, 3, 3, 90, 2, 2, 60, 8, 8}
	parts := partitionList(a, 4)

	require.Len(t, parts, 4)
	var flat []int
	for _, p := range parts {
		flat = append(flat, p...)
	}
	// No element is lost or duplicated regardless of boundary movement.
	assert.Equal(t, a, flat)
}
