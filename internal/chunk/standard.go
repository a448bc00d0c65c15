// Package chunk implements the two chunkers: the standard length-regularizing
// chunker (split, filter, merge, clean) and the simple line-group chunker for
// markdown-origin documents.
package chunk

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// Length norms, in characters. Soft bounds steer the split target size; hard
// bounds are the never-exceed (B) and avoid-below (A) limits.
const (
	ASoft = 700
	BSoft = 1200
	AHard = 400
	BHard = 1600

	MinChunkLen         = 50
	SpellcheckThreshold = 0.5
)

// StandardChunker regularizes the lengths of unlocked TEXT chunks in four
// passes: split oversized chunks along sentence boundaries, drop low-quality
// chunks, merge undersized neighbors, and optionally clean the text. Locked
// and non-TEXT chunks pass through untouched and are appended after the
// processed ones, keeping their relative order.
type StandardChunker struct {
	speller *textutil.Speller
	clean   bool
}

// NewStandardChunker builds the chunker. A nil speller disables dictionary
// filtering (every language scores 1.0). cleanText enables the final cleanup
// pass.
func NewStandardChunker(speller *textutil.Speller, cleanText bool) *StandardChunker {
	if speller == nil {
		speller = textutil.NewSpeller()
	}
	return &StandardChunker{speller: speller, clean: cleanText}
}

func (c *StandardChunker) Name() string     { return "standard_chunker" }
func (c *StandardChunker) Mode() batch.Mode { return batch.Serial }

// Process applies the four passes to d's unlocked TEXT chunks.
func (c *StandardChunker) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	if d == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, c.Name(), "nil document for %s", key)
	}
	if len(d.Chunks) == 0 {
		return d, nil
	}
	lang := d.MetaInfo.Language

	var workable, passthrough []doc.Chunk
	for _, ch := range d.Chunks {
		if ch.Locked || ch.EffectiveType() != doc.ChunkText {
			passthrough = append(passthrough, ch)
			continue
		}
		workable = append(workable, ch)
	}

	// P1: split oversized chunks along sentence boundaries.
	var split []doc.Chunk
	for _, ch := range workable {
		if runeLen(ch.Text) > BSoft {
			split = append(split, splitChunk(ch)...)
		} else {
			split = append(split, ch)
		}
	}

	// P2: drop short or misspelled chunks.
	var kept []doc.Chunk
	for _, ch := range split {
		if runeLen(ch.Text) < MinChunkLen {
			continue
		}
		if c.speller.Score(ch.Text, lang) < SpellcheckThreshold {
			continue
		}
		kept = append(kept, ch)
	}

	// P3: merge undersized neighbors.
	merged := concatenateChunks(kept)

	// P4: clean.
	if c.clean {
		for i := range merged {
			merged[i].Text = textutil.CleanText(merged[i].Text, lang)
		}
	}

	d.Chunks = append(merged, passthrough...)
	return d, nil
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// splitChunk breaks one oversized chunk into sub-chunks along sentence
// boundaries. The part count k is the smallest value in
// [ceil(total/BSoft), ceil(total/ASoft)] whose balanced partition keeps every
// part within BHard; when no k in range manages that (a single giant
// sentence, say) the largest k is used as-is. The bounding box is distributed
// vertically in proportion to the parts' character counts, top band first.
func splitChunk(ch doc.Chunk) []doc.Chunk {
	sents := textutil.Sentences(ch.Text)
	if len(sents) <= 1 {
		return []doc.Chunk{ch}
	}
	lens := make([]int, len(sents))
	for i, s := range sents {
		lens[i] = runeLen(s)
	}

	total := runeLen(ch.Text)
	minK := max(ceilDiv(total, BSoft), 2)
	maxK := max(ceilDiv(total, ASoft), minK)

	var parts [][]int
	for k := minK; k <= maxK; k++ {
		parts = partitionList(lens, k)
		if maxJoinedLen(parts) <= BHard {
			break
		}
	}

	// Rebuild texts part by part; joined length includes the separators
	// the join adds back.
	joined := make([]string, 0, len(parts))
	joinedLens := make([]int, 0, len(parts))
	start := 0
	for _, part := range parts {
		end := start + len(part)
		if len(part) > 0 {
			text := strings.Join(sents[start:end], " ")
			joined = append(joined, text)
			joinedLens = append(joinedLens, runeLen(text))
		}
		start = end
	}

	coords := splitCoordinates(ch.Coordinates, joinedLens)

	out := make([]doc.Chunk, 0, len(joined))
	for i, text := range joined {
		sub := ch
		sub.Text = text
		if coords != nil {
			sub.Coordinates = coords[i]
		}
		out = append(out, sub)
	}
	return out
}

// splitCoordinates slices a bounding box into vertical bands proportional to
// the sub-chunk lengths. Reading order runs top-down while the y-axis points
// up, so the first band hugs ymax.
func splitCoordinates(coords doc.Coordinates, lens []int) []doc.Coordinates {
	if len(coords) < 2 {
		return nil
	}
	total := 0
	for _, l := range lens {
		total += l
	}
	if total == 0 {
		return nil
	}

	xmin, ymin := coords[0][0], coords[0][1]
	xmax, ymax := coords[1][0], coords[1][1]
	height := ymax - ymin

	out := make([]doc.Coordinates, 0, len(lens))
	cum := 0
	for _, l := range lens {
		topRatio := float64(cum) / float64(total)
		cum += l
		bottomRatio := float64(cum) / float64(total)
		out = append(out, doc.NewCoordinates(
			xmin, ymax-bottomRatio*height,
			xmax, ymax-topRatio*height,
		))
	}
	return out
}

// concatenateChunks greedily merges adjacent chunks while both sides are
// shorter than ASoft and the combination, separator included, stays within
// BHard.
func concatenateChunks(chunks []doc.Chunk) []doc.Chunk {
	var result []doc.Chunk
	for _, ch := range chunks {
		if n := len(result); n > 0 && canConcatenate(&result[n-1], &ch) {
			result[n-1] = combineTwo(result[n-1], ch)
			continue
		}
		result = append(result, ch)
	}
	return result
}

func canConcatenate(a, b *doc.Chunk) bool {
	la, lb := runeLen(a.Text), runeLen(b.Text)
	return la+lb+1 <= BHard && la < ASoft && lb < ASoft
}

// combineTwo merges b into a. The bounding box is enlarged only when both
// chunks sit on the same page and both have one.
func combineTwo(a, b doc.Chunk) doc.Chunk {
	out := a
	out.Text = a.Text + " " + b.Text
	if samePage(a.Page, b.Page) && len(a.Coordinates) == 2 && len(b.Coordinates) == 2 {
		out.Coordinates = doc.Coordinates{
			{min(a.Coordinates[0][0], b.Coordinates[0][0]), min(a.Coordinates[0][1], b.Coordinates[0][1])},
			{max(a.Coordinates[1][0], b.Coordinates[1][0]), max(a.Coordinates[1][1], b.Coordinates[1][1])},
		}
	}
	return out
}

func samePage(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func maxJoinedLen(parts [][]int) int {
	worst := 0
	for _, part := range parts {
		l := joinedLen(part)
		if l > worst {
			worst = l
		}
	}
	return worst
}

// joinedLen is the length the part will have once its sentences are joined
// with single spaces.
func joinedLen(part []int) int {
	if len(part) == 0 {
		return 0
	}
	sum := len(part) - 1
	for _, l := range part {
		sum += l
	}
	return sum
}
