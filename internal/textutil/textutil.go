// Package textutil holds the text primitives shared by extractors and
// chunkers: cleaning, rough token counting, line grouping, sentence
// segmentation, spellchecking, and language detection.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	hyphenBreakRe = regexp.MustCompile(`(\w+)-\s*\n\s*(\w+)`)
	roughTokenRe  = regexp.MustCompile(`[\s()\[\]{}.,:;+=*/\\"'<>-]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	dashRe        = regexp.MustCompile(`[-\x{2013}\x{2014}]`)
)

const (
	bulletGlyphs       = "•◦●○■▪‣·❖"
	leadingPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ "
)

// RemoveHyphenation joins words split across line breaks with a hyphen, then
// flattens the remaining newlines into spaces.
func RemoveHyphenation(text string) string {
	text = hyphenBreakRe.ReplaceAllString(text, "${1}${2}")
	return strings.ReplaceAll(text, "\n", " ")
}

// CountTokensRough approximates an LLM token count by splitting on
// whitespace and common punctuation and counting the non-empty pieces.
func CountTokensRough(text string) int {
	n := 0
	for _, tok := range roughTokenRe.Split(text, -1) {
		if tok != "" {
			n++
		}
	}
	return n
}

// CleanText normalizes one chunk of extracted text: character filtering,
// dash and bullet normalization, whitespace collapsing, and a leading
// punctuation strip. For English the character filter drops everything
// outside ASCII; for other languages only control characters go, so that
// umlauts and other letters survive.
func CleanText(text, lang string) string {
	var b strings.Builder
	b.Grow(len(text))
	ascii := lang == "" || lang == "en"
	for _, r := range text {
		switch {
		case ascii && r > unicode.MaxASCII:
		case !ascii && unicode.IsControl(r) && r != '\n' && r != '\t':
		default:
			b.WriteRune(r)
		}
	}
	text = b.String()

	text = dashRe.ReplaceAllString(text, " ")
	text = strings.TrimLeft(text, bulletGlyphs)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return strings.TrimLeft(text, leadingPunctuation)
}

// LineFilter reports whether a line should be kept during line grouping.
type LineFilter func(line string) bool

// KeepContentLines drops blank lines, markdown image references, pandoc
// fenced divs, and lines too short to carry content.
func KeepContentLines(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= 2 {
		return false
	}
	if strings.HasPrefix(trimmed, "![](") || strings.HasPrefix(trimmed, ":::") {
		return false
	}
	return true
}

// SplitLines groups the kept lines of text into blocks of at most
// linesPerChunk lines, joined back with newlines. A nil filter keeps only
// non-blank lines.
func SplitLines(text string, linesPerChunk int, filter LineFilter) []string {
	if linesPerChunk <= 0 {
		linesPerChunk = 12
	}
	if filter == nil {
		filter = func(line string) bool { return strings.TrimSpace(line) != "" }
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if filter(line) {
			kept = append(kept, line)
		}
	}

	var out []string
	for start := 0; start < len(kept); start += linesPerChunk {
		end := min(start+linesPerChunk, len(kept))
		out = append(out, strings.Join(kept[start:end], "\n"))
	}
	return out
}
