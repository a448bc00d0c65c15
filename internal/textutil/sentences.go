package textutil

import (
	"regexp"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	naiveSplitRe  = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)
)

// Sentences segments text into sentences using the trained English
// tokenizer, which handles abbreviations and decimal points well enough for
// the other supported languages too. Empty sentences are dropped.
func Sentences(text string) []string {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = t
		}
	})

	var out []string
	if tokenizer == nil {
		// Tokenizer training data failed to load; fall back to a naive
		// punctuation split so chunking still works.
		rest := text
		for _, m := range naiveSplitRe.FindAllStringSubmatch(text, -1) {
			s := strings.TrimSpace(m[1])
			if s != "" {
				out = append(out, s)
			}
			rest = rest[len(m[0]):]
		}
		if s := strings.TrimSpace(rest); s != "" {
			out = append(out, s)
		}
		return out
	}

	for _, s := range tokenizer.Tokenize(text) {
		t := strings.TrimSpace(s.Text)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
