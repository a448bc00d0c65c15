package textutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var wordRe = regexp.MustCompile(`\p{L}+`)

// Speller scores text against per-language word lists. Languages without a
// loaded dictionary always score 1.0, so the absence of a dictionary never
// filters anything out.
type Speller struct {
	dicts map[string]map[string]struct{}
}

// NewSpeller returns a Speller with no dictionaries loaded.
func NewSpeller() *Speller {
	return &Speller{dicts: map[string]map[string]struct{}{}}
}

// LoadDictionaries reads every "<lang>.txt" word list in dir, one lowercase
// word per line. Missing dir is not an error; the Speller just stays empty.
func (s *Speller) LoadDictionaries(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("textutil: read dictionary dir %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		lang := strings.TrimSuffix(name, ".txt")
		if err := s.loadOne(lang, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Speller) loadOne(lang, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("textutil: open dictionary %s: %w", path, err)
	}
	defer f.Close()

	words := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("textutil: scan dictionary %s: %w", path, err)
	}
	s.dicts[lang] = words
	return nil
}

// AddWords registers words for lang directly, mainly for tests.
func (s *Speller) AddWords(lang string, words ...string) {
	dict := s.dicts[lang]
	if dict == nil {
		dict = map[string]struct{}{}
		s.dicts[lang] = dict
	}
	for _, w := range words {
		dict[strings.ToLower(w)] = struct{}{}
	}
}

// Score returns the fraction of informative tokens of text found in the
// dictionary for lang. Informative tokens are words longer than four
// characters; when there are none the score is 0. Languages without a
// dictionary score 1.0.
func (s *Speller) Score(text, lang string) float64 {
	dict, ok := s.dicts[lang]
	if !ok {
		return 1.0
	}

	total, known := 0, 0
	for _, tok := range wordRe.FindAllString(text, -1) {
		if utf8.RuneCountInString(tok) <= 4 {
			continue
		}
		total++
		if _, hit := dict[strings.ToLower(tok)]; hit {
			known++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(known) / float64(total)
}
