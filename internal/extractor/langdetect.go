package extractor

import (
	"context"
	"strings"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/textutil"
)

// LanguageDetector fixes the detected language from the text gathered by
// earlier stages, preferring the abstract over the title. Documents with
// neither default to English. An explicitly requested language is kept.
type LanguageDetector struct{}

// NewLanguageDetector creates the stage.
func NewLanguageDetector() *LanguageDetector { return &LanguageDetector{} }

func (LanguageDetector) Name() string { return "language_detector" }

func (LanguageDetector) Mode() batch.Mode { return batch.Serial }

func (LanguageDetector) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	m := &d.MetaInfo
	lang := "en"
	switch {
	case strings.TrimSpace(m.Abstract) != "":
		lang = textutil.DetectLanguage(m.Abstract)
	case strings.TrimSpace(m.Title) != "":
		lang = textutil.DetectLanguage(m.Title)
	}
	m.DetectedLanguage = lang
	if m.Language == "" {
		m.Language = lang
	}
	return d, nil
}
