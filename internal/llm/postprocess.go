package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/doc"
)

const (
	// DefaultSummaryMaxChunks caps how many text chunks feed the summary.
	DefaultSummaryMaxChunks = 5

	maxTableDescriptions = 5
	maxVisualPages       = 10

	// truncateRatio keeps the prompt safely under the model budget after
	// the token estimate is scaled back to characters.
	truncateRatio = 0.95
)

type metadataResponse struct {
	Title            string   `json:"title"`
	People           []string `json:"people"`
	DocumentType     string   `json:"document_type"`
	MentionedDate    string   `json:"mentioned_date"`
	DetectedLanguage string   `json:"detected_language"`
}

type summaryResponse struct {
	SearchDescription string `json:"search_description"`
	ContentSummary    string `json:"content_summary"`
}

type tableResponse struct {
	Description string `json:"description"`
}

// PostprocessorOptions toggles the individual model passes.
type PostprocessorOptions struct {
	// TableDescriptions rewrites TABLE chunk text with a model-generated
	// description of the table's HTML.
	TableDescriptions bool

	// Summary fills abstract and search_description.
	Summary bool

	// Metadata fills title, authors, document type, mentioned date, and
	// detected language.
	Metadata bool

	// OverwriteAbstract regenerates the abstract even when one is present.
	OverwriteAbstract bool

	// SummaryMaxChunks caps text chunks fed to the summary prompt.
	SummaryMaxChunks int

	Logger *logrus.Logger
}

// Postprocessor fills document metadata and summaries from model responses.
// Every model failure is logged and swallowed: a broken model never fails
// the document, it just leaves fields unfilled.
type Postprocessor struct {
	client           Client
	tables           bool
	summary          bool
	metadata         bool
	overwrite        bool
	summaryMaxChunks int
	log              *logrus.Logger
}

// NewPostprocessor creates the stage with the given pass toggles.
func NewPostprocessor(client Client, opts PostprocessorOptions) *Postprocessor {
	maxChunks := opts.SummaryMaxChunks
	if maxChunks <= 0 {
		maxChunks = DefaultSummaryMaxChunks
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Postprocessor{
		client:           client,
		tables:           opts.TableDescriptions,
		summary:          opts.Summary,
		metadata:         opts.Metadata,
		overwrite:        opts.OverwriteAbstract,
		summaryMaxChunks: maxChunks,
		log:              log,
	}
}

func (p *Postprocessor) Name() string     { return "llm_postprocessor" }
func (p *Postprocessor) Mode() batch.Mode { return batch.Threads }

// Process runs the enabled model passes over the document.
func (p *Postprocessor) Process(ctx context.Context, key string, d *doc.Document) (*doc.Document, error) {
	if d == nil {
		return nil, doc.Errorf(doc.KindTypeMismatch, p.Name(), "expected a document, got nil")
	}

	lang := d.MetaInfo.Language
	if !SystemPromptExists(lang) {
		if lang != "" {
			p.log.WithField("language", lang).Warn("language not supported by prompts, using English")
		}
		lang = "en"
	}

	if p.tables {
		p.describeTables(ctx, d, lang)
	}

	if p.metadata || p.summary {
		if err := p.fillMetadataAndSummary(ctx, d, lang); err != nil {
			p.log.WithField("file", key).WithError(err).Error("metadata extraction failed")
		}
	}
	return d, nil
}

// describeTables rewrites up to maxTableDescriptions TABLE chunks' text with
// a short description of their HTML content.
func (p *Postprocessor) describeTables(ctx context.Context, d *doc.Document, lang string) {
	remaining := maxTableDescriptions
	for i := range d.Chunks {
		if remaining <= 0 {
			break
		}
		chunk := &d.Chunks[i]
		if chunk.EffectiveType() != doc.ChunkTable {
			continue
		}
		resp, err := Structured[tableResponse](ctx, p.client, Request{
			System:      SystemPrompt(PurposeTable, lang),
			User:        string(chunk.NonEmbeddableContent),
			Temperature: 0.2,
			MaxTokens:   1000,
		})
		if err != nil {
			p.log.WithError(err).Error("table description failed")
			continue
		}
		chunk.Text = resp.Description
		remaining--
	}
}

// fillMetadataAndSummary drives the metadata and summary prompts from the
// document's filename and leading content.
func (p *Postprocessor) fillMetadataAndSummary(ctx context.Context, d *doc.Document, lang string) error {
	usefulInfo := fmt.Sprintf("Filename: %s\n", d.MetaInfo.FileFeatures.Filename)

	// The metadata prompt sees the filename plus the first two text chunks.
	var metaInput strings.Builder
	metaInput.WriteString(usefulInfo)
	metaInput.WriteString("\nDocument content: ")
	taken := 0
	for i := range d.Chunks {
		if taken >= 2 {
			break
		}
		if d.Chunks[i].EffectiveType() != doc.ChunkText {
			continue
		}
		metaInput.WriteString("\n" + d.Chunks[i].Text)
		taken++
	}

	// The summary prompt sees more text plus every visual page description.
	if len(d.Chunks) > 0 {
		var b strings.Builder
		b.WriteString(usefulInfo)
		b.WriteString("Content: ")
		remainingText := p.summaryMaxChunks
		remainingVisual := maxVisualPages
		for i := range d.Chunks {
			switch d.Chunks[i].EffectiveType() {
			case doc.ChunkText:
				if remainingText > 0 {
					b.WriteString(d.Chunks[i].Text + "\n")
					remainingText--
				}
			case doc.ChunkVisualPage:
				if remainingVisual > 0 {
					b.WriteString(d.Chunks[i].Text + "\n")
					remainingVisual--
				}
			}
		}
		usefulInfo = b.String()
	}

	if budget := p.client.MaxInputTokens(); budget > 0 {
		if current := p.client.CountTokens(usefulInfo); current > budget {
			p.log.WithFields(logrus.Fields{"tokens": current, "budget": budget}).
				Warn("input too long, truncating")
			usefulInfo = truncateToBudget(usefulInfo, budget, current)
		}
	}

	if p.metadata {
		resp, err := Structured[metadataResponse](ctx, p.client, Request{
			System:      SystemPrompt(PurposeMetadata, lang),
			User:        metaInput.String(),
			Temperature: 0.2,
			MaxTokens:   500,
		})
		if err != nil {
			return err
		}
		applyMetadata(d, resp)
	}

	if p.summary && (d.MetaInfo.Abstract == "" || p.overwrite) {
		usefulInfo += fmt.Sprintf("\nTitle: %s\n", d.MetaInfo.Title)
		resp, err := Structured[summaryResponse](ctx, p.client, Request{
			System:      SystemPrompt(PurposeSummary, lang),
			User:        usefulInfo,
			Temperature: 0.4,
			MaxTokens:   1000,
		})
		if err != nil {
			return err
		}
		d.MetaInfo.Abstract = resp.ContentSummary
		d.MetaInfo.SearchDescription = resp.SearchDescription
	}
	return nil
}

// applyMetadata copies non-empty response fields into the document metainfo.
func applyMetadata(d *doc.Document, resp *metadataResponse) {
	if resp.Title != "" {
		d.MetaInfo.Title = resp.Title
	}
	if len(resp.People) > 0 {
		d.MetaInfo.Authors = resp.People
	}
	if resp.DocumentType != "" {
		d.MetaInfo.DocumentType = resp.DocumentType
	}
	if resp.MentionedDate != "" {
		d.MetaInfo.MentionedDate = resp.MentionedDate
	}
	if resp.DetectedLanguage != "" {
		d.MetaInfo.DetectedLanguage = resp.DetectedLanguage
	}
}

// truncateToBudget cuts text so its estimated token count fits the budget,
// leaving some slack. The cut never splits a UTF-8 sequence.
func truncateToBudget(text string, budget, current int) string {
	end := int(truncateRatio * float64(len(text)) * float64(budget) / float64(current))
	if end >= len(text) {
		return text
	}
	if end < 0 {
		end = 0
	}
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	return text[:end]
}

// SystemPromptExists reports whether lang has its own prompt translations.
func SystemPromptExists(lang string) bool {
	_, ok := prompts[promptKey{PurposeSummary, lang}]
	return ok
}
