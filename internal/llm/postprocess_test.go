package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pdferret/internal/doc"
)

// Compile-time interface check for the test double.
var _ Client = (*mockClient)(nil)

// mockClient lets tests script completions per call.
type mockClient struct {
	completeFn func(ctx context.Context, req Request) (string, error)
	countFn    func(text string) int
	maxTokens  int
	requests   []Request
}

func (m *mockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.requests = append(m.requests, req)
	return m.completeFn(ctx, req)
}

func (m *mockClient) CountTokens(text string) int {
	if m.countFn != nil {
		return m.countFn(text)
	}
	return len(strings.Fields(text))
}

func (m *mockClient) MaxInputTokens() int {
	if m.maxTokens > 0 {
		return m.maxTokens
	}
	return DefaultMaxInputTokens
}

// byPurpose answers the metadata and summary prompts with fixed JSON.
func byPurpose(metadataJSON, summaryJSON string) func(ctx context.Context, req Request) (string, error) {
	return func(_ context.Context, req Request) (string, error) {
		switch {
		case strings.Contains(req.System, "extract metadata"):
			return metadataJSON, nil
		case strings.Contains(req.System, "two summaries"):
			return summaryJSON, nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}
}

func textDocument(filename string, texts ...string) *doc.Document {
	d := doc.NewDocument(filename, nil)
	for _, text := range texts {
		d.Chunks = append(d.Chunks, doc.Chunk{Text: text})
	}
	return d
}

func TestPostprocessor_Process_FillsMetadataAndSummary(t *testing.T) {
	client := &mockClient{completeFn: byPurpose(
		`{"title": "Attention Is All You Need", "people": ["Ashish Vaswani"], "document_type": "Research Paper", "mentioned_date": "2017-06-12", "detected_language": "en"}`,
		`{"search_description": "Transformer architecture paper.", "content_summary": "Introduces the Transformer based on attention."}`,
	)}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d, err := p.Process(context.Background(), "paper.pdf", textDocument("paper.pdf", "We propose the Transformer."))

	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", d.MetaInfo.Title)
	assert.Equal(t, []string{"Ashish Vaswani"}, d.MetaInfo.Authors)
	assert.Equal(t, "Research Paper", d.MetaInfo.DocumentType)
	assert.Equal(t, "2017-06-12", d.MetaInfo.MentionedDate)
	assert.Equal(t, "en", d.MetaInfo.DetectedLanguage)
	assert.Equal(t, "Introduces the Transformer based on attention.", d.MetaInfo.Abstract)
	assert.Equal(t, "Transformer architecture paper.", d.MetaInfo.SearchDescription)
}

func TestPostprocessor_Process_EmptyFieldsKeepExistingValues(t *testing.T) {
	client := &mockClient{completeFn: byPurpose(
		`{"title": "", "people": [], "document_type": "Report", "mentioned_date": "", "detected_language": ""}`,
		`{"search_description": "s", "content_summary": "c"}`,
	)}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d := textDocument("report.pdf", "Quarterly numbers.")
	d.MetaInfo.Title = "Existing Title"
	d.MetaInfo.Authors = []string{"Original Author"}

	d, err := p.Process(context.Background(), "report.pdf", d)

	require.NoError(t, err)
	assert.Equal(t, "Existing Title", d.MetaInfo.Title)
	assert.Equal(t, []string{"Original Author"}, d.MetaInfo.Authors)
	assert.Equal(t, "Report", d.MetaInfo.DocumentType)
}

func TestPostprocessor_Process_ExistingAbstractSkipsSummary(t *testing.T) {
	client := &mockClient{completeFn: byPurpose(
		`{"title": "T", "people": [], "document_type": "", "mentioned_date": "", "detected_language": ""}`,
		`{"search_description": "s", "content_summary": "replacement"}`,
	)}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d := textDocument("a.pdf", "Body text.")
	d.MetaInfo.Abstract = "Original abstract."

	d, err := p.Process(context.Background(), "a.pdf", d)

	require.NoError(t, err)
	assert.Equal(t, "Original abstract.", d.MetaInfo.Abstract)
	// Only the metadata call went out.
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].System, "extract metadata")
}

func TestPostprocessor_Process_OverwriteAbstract(t *testing.T) {
	client := &mockClient{completeFn: byPurpose(
		`{"title": "T", "people": [], "document_type": "", "mentioned_date": "", "detected_language": ""}`,
		`{"search_description": "s", "content_summary": "replacement"}`,
	)}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true, OverwriteAbstract: true})

	d := textDocument("a.pdf", "Body text.")
	d.MetaInfo.Abstract = "Original abstract."

	d, err := p.Process(context.Background(), "a.pdf", d)

	require.NoError(t, err)
	assert.Equal(t, "replacement", d.MetaInfo.Abstract)
}

func TestPostprocessor_Process_ModelFailureLeavesDocumentIntact(t *testing.T) {
	client := &mockClient{completeFn: func(_ context.Context, _ Request) (string, error) {
		return "", errors.New("upstream unavailable")
	}}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d := textDocument("a.pdf", "Body text.")
	d.MetaInfo.Title = "Kept"

	// A broken model must never fail the document.
	d, err := p.Process(context.Background(), "a.pdf", d)

	require.NoError(t, err)
	assert.Equal(t, "Kept", d.MetaInfo.Title)
	assert.Empty(t, d.MetaInfo.Abstract)
}

func TestPostprocessor_Process_DescribesAtMostFiveTables(t *testing.T) {
	client := &mockClient{completeFn: func(_ context.Context, req Request) (string, error) {
		return `{"description": "sales by region"}`, nil
	}}
	p := NewPostprocessor(client, PostprocessorOptions{TableDescriptions: true})

	d := doc.NewDocument("tables.pdf", nil)
	for i := 0; i < 7; i++ {
		d.Chunks = append(d.Chunks, doc.Chunk{
			Type:                 doc.ChunkTable,
			Locked:               true,
			NonEmbeddableContent: []byte("<table><tr><td>1</td></tr></table>"),
		})
	}

	d, err := p.Process(context.Background(), "tables.pdf", d)

	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, "sales by region", d.Chunks[i].Text, "table %d should be described", i)
	}
	for i := 5; i < 7; i++ {
		assert.Empty(t, d.Chunks[i].Text, "table %d is past the cap", i)
	}
}

func TestPostprocessor_Process_FailedTableDoesNotConsumeBudget(t *testing.T) {
	calls := 0
	client := &mockClient{completeFn: func(_ context.Context, _ Request) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient")
		}
		return `{"description": "described"}`, nil
	}}
	p := NewPostprocessor(client, PostprocessorOptions{TableDescriptions: true})

	d := doc.NewDocument("t.pdf", nil)
	for i := 0; i < 2; i++ {
		d.Chunks = append(d.Chunks, doc.Chunk{Type: doc.ChunkTable, NonEmbeddableContent: []byte("<table/>")})
	}

	d, err := p.Process(context.Background(), "t.pdf", d)

	require.NoError(t, err)
	assert.Empty(t, d.Chunks[0].Text)
	assert.Equal(t, "described", d.Chunks[1].Text)
}

func TestPostprocessor_Process_TruncatesOverlongInput(t *testing.T) {
	client := &mockClient{
		completeFn: byPurpose(
			`{"title": "T", "people": [], "document_type": "", "mentioned_date": "", "detected_language": ""}`,
			`{"search_description": "s", "content_summary": "c"}`,
		),
		countFn:   func(_ string) int { return 1000 },
		maxTokens: 100,
	}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	long := strings.Repeat("word ", 2000)
	d, err := p.Process(context.Background(), "long.pdf", textDocument("long.pdf", long))

	require.NoError(t, err)
	require.Len(t, client.requests, 2)
	summaryReq := client.requests[1]
	// 1000 estimated tokens against a budget of 100 keeps roughly a tenth.
	assert.Less(t, len(summaryReq.User), len(long)/5)
	assert.NotEmpty(t, d.MetaInfo.Abstract)
}

func TestPostprocessor_Process_SelectsGermanPrompts(t *testing.T) {
	client := &mockClient{completeFn: func(_ context.Context, req Request) (string, error) {
		assert.Contains(t, req.System, "Bibliothekar")
		return `{"title": "", "people": [], "document_type": "", "mentioned_date": "", "detected_language": "", "search_description": "", "content_summary": ""}`, nil
	}}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d := textDocument("de.pdf", "Deutscher Text.")
	d.MetaInfo.Language = "de"

	_, err := p.Process(context.Background(), "de.pdf", d)

	require.NoError(t, err)
	assert.NotEmpty(t, client.requests)
}

func TestPostprocessor_Process_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	client := &mockClient{completeFn: func(_ context.Context, req Request) (string, error) {
		assert.Contains(t, req.System, "librarian")
		return `{"title": "", "people": [], "document_type": "", "mentioned_date": "", "detected_language": "", "search_description": "", "content_summary": ""}`, nil
	}}
	p := NewPostprocessor(client, PostprocessorOptions{Summary: true, Metadata: true})

	d := textDocument("fr.pdf", "Texte français.")
	d.MetaInfo.Language = "fr"

	_, err := p.Process(context.Background(), "fr.pdf", d)

	require.NoError(t, err)
	assert.NotEmpty(t, client.requests)
}

func TestPostprocessor_Process_MetadataInputUsesFirstTwoTextChunks(t *testing.T) {
	client := &mockClient{completeFn: byPurpose(
		`{"title": "", "people": [], "document_type": "", "mentioned_date": "", "detected_language": ""}`,
		`{"search_description": "", "content_summary": ""}`,
	)}
	p := NewPostprocessor(client, PostprocessorOptions{Metadata: true})

	d := doc.NewDocument("mixed.pdf", nil)
	d.Chunks = []doc.Chunk{
		{Type: doc.ChunkFigure, Locked: true, NonEmbeddableContent: []byte{0x89}},
		{Text: "first paragraph"},
		{Text: "second paragraph"},
		{Text: "third paragraph"},
	}

	_, err := p.Process(context.Background(), "mixed.pdf", d)

	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	user := client.requests[0].User
	assert.Contains(t, user, "Filename: mixed.pdf")
	assert.Contains(t, user, "first paragraph")
	assert.Contains(t, user, "second paragraph")
	assert.NotContains(t, user, "third paragraph")
}

func TestPostprocessor_Process_NilDocument(t *testing.T) {
	p := NewPostprocessor(&mockClient{}, PostprocessorOptions{})

	_, err := p.Process(context.Background(), "x", nil)

	var perr *doc.ProcessingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, doc.KindTypeMismatch, perr.Kind)
}
