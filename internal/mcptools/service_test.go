package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/ferret"
)

// mockExtractor is a test double for the extraction facade.
type mockExtractor struct {
	files []ferret.InFile
	lang  string

	docs  []*doc.Document
	perrs []*doc.ProcessingError
	err   error
	table map[string][]string
}

func (m *mockExtractor) ExtractBatch(_ context.Context, files []ferret.InFile, lang string, opts ...ferret.CallOption) ([]*doc.Document, []*doc.ProcessingError, error) {
	m.files = files
	m.lang = lang
	return m.docs, m.perrs, m.err
}

func (m *mockExtractor) Pipelines(_ context.Context) (map[string][]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.table, nil
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestService_ExtractFile(t *testing.T) {
	extracted := doc.NewDocument("paper.pdf", nil)
	extracted.MetaInfo.Title = "On Streams"
	extracted.MetaInfo.Thumbnail = []byte("png-bytes")
	extracted.Chunks = []doc.Chunk{
		{Type: doc.ChunkText, Text: "Streams are helpful."},
		{Type: doc.ChunkFigure, Text: "a diagram", Locked: true, NonEmbeddableContent: []byte("img")},
		{Type: doc.ChunkTable, Text: "a table", Locked: true, NonEmbeddableContent: []byte("<table/>")},
	}
	mock := &mockExtractor{docs: []*doc.Document{extracted}}
	svc := NewService(mock, nil)

	path := writeTestFile(t, "paper.pdf", "%PDF-1.4")
	_, out, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: path, Lang: "de"})
	require.NoError(t, err)

	require.NotNil(t, out.Document)
	assert.Equal(t, "On Streams", out.Document.MetaInfo.Title)
	assert.Empty(t, out.Error)

	// Binary payloads are elided, table HTML stays.
	assert.Nil(t, out.Document.MetaInfo.Thumbnail)
	assert.Nil(t, out.Document.Chunks[1].NonEmbeddableContent)
	assert.Equal(t, []byte("<table/>"), out.Document.Chunks[2].NonEmbeddableContent)

	require.Len(t, mock.files, 1)
	assert.Equal(t, path, mock.files[0].Path)
	assert.Equal(t, "de", mock.lang)
}

func TestService_ExtractFile_DefaultsLanguage(t *testing.T) {
	mock := &mockExtractor{docs: []*doc.Document{doc.NewDocument("a.txt", nil)}}
	svc := NewService(mock, nil)

	path := writeTestFile(t, "a.txt", "hello")
	_, _, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "en", mock.lang)
}

func TestService_ExtractFile_PathRequired(t *testing.T) {
	svc := NewService(&mockExtractor{}, nil)

	_, _, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestService_ExtractFile_MissingFile(t *testing.T) {
	svc := NewService(&mockExtractor{}, nil)

	_, _, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: "/nonexistent/paper.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestService_ExtractFile_PipelineFailure(t *testing.T) {
	stub := doc.NewDocument("broken.pdf", nil)
	perr := doc.Errorf(doc.KindExternal, "tika_extractor", "connection refused")
	perr.File = "broken.pdf"
	mock := &mockExtractor{docs: []*doc.Document{stub}, perrs: []*doc.ProcessingError{perr}}
	svc := NewService(mock, nil)

	path := writeTestFile(t, "broken.pdf", "%PDF-1.4")
	_, out, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: path})
	require.NoError(t, err)
	assert.NotNil(t, out.Document)
	assert.Contains(t, out.Error, "connection refused")
}

func TestService_ExtractFile_InfrastructureFailure(t *testing.T) {
	mock := &mockExtractor{err: errors.New("scratch dir unavailable")}
	svc := NewService(mock, nil)

	path := writeTestFile(t, "a.txt", "hello")
	_, _, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scratch dir unavailable")
}

func TestService_ListPipelines(t *testing.T) {
	mock := &mockExtractor{table: map[string][]string{
		"pdf": {"tika_extractor", "simple_chunker"},
		"txt": {"raw_text_extractor", "simple_chunker"},
	}}
	svc := NewService(mock, nil)

	_, out, err := svc.ListPipelines(context.Background(), nil, ListPipelinesInput{})
	require.NoError(t, err)
	assert.Len(t, out.Extensions, 2)
	assert.Equal(t, []string{"tika_extractor", "simple_chunker"}, out.Extensions["pdf"])
}

// noTools fails every subprocess invocation so pipelines stay local.
func noTools(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	return nil, []byte("not installed"), fmt.Errorf("%s: not installed", name)
}

func TestService_ExtractFile_EndToEnd(t *testing.T) {
	f, err := ferret.New(config.Default(), ferret.WithRunner(noTools))
	require.NoError(t, err)
	svc := NewService(f, nil)

	path := writeTestFile(t, "story.txt", "The first line of the story.\nThe second line follows it.\n")
	_, out, err := svc.ExtractFile(context.Background(), nil, ExtractFileInput{Path: path})
	require.NoError(t, err)
	require.NotNil(t, out.Document)
	assert.Empty(t, out.Error)
	assert.Equal(t, "story.txt", out.Document.Filename())
	require.NotEmpty(t, out.Document.Chunks)
	assert.Contains(t, out.Document.Chunks[0].Text, "first line")
}
