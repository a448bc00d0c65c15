package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() map[string][]string {
	return map[string][]string{
		"pdf":  {"tika_extractor", "language_detector", "thumbnailer", "simple_chunker"},
		"docx": {"office_metadata", "thumbnailer", "pandoc_extractor", "simple_chunker"},
		"odt":  {"office_metadata", "thumbnailer", "pandoc_extractor", "simple_chunker"},
		"txt":  {"thumbnailer", "raw_text_extractor", "simple_chunker"},
	}
}

func TestExportPipelines_GroupsByChain(t *testing.T) {
	out := ExportPipelines("tika", sampleTable())

	assert.Equal(t, "tika", out.Engine)
	require.Len(t, out.Pipelines, 3, "docx and odt share a chain")

	assert.Equal(t, []string{"docx", "odt"}, out.Pipelines[0].Extensions)
	assert.Equal(t, []string{"office_metadata", "thumbnailer", "pandoc_extractor", "simple_chunker"},
		out.Pipelines[0].Stages)
	assert.Equal(t, []string{"pdf"}, out.Pipelines[1].Extensions)
	assert.Equal(t, []string{"txt"}, out.Pipelines[2].Extensions)

	_, err := time.Parse(time.RFC3339, out.ExportedAt)
	assert.NoError(t, err)
}

func TestExportPipelines_EmptyTable(t *testing.T) {
	out := ExportPipelines("grobid", nil)

	assert.Equal(t, "grobid", out.Engine)
	assert.Empty(t, out.Pipelines)
}

func TestGenerateMermaid(t *testing.T) {
	diagram := GenerateMermaid(sampleTable())

	assert.True(t, strings.HasPrefix(diagram, "graph LR\n"))
	assert.Contains(t, diagram, `(["pdf"])`)
	assert.Contains(t, diagram, `["tika_extractor"]`)

	// Stages shared across recipes are declared once.
	assert.Equal(t, 1, strings.Count(diagram, `["thumbnailer"]`))

	// docx and odt run the same chain; their shared stage edges appear once.
	// Node IDs: extensions first in sorted order, then stage names sorted.
	assert.Equal(t, 1, strings.Count(diagram, "N5 --> N9"), "office_metadata --> thumbnailer")

	// Every line is an edge or a node declaration.
	for _, line := range strings.Split(strings.TrimSuffix(diagram, "\n"), "\n")[1:] {
		assert.True(t, strings.HasPrefix(line, "  N"), "unexpected line %q", line)
	}
}
