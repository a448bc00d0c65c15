package ferret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/llm"
	"github.com/dusk-indust/pdferret/internal/pipeline"
)

type stubModel struct{}

func (stubModel) Complete(ctx context.Context, req llm.Request) (string, error) { return "", nil }
func (stubModel) CountTokens(text string) int                                   { return len(text) / 4 }
func (stubModel) MaxInputTokens() int                                           { return 8192 }

func stageNames(t *testing.T, reg *pipeline.Registry, ext string) []string {
	t.Helper()
	p, ok := reg.Lookup(ext)
	require.True(t, ok, "no pipeline for %s", ext)
	names := make([]string, 0, len(p.Stages()))
	for _, st := range p.Stages() {
		names = append(names, st.Name())
	}
	return names
}

func defaultParams(f *Ferret) callParams {
	return callParams{
		textModel:   f.cfg.TextModel,
		visionModel: f.cfg.VisionModel,
		engine:      f.cfg.PDFEngine,
	}
}

func TestBuildRegistry_DefaultRecipes(t *testing.T) {
	f := newTestFerret(t)

	reg, err := f.buildRegistry(context.Background(), t.TempDir(), defaultParams(f))
	require.NoError(t, err)

	assert.Equal(t, []string{"doc", "docx", "ods", "odt", "pdf", "ppt", "pptx", "txt", "xls", "xlsx"},
		reg.Extensions())

	// Without model clients the LLM stages vanish and the visual stage
	// degrades to plain thumbnailing.
	assert.Equal(t, []string{"office_metadata", "thumbnailer", "pandoc_extractor", "simple_chunker"},
		stageNames(t, reg, "docx"))
	assert.Equal(t, []string{"thumbnailer", "libreoffice_converter", "office_metadata", "pandoc_extractor", "simple_chunker"},
		stageNames(t, reg, "doc"))
	assert.Equal(t, []string{"thumbnailer", "raw_text_extractor", "simple_chunker"},
		stageNames(t, reg, "txt"))
	assert.Equal(t, []string{"office_metadata", "libreoffice_converter", "tika_extractor", "thumbnailer", "simple_chunker"},
		stageNames(t, reg, "pptx"))
	assert.Equal(t, []string{"tika_extractor", "language_detector", "thumbnailer", "simple_chunker"},
		stageNames(t, reg, "pdf"))
	assert.Equal(t, []string{"office_metadata", "thumbnailer", "spreadsheet_extractor"},
		stageNames(t, reg, "xlsx"))
	assert.Equal(t, stageNames(t, reg, "xlsx"), stageNames(t, reg, "ods"))
}

func TestBuildRegistry_GrobidEngine(t *testing.T) {
	f := newTestFerret(t)

	params := defaultParams(f)
	params.engine = config.EngineGrobid
	reg, err := f.buildRegistry(context.Background(), t.TempDir(), params)
	require.NoError(t, err)

	assert.Equal(t, []string{"file_info", "grobid_extractor", "language_detector", "thumbnailer", "standard_chunker"},
		stageNames(t, reg, "pdf"))
}

func TestBuildRegistry_UnstructuredEngine(t *testing.T) {
	f := newTestFerret(t)

	params := defaultParams(f)
	params.engine = config.EngineUnstructured
	reg, err := f.buildRegistry(context.Background(), t.TempDir(), params)
	require.NoError(t, err)

	assert.Equal(t, []string{"file_info", "unstructured_extractor", "standard_chunker"},
		stageNames(t, reg, "pdf"))
}

func TestBuildRegistry_ModelStages(t *testing.T) {
	f := newTestFerret(t, WithTextClient(stubModel{}), WithVisionClient(stubModel{}))

	reg, err := f.buildRegistry(context.Background(), t.TempDir(), defaultParams(f))
	require.NoError(t, err)

	assert.Equal(t, []string{"tika_extractor", "language_detector", "visual_extractor", "llm_postprocessor", "simple_chunker"},
		stageNames(t, reg, "pdf"))
	assert.Equal(t, []string{"thumbnailer", "raw_text_extractor", "llm_postprocessor", "simple_chunker"},
		stageNames(t, reg, "txt"))
	assert.Equal(t, []string{"office_metadata", "thumbnailer", "spreadsheet_extractor", "llm_postprocessor"},
		stageNames(t, reg, "xlsx"))
	assert.Equal(t, []string{"office_metadata", "libreoffice_converter", "tika_extractor", "visual_extractor", "llm_postprocessor", "simple_chunker"},
		stageNames(t, reg, "ppt"))
}

func TestPipelines_ReportsRecipeTable(t *testing.T) {
	f := newTestFerret(t)

	table, err := f.Pipelines(context.Background())
	require.NoError(t, err)

	require.Len(t, table, 10)
	assert.Equal(t, []string{"tika_extractor", "language_detector", "thumbnailer", "simple_chunker"}, table["pdf"])
	assert.Equal(t, []string{"thumbnailer", "raw_text_extractor", "simple_chunker"}, table["txt"])
}
