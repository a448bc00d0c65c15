package ferret

import (
	"context"
	"fmt"
	"os"

	"github.com/dusk-indust/pdferret/internal/batch"
	"github.com/dusk-indust/pdferret/internal/chunk"
	"github.com/dusk-indust/pdferret/internal/config"
	"github.com/dusk-indust/pdferret/internal/extractor"
	"github.com/dusk-indust/pdferret/internal/llm"
	"github.com/dusk-indust/pdferret/internal/pipeline"
)

// buildRegistry assembles the per-extension pipelines for one call. Stages
// holding the scratch directory or a per-call model client cannot be shared
// across calls, so the registry is rebuilt each time; the recipe shapes
// themselves are fixed.
func (f *Ferret) buildRegistry(ctx context.Context, workDir string, params callParams) (*pipeline.Registry, error) {
	text, err := f.resolveTextClient(ctx, params)
	if err != nil {
		return nil, err
	}
	vision, err := f.resolveVisionClient(ctx, params)
	if err != nil {
		return nil, err
	}

	office := extractor.NewOfficeMetaExtractor(f.log)
	thumb := extractor.NewThumbnailer(f.run, workDir, f.log)
	pandoc := extractor.NewPandocExtractor(extractor.PandocExtractorOptions{
		Run:     f.run,
		WorkDir: workDir,
		Logger:  f.log,
	})
	langdet := extractor.NewLanguageDetector()
	simple := chunk.NewSimpleChunker(0, f.cfg.SimpleChunkerMaxLength, f.cfg.ChunkOverlap)

	var post pipeline.Stage
	if text != nil {
		post = llm.NewPostprocessor(text, llm.PostprocessorOptions{
			TableDescriptions: true,
			Summary:           true,
			Metadata:          true,
			Logger:            f.log,
		})
	}
	var visual pipeline.Stage
	if vision != nil {
		visual = extractor.NewVisualExtractor(vision, extractor.VisualExtractorOptions{
			MaxPages:        f.cfg.VisualMaxPages,
			UpdateThumbnail: true,
			Run:             f.run,
			WorkDir:         workDir,
			Logger:          f.log,
		})
	}
	// Without a vision model the PDF and slide recipes fall back to plain
	// thumbnailing so documents still get a preview image.
	pdfVisual := visual
	if pdfVisual == nil {
		pdfVisual = thumb
	}

	reg := pipeline.NewRegistry()
	popt := pipeline.WithLogger(f.log)

	reg.Register(pipeline.New("word", stageList(
		office, thumb, pandoc, post, simple,
	), popt), "docx", "odt")

	reg.Register(pipeline.New("word_legacy", stageList(
		thumb,
		extractor.NewLibreOfficeConverter(f.run, workDir, "docx", f.log),
		office, pandoc, post, simple,
	), popt), "doc")

	reg.Register(pipeline.New("plaintext", stageList(
		thumb, extractor.NewRawTextExtractor(0), post, simple,
	), popt), "txt")

	reg.Register(pipeline.New("slides", stageList(
		office,
		extractor.NewLibreOfficeConverter(f.run, workDir, "pdf", f.log),
		extractor.NewTikaExtractor(f.tika, extractor.TikaExtractorOptions{
			OCRStrategy: extractor.OCRNone,
			Convert:     extractor.NewPandocConverter(f.run),
			Logger:      f.log,
		}),
		pdfVisual, post, simple,
	), popt), "ppt", "pptx")

	if err := f.registerPDF(reg, popt, params.engine, workDir, pdfVisual, post, langdet); err != nil {
		return nil, err
	}

	reg.Register(pipeline.New("spreadsheet", stageList(
		office, thumb,
		extractor.NewSpreadsheetExtractor(f.tika, f.log),
		post,
	), popt), "xlsx", "xls", "ods")

	return reg, nil
}

// registerPDF wires the engine-specific PDF recipe.
func (f *Ferret) registerPDF(reg *pipeline.Registry, popt pipeline.Option, engine, workDir string, pdfVisual, post pipeline.Stage, langdet *extractor.LanguageDetector) error {
	switch engine {
	case config.EngineTika:
		reg.Register(pipeline.New("pdf_tika", stageList(
			extractor.NewTikaExtractor(f.tika, extractor.TikaExtractorOptions{
				OCRStrategy:     f.ocr,
				SaveRawMetadata: true,
				Convert:         extractor.NewPandocConverter(f.run),
				Logger:          f.log,
			}),
			langdet, pdfVisual, post,
			chunk.NewSimpleChunker(0, f.cfg.SimpleChunkerMaxLength, f.cfg.ChunkOverlap),
		), popt), "pdf")

	case config.EngineGrobid:
		reg.Register(pipeline.New("pdf_grobid", stageList(
			f.fileInfo(workDir),
			extractor.NewGrobidExtractor(f.grobid, extractor.GrobidExtractorOptions{
				ExtractMeta: true,
				MaxPages:    f.cfg.MaxPages,
				Run:         f.run,
				WorkDir:     workDir,
				Logger:      f.log,
			}),
			langdet, pdfVisual, post,
			chunk.NewStandardChunker(f.speller, true),
		), popt), "pdf")

	case config.EngineUnstructured:
		reg.Register(pipeline.New("pdf_unstructured", stageList(
			f.fileInfo(workDir),
			extractor.NewUnstructuredExtractor(f.unstructured, extractor.UnstructuredExtractorOptions{
				Batch:  batch.Options{Workers: f.cfg.NProc, BatchSize: f.cfg.BatchSize},
				Logger: f.log,
			}),
			post,
			chunk.NewStandardChunker(f.speller, true),
		), popt), "pdf")

	default:
		return fmt.Errorf("ferret: unknown pdf engine %q", engine)
	}
	return nil
}

func (f *Ferret) fileInfo(workDir string) pipeline.Stage {
	return extractor.NewFileInfoExtractor(extractor.FileInfoExtractorOptions{
		MaxPages: f.cfg.MaxPages,
		Run:      f.run,
		WorkDir:  workDir,
		Logger:   f.log,
	})
}

func (f *Ferret) resolveTextClient(ctx context.Context, params callParams) (llm.Client, error) {
	if f.textClient != nil {
		return f.textClient, nil
	}
	if f.cfg.LLMBaseURL == "" || params.textModel == "" {
		return nil, nil
	}
	c, err := llm.NewOpenAI(ctx, llm.OpenAIConfig{
		BaseURL: f.cfg.LLMBaseURL,
		APIKey:  f.cfg.LLMAPIKey,
		Model:   params.textModel,
		Logger:  f.log,
	})
	if err != nil {
		return nil, fmt.Errorf("ferret: text model: %w", err)
	}
	return c, nil
}

func (f *Ferret) resolveVisionClient(ctx context.Context, params callParams) (llm.Client, error) {
	if f.visionClient != nil {
		return f.visionClient, nil
	}
	if f.cfg.LLMBaseURL == "" || params.visionModel == "" {
		return nil, nil
	}
	c, err := llm.NewOpenAI(ctx, llm.OpenAIConfig{
		BaseURL: f.cfg.LLMBaseURL,
		APIKey:  f.cfg.LLMAPIKey,
		Model:   params.visionModel,
		Logger:  f.log,
	})
	if err != nil {
		return nil, fmt.Errorf("ferret: vision model: %w", err)
	}
	return c, nil
}

// Pipelines reports each registered extension with its stage names, built
// from the configured defaults.
func (f *Ferret) Pipelines(ctx context.Context) (map[string][]string, error) {
	params := callParams{
		textModel:   f.cfg.TextModel,
		visionModel: f.cfg.VisionModel,
		engine:      f.cfg.PDFEngine,
	}
	reg, err := f.buildRegistry(ctx, os.TempDir(), params)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(reg.Extensions()))
	for _, ext := range reg.Extensions() {
		p, _ := reg.Lookup(ext)
		names := make([]string, 0, len(p.Stages()))
		for _, st := range p.Stages() {
			names = append(names, st.Name())
		}
		out[ext] = names
	}
	return out, nil
}

// stageList drops the nil placeholders left by disabled model stages.
func stageList(ss ...pipeline.Stage) []pipeline.Stage {
	out := make([]pipeline.Stage, 0, len(ss))
	for _, s := range ss {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
