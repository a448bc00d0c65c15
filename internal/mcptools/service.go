package mcptools

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/ferret"
)

// extractorAPI is the facade surface the tools need. *ferret.Ferret
// implements it; tests substitute a mock.
type extractorAPI interface {
	ExtractBatch(ctx context.Context, files []ferret.InFile, defaultLang string, opts ...ferret.CallOption) ([]*doc.Document, []*doc.ProcessingError, error)
	Pipelines(ctx context.Context) (map[string][]string, error)
}

// Service handles MCP tool calls against the extraction facade.
type Service struct {
	ex  extractorAPI
	log *logrus.Logger
}

// NewService creates a Service around the extraction facade.
func NewService(ex extractorAPI, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{ex: ex, log: log}
}

// ExtractFile runs one file through its pipeline and returns the document.
// Pipeline failures come back in the output's error field; only unusable
// input or infrastructure failure errors the call.
func (s *Service) ExtractFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractFileInput,
) (*mcp.CallToolResult, ExtractFileOutput, error) {
	if input.Path == "" {
		return nil, ExtractFileOutput{}, fmt.Errorf("path is required")
	}
	if _, err := os.Stat(input.Path); err != nil {
		return nil, ExtractFileOutput{}, fmt.Errorf("stat %s: %w", input.Path, err)
	}
	lang := input.Lang
	if lang == "" {
		lang = "en"
	}

	docs, perrs, err := s.ex.ExtractBatch(ctx, []ferret.InFile{{Path: input.Path}}, lang,
		ferret.WithTextModel(input.TextModel),
		ferret.WithVisionModel(input.VisionModel),
	)
	if err != nil {
		return nil, ExtractFileOutput{}, err
	}

	out := ExtractFileOutput{}
	if len(docs) > 0 {
		elideImages(docs[0])
		out.Document = docs[0]
	}
	if len(perrs) > 0 {
		out.Error = perrs[0].Error()
		s.log.WithField("file", input.Path).Warn("extraction failed")
	}
	return nil, out, nil
}

// ListPipelines reports the recipe table: every supported extension with its
// ordered stage names.
func (s *Service) ListPipelines(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListPipelinesInput,
) (*mcp.CallToolResult, ListPipelinesOutput, error) {
	table, err := s.ex.Pipelines(ctx)
	if err != nil {
		return nil, ListPipelinesOutput{}, err
	}
	return nil, ListPipelinesOutput{Extensions: table}, nil
}

// elideImages strips the binary payloads from a document so tool results
// stay textual. Table HTML attachments are kept.
func elideImages(d *doc.Document) {
	if d == nil {
		return
	}
	d.MetaInfo.Thumbnail = nil
	for i := range d.Chunks {
		switch d.Chunks[i].EffectiveType() {
		case doc.ChunkFigure, doc.ChunkVisualPage:
			d.Chunks[i].NonEmbeddableContent = nil
		}
	}
}
