// Package export renders the recipe table for machine consumption: a JSON
// structure for tooling and a Mermaid diagram for documentation.
package export

import (
	"sort"
	"strings"
	"time"
)

// PipelinesExport is the top-level JSON export structure.
type PipelinesExport struct {
	Engine     string          `json:"engine"`
	ExportedAt string          `json:"exportedAt"`
	Pipelines  []PipelineEntry `json:"pipelines"`
}

// PipelineEntry describes one recipe: the extensions it serves and its
// ordered stage names.
type PipelineEntry struct {
	Extensions []string `json:"extensions"`
	Stages     []string `json:"stages"`
}

// ExportPipelines builds a PipelinesExport from a recipe table. Extensions
// that run an identical stage chain, such as docx and odt, collapse into one
// entry; entries are ordered by their first extension.
func ExportPipelines(engine string, table map[string][]string) *PipelinesExport {
	byChain := make(map[string][]string)
	chains := make(map[string][]string)
	for ext, stages := range table {
		key := strings.Join(stages, "\x1f")
		byChain[key] = append(byChain[key], ext)
		chains[key] = stages
	}

	out := &PipelinesExport{
		Engine:     engine,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for key, exts := range byChain {
		sort.Strings(exts)
		out.Pipelines = append(out.Pipelines, PipelineEntry{
			Extensions: exts,
			Stages:     chains[key],
		})
	}
	sort.Slice(out.Pipelines, func(i, j int) bool {
		return out.Pipelines[i].Extensions[0] < out.Pipelines[j].Extensions[0]
	})
	return out
}
