package pipeline

import (
	"sort"
	"strings"
)

// Registry maps file extensions to the pipeline that handles them.
// Extensions are stored lowercased without a leading dot, so lookups are
// case-insensitive and tolerate both "pdf" and ".pdf".
type Registry struct {
	pipelines map[string]*Pipeline
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pipelines: map[string]*Pipeline{}}
}

// Register binds p to every given extension, replacing prior bindings.
func (r *Registry) Register(p *Pipeline, exts ...string) {
	for _, ext := range exts {
		r.pipelines[normalizeExt(ext)] = p
	}
}

// Lookup returns the pipeline registered for ext, if any.
func (r *Registry) Lookup(ext string) (*Pipeline, bool) {
	p, ok := r.pipelines[normalizeExt(ext)]
	return p, ok
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.pipelines))
	for ext := range r.pipelines {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}
