package doc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File abstracts over path-backed and memory-backed inputs so that stages can
// ask for whichever representation they need. Subprocess-shaped stages need a
// real path; HTTP-shaped stages need bytes. Materialization of memory-backed
// content happens at most once per file and is cached.
//
// File is safe for concurrent use by the goroutines of one batch.
type File struct {
	mu   sync.Mutex
	name string
	path string // backing path when path-backed
	data []byte // contents when memory-backed

	materialized string // cached on-disk copy of memory-backed content
}

// NewFileFromPath returns a path-backed File. The name defaults to the path
// itself so the batch key matches what the caller passed in.
func NewFileFromPath(path string) *File {
	return &File{name: path, path: path}
}

// NewFileFromBytes returns a memory-backed File. name may be empty for
// anonymous streams; callers generate a key in that case.
func NewFileFromBytes(name string, data []byte) *File {
	return &File{name: name, data: data}
}

// Name returns the filename the File was created with.
func (f *File) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// Ext returns the lowercase extension without the leading dot, empty when
// there is none.
func (f *File) Ext() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return extOf(f.name, f.path)
}

func extOf(name, path string) string {
	src := name
	if src == "" {
		src = path
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(src)), ".")
}

// Bytes returns the file contents, reading from disk for path-backed files.
func (f *File) Bytes() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data != nil {
		return f.data, nil
	}
	if f.path == "" {
		return nil, fmt.Errorf("doc: file %q has no content", f.name)
	}
	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("doc: read %s: %w", f.path, err)
	}
	return b, nil
}

// Path returns an on-disk path for the file. Path-backed files return their
// original path; memory-backed files are written once into a fresh directory
// under tmpdir and the location is cached for subsequent calls.
func (f *File) Path(tmpdir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.path != "" {
		return f.path, nil
	}
	if f.materialized != "" {
		return f.materialized, nil
	}
	if f.data == nil {
		return "", fmt.Errorf("doc: file %q has no content", f.name)
	}
	dir, err := os.MkdirTemp(tmpdir, "in-")
	if err != nil {
		return "", fmt.Errorf("doc: mkdir under %s: %w", tmpdir, err)
	}
	base := filepath.Base(f.name)
	if base == "." || base == string(filepath.Separator) {
		base = "stream"
	}
	p := filepath.Join(dir, base)
	if err := os.WriteFile(p, f.data, 0o644); err != nil {
		return "", fmt.Errorf("doc: write %s: %w", p, err)
	}
	f.materialized = p
	return p, nil
}

// Replace swaps the file contents for data, typically after an OCR rewrite.
// The file becomes memory-backed; the next Path call materializes the new
// content.
func (f *File) Replace(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = data
	f.path = ""
	f.materialized = ""
}

// Relocate points the File at a new on-disk path, typically the output of a
// format conversion. The previous content is dropped.
func (f *File) Relocate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.path = path
	f.data = nil
	f.materialized = ""
}
