// Package extractor implements the stages that pull content out of
// documents: HTTP clients for the text, structure, and layout services,
// subprocess wrappers around the conversion tools, and the stages that turn
// their output into metadata and chunks.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/pdferret/internal/doc"
	"github.com/dusk-indust/pdferret/internal/pipeline"
)

// Compile-time stage contract checks.
var (
	_ pipeline.Stage = (*TikaExtractor)(nil)
	_ pipeline.Stage = (*GrobidExtractor)(nil)
	_ pipeline.Stage = (*FileInfoExtractor)(nil)
	_ pipeline.Stage = (*VisualExtractor)(nil)
	_ pipeline.Stage = (*OfficeMetaExtractor)(nil)
	_ pipeline.Stage = (*PandocExtractor)(nil)
	_ pipeline.Stage = (*RawTextExtractor)(nil)
	_ pipeline.Stage = (*SpreadsheetExtractor)(nil)
	_ pipeline.Stage = (*LanguageDetector)(nil)

	_ pipeline.BatchStage = (*UnstructuredExtractor)(nil)
	_ pipeline.BatchStage = (*Thumbnailer)(nil)
	_ pipeline.BatchStage = (*LibreOfficeConverter)(nil)
)

// Runner launches an external tool and returns its output streams. Stages
// take a Runner so tests can substitute one; nil means RunCommand.
type Runner func(ctx context.Context, stdin []byte, name string, args ...string) (stdout, stderr []byte, err error)

// RunCommand is the default Runner, backed by os/exec. On failure the error
// carries the tail of stderr; when the context has expired, the context error
// is in the chain so the failure classifies as a timeout or cancellation.
func RunCommand(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		err = fmt.Errorf("extractor: %s: %w: %s", name, err, errTail(stderr.Bytes()))
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// errTail trims tool output down to its informative end for error messages.
func errTail(output []byte) string {
	s := strings.TrimSpace(string(output))
	const max = 400
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return strings.ReplaceAll(s, "\n", " | ")
}

// truncatePDF writes the first maxPages pages of f into a fresh file under
// workDir and returns its contents.
func truncatePDF(ctx context.Context, run Runner, workDir string, f *doc.File, maxPages int) ([]byte, error) {
	src, err := f.Path(workDir)
	if err != nil {
		return nil, doc.NewProcessingError(doc.KindInput, "", err)
	}
	dir, err := os.MkdirTemp(workDir, "trunc-")
	if err != nil {
		return nil, fmt.Errorf("extractor: mkdir under %s: %w", workDir, err)
	}
	dst := filepath.Join(dir, "head.pdf")
	if _, _, err := run(ctx, nil, "qpdf", src, "--pages", ".", fmt.Sprintf("1-%d", maxPages), "--", dst); err != nil {
		return nil, err
	}
	out, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("extractor: read truncated pdf: %w", err)
	}
	return out, nil
}
