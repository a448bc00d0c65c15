package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonrepair"
)

// Structured sends req and decodes the reply into T. Models frequently wrap
// JSON in markdown fences or emit minor syntax defects; the reply is unfenced
// and repaired before decoding.
func Structured[T any](ctx context.Context, c Client, req Request) (*T, error) {
	raw, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("llm: empty response")
	}
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil, fmt.Errorf("llm: repair response: %w", err)
	}

	var out T
	if err := sonic.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	return &out, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		// Drop a language tag like "json" on the opening fence line.
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
