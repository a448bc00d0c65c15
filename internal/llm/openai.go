package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/pdferret/internal/textutil"
)

// Compile-time interface check.
var _ Client = (*OpenAI)(nil)

// DefaultMaxInputTokens bounds prompt size when the caller does not know the
// model's real context window.
const DefaultMaxInputTokens = 32000

// OpenAIConfig configures an OpenAI-compatible chat model. BaseURL may point
// at any service speaking the same protocol.
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxInputTokens int
	Logger         *logrus.Logger
}

// OpenAI is a Client backed by an OpenAI-compatible chat completion API.
type OpenAI struct {
	model          *openai.ChatModel
	name           string
	maxInputTokens int
	enc            *tiktoken.Tiktoken
	log            *logrus.Logger
}

// NewOpenAI creates a client for the configured model. Token counting uses
// the cl100k_base encoding, falling back to a whitespace heuristic when the
// encoding is unavailable.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model name is required")
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create chat model %s: %w", cfg.Model, err)
	}

	maxTokens := cfg.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.WithError(err).Warn("tiktoken encoding unavailable, using rough token counts")
		enc = nil
	}

	return &OpenAI{
		model:          cm,
		name:           cfg.Model,
		maxInputTokens: maxTokens,
		enc:            enc,
		log:            log,
	}, nil
}

// Complete sends the request to the chat API and returns the reply content.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, schema.SystemMessage(req.System))
	}
	msgs = append(msgs, userMessage(req))

	var opts []model.Option
	opts = append(opts, model.WithTemperature(req.Temperature))
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.model.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("llm: generate with %s: %w", c.name, err)
	}
	return resp.Content, nil
}

// CountTokens estimates the token count of text.
func (c *OpenAI) CountTokens(text string) int {
	if c.enc == nil {
		return textutil.CountTokensRough(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// MaxInputTokens returns the configured input budget.
func (c *OpenAI) MaxInputTokens() int { return c.maxInputTokens }

// userMessage builds the user turn, attaching images as inline data URLs
// when present.
func userMessage(req Request) *schema.Message {
	if len(req.Images) == 0 {
		return schema.UserMessage(req.User)
	}

	parts := make([]schema.ChatMessagePart, 0, len(req.Images)+1)
	if req.User != "" {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: req.User,
		})
	}
	for _, img := range req.Images {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{
				URL: "data:" + http.DetectContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}
	return &schema.Message{Role: schema.User, MultiContent: parts}
}
