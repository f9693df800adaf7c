package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// SystemPrompt is the fixed system instruction sent with every completion
// attempt.
const SystemPrompt = "You are a medical electronic records expert. Return ONLY a compact JSON object per the rules."

type Options struct {
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client issues single chat-completion requests against an OpenAI-compatible
// endpoint. It never retries and never swallows failures; the retry policy
// lives with the caller.
type Client struct {
	llm  *openai.LLM
	opts Options
}

func NewClient(opts Options) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(opts.Endpoint),
		openai.WithToken(strings.TrimPrefix(opts.APIKey, "Bearer ")),
		openai.WithModel(opts.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init completion client: %w", err)
	}
	return &Client{llm: llm, opts: opts}, nil
}

// Complete performs exactly one request and returns the text content of the
// first choice, or an empty string when the response has no choices. The
// per-request timeout bounds the exchange so one hung call cannot stall a
// whole batch.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: SystemPrompt}},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(c.opts.MaxTokens),
		llms.WithTemperature(c.opts.Temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
