// Package openai implements ports.ChatModel against an OpenAI-compatible chat
// completions endpoint, such as a LiteLLM or TrueFoundry gateway.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 120 * time.Second

// Client calls POST {baseURL}/chat/completions.
type Client struct {
	model  string
	http   *http.Client
	logger *slog.Logger
	api    *goopenai.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for model served at baseURL.
func New(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		model:  model,
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = c.http
	c.api = goopenai.NewClientWithConfig(cfg)
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate sends the history and tool definitions and returns the first choice.
// Gateway failures surface as *goopenai.APIError or *goopenai.RequestError.
func (c *Client) Generate(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (domain.Message, error) {
	req, err := newRequest(c.model, messages, tools)
	if err != nil {
		return domain.Message{}, err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Debug("chat completion failed", "model", c.model, "duration", time.Since(start), "err", err)
		return domain.Message{}, fmt.Errorf("chat completions: %w", err)
	}
	c.logger.Debug("chat completion", "model", c.model, "duration", time.Since(start), "total_tokens", resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("chat completions: response has no choices")
	}
	return fromChoice(resp.Choices[0].Message)
}
