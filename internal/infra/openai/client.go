// Package openai adapts the OpenAI Go SDK to the locally-hosted LLM server
// (Ollama exposes an OpenAI-compatible API under /v1).
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"ipc-assist/internal/core/chat"
)

const (
	// DefaultTimeout bounds a single completion call, streaming included.
	DefaultTimeout = 120 * time.Second

	// MaxRetries is the retry budget for rate-limited calls.
	MaxRetries = 3

	// BaseBackoff and MaxBackoff bound the exponential backoff between retries.
	BaseBackoff = 2 * time.Second
	MaxBackoff  = 32 * time.Second
)

// ErrMaxRetriesExceeded is returned when the retry budget runs out.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Client is the chat completion client.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a chat client for the given base URL and model. Ollama
// ignores the API key but the header must be present.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		model:   model,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelName returns the configured chat model.
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion produces the full answer in one call, retrying
// rate-limited requests with exponential backoff.
func (c *Client) GenerateCompletion(ctx context.Context, req chat.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := waitBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, c.params(req))
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", classifyError(err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// StreamCompletion streams the answer, forwarding every content delta, and
// returns the accumulated text. Streaming calls are not retried: deltas may
// already have reached the user.
func (c *Client) StreamCompletion(ctx context.Context, req chat.CompletionRequest, onDelta func(delta string) error) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return sb.String(), fmt.Errorf("delta handler failed: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return sb.String(), classifyError(err)
	}

	return sb.String(), nil
}

func (c *Client) params(req chat.CompletionRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
}

func waitBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
	if backoff > MaxBackoff {
		backoff = MaxBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// classifyError maps transport and API failures onto the chat package's
// sentinel errors so the service can phrase actionable replies.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", chat.ErrModelNotFound, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return fmt.Errorf("%w: %v", chat.ErrLLMUnavailable, err)
	}

	return fmt.Errorf("LLM call failed: %w", err)
}

var _ chat.LLMClient = (*Client)(nil)
