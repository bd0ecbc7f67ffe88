// Package llm talks to an OpenAI-compatible generative endpoint: JSON chat completions,
// embeddings and model listing.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/mathbot/internal/metrics"
)

const (
	DefaultBaseURL             = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel               = "gemini-2.5-flash"
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
	DefaultTimeout             = 30 * time.Second
	DefaultRetryBackoff        = 500 * time.Millisecond
)

var (
	// ErrServiceUnavailable is returned when the endpoint could not produce a response.
	ErrServiceUnavailable = errors.New("generative service unavailable")
	// ErrMalformedOutput is returned when the response is not the expected JSON.
	ErrMalformedOutput = errors.New("malformed generative output")
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Call outcomes recorded in metrics.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
)

// ChatAPI sends one system+user exchange and returns the raw reply text.
type ChatAPI interface {
	CreateJSONCompletion(ctx context.Context, system, user string) (string, error)
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ModelAPI lists the models served by the endpoint.
type ModelAPI interface {
	ListModels(ctx context.Context) ([]string, error)
}

type Config struct {
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float32
	EmbeddingModel      string
	EmbeddingDimensions int
	Timeout             time.Duration
	RetryBackoff        time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.EmbeddingDimensions <= 0 {
		c.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	return c
}

// Client adds timeouts, one bounded retry and JSON decoding on top of the adapters.
type Client struct {
	chat       ChatAPI
	embed      EmbeddingAPI
	models     ModelAPI
	timeout    time.Duration
	backoff    time.Duration
	dimensions int
}

// NewClient creates a Client backed by the go-openai adapter.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	adapter := NewOpenAIAdapter(cfg)
	return NewClientWithAPIs(cfg, adapter, adapter, adapter)
}

// NewClientWithAPIs creates a Client over explicit adapters. Any adapter may be nil
// when the corresponding calls are never made.
func NewClientWithAPIs(cfg Config, chat ChatAPI, embed EmbeddingAPI, models ModelAPI) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		chat:       chat,
		embed:      embed,
		models:     models,
		timeout:    cfg.Timeout,
		backoff:    cfg.RetryBackoff,
		dimensions: cfg.EmbeddingDimensions,
	}
}

// CompleteJSON asks for a JSON reply and decodes it into out. Transport failures,
// timeouts, 429 and 5xx responses are retried once after the backoff. The error wraps
// ErrServiceUnavailable or ErrMalformedOutput.
func (c *Client) CompleteJSON(ctx context.Context, purpose, system, user string, out any) error {
	raw, err := c.complete(ctx, system, user)
	if err != nil {
		metrics.Default().IncLLMCall(purpose, OutcomeUnavailable)
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if err := DecodeJSON(raw, out); err != nil {
		metrics.Default().IncLLMCall(purpose, OutcomeMalformed)
		return err
	}

	metrics.Default().IncLLMCall(purpose, OutcomeOK)
	return nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.chat == nil {
		return "", errors.New("chat completion is not configured")
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		raw, err := c.chat.CreateJSONCompletion(attemptCtx, system, user)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()
		if err == nil {
			return raw, nil
		}

		lastErr = err
		if ctx.Err() != nil || !(timedOut || isRetryable(err)) {
			break
		}
	}
	return "", lastErr
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// StripFences removes a code fence wrapping the whole reply, such as ```json ... ```.
// Fences inside the text are left alone.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// DecodeJSON decodes a model reply into out. The reply is tried as is, then with a
// wrapping code fence removed, then between its outermost braces.
func DecodeJSON(raw string, out any) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}
	err := json.Unmarshal([]byte(text), out)
	if err == nil {
		return nil
	}

	if unfenced := StripFences(text); unfenced != text {
		if unfenced == "" {
			return fmt.Errorf("%w: empty reply", ErrMalformedOutput)
		}
		if json.Unmarshal([]byte(unfenced), out) == nil {
			return nil
		}
		text = unfenced
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if json.Unmarshal([]byte(text[start:end+1]), out) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if c.embed == nil {
		return nil, fmt.Errorf("%w: embeddings are not configured", ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embedding, err := c.embed.CreateEmbeddings(ctx, text)
	if err != nil {
		metrics.Default().IncLLMCall("embedding", OutcomeUnavailable)
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(embedding) != c.dimensions {
		metrics.Default().IncLLMCall("embedding", OutcomeMalformed)
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	metrics.Default().IncLLMCall("embedding", OutcomeOK)
	return embedding, nil
}

// Dimensions returns the expected embedding size.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// ListModels returns the model ids containing filter, case-insensitively. An empty
// filter returns every model.
func (c *Client) ListModels(ctx context.Context, filter string) ([]string, error) {
	if c.models == nil {
		return nil, fmt.Errorf("%w: model listing is not configured", ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ids, err := c.models.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	filter = strings.ToLower(filter)
	var out []string
	for _, id := range ids {
		if filter == "" || strings.Contains(strings.ToLower(id), filter) {
			out = append(out, id)
		}
	}
	return out, nil
}
