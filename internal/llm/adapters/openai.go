// Package adapters provides generation provider implementations.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ekarat/bookwright/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

// openAICapabilities maps model names to their capabilities.
var openAICapabilities = map[string]llm.Capabilities{
	"gpt-4o": {
		NativeStreaming:  true,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
		TokenizerType:    "o200k_base",
	},
	"gpt-4o-mini": {
		NativeStreaming:  true,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
		TokenizerType:    "o200k_base",
	},
	"gpt-4-turbo": {
		NativeStreaming:  true,
		MaxContextTokens: 128000,
		MaxOutputTokens:  4096,
		TokenizerType:    "cl100k_base",
	},
	"gpt-3.5-turbo": {
		NativeStreaming:  true,
		MaxContextTokens: 16385,
		MaxOutputTokens:  4096,
		TokenizerType:    "cl100k_base",
	},
}

// defaultOpenAICapabilities is used for unknown models.
var defaultOpenAICapabilities = llm.Capabilities{
	NativeStreaming:  true,
	MaxContextTokens: 128000,
	MaxOutputTokens:  4096,
	TokenizerType:    "cl100k_base",
}

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements the Provider interface for the OpenAI chat
// API (and Azure/compatible endpoints via a base URL override).
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openai.ClientConfig)

// WithOpenAIBaseURL sets a custom base URL.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(c *openai.ClientConfig) {
		if baseURL != "" {
			c.BaseURL = baseURL
		}
	}
}

// WithOpenAIHTTPTimeout sets the request timeout for non-streaming calls.
func WithOpenAIHTTPTimeout(timeout time.Duration) OpenAIOption {
	return func(c *openai.ClientConfig) {
		if hc, ok := c.HTTPClient.(*http.Client); ok {
			hc.Timeout = timeout
		}
	}
}

// NewOpenAIProvider creates a new OpenAI provider. The key is sent as a
// bearer credential on every request.
func NewOpenAIProvider(apiKey, model string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, llm.ErrNoCredentials
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&clientConfig)
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Complete sends a chat completion request and returns the first
// choice's message content.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return "", p.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", llm.ErrProvider)
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream sends a chat completion request and streams the response
// incrementally.
func (p *OpenAIProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, p.wrapError(err)
	}

	chunks := make(chan llm.Chunk, 100)

	go p.processStream(ctx, stream, chunks)

	return chunks, nil
}

// processStream reads from the OpenAI stream and forwards chunks.
func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, chunks chan<- llm.Chunk) {
	defer close(chunks)
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			chunks <- llm.Chunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			chunks <- llm.Chunk{Done: true}
			return
		}
		if err != nil {
			chunks <- llm.Chunk{Error: p.wrapError(err), Done: true}
			return
		}

		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		chunks <- llm.Chunk{
			Delta: choice.Delta.Content,
			Done:  choice.FinishReason != "",
		}
		if choice.FinishReason != "" {
			return
		}
	}
}

// Capabilities returns the provider's capabilities.
func (p *OpenAIProvider) Capabilities() llm.Capabilities {
	caps, ok := openAICapabilities[p.model]
	if !ok {
		caps = defaultOpenAICapabilities
	}
	caps.Model = p.model
	return caps
}

// Close releases resources held by the provider.
func (p *OpenAIProvider) Close() error {
	// No persistent resources to clean up
	return nil
}

// Model returns the current model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// buildRequest converts a Request to the OpenAI chat format.
func (p *OpenAIProvider) buildRequest(req llm.Request, stream bool) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	openAIReq := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   stream,
	}

	if req.MaxTokens > 0 {
		openAIReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		openAIReq.Temperature = float32(req.Temperature)
	}

	return openAIReq
}

// wrapError converts OpenAI client errors to classified errors.
func (p *OpenAIProvider) wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", llm.ErrProviderUnavailable)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.ProviderError{
			Status:  apiErr.HTTPStatusCode,
			Message: apiErr.Message,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.ProviderError{
			Status:  reqErr.HTTPStatusCode,
			Message: reqErr.Error(),
		}
	}

	// Network-level failure with no HTTP status.
	return fmt.Errorf("%w: %s", llm.ErrProviderUnavailable, err.Error())
}

// Verify OpenAIProvider implements the Provider interface.
var _ llm.Provider = (*OpenAIProvider)(nil)
