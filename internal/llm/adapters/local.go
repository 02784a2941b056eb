package adapters

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ekarat/bookwright/internal/llm"
)

const (
	defaultLocalTimeout     = 120 * time.Second
	defaultLocalMaxTokens   = 2048
	defaultLocalTemperature = 0.7

	// sseDoneSentinel terminates a stream deterministically even when
	// the transport does not close cleanly.
	sseDoneSentinel = "[DONE]"
)

// LocalProvider implements the Provider interface for local
// OpenAI-compatible servers such as Ollama, LM Studio, and vLLM.
type LocalProvider struct {
	client  *http.Client
	baseURL string
	model   string
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithLocalTimeout sets a custom timeout for non-streaming requests.
func WithLocalTimeout(timeout time.Duration) LocalOption {
	return func(p *LocalProvider) {
		p.client.Timeout = timeout
	}
}

// WithLocalHTTPClient sets a custom HTTP client.
func WithLocalHTTPClient(client *http.Client) LocalOption {
	return func(p *LocalProvider) {
		p.client = client
	}
}

// NewLocalProvider creates a new LocalProvider. The baseURL should
// point at the server root (e.g. "http://localhost:11434"); a trailing
// "/v1" is tolerated since the endpoint paths already carry it.
func NewLocalProvider(baseURL, model string, opts ...LocalOption) *LocalProvider {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	p := &LocalProvider{
		client:  &http.Client{Timeout: defaultLocalTimeout},
		baseURL: baseURL,
		model:   model,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// chatRequest is the OpenAI-compatible wire format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatStreamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a chat completion request and returns the response
// content.
func (p *LocalProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	body, err := json.Marshal(p.buildRequest(req, false))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", p.wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.handleErrorResponse(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", llm.ErrProvider)
	}

	return parsed.Choices[0].Message.Content, nil
}

// Stream sends a chat completion request and streams the response as
// server-sent events.
func (p *LocalProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	body, err := json.Marshal(p.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	// No client timeout while streaming; the context bounds the session.
	streamClient := &http.Client{Transport: p.client.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, p.wrapTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, p.handleErrorResponse(resp)
	}

	chunks := make(chan llm.Chunk, 100)

	go p.processStream(ctx, resp.Body, chunks)

	return chunks, nil
}

// processStream parses the SSE stream. Partial frames arriving
// mid-boundary stay buffered in the reader until a full line is read;
// a delta is emitted only once a complete "data:" frame is observed.
func (p *LocalProvider) processStream(ctx context.Context, body io.ReadCloser, chunks chan<- llm.Chunk) {
	defer close(chunks)
	defer body.Close()

	reader := bufio.NewReader(body)

	for {
		select {
		case <-ctx.Done():
			chunks <- llm.Chunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Transport closed without the sentinel; end the stream
				// anyway, discarding any undelimited trailing bytes.
				chunks <- llm.Chunk{Done: true}
				return
			}
			chunks <- llm.Chunk{Error: fmt.Errorf("%w: %v", llm.ErrProviderUnavailable, err), Done: true}
			return
		}

		line = strings.TrimSpace(line)

		// Skip frame separators and SSE comments.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == sseDoneSentinel {
			chunks <- llm.Chunk{Done: true}
			return
		}

		var frame chatStreamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			// Some servers emit malformed trailing frames; skip them.
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}

		choice := frame.Choices[0]
		chunks <- llm.Chunk{
			Delta: choice.Delta.Content,
			Done:  choice.FinishReason != "",
		}
		if choice.FinishReason != "" {
			return
		}
	}
}

// Capabilities returns conservative defaults; local models vary widely.
func (p *LocalProvider) Capabilities() llm.Capabilities {
	return llm.Capabilities{
		NativeStreaming:  true,
		MaxContextTokens: 8192,
		MaxOutputTokens:  2048,
		Model:            p.model,
	}
}

// Close releases resources held by the provider.
func (p *LocalProvider) Close() error {
	return nil
}

// Model returns the current model name.
func (p *LocalProvider) Model() string {
	return p.model
}

// BaseURL returns the server base URL.
func (p *LocalProvider) BaseURL() string {
	return p.baseURL
}

// buildRequest converts a Request to the OpenAI-compatible format.
func (p *LocalProvider) buildRequest(req llm.Request, stream bool) chatRequest {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultLocalMaxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultLocalTemperature
	}

	return chatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      stream,
	}
}

// handleErrorResponse classifies a non-2xx response by status code,
// keeping whatever human-readable message the body carries.
func (p *LocalProvider) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(body))
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &llm.ProviderError{
		Status:  resp.StatusCode,
		Message: message,
	}
}

// wrapTransportError classifies request-level failures.
func (p *LocalProvider) wrapTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", llm.ErrProviderUnavailable)
	}
	return fmt.Errorf("%w: %s", llm.ErrProviderUnavailable, err.Error())
}

// Verify LocalProvider implements the Provider interface.
var _ llm.Provider = (*LocalProvider)(nil)
