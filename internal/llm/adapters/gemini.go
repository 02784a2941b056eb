package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ekarat/bookwright/internal/llm"
	"google.golang.org/genai"
)

// geminiCapabilities maps model names to their capabilities.
var geminiCapabilities = map[string]llm.Capabilities{
	"gemini-2.0-flash": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  8192,
		TokenizerType:    "gemini",
	},
	"gemini-2.5-flash": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
		TokenizerType:    "gemini",
	},
	"gemini-2.5-pro": {
		MaxContextTokens: 1048576,
		MaxOutputTokens:  65536,
		TokenizerType:    "gemini",
	},
}

// defaultGeminiCapabilities are used when the model is not in the known
// list.
var defaultGeminiCapabilities = llm.Capabilities{
	MaxContextTokens: 128000,
	MaxOutputTokens:  8192,
	TokenizerType:    "gemini",
}

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements the Provider interface over Google's
// single-shot generate API. It has no native incremental streaming:
// Stream performs the whole-response call and synthesizes one delta
// followed by done, preserving the streaming contract.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new GeminiProvider. The key is passed as
// an API-key credential.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, llm.ErrNoCredentials
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

// Complete sends a generate request and returns the first candidate's
// concatenated text parts.
func (p *GeminiProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: req.Prompt}},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, p.buildConfig(req))
	if err != nil {
		return "", p.wrapError(err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", llm.ErrProvider)
	}

	var sb strings.Builder
	if content := result.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			sb.WriteString(part.Text)
		}
	}

	return sb.String(), nil
}

// Stream satisfies the streaming contract by running the full
// synchronous call and emitting a single synthesized delta. A context
// cancelled before the call returns suppresses delivery entirely.
func (p *GeminiProvider) Stream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	chunks := make(chan llm.Chunk, 2)

	go func() {
		defer close(chunks)

		full, err := p.Complete(ctx, req)
		if err != nil {
			chunks <- llm.Chunk{Error: err, Done: true}
			return
		}

		select {
		case <-ctx.Done():
			chunks <- llm.Chunk{Error: ctx.Err(), Done: true}
			return
		default:
		}

		chunks <- llm.Chunk{Delta: full}
		chunks <- llm.Chunk{Done: true}
	}()

	return chunks, nil
}

// Capabilities returns the provider's capabilities.
func (p *GeminiProvider) Capabilities() llm.Capabilities {
	caps, ok := geminiCapabilities[p.model]
	if !ok {
		// Partial match covers dated/preview suffixes.
		for prefix, known := range geminiCapabilities {
			if strings.HasPrefix(p.model, prefix) {
				caps, ok = known, true
				break
			}
		}
	}
	if !ok {
		caps = defaultGeminiCapabilities
	}
	caps.Model = p.model
	return caps
}

// Close releases resources held by the provider.
func (p *GeminiProvider) Close() error {
	// The genai client has no Close; nothing to clean up.
	return nil
}

// Model returns the current model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// buildConfig creates the GenerateContentConfig from a Request. The
// system instruction rides in the dedicated config slot.
func (p *GeminiProvider) buildConfig(req llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	return config
}

// wrapError classifies Gemini errors. The SDK surfaces HTTP failures as
// formatted strings, so classification falls back to pattern matching.
func (p *GeminiProvider) wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", llm.ErrProviderUnavailable)
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "API key") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403") || strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("%w: %s", llm.ErrAuthFailed, errStr)
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "RESOURCE_EXHAUSTED") || strings.Contains(errStr, "quota"):
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, errStr)
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503") || strings.Contains(errStr, "UNAVAILABLE"):
		return fmt.Errorf("%w: %s", llm.ErrProviderUnavailable, errStr)
	default:
		return fmt.Errorf("%w: %s", llm.ErrProvider, errStr)
	}
}

// Verify GeminiProvider implements the Provider interface.
var _ llm.Provider = (*GeminiProvider)(nil)
