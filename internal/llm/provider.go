// Package llm provides abstractions for interacting with text-generation
// providers.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Error categories returned by generation providers. Callers branch on
// these with errors.Is; the raw provider detail travels alongside in a
// *ProviderError.
var (
	// ErrNoCredentials is returned when no provider credentials are
	// configured. It fails before any network call is made.
	ErrNoCredentials = errors.New("no provider credentials configured")

	// ErrAuthFailed is returned when the provider rejects the credential.
	ErrAuthFailed = errors.New("provider rejected credentials")

	// ErrRateLimited is returned when the quota or request rate has been
	// exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrProviderUnavailable is returned on server-side or network-level
	// failures. Safe to retry.
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")

	// ErrProvider is the generic fallback for unmapped provider errors.
	ErrProvider = errors.New("provider error")

	// ErrMalformedResponse is returned when an expected structured
	// payload could not be parsed from the provider output.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError carries the raw HTTP status and provider message behind
// a classified category error.
type ProviderError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
}

// Unwrap maps the status code onto the matching category sentinel, so
// errors.Is(err, ErrRateLimited) works on a wrapped *ProviderError.
func (e *ProviderError) Unwrap() error {
	return Classify(e.Status)
}

// Classify maps an HTTP status code to an error category.
// 401/403 are authentication failures, 429 is rate/quota, 5xx is
// transient, anything else falls through to the generic category.
func Classify(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrAuthFailed
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrProviderUnavailable
	default:
		return ErrProvider
	}
}

// Request is a single generation request.
type Request struct {
	// System is the optional system instruction.
	System string

	// Prompt is the user prompt.
	Prompt string

	// Temperature controls randomness (0.0-2.0). Zero means the
	// provider default.
	Temperature float64

	// MaxTokens caps the generated length. Zero means the provider
	// default.
	MaxTokens int
}

// Chunk is a single unit of a streaming response.
type Chunk struct {
	// Delta is the incremental text fragment.
	Delta string

	// Done indicates this is the final chunk.
	Done bool

	// Error contains any error that ended the stream.
	Error error
}

// Provider defines the interface for text-generation backends.
// Implementations should be safe for concurrent use.
type Provider interface {
	// Complete sends a request and returns the full generated text.
	Complete(ctx context.Context, req Request) (string, error)

	// Stream sends a request and returns a channel of chunks. The
	// channel is closed after a chunk with Done or Error set. Providers
	// without native incremental streaming synthesize a single delta
	// carrying the complete text.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)

	// Capabilities returns the capabilities of this provider.
	Capabilities() Capabilities

	// Close releases any resources held by the provider.
	Close() error
}

// Capabilities describes what a provider supports.
type Capabilities struct {
	// NativeStreaming reports whether streaming is incremental on the
	// wire, as opposed to synthesized from a whole-response call.
	NativeStreaming bool

	// MaxContextTokens is the maximum context window size.
	MaxContextTokens int

	// MaxOutputTokens is the maximum the model can generate.
	MaxOutputTokens int

	// TokenizerType identifies the tokenizer used for counting,
	// e.g. "cl100k_base" or "o200k_base".
	TokenizerType string

	// Model is the model identifier in use.
	Model string
}
