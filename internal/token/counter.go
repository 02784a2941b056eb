// Package token provides token counting and context budget checks for
// generation requests.
package token

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter wraps a tiktoken encoder for token counting operations.
type Counter struct {
	encoder  *tiktoken.Tiktoken
	encoding string
}

// Default encoding for fallback.
const defaultEncoding = "cl100k_base"

// NewCounter creates a new token counter with the specified encoding.
// Supported encodings include:
//   - "cl100k_base" (GPT-4, GPT-4-turbo, GPT-3.5-turbo)
//   - "o200k_base" (GPT-4o)
//   - "p50k_base" (GPT-3, Codex)
//
// Falls back to cl100k_base if the specified encoding is not found.
// Gemini has no public tokenizer; cl100k_base is close enough for
// budget checks.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = defaultEncoding
	}

	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			return nil, err
		}
		encoding = defaultEncoding
	}

	return &Counter{
		encoder:  encoder,
		encoding: encoding,
	}, nil
}

// Encoding returns the current encoding name.
func (c *Counter) Encoding() string {
	return c.encoding
}

// Count returns the number of tokens in the given text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	tokens := c.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// Truncate truncates the given text to fit within the specified token
// limit. If fromEnd is true the end of the text is kept, which suits
// trailing-chapter context where the latest material matters most.
func (c *Counter) Truncate(text string, maxTokens int, fromEnd bool) string {
	if maxTokens <= 0 {
		return ""
	}

	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	if fromEnd {
		return c.encoder.Decode(tokens[len(tokens)-maxTokens:])
	}
	return c.encoder.Decode(tokens[:maxTokens])
}

// Estimate provides a quick token estimate without encoding, using the
// rough 4-characters-per-token heuristic.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	runeCount := utf8.RuneCountInString(text)
	return (runeCount + 3) / 4
}
