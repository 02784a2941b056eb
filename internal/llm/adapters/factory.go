package adapters

import (
	"context"
	"fmt"

	"github.com/ekarat/bookwright/internal/llm"
	"github.com/ekarat/bookwright/pkg/types"
)

// FromSettings builds the provider selected by resolved AI settings.
// Unknown provider names are an error; a missing credential surfaces as
// llm.ErrNoCredentials before any network call.
func FromSettings(ctx context.Context, settings types.AISettings) (llm.Provider, error) {
	switch settings.Provider {
	case "openai", "":
		var opts []OpenAIOption
		if settings.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(settings.BaseURL))
		}
		return NewOpenAIProvider(settings.APIKey, settings.Model, opts...)
	case "gemini":
		return NewGeminiProvider(ctx, settings.APIKey, settings.Model)
	case "local":
		return NewLocalProvider(settings.BaseURL, settings.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", settings.Provider)
	}
}
