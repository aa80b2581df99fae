package generator

import (
	"context"
	"errors"
	"fmt"
)

// ProviderType identifies which LLM backend generates the tests.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

var ErrMissingAPIKey = errors.New("missing API key")

// Provider is a minimal completion interface. Test generation only needs a
// single prompt/response round trip, so streaming and tool use are out.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Complete sends the system and user prompt and returns the raw model
	// output.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderConfig carries the settings shared by all providers.
type ProviderConfig struct {
	Type        ProviderType
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
}

func (c *ProviderConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w for provider %s", ErrMissingAPIKey, c.Type)
	}
	return nil
}

// NewProvider builds the provider named by the configuration.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(config)
	case ProviderTypeOpenAI, "":
		return NewOpenAIProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", config.Type)
	}
}
