package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// NewProvider creates the completion provider named by the configuration.
func NewProvider(cfg Config, logger *zap.Logger) (CompletionProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI provider API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("AI model is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIProvider(cfg, logger), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
