package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProvider(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name     string
		cfg      Config
		wantErr  string
		wantType any
	}{
		{
			name:     "openai",
			cfg:      Config{Provider: "openai", Model: "gpt-4o", APIKey: "sk-test"},
			wantType: &OpenAIProvider{},
		},
		{
			name:     "defaults to openai",
			cfg:      Config{Model: "gpt-4o", APIKey: "sk-test"},
			wantType: &OpenAIProvider{},
		},
		{
			name:     "anthropic",
			cfg:      Config{Provider: "anthropic", Model: "claude-sonnet-4-0", APIKey: "sk-ant-test"},
			wantType: &AnthropicProvider{},
		},
		{
			name:    "unsupported provider",
			cfg:     Config{Provider: "cohere", Model: "command", APIKey: "key"},
			wantErr: "unsupported AI provider",
		},
		{
			name:    "missing api key",
			cfg:     Config{Provider: "openai", Model: "gpt-4o"},
			wantErr: "API key is required",
		},
		{
			name:    "missing model",
			cfg:     Config{Provider: "openai", APIKey: "sk-test"},
			wantErr: "model is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, provider)
			assert.Equal(t, tt.cfg.Model, provider.Model())
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		msg           string
		wantType      ErrorType
		wantRetryable bool
	}{
		{"auth", "status code 401: invalid api key", ErrorTypeAuth, false},
		{"rate limit", "status code 429: rate limit reached", ErrorTypeRateLimit, true},
		{"endpoint down", "dial tcp: connection refused", ErrorTypeEndpoint, true},
		{"unknown", "something odd happened", ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(assertableError(tt.msg))
			require.NotNil(t, classified)
			assert.Equal(t, tt.wantType, classified.Type)
			assert.Equal(t, tt.wantRetryable, classified.Retryable)
		})
	}
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
