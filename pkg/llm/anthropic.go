package llm

import (
	"context"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicMaxTokens bounds a single answer. Answers are a short explanation
// plus one fenced SQL block, well under this limit.
const anthropicMaxTokens = 4096

// AnthropicProvider streams completions from the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicProvider creates a provider for the Anthropic API.
func NewAnthropicProvider(cfg Config, logger *zap.Logger) *AnthropicProvider {
	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

// Model returns the configured model name.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// StreamChat streams a completion for the ordered conversation. The Messages
// API takes the system instruction as a dedicated field rather than a
// conversation entry, so it is split off before the request is built.
func (p *AnthropicProvider) StreamChat(ctx context.Context, messages []Message, events chan<- StreamEvent) error {
	system, turns := splitSystemMessage(messages)

	var temperature float32 // deterministic generation

	req := anthropic.MessagesStreamRequest{
		MessagesRequest: anthropic.MessagesRequest{
			Model:       anthropic.Model(p.model),
			System:      system,
			Messages:    turns,
			MaxTokens:   anthropicMaxTokens,
			Temperature: &temperature,
		},
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			text := data.Delta.GetText()
			if text == "" {
				return
			}
			sendEvent(ctx, events, StreamEvent{Type: StreamEventDelta, Content: text})
		},
	}

	resp, err := p.client.CreateMessagesStream(ctx, req)
	if err != nil {
		classified := ClassifyError(err)
		p.logger.Error("completion stream failed",
			zap.String("model", p.model),
			zap.String("error_type", string(classified.Type)),
			zap.Error(err))
		sendEvent(ctx, events, StreamEvent{Type: StreamEventError, Content: classified.Message})
		return classified
	}

	sendEvent(ctx, events, StreamEvent{
		Type: StreamEventUsage,
		Usage: &Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	})
	sendEvent(ctx, events, StreamEvent{Type: StreamEventDone})
	return nil
}

func splitSystemMessage(messages []Message) (string, []anthropic.Message) {
	var system string
	turns := make([]anthropic.Message, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantTextMessage(m.Content))
		default:
			turns = append(turns, anthropic.NewUserTextMessage(m.Content))
		}
	}
	return system, turns
}
