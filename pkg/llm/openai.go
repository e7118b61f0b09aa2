package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider streams completions from an OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider for the configured OpenAI endpoint.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	if cfg.Organization != "" {
		clientCfg.OrgID = cfg.Organization
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// StreamChat streams a completion for the ordered conversation. Deltas are
// forwarded as they arrive; the terminal chunk's usage record is emitted
// once before done.
func (p *OpenAIProvider) StreamChat(ctx context.Context, messages []Message, events chan<- StreamEvent) error {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: 0,
		Stream:      true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		classified := ClassifyError(err)
		p.logger.Error("failed to open completion stream",
			zap.String("model", p.model),
			zap.String("error_type", string(classified.Type)),
			zap.Error(err))
		sendEvent(ctx, events, StreamEvent{Type: StreamEventError, Content: classified.Message})
		return classified
	}
	defer stream.Close()

	usageSent := false
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			classified := ClassifyError(err)
			p.logger.Error("completion stream interrupted",
				zap.String("model", p.model),
				zap.String("error_type", string(classified.Type)),
				zap.Error(err))
			sendEvent(ctx, events, StreamEvent{Type: StreamEventError, Content: classified.Message})
			return classified
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if !sendEvent(ctx, events, StreamEvent{
				Type:    StreamEventDelta,
				Content: chunk.Choices[0].Delta.Content,
			}) {
				return ctx.Err()
			}
		}

		// With IncludeUsage the final chunk carries usage and no choices.
		if chunk.Usage != nil && !usageSent {
			usageSent = true
			sendEvent(ctx, events, StreamEvent{
				Type: StreamEventUsage,
				Usage: &Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
				},
			})
		}
	}

	sendEvent(ctx, events, StreamEvent{Type: StreamEventDone})
	return nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// sendEvent delivers an event unless the context is done. Returns false
// when the send was abandoned due to cancellation.
func sendEvent(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
