package responder

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
)

// Chat asks an OpenAI chat model for a short spoken reply. Each transcript
// is answered on its own; no conversation history is kept.
type Chat struct {
	client *openai.Client
	cfg    config.ChatConfig
	logger *zap.Logger
}

// NewChat creates a Chat responder.
func NewChat(client *openai.Client, cfg config.ChatConfig, logger *zap.Logger) (*Chat, error) {
	if client == nil {
		return nil, errors.New("chat responder: OpenAI client is not configured")
	}
	return &Chat{client: client, cfg: cfg, logger: logger.Named("chat_responder")}, nil
}

// Respond implements Responder.
func (c *Chat) Respond(ctx context.Context, transcript string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.cfg.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: transcript},
	}

	c.logger.Debug("Sending request to OpenAI",
		zap.String("model", c.cfg.Model),
		zap.Int("transcript_len", len(transcript)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("OpenAI returned empty response")
	}

	c.logger.Debug("OpenAI reply received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
