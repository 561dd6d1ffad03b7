// Package openai provides the shared OpenAI client and its Fx module.
package openai

import (
	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
)

// Module provides OpenAI-related dependencies.
var Module = fx.Module("openai",
	fx.Provide(NewClient),
)

// NewClient creates the OpenAI client used by the whisper transcriber, the
// speech synthesizer and the chat responder. It returns a nil client when no
// key is configured; config validation already rejects providers that need one.
func NewClient(cfg *config.Config, logger *zap.Logger) *openai.Client {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OpenAI API key is not configured, OpenAI providers are unavailable")
		return nil
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)
	logger.Info("OpenAI client created", zap.String("base_url", clientCfg.BaseURL))

	return client
}
