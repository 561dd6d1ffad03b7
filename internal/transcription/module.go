package transcription

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
)

// Module provides the configured Transcriber.
var Module = fx.Module("transcription",
	fx.Provide(NewTranscriber),
)

// TranscriberParams holds dependencies for NewTranscriber.
type TranscriberParams struct {
	fx.In
	Cfg     *config.Config
	Logger  *zap.Logger
	Client  *openai.Client   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// NewTranscriber builds the provider selected by transcription.provider and
// wraps it with the concurrency limit and retry policy.
func NewTranscriber(p TranscriberParams) (Transcriber, error) {
	cfg := p.Cfg.Transcription
	logger := p.Logger.Named("transcription")

	var (
		provider Transcriber
		err      error
	)
	switch cfg.Provider {
	case config.ProviderDeepgram:
		provider, err = NewDeepgram(cfg.Deepgram, nil, logger)
	case config.ProviderWhisper:
		provider, err = NewWhisper(p.Client, cfg.Whisper, logger)
	default:
		err = fmt.Errorf("unknown transcription provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Transcriber created",
		zap.String("provider", cfg.Provider),
		zap.Int("max_attempts", cfg.MaxAttempts),
		zap.Int("max_concurrent", cfg.MaxConcurrent))

	return NewGuarded(provider, cfg.Provider, cfg.MaxConcurrent, cfg.MaxAttempts, p.Metrics, logger), nil
}
