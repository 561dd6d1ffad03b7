package synthesis

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
)

// Module provides the synthesis adapter.
var Module = fx.Module("synthesis",
	fx.Provide(
		NewPhraseCacheProvider,
		NewAdapterProvider,
	),
)

// NewPhraseCacheProvider creates a PhraseCache with config-derived size.
func NewPhraseCacheProvider(cfg *config.Config, logger *zap.Logger) (*PhraseCache, error) {
	size := cfg.Synthesis.PhraseCacheSize
	if size <= 0 {
		logger.Warn("Synthesis phrase_cache_size is not configured or is invalid, defaulting to 64",
			zap.Int("configuredSize", size))
		size = 64
	}
	logger.Info("Creating PhraseCache", zap.Int("size", size))

	return NewPhraseCache(size)
}

// AdapterParams holds dependencies for NewAdapterProvider.
type AdapterParams struct {
	fx.In
	Cfg     *config.Config
	Logger  *zap.Logger
	Cache   *PhraseCache
	Client  *openai.Client   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// NewAdapterProvider builds the provider selected by synthesis.provider.
func NewAdapterProvider(p AdapterParams) (*Adapter, error) {
	cfg := p.Cfg.Synthesis

	var (
		provider Synthesizer
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider, err = NewOpenAISpeech(p.Client, cfg.OpenAI, p.Logger)
	case config.ProviderCartesia:
		provider, err = NewCartesia(cfg.Cartesia, cfg.SampleRate, nil, p.Logger)
	default:
		err = fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	p.Logger.Info("Synthesizer created", zap.String("provider", cfg.Provider))

	return NewAdapter(provider, cfg.Provider, p.Cache, cfg.FallbackPhrase, p.Metrics, p.Logger), nil
}
