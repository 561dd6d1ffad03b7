package responder

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
)

// Module provides the configured Responder.
var Module = fx.Module("responder",
	fx.Provide(NewResponder),
)

// ResponderParams holds dependencies for NewResponder.
type ResponderParams struct {
	fx.In
	Cfg    *config.Config
	Logger *zap.Logger
	Client *openai.Client `optional:"true"`
}

// NewResponder builds the responder selected by responder.provider.
func NewResponder(p ResponderParams) (Responder, error) {
	switch p.Cfg.Responder.Provider {
	case config.ProviderKeyword:
		return NewKeyword(), nil
	case config.ProviderOpenAI:
		return NewChat(p.Client, p.Cfg.Responder.OpenAI, p.Logger)
	default:
		return nil, fmt.Errorf("unknown responder provider %q", p.Cfg.Responder.Provider)
	}
}
