package pipeline

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/internal/responder"
	"github.com/Raikerian/go-voice-ingest/internal/synthesis"
	"github.com/Raikerian/go-voice-ingest/internal/transcription"
)

// Module provides the session manager.
var Module = fx.Module("pipeline",
	fx.Provide(NewManagerProvider),
)

// ManagerParams holds dependencies for NewManagerProvider.
type ManagerParams struct {
	fx.In
	Cfg         *config.Config
	Logger      *zap.Logger
	LC          fx.Lifecycle
	Transcriber transcription.Transcriber
	Responder   responder.Responder
	Synthesis   *synthesis.Adapter  `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
	Usage       *metrics.UsageMeter `optional:"true"`
}

// NewManagerProvider builds the Manager and closes every session on stop.
func NewManagerProvider(p ManagerParams) *Manager {
	deps := Dependencies{
		Transcriber: p.Transcriber,
		Responder:   p.Responder,
		Metrics:     p.Metrics,
		Logger:      p.Logger.Named("pipeline"),
	}
	if p.Synthesis != nil {
		deps.Speaker = p.Synthesis
	}
	if p.Usage != nil {
		deps.Usage = p.Usage
	}

	m := NewManager(p.Cfg.Pipeline, deps)

	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("Closing all sessions", zap.Int("count", m.Count()))
			return m.CloseAll(ctx)
		},
	})

	return m
}
