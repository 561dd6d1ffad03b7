// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/transport"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Start starts every registered component.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// Err reports a construction error, if any.
func (a *Application) Err() error {
	return a.app.Err()
}

// registerLifecycleHooks forces construction of the server, which pulls in
// the rest of the graph, and logs the effective pipeline settings. Hooks run
// in reverse on stop, so this one logs after the server and the sessions are
// gone.
func registerLifecycleHooks(lc fx.Lifecycle, _ *transport.Server, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p := cfg.Pipeline
			logger.Info("Application started",
				zap.String("listen_addr", cfg.Server.ListenAddr),
				zap.String("transcription_provider", cfg.Transcription.Provider),
				zap.String("synthesis_provider", cfg.Synthesis.Provider),
				zap.String("responder", cfg.Responder.Provider),
				zap.Int("target_rate_hz", p.TargetSampleRate),
				zap.Float64("buffer_seconds", p.BufferDurationSeconds),
				zap.Float64("vad_threshold", p.VADEnergyThreshold),
				zap.Duration("transcription_timeout", p.TranscriptionTimeout),
				zap.String("container", p.Container))
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Info("Application stopped")
			return nil
		},
	})
}
