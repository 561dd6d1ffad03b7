// Package infrastructure provides core infrastructure components and their Fx modules.
package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	pkginfra "github.com/Raikerian/go-voice-ingest/pkg/infrastructure"
)

// LoggerModule provides logging infrastructure.
var LoggerModule = fx.Module("logger",
	fx.Provide(NewZapLogger),
)

// NewZapLoggerParams holds dependencies for NewZapLogger.
type NewZapLoggerParams struct {
	fx.In
	Cfg *config.Config
	LC  fx.Lifecycle
}

// NewZapLogger builds the process logger. "debug" selects the development
// encoder; every other level uses the JSON production encoder.
func NewZapLogger(params NewZapLoggerParams) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(params.Cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build(zap.Fields(zap.String("service", "voice-ingest")))
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	params.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// stderr sync fails with EINVAL on some terminals
			_ = logger.Sync()
			return nil
		},
	})

	return logger, nil
}

// NewFxLoggerAdapter creates a new Fx logger adapter using the public package.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return pkginfra.NewFxLoggerAdapter(logger)
}
