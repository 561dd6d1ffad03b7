// Package infrastructure provides reusable infrastructure components for Go applications.
package infrastructure

import (
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// FxLoggerAdapter routes Fx lifecycle events to a zap.Logger with structured
// fields. Successful steps are logged at debug level and failures at error
// level, so a production logger only shows start, stop and problems.
type FxLoggerAdapter struct {
	logger *zap.Logger
}

// NewFxLoggerAdapter returns an fxevent.Logger backed by logger.
func NewFxLoggerAdapter(logger *zap.Logger) fxevent.Logger {
	return &FxLoggerAdapter{logger: logger.Named("fx").WithOptions(zap.AddCallerSkip(1))}
}

// LogEvent implements fxevent.Logger.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		a.logger.Debug("OnStart hook executing",
			zap.String("callee", e.FunctionName), zap.String("caller", e.CallerName))
	case *fxevent.OnStartExecuted:
		a.hook("OnStart", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.OnStopExecuting:
		a.logger.Debug("OnStop hook executing",
			zap.String("callee", e.FunctionName), zap.String("caller", e.CallerName))
	case *fxevent.OnStopExecuted:
		a.hook("OnStop", e.FunctionName, e.CallerName, e.Runtime.String(), e.Err)
	case *fxevent.Supplied:
		a.result("supplied", e.Err, zap.String("type", e.TypeName), zap.String("module", e.ModuleName))
	case *fxevent.Provided:
		a.result("provided", e.Err,
			zap.String("constructor", e.ConstructorName),
			zap.Strings("types", e.OutputTypeNames),
			zap.String("module", e.ModuleName))
	case *fxevent.Decorated:
		a.result("decorated", e.Err,
			zap.String("decorator", e.DecoratorName), zap.Strings("types", e.OutputTypeNames))
	case *fxevent.Invoking:
		a.logger.Debug("invoking", zap.String("function", e.FunctionName), zap.String("module", e.ModuleName))
	case *fxevent.Invoked:
		a.result("invoked", e.Err, zap.String("function", e.FunctionName), zap.String("trace", e.Trace))
	case *fxevent.Stopping:
		a.logger.Info("received signal", zap.String("signal", e.Signal.String()))
	case *fxevent.Stopped:
		a.lifecycle("stopped", e.Err)
	case *fxevent.RollingBack:
		a.logger.Error("start failed, rolling back", zap.Error(e.StartErr))
	case *fxevent.RolledBack:
		a.lifecycle("rolled back", e.Err)
	case *fxevent.Started:
		a.lifecycle("started", e.Err)
	case *fxevent.LoggerInitialized:
		a.result("logger initialized", e.Err, zap.String("constructor", e.ConstructorName))
	default:
		a.logger.Debug("unhandled fx event", zap.Any("event", event))
	}
}

func (a *FxLoggerAdapter) hook(kind, callee, caller, runtime string, err error) {
	if err != nil {
		a.logger.Error(kind+" hook failed",
			zap.String("callee", callee), zap.String("caller", caller), zap.Error(err))
		return
	}
	a.logger.Debug(kind+" hook executed",
		zap.String("callee", callee), zap.String("caller", caller), zap.String("runtime", runtime))
}

func (a *FxLoggerAdapter) result(msg string, err error, fields ...zap.Field) {
	if err != nil {
		a.logger.Error(msg+" with error", append(fields, zap.Error(err))...)
		return
	}
	a.logger.Debug(msg, fields...)
}

func (a *FxLoggerAdapter) lifecycle(msg string, err error) {
	if err != nil {
		a.logger.Error(msg+" with error", zap.Error(err))
		return
	}
	a.logger.Info(msg)
}
