package infrastructure_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-voice-ingest/pkg/infrastructure"
)

func TestNewFxLoggerAdapter(t *testing.T) {
	adapter := infrastructure.NewFxLoggerAdapter(zaptest.NewLogger(t))

	var _ fxevent.Logger = adapter
	assert.NotNil(t, adapter)
}

func TestFxLoggerAdapter_Levels(t *testing.T) {
	failure := errors.New("boom")

	tests := map[string]struct {
		event     fxevent.Event
		wantLevel zapcore.Level
	}{
		"hook_ok":         {&fxevent.OnStartExecuted{FunctionName: "f", CallerName: "c", Runtime: time.Millisecond}, zapcore.DebugLevel},
		"hook_failed":     {&fxevent.OnStopExecuted{FunctionName: "f", CallerName: "c", Err: failure}, zapcore.ErrorLevel},
		"provided":        {&fxevent.Provided{ConstructorName: "NewX", OutputTypeNames: []string{"*X"}}, zapcore.DebugLevel},
		"provide_failed":  {&fxevent.Provided{ConstructorName: "NewX", Err: failure}, zapcore.ErrorLevel},
		"supplied":        {&fxevent.Supplied{TypeName: "string"}, zapcore.DebugLevel},
		"invoke_failed":   {&fxevent.Invoked{FunctionName: "run", Err: failure}, zapcore.ErrorLevel},
		"started":         {&fxevent.Started{}, zapcore.InfoLevel},
		"start_failed":    {&fxevent.Started{Err: failure}, zapcore.ErrorLevel},
		"stopping":        {&fxevent.Stopping{Signal: os.Interrupt}, zapcore.InfoLevel},
		"rolling_back":    {&fxevent.RollingBack{StartErr: failure}, zapcore.ErrorLevel},
		"logger_init":     {&fxevent.LoggerInitialized{ConstructorName: "NewFxLoggerAdapter"}, zapcore.DebugLevel},
		"invoking":        {&fxevent.Invoking{FunctionName: "run"}, zapcore.DebugLevel},
		"stop_executing":  {&fxevent.OnStopExecuting{FunctionName: "f", CallerName: "c"}, zapcore.DebugLevel},
		"rolled_back_err": {&fxevent.RolledBack{Err: failure}, zapcore.ErrorLevel},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			adapter := infrastructure.NewFxLoggerAdapter(zap.New(core))

			adapter.LogEvent(tt.event)

			entries := logs.All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tt.wantLevel, entries[0].Level)
				assert.Equal(t, "fx", entries[0].LoggerName)
			}
		})
	}
}
