package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/internal/pipeline"
)

// Module provides the HTTP server and ties it to the application lifecycle.
var Module = fx.Module("transport",
	fx.Provide(NewServerProvider),
)

// ServerParams holds dependencies for NewServerProvider.
type ServerParams struct {
	fx.In
	Cfg      *config.Config
	Logger   *zap.Logger
	LC       fx.Lifecycle
	Manager  *pipeline.Manager
	Gatherer prometheus.Gatherer `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

// NewServerProvider builds the Server. The listener is bound on start and
// shut down on stop, before the session manager closes the sessions.
func NewServerProvider(p ServerParams) *Server {
	s := NewServer(p.Cfg.Server, p.Manager, p.Gatherer, p.Metrics, p.Logger)
	p.LC.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
	return s
}
