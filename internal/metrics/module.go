package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/pkg/pricing"
)

// Module provides the registry, the service metrics and the usage meter.
var Module = fx.Module("metrics",
	fx.Provide(
		NewRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		NewMetrics,
		NewPricingTable,
		NewUsageMeter,
	),
)

// NewPricingTable loads pricing_file when set, else the built-in prices.
func NewPricingTable(cfg *config.Config, logger *zap.Logger) (*pricing.Table, error) {
	if cfg.PricingFile == "" {
		return pricing.Default(), nil
	}
	table, err := pricing.Load(cfg.PricingFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Pricing loaded",
		zap.String("file", cfg.PricingFile),
		zap.Int("models", len(table.Models)),
		zap.Time("last_updated", table.LastUpdated))
	return table, nil
}
