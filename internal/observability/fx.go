// Package observability wires logging, tracing and metrics into the fx graph.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/openlotlabs/torii/internal/config"
	"github.com/openlotlabs/torii/internal/observability/logger"
	"github.com/openlotlabs/torii/internal/observability/metrics"
	"github.com/openlotlabs/torii/internal/observability/tracing"
)

// ServiceVersion is stamped at build time via -ldflags.
var ServiceVersion = "dev"

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) (*zap.Logger, error) {
		return logger.New(cfg.Environment)
	}),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.OTLPEndpoint != "",
			ServiceName:      "torii",
			ServiceVersion:   ServiceVersion,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.OTLPEndpoint,
			ExporterProtocol: "http",
			SamplingRatio:    1,
		}
	}),
	fx.Invoke(tracing.NewProvider),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: "torii",
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(newMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Provide(metrics.CheckoutWithConfig),
)

func newMeterProvider(lc fx.Lifecycle) metric.MeterProvider {
	provider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(provider)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})
	return provider
}
