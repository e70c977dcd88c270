// Package observability wires OpenTelemetry metrics for the gateway.
// Disabled by default; enabling an exporter turns on request and command
// instrumentation.
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// shutdownTimeout is the maximum time to wait for shutdown.
const shutdownTimeout = 5 * time.Second

// Telemetry holds the meter provider and instruments.
type Telemetry struct {
	config        *Config
	meterProvider metric.MeterProvider
	meterReader   sdkmetric.Reader
	metrics       *Metrics
	shutdownOnce  sync.Once
}

// Init initializes OpenTelemetry with the given configuration.
// Returns the telemetry manager and a cleanup function for defer.
func Init(ctx context.Context, cfg *Config) (*Telemetry, func(), error) {
	// Disabled: return a no-op manager so callers never branch
	if !cfg.ShouldEnable() {
		tel := &Telemetry{config: cfg}
		return tel, func() {}, nil
	}

	mp, reader, err := initMeterProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := InitMetrics(mp)
	if err != nil {
		if sp, ok := mp.(*sdkmetric.MeterProvider); ok {
			_ = sp.Shutdown(ctx)
		}
		return nil, nil, err
	}

	tel := &Telemetry{
		config:        cfg,
		meterProvider: mp,
		meterReader:   reader,
		metrics:       metrics,
	}
	otel.SetMeterProvider(mp)

	return tel, tel.Cleanup, nil
}

// MeterProvider returns the meter provider (or the global default if disabled).
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t.meterProvider != nil {
		return t.meterProvider
	}
	return otel.GetMeterProvider()
}

// Metrics returns the metric instruments, or nil if disabled.
func (t *Telemetry) Metrics() *Metrics {
	return t.metrics
}

// Config returns the telemetry configuration.
func (t *Telemetry) Config() *Config {
	return t.config
}

// Shutdown flushes and closes the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	t.shutdownOnce.Do(func() {
		if t.meterReader != nil {
			if pr, ok := t.meterReader.(interface{ ForceFlush(context.Context) error }); ok {
				_ = pr.ForceFlush(ctx)
			}
		}
		if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
			err = mp.Shutdown(ctx)
		}
	})
	return err
}

// Cleanup is a convenience function for defer cleanup.
func (t *Telemetry) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = t.Shutdown(ctx)
}
