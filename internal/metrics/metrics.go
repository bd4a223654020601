package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "wisecal"

// SetupPrometheusExporter creates a Prometheus exporter and installs a meter
// provider reading from it as the global one.
func SetupPrometheusExporter() (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider, nil
}

func Shutdown(ctx context.Context, provider *sdkmetric.MeterProvider) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// Sync holds the instruments recorded by sync passes. A nil *Sync records
// nothing.
type Sync struct {
	passes        metric.Int64Counter
	inserted      metric.Int64Counter
	deleted       metric.Int64Counter
	failed        metric.Int64Counter
	ownerDuration metric.Float64Histogram
}

func NewSync() (*Sync, error) {
	meter := otel.Meter(meterName)

	passes, err := meter.Int64Counter("wisecal.sync.passes",
		metric.WithDescription("Sync passes started"),
		metric.WithUnit("{pass}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create passes counter: %w", err)
	}
	inserted, err := meter.Int64Counter("wisecal.sync.events.inserted",
		metric.WithDescription("Events confirmed inserted on the remote calendar"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create inserted counter: %w", err)
	}
	deleted, err := meter.Int64Counter("wisecal.sync.events.deleted",
		metric.WithDescription("Events confirmed deleted from the remote calendar"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create deleted counter: %w", err)
	}
	failed, err := meter.Int64Counter("wisecal.sync.items.failed",
		metric.WithDescription("Insert or delete items rejected by the remote calendar"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}
	ownerDuration, err := meter.Float64Histogram("wisecal.sync.owner.duration",
		metric.WithDescription("Time spent syncing one owner"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create owner duration histogram: %w", err)
	}
	return &Sync{
		passes:        passes,
		inserted:      inserted,
		deleted:       deleted,
		failed:        failed,
		ownerDuration: ownerDuration,
	}, nil
}

func (s *Sync) Pass(ctx context.Context) {
	if s == nil {
		return
	}
	s.passes.Add(ctx, 1)
}

func (s *Sync) Applied(ctx context.Context, op string, ok, failed int) {
	if s == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("op", op))
	switch op {
	case "insert":
		s.inserted.Add(ctx, int64(ok), attrs)
	case "delete":
		s.deleted.Add(ctx, int64(ok), attrs)
	}
	if failed > 0 {
		s.failed.Add(ctx, int64(failed), attrs)
	}
}

func (s *Sync) OwnerDone(ctx context.Context, seconds float64, outcome string) {
	if s == nil {
		return
	}
	s.ownerDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("outcome", outcome)))
}
