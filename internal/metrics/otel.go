package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const defaultServiceName = "golf-outing-manager"

// TelemetryConfig controls how metrics are exported.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OtlpEndpoint string
	OtlpInsecure bool
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and an
// optional OTLP exporter. It returns the recorder, the Prometheus handler
// (nil when disabled) and a shutdown function.
func Setup(ctx context.Context, cfg TelemetryConfig) (*Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return NewRecorder(), nil, func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	promReader, promHandler, err := prometheusComponents()
	if err != nil {
		return nil, nil, nil, err
	}
	opts := []sdkmetric.Option{sdkmetric.WithReader(promReader)}

	if cfg.OtlpEndpoint != "" {
		otlpReader, err := buildOTLPReader(ctx, cfg.OtlpEndpoint, cfg.OtlpInsecure)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, sdkmetric.WithReader(otlpReader))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	opts = append(opts, sdkmetric.WithResource(res))

	provider := sdkmetric.NewMeterProvider(opts...)

	inst, err := newOtelInstruments(provider)
	if err != nil {
		return nil, nil, nil, err
	}

	return newRecorder(inst), promHandler, provider.Shutdown, nil
}

func prometheusComponents() (sdkmetric.Reader, http.Handler, error) {
	reg := prometheus.NewRegistry()
	promExp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, nil, err
	}
	return promExp, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

func buildOTLPReader(ctx context.Context, endpoint string, insecure bool) (sdkmetric.Reader, error) {
	otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
	if insecure {
		otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
	}
	otlpExp, err := otlpmetrichttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(otlpExp, sdkmetric.WithInterval(15*time.Second)), nil
}

type otelInstruments struct {
	ctx              context.Context
	requests         metric.Int64Counter
	requestLatencyMs metric.Float64Histogram
	commands         metric.Int64Counter
	commandLatencyMs metric.Float64Histogram
	rosterSize       metric.Int64Gauge
	allocations      metric.Int64Counter
	allocatedPlayers metric.Int64Histogram
	allocationMs     metric.Float64Histogram
	handicapSyncs    metric.Int64Counter
	handicapsUpdated metric.Int64Counter
	handicapSyncMs   metric.Float64Histogram
}

func newOtelInstruments(provider metric.MeterProvider) (*otelInstruments, error) {
	meter := provider.Meter(defaultServiceName)
	inst := &otelInstruments{ctx: context.Background()}

	var err error
	if inst.requests, err = meter.Int64Counter("http_requests_total"); err != nil {
		return nil, err
	}
	if inst.requestLatencyMs, err = meter.Float64Histogram("http_request_duration_ms"); err != nil {
		return nil, err
	}
	if inst.commands, err = meter.Int64Counter("draft_commands_total"); err != nil {
		return nil, err
	}
	if inst.commandLatencyMs, err = meter.Float64Histogram("draft_command_duration_ms"); err != nil {
		return nil, err
	}
	if inst.rosterSize, err = meter.Int64Gauge("roster_players"); err != nil {
		return nil, err
	}
	if inst.allocations, err = meter.Int64Counter("foursome_allocations_total"); err != nil {
		return nil, err
	}
	if inst.allocatedPlayers, err = meter.Int64Histogram("foursome_allocation_players"); err != nil {
		return nil, err
	}
	if inst.allocationMs, err = meter.Float64Histogram("foursome_allocation_duration_ms"); err != nil {
		return nil, err
	}
	if inst.handicapSyncs, err = meter.Int64Counter("handicap_sync_cycles_total"); err != nil {
		return nil, err
	}
	if inst.handicapsUpdated, err = meter.Int64Counter("handicap_updates_total"); err != nil {
		return nil, err
	}
	if inst.handicapSyncMs, err = meter.Float64Histogram("handicap_sync_duration_ms"); err != nil {
		return nil, err
	}
	return inst, nil
}

func (o *otelInstruments) recordHTTPRequest(method, path string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
		attribute.Int(AttrStatus, status),
	)
	o.requests.Add(o.ctx, 1, attrs)
	o.requestLatencyMs.Record(o.ctx, float64(duration.Milliseconds()), attrs)
}

func (o *otelInstruments) recordCommand(command string, duration time.Duration, outcome string) {
	if outcome == "" {
		outcome = "ok"
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrCommand, command),
		attribute.String(AttrOutcome, outcome),
	)
	o.commands.Add(o.ctx, 1, attrs)
	o.commandLatencyMs.Record(o.ctx, float64(duration.Milliseconds()), attrs)
}

func (o *otelInstruments) recordRosterSize(players int) {
	o.rosterSize.Record(o.ctx, int64(players))
}

func (o *otelInstruments) recordAllocation(players int, duration time.Duration) {
	o.allocations.Add(o.ctx, 1)
	o.allocatedPlayers.Record(o.ctx, int64(players))
	o.allocationMs.Record(o.ctx, float64(duration.Milliseconds()))
}

func (o *otelInstruments) recordHandicapSync(updated int, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	o.handicapSyncs.Add(o.ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	o.handicapsUpdated.Add(o.ctx, int64(updated))
	o.handicapSyncMs.Record(o.ctx, float64(duration.Milliseconds()))
}
