package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Where telemetry goes
type Exporter string

const (
	ExporterOTLP   Exporter = "otlp"
	ExporterStdout Exporter = "stdout"
	// Providers are installed but nothing is exported, used by the CLI and tests
	ExporterNone Exporter = "none"
)

var ErrUnknownExporter = errors.New("unknown otel exporter")

// SetupOTelSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(
	ctx context.Context,
	serviceName string,
	exporter Exporter,
) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error

	// Each registered cleanup will be invoked once, errors are joined
	shutdown := func(ctx context.Context) error {
		var er error
		for _, fn := range shutdownFuncs {
			er = errors.Join(er, fn(ctx))
		}
		shutdownFuncs = nil
		return er
	}

	handleErr := func(inErr error) error {
		return errors.Join(inErr, shutdown(ctx))
	}

	switch exporter {
	case ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return shutdown, fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}

	res := resource.NewSchemaless(semconv.ServiceName(serviceName))

	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTracerProvider(ctx, res, exporter)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	meterProvider, err := newMeterProvider(ctx, res, exporter)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	loggerProvider, err := newLoggerProvider(ctx, res, exporter)
	if err != nil {
		return shutdown, handleErr(err)
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return shutdown, nil
}

//nolint:ireturn // no control over otel's propagator interface return.
func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(
	ctx context.Context,
	res *resource.Resource,
	exporter Exporter,
) (*trace.TracerProvider, error) {
	opts := []trace.TracerProviderOption{
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithResource(res),
	}

	var err error
	var traceExporter trace.SpanExporter
	switch exporter {
	case ExporterOTLP:
		traceExporter, err = otlptracegrpc.New(ctx)
	case ExporterStdout:
		traceExporter, err = stdouttrace.New()
	}
	if err != nil {
		return nil, err
	}
	if traceExporter != nil {
		opts = append(opts, trace.WithBatcher(traceExporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

func newMeterProvider(
	ctx context.Context,
	res *resource.Resource,
	exporter Exporter,
) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	var err error
	var metricExporter metric.Exporter
	switch exporter {
	case ExporterOTLP:
		metricExporter, err = otlpmetricgrpc.New(ctx)
	case ExporterStdout:
		metricExporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}
	if metricExporter != nil {
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	}

	return metric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(
	ctx context.Context,
	res *resource.Resource,
	exporter Exporter,
) (*log.LoggerProvider, error) {
	opts := []log.LoggerProviderOption{log.WithResource(res)}

	var err error
	var logExporter log.Exporter
	switch exporter {
	case ExporterOTLP:
		logExporter, err = otlploggrpc.New(ctx)
	case ExporterStdout:
		logExporter, err = stdoutlog.New()
	}
	if err != nil {
		return nil, err
	}
	if logExporter != nil {
		opts = append(opts, log.WithProcessor(log.NewBatchProcessor(logExporter)))
	}

	return log.NewLoggerProvider(opts...), nil
}
