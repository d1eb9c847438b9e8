// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

// Package telemetry installs the global OpenTelemetry tracer provider for the
// mailguard server. pkg/mail records one span per dispatch through it, so the
// spans are no-ops until Init runs with tracing enabled.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/telekom/mailguard/pkg/config"
)

// DefaultServiceName is reported when the configuration leaves serviceName empty.
const DefaultServiceName = "mailguard"

const shutdownFlushTimeout = 5 * time.Second

// ShutdownFunc flushes pending spans and stops the provider.
type ShutdownFunc func(ctx context.Context) error

// Init installs the tracer provider described by cfg as the global provider.
// A disabled configuration installs a no-op provider whose ShutdownFunc
// always returns nil.
func Init(ctx context.Context, cfg config.Telemetry, serviceVersion string, log *zap.SugaredLogger) (trace.TracerProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, func(context.Context) error { return nil }, nil
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.Named("telemetry")

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	res, err := resource.Merge(
		resource.Default(),
		// schemaless, so it never conflicts with the schema URL of resource.Default
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	rate := SamplingRate(cfg.SamplingRate, log)
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	// export failures would otherwise go to stderr unstructured
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		log.Warnw("OpenTelemetry internal error", "error", err)
	}))

	log.Infow("Dispatch tracing enabled",
		"serviceName", serviceName,
		"exporter", cfg.Exporter,
		"endpoint", cfg.Endpoint,
		"samplingRate", rate)

	return tp, func(ctx context.Context) error {
		flushCtx, cancel := context.WithTimeout(ctx, shutdownFlushTimeout)
		defer cancel()
		return tp.Shutdown(flushCtx)
	}, nil
}

// newExporter returns nil for the "none" exporter: spans are sampled and
// ended but never leave the process.
func newExporter(ctx context.Context, cfg config.Telemetry) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp", "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP gRPC exporter: %w", err)
		}
		return exp, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return exp, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown OTel exporter %q: supported values are otlp, stdout, none", cfg.Exporter)
	}
}

// SamplingRate maps the configured rate onto (0, 1]. Zero means unset and
// samples every dispatch, as do out-of-range values.
func SamplingRate(configured float64, log *zap.SugaredLogger) float64 {
	switch {
	case configured == 0:
		return 1
	case configured < 0 || configured > 1:
		log.Warnw("OTel sampling rate out of range, sampling everything", "provided", configured)
		return 1
	default:
		return configured
	}
}
