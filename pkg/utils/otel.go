// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// OTelProtocolGRPC selects the OTLP gRPC exporter.
	OTelProtocolGRPC = "grpc"
	// OTelProtocolHTTP selects the OTLP HTTP exporter.
	OTelProtocolHTTP = "http"

	// OTelExporterOTLP enables exporting over OTLP.
	OTelExporterOTLP = "otlp"
	// OTelExporterNone disables the exporter.
	OTelExporterNone = "none"

	// OTelDefaultPropagators is used when OTEL_PROPAGATORS is unset.
	OTelDefaultPropagators = "tracecontext,baggage,jaeger"

	defaultOTelServiceName = "lfx-v2-mailing-list-subscriber-service"
)

// OTelConfig holds the tracing configuration.
type OTelConfig struct {
	ServiceName       string
	ServiceVersion    string
	Protocol          string
	Endpoint          string
	Insecure          bool
	TracesExporter    string
	TracesSampleRatio float64
	Propagators       string
}

// OTelConfigFromEnv reads the OTEL_* environment variables, applying defaults.
func OTelConfigFromEnv() OTelConfig {
	cfg := OTelConfig{
		ServiceName:       os.Getenv("OTEL_SERVICE_NAME"),
		ServiceVersion:    os.Getenv("OTEL_SERVICE_VERSION"),
		Protocol:          strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")),
		Endpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:          os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
		TracesExporter:    strings.ToLower(os.Getenv("OTEL_TRACES_EXPORTER")),
		TracesSampleRatio: 1.0,
		Propagators:       os.Getenv("OTEL_PROPAGATORS"),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultOTelServiceName
	}
	if cfg.Protocol != OTelProtocolHTTP {
		cfg.Protocol = OTelProtocolGRPC
	}
	if cfg.TracesExporter == "" {
		cfg.TracesExporter = OTelExporterNone
	}
	if cfg.Propagators == "" {
		cfg.Propagators = OTelDefaultPropagators
	}
	if raw := os.Getenv("OTEL_TRACES_SAMPLE_RATIO"); raw != "" {
		// out-of-range values keep the default
		if ratio, err := strconv.ParseFloat(raw, 64); err == nil && ratio >= 0 && ratio <= 1 {
			cfg.TracesSampleRatio = ratio
		}
	}
	return cfg
}

// SetupOTelSDK configures tracing from the environment.
func SetupOTelSDK(ctx context.Context) (func(context.Context) error, error) {
	return SetupOTelSDKWithConfig(ctx, OTelConfigFromEnv())
}

// SetupOTelSDKWithConfig installs the global propagator and, when enabled,
// a tracer provider. The returned shutdown function is safe to call twice.
func SetupOTelSDKWithConfig(ctx context.Context, cfg OTelConfig) (func(context.Context) error, error) {
	var shutdownFuncs []func(context.Context) error

	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	prop, err := newPropagator(cfg)
	if err != nil {
		return shutdown, err
	}
	otel.SetTextMapPropagator(prop)

	if !isExporterEnabled(cfg.TracesExporter) {
		return shutdown, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return shutdown, err
	}

	tp, err := newTraceProvider(ctx, cfg, res)
	if err != nil {
		return shutdown, err
	}
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	return shutdown, nil
}

func isExporterEnabled(exporter string) bool {
	return strings.EqualFold(exporter, OTelExporterOTLP)
}

func newResource(cfg OTelConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	return resource.New(context.Background(),
		resource.WithAttributes(attrs...),
		resource.WithTelemetrySDK(),
	)
}

func newPropagator(cfg OTelConfig) (propagation.TextMapPropagator, error) {
	names := cfg.Propagators
	if strings.TrimSpace(names) == "" {
		names = OTelDefaultPropagators
	}

	var props []propagation.TextMapPropagator
	for _, name := range strings.Split(names, ",") {
		switch strings.TrimSpace(name) {
		case "tracecontext":
			props = append(props, propagation.TraceContext{})
		case "baggage":
			props = append(props, propagation.Baggage{})
		case "jaeger":
			props = append(props, jaeger.Jaeger{})
		case "":
		default:
			return nil, fmt.Errorf("unsupported propagator %q", name)
		}
	}
	return propagation.NewCompositeTextMapPropagator(props...), nil
}

func newTraceProvider(ctx context.Context, cfg OTelConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch cfg.Protocol {
	case OTelProtocolHTTP:
		var opts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, endpointOptionHTTP(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		var opts []otlptracegrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, endpointOptionGRPC(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TracesSampleRatio))),
	), nil
}

func hasScheme(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}

func endpointOptionHTTP(endpoint string) otlptracehttp.Option {
	if hasScheme(endpoint) {
		return otlptracehttp.WithEndpointURL(endpoint)
	}
	return otlptracehttp.WithEndpoint(endpoint)
}

func endpointOptionGRPC(endpoint string) otlptracegrpc.Option {
	if hasScheme(endpoint) {
		return otlptracegrpc.WithEndpointURL(endpoint)
	}
	return otlptracegrpc.WithEndpoint(endpoint)
}
