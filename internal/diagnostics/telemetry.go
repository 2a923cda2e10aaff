// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostics

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryConfig configures process-wide OTel wiring. Grounded on
// cmd/aleutian/internal/diagnostics/tracer.go's TracerProvider
// construction, with one deliberate substitution: that file exports
// spans over OTLP/gRPC to a collector service, which assumes a
// networked deployment this local-first workbench doesn't have. Here
// the span exporter is stdouttrace writing to TraceWriter (io.Discard
// unless a writer is set; cmd/graphshell sets none) and the metrics reader is
// otel/exporters/prometheus, registered against the same
// prometheus.Registerer PromMetrics uses, so both OTel and the
// direct-CounterVec path in prom.go expose one combined /metrics
// surface.
type TelemetryConfig struct {
	// TraceWriter receives the stdout span exporter's output. Defaults
	// to io.Discard if nil (spans are still created and sampled; they
	// just aren't printed), so disabling trace output doesn't require a
	// separate flag.
	TraceWriter io.Writer
	// PrometheusRegisterer receives the OTel Prometheus exporter's
	// collector, alongside PromMetrics's CounterVec.
	PrometheusRegisterer prometheus.Registerer
	ServiceName          string
}

// Telemetry holds the constructed providers and their shutdown hooks.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
}

// NewTelemetry builds a TracerProvider (stdouttrace exporter) and a
// MeterProvider (Prometheus exporter), installs them as the global OTel
// providers, and returns a ready-to-use Tracer for
// internal/workbench.Config.Tracer.
func NewTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	writer := cfg.TraceWriter
	if writer == nil {
		writer = io.Discard
	}
	name := cfg.ServiceName
	if name == "" {
		name = "graphshell"
	}

	traceExp, err := stdouttrace.New(stdouttrace.WithWriter(writer))
	if err != nil {
		return nil, err
	}
	res := resource.NewSchemaless(
		resource.Default().Attributes()...,
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	reg := cfg.PrometheusRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricExp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricExp))
	otel.SetMeterProvider(mp)

	return &Telemetry{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer(name),
	}, nil
}

// Shutdown flushes and closes both providers. Safe to call on a nil
// receiver (no-op), matching internal/logging.Logger.Close's shape for
// a resource that may not have been constructed (e.g. telemetry
// disabled by config).
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return t.MeterProvider.Shutdown(ctx)
}
