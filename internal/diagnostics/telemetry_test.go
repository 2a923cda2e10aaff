// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelemetryBuildsUsableTracer(t *testing.T) {
	tel, err := NewTelemetry(TelemetryConfig{PrometheusRegisterer: prometheus.NewRegistry()})
	require.NoError(t, err)
	require.NotNil(t, tel.Tracer)

	_, span := tel.Tracer.Start(context.Background(), "test.span")
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTelemetryShutdownOnNilIsNoop(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
}
