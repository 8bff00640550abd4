// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func telemetryConfig(traces, metrics string) config.TelemetryConfig {
	return config.TelemetryConfig{
		ServiceName:    "docassoc-test",
		TraceExporter:  traces,
		MetricExporter: metrics,
		OTLPEndpoint:   config.DefaultOTLPEndpoint,
		OTLPInsecure:   true,
	}
}

func TestInit_None(t *testing.T) {
	p, err := Init(context.Background(), telemetryConfig("none", "none"))
	require.NoError(t, err)
	require.NotNil(t, p.Shutdown)
	assert.Nil(t, p.MetricsHandler)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_StdoutTraces(t *testing.T) {
	var buf bytes.Buffer
	p, err := Init(context.Background(), telemetryConfig("stdout", "none"), WithWriter(&buf), WithVersion("1.2.3"))
	require.NoError(t, err)

	_, span := otel.Tracer("docassoc.test").Start(context.Background(), "init-check")
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "init-check")
	assert.Contains(t, buf.String(), "1.2.3")
}

func TestInit_Prometheus(t *testing.T) {
	p, err := Init(context.Background(), telemetryConfig("none", "prometheus"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	require.NotNil(t, p.MetricsHandler)

	w := httptest.NewRecorder()
	p.MetricsHandler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(context.Background(), telemetryConfig("zipkin", "none"))
	assert.ErrorIs(t, err, ErrUnknownExporter)

	_, err = Init(context.Background(), telemetryConfig("none", "statsd"))
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestInit_MeterFailureReleasesTracer(t *testing.T) {
	before := otel.GetTracerProvider()

	var buf bytes.Buffer
	p, err := Init(context.Background(), telemetryConfig("stdout", "statsd"), WithWriter(&buf))
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnknownExporter)
	assert.Contains(t, err.Error(), "init meter")
	assert.Same(t, before, otel.GetTracerProvider(), "a failed init installs no tracer provider")
}
