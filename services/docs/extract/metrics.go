// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("docassoc.extract")

// =============================================================================
// Prometheus Metrics for Extraction
// =============================================================================

var (
	// extractDocletsTotal counts emitted doclets.
	// Labels: strategy (leading_comments, inner_comments, trailing_comments, exported)
	extractDocletsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docassoc",
		Subsystem: "extract",
		Name:      "doclets_total",
		Help:      "Total doclets emitted by strategy",
	}, []string{"strategy"})

	// extractCommentsSkippedTotal counts comments that produced no output.
	// Labels: reason (duplicate, constructor_merged, constructor_hidden, lends)
	extractCommentsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docassoc",
		Subsystem: "extract",
		Name:      "comments_skipped_total",
		Help:      "Total comments that did not produce an emitted doclet, by reason",
	}, []string{"reason"})

	// extractDurationSeconds measures one file extraction, parse included.
	// Labels: status (success, error)
	extractDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docassoc",
		Subsystem: "extract",
		Name:      "duration_seconds",
		Help:      "Duration of single-file extraction including parsing",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"status"})
)

// recordRun records the outcome of one extraction run.
func recordRun(stats ProcessStats, lends int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	extractDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	extractCommentsSkippedTotal.WithLabelValues("duplicate").Add(float64(stats.Duplicates))
	extractCommentsSkippedTotal.WithLabelValues("constructor_merged").Add(float64(stats.Merged))
	extractCommentsSkippedTotal.WithLabelValues("constructor_hidden").Add(float64(stats.Hidden))
	extractCommentsSkippedTotal.WithLabelValues("lends").Add(float64(lends))
}

// recordEmitted records doclets emitted by one strategy.
func recordEmitted(strategy string, count int) {
	extractDocletsTotal.WithLabelValues(strategy).Add(float64(count))
}

// startRunSpan starts the span covering one file extraction.
func startRunSpan(ctx context.Context, file string, exported bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "extract.Extractor.Run",
		trace.WithAttributes(
			attribute.String("extract.file", file),
			attribute.Bool("extract.document_exported", exported),
		),
	)
}

// endRunSpan records the run result on span.
func endRunSpan(span trace.Span, emitted int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("extract.doclets", emitted))
}
