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
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// The global provider delegates only once per process, so this is the only
// test in the package that installs one.
func TestExtractor_RunSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, err := NewExtractor().Run(context.Background(), SourceFile{
		File:   "ok.js",
		Source: []byte("/** One */\nlet one;\n"),
	})
	require.NoError(t, err)

	strict := NewExtractor(WithSourceParser(ast.NewSourceParser(ast.WithStrict(true))))
	_, err = strict.Run(context.Background(), SourceFile{File: "bad.js", Source: []byte("function (\n")})
	require.Error(t, err)

	runs := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		if span.Name() != "extract.Extractor.Run" {
			continue
		}
		for _, kv := range span.Attributes() {
			if kv.Key == "extract.file" {
				runs[kv.Value.AsString()] = span
			}
		}
	}
	require.Len(t, runs, 2)

	ok := runs["ok.js"]
	assert.Equal(t, codes.Unset, ok.Status().Code)
	assert.Contains(t, ok.Attributes(), attribute.Int("extract.doclets", 1))

	bad := runs["bad.js"]
	assert.Equal(t, codes.Error, bad.Status().Code)
	assert.NotEmpty(t, bad.Events(), "the error is recorded as an event")
}
