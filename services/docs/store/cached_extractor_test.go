// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
	"github.com/AleutianAI/docassoc/services/docs/jsdoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner wraps a real extractor and counts runs.
type countingRunner struct {
	*extract.Extractor
	mu   sync.Mutex
	runs int
	err  error
}

func (r *countingRunner) Run(ctx context.Context, src extract.SourceFile) ([]*doclet.Doclet, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.Extractor.Run(ctx, src)
}

func newCached(t *testing.T, runner Runner) *CachedExtractor {
	t.Helper()
	c, err := NewCachedExtractor(newTestStore(t), runner, testLogger())
	require.NoError(t, err)
	return c
}

func TestNewCachedExtractor_Validation(t *testing.T) {
	s := newTestStore(t)
	runner := &countingRunner{Extractor: extract.NewExtractor()}

	_, err := NewCachedExtractor(nil, runner, testLogger())
	assert.Error(t, err)
	_, err = NewCachedExtractor(s, nil, testLogger())
	assert.Error(t, err)
	_, err = NewCachedExtractor(s, runner, nil)
	assert.Error(t, err)
}

func TestCachedExtractor_HitAfterMiss(t *testing.T) {
	runner := &countingRunner{Extractor: extract.NewExtractor()}
	c := newCached(t, runner)
	ctx := context.Background()
	src := extract.SourceFile{File: "a.js", Source: []byte("/** Foo */\nclass Foo {\n  /** Build */\n  constructor() {}\n}\n")}

	first, hit, err := c.Run(ctx, src)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 1)
	assert.NotNil(t, first[0].Context.Path())

	second, hit, err := c.Run(ctx, src)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, runner.runs)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].Description, second[0].Description)
	assert.Equal(t, first[0].Context.SortKey, second[0].Context.SortKey)
	require.NotNil(t, second[0].ConstructorComment)
	assert.Equal(t, "Build", second[0].ConstructorComment.Description)
	assert.Nil(t, second[0].Context.Path(), "cached doclets have no structural handle")
}

func TestCachedExtractor_ChangedContentMisses(t *testing.T) {
	runner := &countingRunner{Extractor: extract.NewExtractor()}
	c := newCached(t, runner)
	ctx := context.Background()

	_, _, err := c.Run(ctx, extract.SourceFile{File: "a.js", Source: []byte("/** v1 */\nlet a;\n")})
	require.NoError(t, err)
	doclets, hit, err := c.Run(ctx, extract.SourceFile{File: "a.js", Source: []byte("/** v2 */\nlet a;\n")})
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, 2, runner.runs)
	require.Len(t, doclets, 1)
	assert.Equal(t, "v2", doclets[0].Description)
}

func TestCachedExtractor_VariantSeparatesResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	src := extract.SourceFile{File: "a.js", Source: []byte("export const a = 1;\n")}

	all, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor()}, testLogger())
	require.NoError(t, err)
	exported, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor(extract.WithDocumentExported(true))}, testLogger())
	require.NoError(t, err)

	docs, _, err := all.Run(ctx, src)
	require.NoError(t, err)
	assert.Empty(t, docs)

	docs, hit, err := exported.Run(ctx, src)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, docs, 1)
}

func TestCachedExtractor_StrictModesSeparateResults(t *testing.T) {
	ctx := context.Background()

	t.Run("strict tags", func(t *testing.T) {
		s := newTestStore(t)
		src := extract.SourceFile{File: "a.js", Source: []byte("/** @param {string a */\nlet a;\n")}

		lenient, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor()}, testLogger())
		require.NoError(t, err)
		docs, _, err := lenient.Run(ctx, src)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.NotEmpty(t, docs[0].Errors)

		strictRunner := &countingRunner{Extractor: extract.NewExtractor(
			extract.WithContentParser(jsdoc.NewParser(jsdoc.WithStrict(true))),
		)}
		strict, err := NewCachedExtractor(s, strictRunner, testLogger())
		require.NoError(t, err)
		docs, hit, err := strict.Run(ctx, src)
		assert.ErrorIs(t, err, jsdoc.ErrMalformedTag)
		assert.False(t, hit)
		assert.Nil(t, docs)
		assert.Equal(t, 1, strictRunner.runs)
	})

	t.Run("strict syntax", func(t *testing.T) {
		s := newTestStore(t)
		src := extract.SourceFile{File: "b.js", Source: []byte("/** x */\nfunction (\n")}

		lenient, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor()}, testLogger())
		require.NoError(t, err)
		_, _, err = lenient.Run(ctx, src)
		require.NoError(t, err)

		strict, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor(
			extract.WithSourceParser(ast.NewSourceParser(ast.WithStrict(true))),
		)}, testLogger())
		require.NoError(t, err)
		_, hit, err := strict.Run(ctx, src)
		assert.ErrorIs(t, err, ast.ErrParseFailed)
		assert.False(t, hit)
	})

	t.Run("max file size", func(t *testing.T) {
		s := newTestStore(t)
		src := extract.SourceFile{File: "c.js", Source: []byte("/** big enough */\nlet c;\n")}

		roomy, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor()}, testLogger())
		require.NoError(t, err)
		_, _, err = roomy.Run(ctx, src)
		require.NoError(t, err)

		tight, err := NewCachedExtractor(s, &countingRunner{Extractor: extract.NewExtractor(
			extract.WithSourceParser(ast.NewSourceParser(ast.WithMaxFileSize(4))),
		)}, testLogger())
		require.NoError(t, err)
		_, hit, err := tight.Run(ctx, src)
		assert.ErrorIs(t, err, ast.ErrFileTooLarge)
		assert.False(t, hit)
	})
}

func TestCachedExtractor_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.js")
	require.NoError(t, os.WriteFile(path, []byte("/** disk */\nlet a;\n"), 0o644))
	runner := &countingRunner{Extractor: extract.NewExtractor()}
	c := newCached(t, runner)

	docs, _, err := c.Run(context.Background(), extract.SourceFile{File: path})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	_, hit, err := c.Run(context.Background(), extract.SourceFile{File: path})
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, c.Invalidate(context.Background(), path))
	_, hit, err = c.Run(context.Background(), extract.SourceFile{File: path})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCachedExtractor_RunnerErrorNotCached(t *testing.T) {
	boom := errors.New("boom")
	runner := &countingRunner{Extractor: extract.NewExtractor(), err: boom}
	c := newCached(t, runner)
	src := extract.SourceFile{File: "a.js", Source: []byte("let a;")}

	_, _, err := c.Run(context.Background(), src)
	assert.ErrorIs(t, err, boom)

	runner.err = nil
	_, hit, err := c.Run(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, runner.runs)
}

func TestCachedExtractor_RunFiles(t *testing.T) {
	runner := &countingRunner{Extractor: extract.NewExtractor(extract.WithWorkers(2), extract.WithSortKeyBase("run"))}
	c := newCached(t, runner)
	ctx := context.Background()
	files := []extract.SourceFile{
		{File: "a.js", Source: []byte("/** A */\nlet a;\n")},
		{File: "b.js", Source: []byte("\n/** B */\nlet b;\n")},
	}

	first, err := c.RunFiles(ctx, files)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.False(t, first[0].Cached)
	assert.False(t, first[1].Cached)

	second, err := c.RunFiles(ctx, files)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for i, r := range second {
		assert.True(t, r.Cached, r.File)
		assert.Equal(t, files[i].File, r.File)
		require.Len(t, r.Doclets, 1)
		assert.Equal(t, first[i].Doclets[0].Context.SortKey, r.Doclets[0].Context.SortKey)
	}
	assert.Equal(t, extract.BuildSortKey("run"+extract.FileSortKey(1), 3), second[1].Doclets[0].Context.SortKey)
	assert.Equal(t, 2, runner.runs)

	uncached, err := runner.Extractor.RunFiles(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, uncached[1].Doclets[0].Context.SortKey, second[1].Doclets[0].Context.SortKey)
}
