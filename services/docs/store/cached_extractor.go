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
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
)

// Runner is the part of extract.Extractor the cache needs.
type Runner interface {
	Run(ctx context.Context, src extract.SourceFile) ([]*doclet.Doclet, error)
	Variant() string
	SortKeyBase() string
	Workers() int
}

// CachedExtractor serves extraction results from a ResultStore and falls
// back to a Runner on a miss.
//
// Thread Safety:
//
//	Safe for concurrent use if the Runner is.
type CachedExtractor struct {
	store  *ResultStore
	runner Runner
	logger *slog.Logger
}

// NewCachedExtractor wraps runner with store.
func NewCachedExtractor(store *ResultStore, runner Runner, logger *slog.Logger) (*CachedExtractor, error) {
	if store == nil {
		return nil, fmt.Errorf("store must not be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &CachedExtractor{store: store, runner: runner, logger: logger}, nil
}

// Run returns the doclets of src and whether they came from the cache.
//
// Description:
//
//	The source is read first when absent, since the cache is keyed by
//	content. A failure to write the cache is logged and does not fail the
//	run.
func (c *CachedExtractor) Run(ctx context.Context, src extract.SourceFile) ([]*doclet.Doclet, bool, error) {
	if src.Source == nil {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", src.File, err)
		}
		src.Source = data
	}

	sortKey := src.SortKey
	if sortKey == "" {
		sortKey = c.runner.SortKeyBase()
	}
	key := ResultKey{File: src.File, Source: src.Source, SortKey: sortKey, Variant: c.runner.Variant()}

	doclets, _, err := c.store.Load(ctx, key)
	if err == nil {
		return doclets, true, nil
	}
	if !errors.Is(err, ErrNotCached) {
		c.logger.Warn("cache read failed, extracting",
			slog.String("file", src.File),
			slog.String("error", err.Error()),
		)
	}

	doclets, err = c.runner.Run(ctx, src)
	if err != nil {
		return nil, false, err
	}

	if _, err := c.store.Save(ctx, key, doclets); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("file", src.File),
			slog.String("error", err.Error()),
		)
	}
	return doclets, false, nil
}

// RunFiles runs several files through the cache in parallel.
//
// Description:
//
//	Sort keys and error semantics are those of extract.Extractor.RunFiles,
//	so cached and uncached batches are interchangeable. FileResult.Cached
//	marks the files served from the store.
func (c *CachedExtractor) RunFiles(ctx context.Context, files []extract.SourceFile) ([]extract.FileResult, error) {
	opts := extract.BatchOptions{
		SortKeyBase: c.runner.SortKeyBase(),
		Workers:     c.runner.Workers(),
		Logger:      c.logger,
	}
	return extract.RunBatch(ctx, files, opts, c.Run)
}

// Invalidate drops every cached result of file.
func (c *CachedExtractor) Invalidate(ctx context.Context, file string) error {
	_, err := c.store.Delete(ctx, file)
	return err
}
