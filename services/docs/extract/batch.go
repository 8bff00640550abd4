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
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	File    string           `json:"file"`
	Doclets []*doclet.Doclet `json:"doclets"`

	// Cached is set when the doclets were served from a result cache.
	Cached bool `json:"cached,omitempty"`
}

// FileRunFunc extracts one file and reports whether the result was cached.
type FileRunFunc func(ctx context.Context, src SourceFile) ([]*doclet.Doclet, bool, error)

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// SortKeyBase prefixes the sort key of files without one.
	SortKeyBase string

	// Workers bounds concurrent runs. Values below 1 mean 1.
	Workers int

	// Logger receives batch start and completion records. Nil discards.
	Logger *slog.Logger
}

// RunFiles extracts several independent files in parallel.
//
// Description:
//
//	Every file gets its own Run, and therefore its own Processor, so no
//	per-file state is shared. At most the configured number of workers run
//	at once. See RunBatch for sort key assignment and error semantics.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (e *Extractor) RunFiles(ctx context.Context, files []SourceFile) ([]FileResult, error) {
	opts := BatchOptions{SortKeyBase: e.sortKeyBase, Workers: e.workers, Logger: e.logger}
	return RunBatch(ctx, files, opts, func(ctx context.Context, src SourceFile) ([]*doclet.Doclet, bool, error) {
		doclets, err := e.Run(ctx, src)
		return doclets, false, err
	})
}

// RunBatch runs fn over files in parallel.
//
// Description:
//
//	A file without a sort key gets opts.SortKeyBase followed by its
//	zero-padded batch index, so sort keys order the batch by input
//	position. Cached and uncached runners share this path and therefore
//	produce identical sort keys.
//
// Inputs:
//
//	ctx   - Context for cancellation. Canceled for all files on first error.
//	files - The files to process.
//	opts  - Sort key base, worker bound and logger.
//	fn    - Extracts one file.
//
// Outputs:
//
//	[]FileResult - One result per input file, in input order.
//	error        - The first error encountered; no results are returned.
func RunBatch(ctx context.Context, files []SourceFile, opts BatchOptions, fn FileRunFunc) ([]FileResult, error) {
	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("run_id", runID))
	start := time.Now()

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Info("batch extraction started",
		slog.Int("files", len(files)),
		slog.Int("workers", workers),
	)

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)

	// Semaphore to limit concurrency.
	sem := make(chan struct{}, workers)

	for i, file := range files {
		if file.SortKey == "" {
			file.SortKey = opts.SortKeyBase + FileSortKey(i)
		}
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			doclets, cached, err := fn(gctx, file)
			if err != nil {
				return err
			}
			results[i] = FileResult{File: file.File, Doclets: doclets, Cached: cached}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("batch extraction failed",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("batch %s: %w", runID, err)
	}

	total, hits := 0, 0
	for _, r := range results {
		total += len(r.Doclets)
		if r.Cached {
			hits++
		}
	}
	logger.Info("batch extraction complete",
		slog.Int("files", len(files)),
		slog.Int("doclets", total),
		slog.Int("cached", hits),
		slog.Duration("duration", time.Since(start)),
	)
	return results, nil
}
