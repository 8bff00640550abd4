// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
	"github.com/AleutianAI/docassoc/services/docs/store"
	"github.com/AleutianAI/docassoc/services/docs/watch"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-extract files as they change",
		Long: `Watch extracts the doclets of every changed source below a directory
and prints one JSON object per file and change. Removed files are printed
with no doclets. With --cache, stale cache entries are dropped on change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, args[0])
		},
	}
	addExtractionFlags(cmd.Flags())
	return cmd
}

// changeEvent is one line of watch output.
type changeEvent struct {
	File    string           `json:"file"`
	Op      string           `json:"op"`
	Doclets []*doclet.Doclet `json:"doclets"`
	Cached  bool             `json:"cached,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (a *app) runWatch(ctx context.Context, root string) error {
	extractor, err := extract.NewExtractorFromConfig(a.cfg, extract.WithLogger(a.logger))
	if err != nil {
		return err
	}

	var cached *store.CachedExtractor
	if a.cfg.Cache.Enabled {
		c, closeDB, err := a.openCachedExtractor(extractor)
		if err != nil {
			return err
		}
		defer closeDB()
		cached = c
	}

	opts := watch.DefaultOptions()
	opts.Accept = a.cfg.HasExtension
	opts.Logger = a.logger
	w, err := watch.New(root, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	a.logger.Info("watching for changes", slog.String("root", root))
	enc := json.NewEncoder(a.stdout)
	err = w.Run(ctx, func(ctx context.Context, changes []watch.Change) {
		for _, ch := range changes {
			ev := a.handleChange(ctx, extractor, cached, ch)
			if err := enc.Encode(ev); err != nil {
				a.logger.Warn("writing change failed", slog.String("error", err.Error()))
			}
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleChange re-extracts one changed file. Cache entries of the file are
// dropped first since its old content can never be requested again.
func (a *app) handleChange(ctx context.Context, extractor *extract.Extractor, cached *store.CachedExtractor, ch watch.Change) changeEvent {
	ev := changeEvent{File: ch.Path, Op: ch.Op.String(), Doclets: []*doclet.Doclet{}}

	if cached != nil {
		if err := cached.Invalidate(ctx, ch.Path); err != nil {
			a.logger.Warn("cache invalidation failed",
				slog.String("file", ch.Path),
				slog.String("error", err.Error()),
			)
		}
	}
	if ch.Op == watch.OpRemove {
		return ev
	}

	var doclets []*doclet.Doclet
	var err error
	if cached != nil {
		doclets, ev.Cached, err = cached.Run(ctx, extract.SourceFile{File: ch.Path})
	} else {
		doclets, err = extractor.Run(ctx, extract.SourceFile{File: ch.Path})
	}
	if err != nil {
		a.logger.Warn("extraction failed", slog.String("file", ch.Path), slog.String("error", err.Error()))
		ev.Error = err.Error()
		return ev
	}
	doclet.SortByKey(doclets)
	ev.Doclets = doclets
	return ev
}
