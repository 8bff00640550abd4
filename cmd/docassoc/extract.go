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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
	"github.com/AleutianAI/docassoc/services/docs/store"
	"github.com/spf13/cobra"
)

// skipDirs are never descended into when collecting sources.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

type extractFlags struct {
	format  string
	output  string
	summary bool
}

func newExtractCmd(a *app) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract <file|dir>...",
		Short: "Extract doclets from JavaScript files",
		Long: `Extract parses every given file, and every file with a configured
extension below every given directory, and prints the doclets of each file.

Output is JSON when stdout is not a terminal and a readable listing when it
is; --format forces either.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd.Context(), args, f)
		},
	}
	addExtractionFlags(cmd.Flags())
	cmd.Flags().StringVar(&f.format, "format", "auto", "Output format (auto, json, text)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print a run summary to stderr")
	return cmd
}

// runStats summarizes an extract run.
type runStats struct {
	Files    int
	Doclets  int
	Cached   int
	Duration time.Duration
}

func (a *app) runExtract(ctx context.Context, args []string, f extractFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	paths, err := a.collectFiles(args)
	if err != nil {
		return err
	}

	extractor, err := extract.NewExtractorFromConfig(a.cfg, extract.WithLogger(a.logger))
	if err != nil {
		return err
	}

	var results []extract.FileResult
	stats := runStats{Files: len(paths)}
	if a.cfg.Cache.Enabled {
		results, stats.Cached, err = a.extractCached(ctx, extractor, paths)
	} else {
		results, err = extractor.RunFiles(ctx, sourceFiles(paths))
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		doclet.SortByKey(r.Doclets)
		stats.Doclets += len(r.Doclets)
	}
	stats.Duration = time.Since(start)

	out := a.stdout
	format := f.format
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer file.Close()
		out = file
		if format == "auto" {
			format = "json"
		}
	}
	if format == "auto" {
		format = "json"
		if a.isTTY() {
			format = "text"
		}
	}

	switch format {
	case "json":
		err = writeJSON(out, results)
	case "text":
		err = writeText(out, results)
	default:
		return fmt.Errorf("invalid --format %q: want auto, json or text", f.format)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if f.summary {
		writeSummary(a.stderr, stats)
	}
	a.logger.Debug("extract finished",
		slog.Int("files", stats.Files),
		slog.Int("doclets", stats.Doclets),
		slog.Duration("duration", stats.Duration),
	)
	return nil
}

// extractCached runs the files through a badger-backed cache. Sort keys
// match those RunFiles would assign.
func (a *app) extractCached(ctx context.Context, extractor *extract.Extractor, paths []string) ([]extract.FileResult, int, error) {
	cached, closeDB, err := a.openCachedExtractor(extractor)
	if err != nil {
		return nil, 0, err
	}
	defer closeDB()

	results, err := cached.RunFiles(ctx, sourceFiles(paths))
	if err != nil {
		return nil, 0, err
	}
	hits := 0
	for _, r := range results {
		if r.Cached {
			hits++
		}
	}
	return results, hits, nil
}

// openCachedExtractor opens the configured cache around extractor.
func (a *app) openCachedExtractor(extractor *extract.Extractor) (*store.CachedExtractor, func(), error) {
	db, err := store.OpenDB(store.DBConfigFrom(a.cfg.Cache, a.logger))
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("closing cache failed", slog.String("error", err.Error()))
		}
	}

	resultStore, err := store.NewResultStore(db.DB, a.logger)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	cached, err := store.NewCachedExtractor(resultStore, extractor, a.logger)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return cached, closeDB, nil
}

// collectFiles expands directories into their sources. Explicit files must
// have a configured extension.
func (a *app) collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !a.cfg.HasExtension(arg) {
				return nil, fmt.Errorf("%s: %w", arg, ast.ErrUnsupportedLanguage)
			}
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if a.cfg.HasExtension(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

func sourceFiles(paths []string) []extract.SourceFile {
	files := make([]extract.SourceFile, len(paths))
	for i, p := range paths {
		files[i] = extract.SourceFile{File: p}
	}
	return files
}
