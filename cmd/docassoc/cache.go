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
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/store"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
		Long: `Cache operates on the persistent result cache in --cache-dir (or
cache.dir). An in-memory cache has nothing to inspect.`,
	}
	cmd.PersistentFlags().String("cache-dir", "", "Cache directory")

	var file string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List cached results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCacheList(cmd.Context(), file, limit)
		},
	}
	list.Flags().StringVar(&file, "file", "", "Only list results of this file")
	list.Flags().IntVar(&limit, "limit", 50, "Maximum entries (0: all)")

	clearCmd := &cobra.Command{
		Use:   "clear <file>...",
		Short: "Drop every cached result of the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCacheClear(cmd.Context(), args)
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}

func (a *app) openResultStore() (*store.ResultStore, func(), error) {
	if a.cfg.Cache.Dir == "" {
		return nil, nil, errors.New("no cache directory: set --cache-dir or cache.dir")
	}
	cfg := store.DBConfigFrom(a.cfg.Cache, a.logger)
	cfg.GCInterval = 0
	db, err := store.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.NewResultStore(db.DB, a.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, func() { db.Close() }, nil
}

func (a *app) runCacheList(ctx context.Context, file string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, closeDB, err := a.openResultStore()
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := s.List(ctx, file, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "Cache is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tDOCLETS\tVARIANT\tSORT KEY\tSOURCE\tBYTES\tCREATED")
	for _, m := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%q\t%s\t%d\t%s\n",
			m.File,
			m.DocletCount,
			m.Variant,
			m.SortKey,
			shortHash(m.SourceHash),
			m.CompressedSize,
			time.UnixMilli(m.CreatedAtMilli).Format(time.RFC3339),
		)
	}
	return tw.Flush()
}

func (a *app) runCacheClear(ctx context.Context, files []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, closeDB, err := a.openResultStore()
	if err != nil {
		return err
	}
	defer closeDB()

	for _, f := range files {
		n, err := s.Delete(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s: %d removed\n", f, n)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
