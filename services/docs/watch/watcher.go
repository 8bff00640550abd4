// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reports debounced changes to source files under a
// directory tree.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of a change.
type Op int

const (
	// OpWrite means the file was created or modified.
	OpWrite Op = iota

	// OpRemove means the file was removed or renamed away.
	OpRemove
)

func (o Op) String() string {
	if o == OpRemove {
		return "remove"
	}
	return "write"
}

// Change is one changed file. Within a batch a path appears once, with the
// last operation seen for it.
type Change struct {
	Path string
	Op   Op
}

// Handler receives a batch of changes. It is called from one goroutine.
type Handler func(ctx context.Context, changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must be quiet before a batch is sent.
	Debounce time.Duration

	// Accept filters files. Nil accepts every file.
	Accept func(path string) bool

	// IgnoreDirs are directory names never descended into.
	IgnoreDirs []string

	Logger *slog.Logger
}

// DefaultOptions returns a 100ms debounce that skips VCS and dependency
// directories.
func DefaultOptions() Options {
	return Options{
		Debounce:   100 * time.Millisecond,
		IgnoreDirs: []string{".git", "node_modules", ".idea", "dist", "build", "coverage"},
	}
}

// Watcher watches a directory tree.
//
// Thread Safety:
//
//	Run must be called once. Close is safe to call from any goroutine.
type Watcher struct {
	root    string
	opts    Options
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	closeOnce sync.Once
}

// New creates a Watcher for root. The tree is registered immediately so
// changes made after New returns are not missed.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{root: root, opts: opts, watcher: fw, logger: logger}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run dispatches batches to handler until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("handler must not be nil")
	}

	pending := make(map[string]Op)
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Change, 0, len(pending))
		for path, op := range pending {
			batch = append(batch, Change{Path: path, Op: op})
		}
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		clear(pending)
		handler(ctx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if change, ok := w.convert(event); ok {
				pending[change.Path] = change.Op
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timer.C:
			flush()
		}
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// convert maps an fsnotify event to a file change, registering new
// directories on the way.
func (w *Watcher) convert(event fsnotify.Event) (Change, bool) {
	if w.ignored(event.Name) {
		return Change{}, false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watching new directory failed",
					slog.String("path", event.Name),
					slog.String("error", err.Error()),
				)
			}
			return Change{}, false
		}
	}

	if w.opts.Accept != nil && !w.opts.Accept(event.Name) {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Path: event.Name, Op: OpRemove}, true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return Change{Path: event.Name, Op: OpWrite}, true
	}
	return Change{}, false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// ignored reports whether path is inside an ignored directory.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, dir := range w.opts.IgnoreDirs {
			if part == dir {
				return true
			}
		}
	}
	return false
}
