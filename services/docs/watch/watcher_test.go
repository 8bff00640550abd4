// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, opts Options) <-chan []Change {
	t.Helper()
	w, err := New(root, opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	batches := make(chan []Change, 16)
	go func() {
		_ = w.Run(ctx, func(_ context.Context, changes []Change) {
			batches <- changes
		})
	}()
	return batches
}

func nextBatch(t *testing.T, batches <-chan []Change) []Change {
	t.Helper()
	select {
	case b := <-batches:
		return b
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for changes")
		return nil
	}
}

func jsOnly(path string) bool { return strings.HasSuffix(path, ".js") }

func TestWatcher_WriteAndRemove(t *testing.T) {
	root := t.TempDir()
	opts := DefaultOptions()
	opts.Debounce = 50 * time.Millisecond
	opts.Accept = jsOnly
	batches := startWatcher(t, root, opts)

	path := filepath.Join(root, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("let a;"), 0o644))

	batch := nextBatch(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, path, batch[0].Path)
	assert.Equal(t, OpWrite, batch[0].Op)

	require.NoError(t, os.Remove(path))
	batch = nextBatch(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, OpRemove, batch[0].Op)
	assert.Equal(t, "remove", batch[0].Op.String())
}

func TestWatcher_DebouncesAndFilters(t *testing.T) {
	root := t.TempDir()
	opts := DefaultOptions()
	opts.Debounce = 200 * time.Millisecond
	opts.Accept = jsOnly
	batches := startWatcher(t, root, opts)

	path := filepath.Join(root, "a.js")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	batch := nextBatch(t, batches)
	require.Len(t, batch, 1, "repeated writes collapse and non-js files are skipped")
	assert.Equal(t, path, batch[0].Path)
}

func TestWatcher_NewDirectoriesAndIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0o755))
	opts := DefaultOptions()
	opts.Debounce = 50 * time.Millisecond
	opts.Accept = jsOnly
	batches := startWatcher(t, root, opts)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644))

	sub := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(sub, "b.js")
	require.NoError(t, os.WriteFile(nested, []byte("let b;"), 0o644))

	batch := nextBatch(t, batches)
	require.Len(t, batch, 1)
	assert.Equal(t, nested, batch[0].Path)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), DefaultOptions())
	assert.Error(t, err)
}

func TestRun_RequiresHandler(t *testing.T) {
	w, err := New(t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	defer w.Close()
	assert.Error(t, w.Run(context.Background(), nil))
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
