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
	"log/slog"
	"os"
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates an in-memory BadgerDB for testing.
func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err, "failed to open in-memory badger")
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newTestStore creates a ResultStore with in-memory DB.
func newTestStore(t *testing.T) *ResultStore {
	t.Helper()
	s, err := NewResultStore(newTestDB(t), testLogger())
	require.NoError(t, err)
	return s
}

func sampleDoclets() []*doclet.Doclet {
	ctor := &doclet.Doclet{Description: "Build", Tags: []doclet.Tag{{Title: "param", Name: "a", Type: "string"}}}
	return []*doclet.Doclet{
		{
			Description:        "Foo",
			Tags:               []doclet.Tag{},
			Loc:                ast.Range{Start: ast.Position{Line: 1}, End: ast.Position{Line: 1, Column: 10, Offset: 10}},
			Context:            doclet.Context{File: "a.js", SortKey: "00000002", Code: "class Foo {}"},
			ConstructorComment: ctor,
		},
	}
}

func TestNewResultStore_Validation(t *testing.T) {
	_, err := NewResultStore(nil, testLogger())
	assert.Error(t, err)

	_, err = NewResultStore(newTestDB(t), nil)
	assert.Error(t, err)
}

func TestResultStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := ResultKey{File: "a.js", Source: []byte("class Foo {}"), Variant: "exported"}

	meta, err := s.Save(ctx, key, sampleDoclets())
	require.NoError(t, err)
	assert.Equal(t, 1, meta.DocletCount)
	assert.Len(t, meta.EntryID, 16)
	assert.NotEmpty(t, meta.ContentHash)

	doclets, loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, meta.EntryID, loaded.EntryID)
	assert.Equal(t, sampleDoclets(), doclets)
}

func TestResultStore_KeyComponents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := ResultKey{File: "a.js", Source: []byte("let a;"), SortKey: "k", Variant: "v"}
	_, err := s.Save(ctx, key, sampleDoclets())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(k ResultKey) ResultKey
	}{
		{"file", func(k ResultKey) ResultKey { k.File = "b.js"; return k }},
		{"source", func(k ResultKey) ResultKey { k.Source = []byte("let b;"); return k }},
		{"sort key", func(k ResultKey) ResultKey { k.SortKey = "other"; return k }},
		{"variant", func(k ResultKey) ResultKey { k.Variant = "other"; return k }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Load(ctx, tt.mutate(key))
			assert.ErrorIs(t, err, ErrNotCached)
		})
	}
}

func TestResultStore_SaveEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := ResultKey{File: "empty.js", Source: []byte("")}

	_, err := s.Save(ctx, key, nil)
	require.NoError(t, err)

	doclets, _, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, doclets)
	assert.Empty(t, doclets)
}

func TestResultStore_IntegrityCheck(t *testing.T) {
	db := newTestDB(t)
	s, err := NewResultStore(db, testLogger())
	require.NoError(t, err)
	ctx := context.Background()
	key := ResultKey{File: "a.js", Source: []byte("x")}

	_, err = s.Save(ctx, key, sampleDoclets())
	require.NoError(t, err)

	fileHash, entryID := keyHashes(key)
	dataKey, _ := entryKeys(fileHash, entryID)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(dataKey), []byte("tampered"))
	}))

	_, _, err = s.Load(ctx, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integrity check failed")
}

func TestResultStore_ListAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []ResultKey{
		{File: "a.js", Source: []byte("1")},
		{File: "a.js", Source: []byte("2")},
		{File: "b.js", Source: []byte("1")},
	} {
		_, err := s.Save(ctx, k, sampleDoclets())
		require.NoError(t, err)
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyA, err := s.List(ctx, "a.js", 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
	for _, m := range onlyA {
		assert.Equal(t, "a.js", m.File)
	}

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	removed, err := s.Delete(ctx, "a.js")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	all, err = s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b.js", all[0].File)

	removed, err = s.Delete(ctx, "a.js")
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = s.Delete(ctx, "")
	assert.Error(t, err)
}
