// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store caches extraction results in BadgerDB.
//
// Results are keyed by file, content hash, sort key and strategy variant, so
// an unchanged file is never parsed twice. Cached doclets are decoded from
// JSON and therefore carry no structural handle.
package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/dgraph-io/badger/v4"
)

// Key layout:
//
//	docs:result:{fileHash}:{entryID}:data  gzip JSON of []*doclet.Doclet
//	docs:result:{fileHash}:{entryID}:meta  JSON ResultMetadata
const (
	keyPrefixResult = "docs:result:"
	keySuffixData   = ":data"
	keySuffixMeta   = ":meta"
)

// ErrNotCached is returned by Load when no entry matches.
var ErrNotCached = errors.New("result not cached")

// ResultKey identifies one cached extraction.
type ResultKey struct {
	// File is the source file identifier.
	File string

	// Source is the exact content that was extracted.
	Source []byte

	// SortKey is the sort key base used for the run.
	SortKey string

	// Variant names the strategies and parse settings that produced the
	// result. See extract.Extractor.Variant.
	Variant string
}

// ResultMetadata describes a cached result.
type ResultMetadata struct {
	EntryID        string `json:"entry_id"`
	File           string `json:"file"`
	FileHash       string `json:"file_hash"`
	SourceHash     string `json:"source_hash"`
	SortKey        string `json:"sort_key"`
	Variant        string `json:"variant"`
	DocletCount    int    `json:"doclet_count"`
	CreatedAtMilli int64  `json:"created_at_milli"`
	CompressedSize int64  `json:"compressed_size"`

	// ContentHash is the SHA-256 of the compressed data, checked on load.
	ContentHash string `json:"content_hash"`
}

// ResultStore persists extraction results.
//
// Thread Safety:
//
//	Safe for concurrent use; BadgerDB transactions provide isolation.
type ResultStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewResultStore creates a ResultStore backed by db.
//
// Inputs:
//
//	db     - Open BadgerDB. Must not be nil. The caller owns its lifecycle.
//	logger - Must not be nil.
func NewResultStore(db *badger.DB, logger *slog.Logger) (*ResultStore, error) {
	if db == nil {
		return nil, fmt.Errorf("badger db must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &ResultStore{db: db, logger: logger}, nil
}

// Save stores the doclets extracted for key, replacing any previous entry
// with the same key.
func (s *ResultStore) Save(ctx context.Context, key ResultKey, doclets []*doclet.Doclet) (*ResultMetadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if key.File == "" {
		return nil, fmt.Errorf("file must not be empty")
	}
	if doclets == nil {
		doclets = []*doclet.Doclet{}
	}

	jsonData, err := json.Marshal(doclets)
	if err != nil {
		return nil, fmt.Errorf("marshaling doclets: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing doclets: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	compressedData := compressed.Bytes()

	fileHash, entryID := keyHashes(key)
	meta := &ResultMetadata{
		EntryID:        entryID,
		File:           key.File,
		FileHash:       fileHash,
		SourceHash:     hashBytes(key.Source),
		SortKey:        key.SortKey,
		Variant:        key.Variant,
		DocletCount:    len(doclets),
		CreatedAtMilli: time.Now().UnixMilli(),
		CompressedSize: int64(len(compressedData)),
		ContentHash:    hashBytes(compressedData),
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	dataKey, metaKey := entryKeys(fileHash, entryID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressedData); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set([]byte(metaKey), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing result to badger: %w", err)
	}

	s.logger.Debug("extraction result cached",
		slog.String("entry_id", entryID),
		slog.String("file", key.File),
		slog.Int("doclets", meta.DocletCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)

	return meta, nil
}

// Load returns the cached doclets for key.
//
// Outputs:
//
//	[]*doclet.Doclet  - The cached doclets, without structural handles.
//	*ResultMetadata   - The entry's metadata.
//	error             - ErrNotCached when absent, or an integrity or decode error.
func (s *ResultStore) Load(ctx context.Context, key ResultKey) ([]*doclet.Doclet, *ResultMetadata, error) {
	if ctx == nil {
		return nil, nil, fmt.Errorf("ctx must not be nil")
	}

	fileHash, entryID := keyHashes(key)
	dataKey, metaKey := entryKeys(fileHash, entryID)

	var compressedData []byte
	var metaJSON []byte

	err := s.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return err
		}
		compressedData, err = dataItem.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying data for %s: %w", entryID, err)
		}

		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return err
		}
		metaJSON, err = metaItem.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying metadata for %s: %w", entryID, err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, fmt.Errorf("%s: %w", key.File, ErrNotCached)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading result for %s: %w", key.File, err)
	}

	var meta ResultMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", entryID, err)
	}
	if actual := hashBytes(compressedData); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("integrity check failed for %s: expected hash %s, got %s", entryID, meta.ContentHash, actual)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing result %s: %w", entryID, err)
	}
	defer gr.Close()

	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", entryID, err)
	}

	var doclets []*doclet.Doclet
	if err := json.Unmarshal(jsonData, &doclets); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling doclets for %s: %w", entryID, err)
	}

	return doclets, &meta, nil
}

// List returns metadata of cached results, newest first. An empty file
// lists every file. limit <= 0 means 100.
func (s *ResultStore) List(ctx context.Context, file string, limit int) ([]*ResultMetadata, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if limit <= 0 {
		limit = 100
	}

	prefix := keyPrefixResult
	if file != "" {
		prefix = filePrefix(file)
	}

	var results []*ResultMetadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !strings.HasSuffix(key, keySuffixMeta) {
				continue
			}

			var meta ResultMetadata
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				s.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes every cached result of file and returns how many entries
// were removed.
func (s *ResultStore) Delete(ctx context.Context, file string) (int, error) {
	if ctx == nil {
		return 0, fmt.Errorf("ctx must not be nil")
	}
	if file == "" {
		return 0, fmt.Errorf("file must not be empty")
	}

	prefix := []byte(filePrefix(file))
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning results for %s: %w", file, err)
	}

	entries := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", k, err)
			}
			if strings.HasSuffix(string(k), keySuffixMeta) {
				entries++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting results for %s: %w", file, err)
	}

	if entries > 0 {
		s.logger.Info("cached results deleted", slog.String("file", file), slog.Int("entries", entries))
	}
	return entries, nil
}

// keyHashes returns the file hash and the entry ID of key.
func keyHashes(key ResultKey) (fileHash, entryID string) {
	fileHash = hashString(key.File)[:16]
	entryID = hashString(strings.Join([]string{
		key.File, key.SortKey, key.Variant, hashBytes(key.Source),
	}, "\x00"))[:16]
	return fileHash, entryID
}

func filePrefix(file string) string {
	return keyPrefixResult + hashString(file)[:16] + ":"
}

func entryKeys(fileHash, entryID string) (dataKey, metaKey string) {
	base := keyPrefixResult + fileHash + ":" + entryID
	return base + keySuffixData, base + keySuffixMeta
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
