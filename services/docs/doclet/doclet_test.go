// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package doclet

import (
	"encoding/json"
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSortByKey_Stable(t *testing.T) {
	doclets := []*Doclet{
		{Description: "c", Context: Context{SortKey: "b00000001"}},
		{Description: "a", Context: Context{SortKey: "a00000010"}},
		{Description: "d", Context: Context{SortKey: "b00000001"}},
		{Description: "b", Context: Context{SortKey: "a00000020"}},
	}

	SortByKey(doclets)

	got := make([]string, 0, len(doclets))
	for _, d := range doclets {
		got = append(got, d.Description)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestContext_PathNeverSerialized(t *testing.T) {
	path := ast.NewRootPath(nil, []byte("x"))
	ctx := Context{File: "a.js", SortKey: "k"}.WithPath(path)
	require.Same(t, path, ctx.Path())

	d := &Doclet{Description: "d", Tags: []Tag{}, Context: ctx}

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		fields := decoded["context"].(map[string]any)
		assert.ElementsMatch(t, []string{"loc", "file", "sortKey"}, mapKeys(fields))
		assert.NotContains(t, decoded, "constructorComment")
	})

	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(d.Context)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "path")
	})
}

func TestContext_WithPathCopies(t *testing.T) {
	base := Context{File: "a.js"}
	withPath := base.WithPath(ast.NewRootPath(nil, nil))

	assert.Nil(t, base.Path())
	assert.NotNil(t, withPath.Path())
	assert.Equal(t, "a.js", withPath.File)
	assert.Nil(t, Context{File: "b.js"}.Path(), "Path is callable on a Context value")
}

func mapKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
