// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package jsdoc

import (
	"testing"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string, opts ...Option) *doclet.Doclet {
	t.Helper()
	d, err := NewParser(opts...).Parse(raw, ast.Range{}, doclet.Context{})
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestParser_Description(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"single line", "* Adds numbers. ", "Adds numbers."},
		{"multi line", "*\n * First line.\n *\n * Second paragraph.\n ", "First line.\n\nSecond paragraph."},
		{"empty", "", ""},
		{"only stars", "*\n *\n ", ""},
		{"indented code kept", "*\n * Example:\n *     add(1, 2)\n ", "Example:\n    add(1, 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := parse(t, tt.raw)
			assert.Equal(t, tt.want, d.Description)
			assert.NotNil(t, d.Tags)
		})
	}
}

func TestParser_Tags(t *testing.T) {
	raw := `*
 * Sum two values.
 * @param {number} a - The first value.
 * @param {number} [b=0] The second value.
 * @param [c] optional without type
 * @returns {number} The sum
 *   spanning two lines.
 * @deprecated
 * @example add(1, 2)
 `
	d := parse(t, raw)

	assert.Equal(t, "Sum two values.", d.Description)
	require.Len(t, d.Tags, 6)

	assert.Equal(t, doclet.Tag{Title: "param", Name: "a", Type: "number", Description: "The first value.", Line: 2}, d.Tags[0])
	assert.Equal(t, doclet.Tag{Title: "param", Name: "b", Type: "number", Description: "The second value.", Optional: true, Default: "0", Line: 3}, d.Tags[1])
	assert.Equal(t, doclet.Tag{Title: "param", Name: "c", Description: "optional without type", Optional: true, Line: 4}, d.Tags[2])

	assert.Equal(t, "returns", d.Tags[3].Title)
	assert.Equal(t, "number", d.Tags[3].Type)
	assert.Empty(t, d.Tags[3].Name)
	assert.Equal(t, "The sum\n  spanning two lines.", d.Tags[3].Description)

	assert.Equal(t, "deprecated", d.Tags[4].Title)
	assert.Empty(t, d.Tags[4].Description)

	assert.Equal(t, "example", d.Tags[5].Title)
	assert.Equal(t, "add(1, 2)", d.Tags[5].Description)

	assert.Empty(t, d.Errors)
}

func TestParser_NestedBraces(t *testing.T) {
	d := parse(t, "* @param {{a: number, b: {c: string}}} opts The options ")

	require.Len(t, d.Tags, 1)
	assert.Equal(t, "{a: number, b: {c: string}}", d.Tags[0].Type)
	assert.Equal(t, "opts", d.Tags[0].Name)
	assert.Equal(t, "The options", d.Tags[0].Description)
}

func TestParser_Lends(t *testing.T) {
	t.Run("with name", func(t *testing.T) {
		d := parse(t, "* @lends Foo.prototype ")
		assert.Equal(t, "Foo.prototype", d.Lends)
		assert.Empty(t, d.Errors)
	})

	t.Run("without name", func(t *testing.T) {
		d := parse(t, "* @lends ")
		assert.Empty(t, d.Lends)
		assert.Contains(t, d.Errors, "@lends requires a name")
	})
}

func TestParser_HideConstructor(t *testing.T) {
	assert.True(t, parse(t, "* @hideconstructor ").HideConstructor)
	assert.False(t, parse(t, "* @param a ").HideConstructor)
}

func TestParser_MalformedTags(t *testing.T) {
	raws := map[string]string{
		"unbalanced type":   "* @param {string a ",
		"unterminated name": "* @param {string} [a the a ",
	}

	for name, raw := range raws {
		t.Run(name+" lenient", func(t *testing.T) {
			d := parse(t, raw)
			require.Len(t, d.Errors, 1)
			assert.Contains(t, d.Errors[0], "malformed tag")
			require.Len(t, d.Tags, 1)
			assert.Equal(t, "param", d.Tags[0].Title)
		})

		t.Run(name+" strict", func(t *testing.T) {
			d, err := NewParser(WithStrict(true)).Parse(raw, ast.Range{}, doclet.Context{})
			assert.Nil(t, d)
			assert.ErrorIs(t, err, ErrMalformedTag)
			assert.Contains(t, err.Error(), "line 1 of comment:")
			assert.NotContains(t, err.Error(), " at ")
		})
	}
}

func TestParser_Strict(t *testing.T) {
	assert.False(t, NewParser().Strict())
	assert.True(t, NewParser(WithStrict(true)).Strict())
}

func TestParser_AttachesLocAndContext(t *testing.T) {
	loc := ast.Range{Start: ast.Position{Line: 4, Column: 2, Offset: 30}}
	ctx := doclet.Context{File: "a.js", SortKey: "k00000005", Code: "{}"}

	d, err := NewParser().Parse("* x ", loc, ctx)
	require.NoError(t, err)

	assert.Equal(t, loc, d.Loc)
	assert.Equal(t, ctx, d.Context)
	assert.Nil(t, d.ConstructorComment)
}

func TestParser_WindowsLineEndings(t *testing.T) {
	d := parse(t, "*\r\n * Line one.\r\n * @param a first\r\n ")

	assert.Equal(t, "Line one.", d.Description)
	require.Len(t, d.Tags, 1)
	assert.Equal(t, "first", d.Tags[0].Description)
}
