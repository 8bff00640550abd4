// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package doclet defines the documentation record produced for each
// documentation comment.
package doclet

import (
	"sort"

	"github.com/AleutianAI/docassoc/services/docs/ast"
)

// Doclet is one documentation entity: a parsed comment plus the syntax
// context of the node it documents.
//
// Description:
//
//	Description, Tags, Lends, HideConstructor and Errors are produced by the
//	content parser. Loc and Context are filled in by the extractor.
//	ConstructorComment is set only when a constructor's documentation is
//	folded into its class.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. Doclets are built by a single
//	extraction run and are read-only once returned.
type Doclet struct {
	// Description is the free text before the first tag.
	Description string `json:"description"`

	// Tags are the block tags in source order.
	Tags []Tag `json:"tags"`

	// Lends names the entity this comment's members are lent to. A doclet
	// with a non-empty Lends is a merge target and is never emitted.
	Lends string `json:"lends,omitempty"`

	// HideConstructor suppresses implicit constructor documentation.
	HideConstructor bool `json:"hideconstructor,omitempty"`

	// Errors holds non-fatal content parser diagnostics.
	Errors []string `json:"errors,omitempty"`

	// Loc is the comment's own source range.
	Loc ast.Range `json:"loc"`

	// Context describes the documented node.
	Context Context `json:"context"`

	// ConstructorComment is the constructor documentation merged into a
	// class doclet.
	ConstructorComment *Doclet `json:"constructorComment,omitempty"`
}

// Tag is a single block tag, e.g. `@param {string} name The name.`
type Tag struct {
	// Title is the tag name without "@".
	Title string `json:"title"`

	// Name is the documented name, for tags that take one.
	Name string `json:"name,omitempty"`

	// Type is the raw type expression between braces, unparsed.
	Type string `json:"type,omitempty"`

	// Description is the remaining tag text.
	Description string `json:"description,omitempty"`

	// Optional is set for `[name]` and `[name=default]` parameters.
	Optional bool `json:"optional,omitempty"`

	// Default is the default value of an optional parameter.
	Default string `json:"default,omitempty"`

	// Line is the 0-based line of the tag within the comment.
	Line int `json:"lineNumber"`
}

// Context describes the node a doclet documents.
type Context struct {
	// Loc is the source range of the documented node.
	Loc ast.Range `json:"loc"`

	// File is the source file identifier.
	File string `json:"file"`

	// SortKey orders doclets across traversal passes. It carries no
	// identity; equal keys are possible.
	SortKey string `json:"sortKey"`

	// Code is the verbatim source of the documented node's parent. Set only
	// when structural context was captured and the node has a parent.
	Code string `json:"code,omitempty"`

	// path is the structural handle. It is unexported so that no encoder
	// ever serializes the tree.
	path *ast.NodePath
}

// Path returns the structural handle of the documented node, or nil when
// structural context was not captured.
func (c Context) Path() *ast.NodePath {
	return c.path
}

// WithPath returns a copy of c carrying the structural handle.
func (c Context) WithPath(path *ast.NodePath) Context {
	c.path = path
	return c
}

// SortByKey sorts doclets by Context.SortKey. Doclets with equal keys keep
// their relative order.
func SortByKey(doclets []*Doclet) {
	sort.SliceStable(doclets, func(i, j int) bool {
		return doclets[i].Context.SortKey < doclets[j].Context.SortKey
	})
}
