// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findPath returns the first path in pre-order whose type matches.
func findPath(root *NodePath, nodeType string) *NodePath {
	if root.Type() == nodeType {
		return root
	}
	for _, child := range root.NamedChildren() {
		if found := findPath(child, nodeType); found != nil {
			return found
		}
	}
	return nil
}

// methods returns the method_definition paths of the first class body.
func methods(t *testing.T, root *NodePath) []*NodePath {
	t.Helper()
	body := findPath(root, NodeClassBody)
	require.NotNil(t, body)
	var out []*NodePath
	for _, child := range body.NamedChildren() {
		if child.Type() == NodeMethodDefinition {
			out = append(out, child)
		}
	}
	return out
}

func TestNodePath_Navigation(t *testing.T) {
	src := "class Foo {\n  bar() {}\n}\n"
	root := parseJS(t, src).Root()

	class := findPath(root, NodeClassDeclaration)
	require.NotNil(t, class)
	assert.Equal(t, "Foo", class.Field("name").Text())
	assert.Nil(t, class.Field("no_such_field"))
	assert.Same(t, root, class.Parent())

	ms := methods(t, root)
	require.Len(t, ms, 1)
	assert.Equal(t, NodeClassBody, ms[0].Parent().Type())
	assert.Equal(t, NodeClassDeclaration, ms[0].Parent().Parent().Type())
	assert.Equal(t, "bar() {}", ms[0].Text())

	rng := ms[0].Range()
	assert.Equal(t, Position{Line: 2, Column: 2, Offset: 14}, rng.Start)
	assert.Equal(t, 2, rng.End.Line)
}

func TestNodePath_NilSafe(t *testing.T) {
	var p *NodePath

	assert.Nil(t, p.Node())
	assert.Nil(t, p.Parent())
	assert.Equal(t, "", p.Type())
	assert.Equal(t, "", p.Text())
	assert.Nil(t, p.Field("name"))
	assert.Nil(t, p.NamedChildren())
	assert.Equal(t, NodeKey{}, p.Key())
	assert.Equal(t, Range{}, p.Range())
	assert.False(t, p.IsConstructor())
}

func TestNodePath_IsConstructor(t *testing.T) {
	src := `class Foo {
  constructor() {}
  static constructor() {}
  method() {}
  "constructor2"() {}
}
const obj = { constructor() {} };
`
	root := parseJS(t, src).Root()
	ms := methods(t, root)
	require.Len(t, ms, 4)

	assert.True(t, ms[0].IsConstructor())
	assert.False(t, ms[1].IsConstructor(), "static methods are never constructors")
	assert.False(t, ms[2].IsConstructor())
	assert.False(t, ms[3].IsConstructor())

	assert.True(t, ms[2].IsClassMethod())

	object := findPath(root, "object")
	require.NotNil(t, object)
	objMethod := object.NamedChildren()[0]
	require.Equal(t, NodeMethodDefinition, objMethod.Type())
	assert.False(t, objMethod.IsConstructor(), "object methods are not class constructors")
}

func TestNodeKey_Identity(t *testing.T) {
	tree := parseJS(t, "class Foo {}\n")

	first := findPath(tree.Root(), NodeClassDeclaration)
	second := findPath(tree.Root(), NodeClassDeclaration)
	require.NotNil(t, first)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Key(), second.Key(), "keys compare nodes by value")
	assert.Equal(t, NodeKey{Type: NodeClassDeclaration, StartByte: 0, EndByte: 12}, first.Key())
	assert.NotEqual(t, first.Key(), first.Field("body").Key())
}

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "3:7", Position{Line: 3, Column: 7, Offset: 40}.String())
}
