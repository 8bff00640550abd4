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
	sitter "github.com/smacker/go-tree-sitter"
)

// NodePath is a syntax node together with the chain of ancestors the walker
// took to reach it.
//
// Description:
//
//	NodePath is the structural handle carried by documentation records.
//	Paths are built top-down by walkers with Child, so Parent always
//	reflects the traversal rather than a fresh tree lookup.
//
// Thread Safety:
//
//	Immutable after construction; safe for concurrent reads.
type NodePath struct {
	node   *sitter.Node
	parent *NodePath
	source []byte
}

// NewRootPath creates the path for the root node of a tree.
func NewRootPath(root *sitter.Node, source []byte) *NodePath {
	return &NodePath{node: root, source: source}
}

// Child extends the path with a child node.
func (p *NodePath) Child(node *sitter.Node) *NodePath {
	return &NodePath{node: node, parent: p, source: p.source}
}

// Node returns the node at the end of the path.
func (p *NodePath) Node() *sitter.Node {
	if p == nil {
		return nil
	}
	return p.node
}

// Parent returns the parent path, or nil at the root.
func (p *NodePath) Parent() *NodePath {
	if p == nil {
		return nil
	}
	return p.parent
}

// Type returns the node type, or "" for a nil path.
func (p *NodePath) Type() string {
	if p == nil || p.node == nil {
		return ""
	}
	return p.node.Type()
}

// Key returns the NodeKey of the node at the end of the path.
func (p *NodePath) Key() NodeKey {
	return KeyOf(p.Node())
}

// Range returns the source range of the node.
func (p *NodePath) Range() Range {
	return RangeOf(p.Node())
}

// Text returns the verbatim source text of the node.
func (p *NodePath) Text() string {
	if p == nil || p.node == nil {
		return ""
	}
	start, end := p.node.StartByte(), p.node.EndByte()
	if int(end) > len(p.source) || start > end {
		return ""
	}
	return string(p.source[start:end])
}

// Field returns the path to the named field child, or nil if absent.
func (p *NodePath) Field(name string) *NodePath {
	if p == nil || p.node == nil {
		return nil
	}
	child := p.node.ChildByFieldName(name)
	if child == nil {
		return nil
	}
	return p.Child(child)
}

// NamedChildren returns paths to every named child, comments included.
func (p *NodePath) NamedChildren() []*NodePath {
	if p == nil || p.node == nil {
		return nil
	}
	count := int(p.node.NamedChildCount())
	children := make([]*NodePath, 0, count)
	for i := 0; i < count; i++ {
		child := p.node.NamedChild(i)
		if child == nil {
			continue
		}
		children = append(children, p.Child(child))
	}
	return children
}

// IsClassMethod reports whether the node is a method_definition directly
// inside a class body.
func (p *NodePath) IsClassMethod() bool {
	return p.Type() == NodeMethodDefinition && p.Parent().Type() == NodeClassBody
}

// IsConstructor reports whether the node is a class constructor.
//
// A static method named "constructor" is an ordinary static method and is
// not treated as a constructor.
func (p *NodePath) IsConstructor() bool {
	if !p.IsClassMethod() {
		return false
	}
	if p.Field(fieldName).Text() != ConstructorName {
		return false
	}
	for i := 0; i < int(p.node.ChildCount()); i++ {
		if p.node.Child(i).Type() == NodeStatic {
			return false
		}
	}
	return true
}
