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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a single point in a source file.
type Position struct {
	// Line is 1-indexed.
	Line int `json:"line"`

	// Column is 0-indexed, in bytes.
	Column int `json:"column"`

	// Offset is the 0-indexed byte offset from the start of the file.
	Offset int `json:"offset"`
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open source span [Start, End).
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// RangeOf returns the source range of a tree-sitter node.
//
// Returns the zero Range for a nil node.
func RangeOf(node *sitter.Node) Range {
	if node == nil {
		return Range{}
	}
	return Range{
		Start: Position{
			Line:   int(node.StartPoint().Row) + 1,
			Column: int(node.StartPoint().Column),
			Offset: int(node.StartByte()),
		},
		End: Position{
			Line:   int(node.EndPoint().Row) + 1,
			Column: int(node.EndPoint().Column),
			Offset: int(node.EndByte()),
		},
	}
}

// NodeKey identifies a syntax node within one tree by value.
//
// Description:
//
//	tree-sitter hands out node values rather than stable identities, so
//	nodes are compared by (type, start byte, end byte). Two distinct nodes
//	of the same type never cover exactly the same span in the JavaScript
//	grammar, which makes the key unique within a tree.
type NodeKey struct {
	Type      string
	StartByte uint32
	EndByte   uint32
}

// KeyOf returns the NodeKey of a node. The zero key is returned for nil.
func KeyOf(node *sitter.Node) NodeKey {
	if node == nil {
		return NodeKey{}
	}
	return NodeKey{
		Type:      node.Type(),
		StartByte: node.StartByte(),
		EndByte:   node.EndByte(),
	}
}
