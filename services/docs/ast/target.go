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

// TargetResolver maps the node a comment is attached to onto the node it
// actually documents.
//
// Contract: Resolve returns a path into the same tree, or nil when the input
// is already its own target. It must not mutate the input path.
type TargetResolver interface {
	Resolve(path *NodePath) *NodePath
}

// TargetResolverFunc adapts a function to TargetResolver.
type TargetResolverFunc func(path *NodePath) *NodePath

// Resolve calls f(path).
func (f TargetResolverFunc) Resolve(path *NodePath) *NodePath {
	return f(path)
}

// DefaultTargetResolver unwraps declarations to the value they document.
//
// Description:
//
//	Applied in order:
//	  export_statement        -> its declaration (or default value)
//	  lexical/variable decl.  -> first variable_declarator -> its value
//	  expression_statement    -> right side of a wrapped assignment
//	  pair                    -> its value
//	  field_definition        -> its value, when initialized
//
//	Anything else resolves to itself.
type DefaultTargetResolver struct{}

// Resolve implements TargetResolver.
func (DefaultTargetResolver) Resolve(path *NodePath) *NodePath {
	if path == nil || path.Node() == nil {
		return nil
	}

	if path.Type() == NodeExportStatement {
		if decl := path.Field(fieldDeclaration); decl != nil {
			path = decl
		} else if value := path.Field(fieldValue); value != nil {
			path = value
		}
	}

	switch path.Type() {
	case NodeLexicalDeclaration, NodeVariableDeclaration:
		for _, child := range path.NamedChildren() {
			if child.Type() != NodeVariableDeclarator {
				continue
			}
			if value := child.Field(fieldValue); value != nil {
				return value
			}
			return child
		}
	case NodeExpressionStatement:
		if expr := firstNonComment(path); expr != nil && expr.Type() == NodeAssignmentExpression {
			if right := expr.Field(fieldRight); right != nil {
				return right
			}
		}
	case NodePair, NodeFieldDefinition:
		if value := path.Field(fieldValue); value != nil {
			return value
		}
	}

	return path
}

// firstNonComment returns the first named child that is not a comment.
func firstNonComment(path *NodePath) *NodePath {
	for _, child := range path.NamedChildren() {
		if child.Type() != NodeComment {
			return child
		}
	}
	return nil
}
