// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package walker discovers documentation comments in a JavaScript syntax tree
// and reports each one, together with the node it is attached to, to a
// callback.
package walker

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// ctxCheckInterval is how many nodes are visited between context checks.
const ctxCheckInterval = 256

// Comment is one documentation comment discovered by a strategy.
type Comment struct {
	// Raw is the comment body between "/*" and "*/". Empty for the blank
	// comments the exported strategy synthesizes for undocumented exports.
	Raw string

	// Range is the comment's own source range.
	Range ast.Range

	// Path is the node the comment is attached to.
	Path *ast.NodePath

	// NodeRange is the source range of the documented node.
	NodeRange ast.Range

	// CaptureContext asks the consumer to keep the structural handle and
	// the parent snippet, and to take part in node association.
	CaptureContext bool
}

// VisitFunc receives each discovered comment. A non-nil error stops the walk
// and is returned from Strategy.Walk.
type VisitFunc func(c Comment) error

// Strategy walks a parsed tree and reports documentation comments.
//
// Description:
//
//	Strategies are run one after another by the extractor; each may report
//	the same physical comment that another strategy already reported.
//	Consumers deduplicate by comment start position.
//
// Traversal Contract:
//
//	A strategy MUST visit enclosing declarations before their nested
//	members (pre-order). Constructor documentation is folded into the
//	enclosing class only when the class comment was reported first; a
//	strategy that reports members first makes constructor comments fall
//	through to standalone records.
//
// Thread Safety:
//
//	Strategies are stateless and safe for concurrent use on distinct trees.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Walk visits tree and calls visit for each comment, in traversal order.
	Walk(ctx context.Context, tree *ast.SourceTree, visit VisitFunc) error
}

// IsDocComment reports whether text is a JSDoc block comment.
//
// A doc comment opens with exactly "/**": "/*** */" banners and the empty
// "/**/" are excluded, as are line comments.
func IsDocComment(text string) bool {
	if !strings.HasPrefix(text, "/**") || !strings.HasSuffix(text, "*/") || len(text) < 5 {
		return false
	}
	return !strings.HasPrefix(text, "/***")
}

// commentBody strips the "/*" and "*/" delimiters from a block comment.
func commentBody(text string) string {
	text = strings.TrimPrefix(text, "/*")
	return strings.TrimSuffix(text, "*/")
}

// docComment converts a tree-sitter comment node into a Comment attached to
// path. ok is false when the node is not a doc comment.
func docComment(node *sitter.Node, source []byte, path *ast.NodePath, capture bool) (Comment, bool) {
	if node == nil || node.Type() != ast.NodeComment {
		return Comment{}, false
	}
	text := node.Content(source)
	if !IsDocComment(text) {
		return Comment{}, false
	}
	return Comment{
		Raw:            commentBody(text),
		Range:          ast.RangeOf(node),
		Path:           path,
		NodeRange:      path.Range(),
		CaptureContext: capture,
	}, true
}

// precedingComments returns the run of comment nodes that directly precede
// node, in source order. Any other token ends the run.
func precedingComments(node *sitter.Node) []*sitter.Node {
	var run []*sitter.Node
	for prev := node.PrevSibling(); prev != nil && prev.Type() == ast.NodeComment; prev = prev.PrevSibling() {
		run = append(run, prev)
	}
	for i, j := 0, len(run)-1; i < j; i, j = i+1, j-1 {
		run[i], run[j] = run[j], run[i]
	}
	return run
}

// followingComments returns the run of comment nodes that directly follow
// node, in source order.
func followingComments(node *sitter.Node) []*sitter.Node {
	var run []*sitter.Node
	for next := node.NextSibling(); next != nil && next.Type() == ast.NodeComment; next = next.NextSibling() {
		run = append(run, next)
	}
	return run
}

// traverse visits every named node below root in pre-order, parents before
// children, calling fn with the node's path.
func traverse(ctx context.Context, root *ast.NodePath, fn func(path *ast.NodePath) error) error {
	visited := 0
	var walk func(path *ast.NodePath) error
	walk = func(path *ast.NodePath) error {
		visited++
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("walk canceled: %w", err)
			}
		}
		if err := fn(path); err != nil {
			return err
		}
		for _, child := range path.NamedChildren() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
