// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package walker

import (
	"context"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// Placement says where a comment sits relative to the node it is attached to.
type Placement int

const (
	// PlacementLeading attaches the comments directly before a node.
	PlacementLeading Placement = iota

	// PlacementInner attaches the comments of a node that contains nothing
	// but comments (an empty block, class body or object).
	PlacementInner

	// PlacementTrailing attaches the comments directly after a node.
	PlacementTrailing
)

// String returns the string representation of the placement.
func (p Placement) String() string {
	switch p {
	case PlacementLeading:
		return "leading"
	case PlacementInner:
		return "inner"
	case PlacementTrailing:
		return "trailing"
	default:
		return "unknown"
	}
}

// CommentStrategy reports every doc comment in one placement category.
//
// Description:
//
//	Walks the whole tree in pre-order. A comment between two statements is
//	both trailing for the first and leading for the second, so the leading
//	and trailing strategies overlap and consumers deduplicate.
type CommentStrategy struct {
	placement Placement
	capture   bool
}

// NewCommentStrategy creates a strategy for one placement category.
func NewCommentStrategy(placement Placement, capture bool) *CommentStrategy {
	return &CommentStrategy{placement: placement, capture: capture}
}

// LeadingComments returns the leading-comment strategy, which captures
// structural context.
func LeadingComments() *CommentStrategy {
	return NewCommentStrategy(PlacementLeading, true)
}

// InnerComments returns the inner-comment strategy.
func InnerComments() *CommentStrategy {
	return NewCommentStrategy(PlacementInner, false)
}

// TrailingComments returns the trailing-comment strategy.
func TrailingComments() *CommentStrategy {
	return NewCommentStrategy(PlacementTrailing, false)
}

// Name implements Strategy.
func (s *CommentStrategy) Name() string {
	return s.placement.String() + "_comments"
}

// Walk implements Strategy.
func (s *CommentStrategy) Walk(ctx context.Context, tree *ast.SourceTree, visit VisitFunc) error {
	source := tree.Content
	return traverse(ctx, tree.Root(), func(path *ast.NodePath) error {
		if path.Type() == ast.NodeComment {
			return nil
		}
		for _, node := range s.attached(path) {
			c, ok := docComment(node, source, path, s.capture)
			if !ok {
				continue
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// attached returns the comment nodes attached to path in this placement.
func (s *CommentStrategy) attached(path *ast.NodePath) []*sitter.Node {
	node := path.Node()
	switch s.placement {
	case PlacementLeading:
		return precedingComments(node)
	case PlacementTrailing:
		return followingComments(node)
	case PlacementInner:
		return innerComments(node)
	default:
		return nil
	}
}

// innerComments returns the comments of a node whose only named children
// are comments.
func innerComments(node *sitter.Node) []*sitter.Node {
	count := int(node.NamedChildCount())
	if count == 0 {
		return nil
	}
	comments := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != ast.NodeComment {
			return nil
		}
		comments = append(comments, child)
	}
	return comments
}
