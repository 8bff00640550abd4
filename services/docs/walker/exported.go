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
	"fmt"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// ExportedStrategy reports documentation for exported declarations only.
//
// Description:
//
//	Visits each top-level export_statement in source order. The exported
//	declaration is reported with the doc comments preceding the export
//	statement (or the declaration itself for `export { name }` clauses). An
//	undocumented declaration is reported with a blank comment whose range
//	is the declaration's own range, so every export yields a record.
//
//	Members of exported classes are reported after their class. Undocumented
//	constructors are skipped; every other member gets a blank comment.
//
//	Re-exports from other modules (`export { a } from './a'`) are skipped.
type ExportedStrategy struct{}

// ExportedDeclarations returns the exported-only strategy.
func ExportedDeclarations() *ExportedStrategy {
	return &ExportedStrategy{}
}

// Name implements Strategy.
func (s *ExportedStrategy) Name() string {
	return "exported"
}

// Walk implements Strategy.
func (s *ExportedStrategy) Walk(ctx context.Context, tree *ast.SourceTree, visit VisitFunc) error {
	root := tree.Root()
	w := exportWalk{source: tree.Content, visit: visit, root: root}

	for _, stmt := range root.NamedChildren() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("exported walk canceled: %w", err)
		}
		if stmt.Type() != ast.NodeExportStatement {
			continue
		}
		if err := w.exportStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// exportWalk carries per-walk state for ExportedStrategy.
type exportWalk struct {
	source []byte
	visit  VisitFunc
	root   *ast.NodePath
}

func (w *exportWalk) exportStatement(stmt *ast.NodePath) error {
	if decl := stmt.Field("declaration"); decl != nil {
		return w.declaration(decl, docComments(stmt.Node(), w.source))
	}
	if value := stmt.Field("value"); value != nil {
		return w.declaration(value, docComments(stmt.Node(), w.source))
	}
	if stmt.Field("source") != nil {
		return nil
	}

	for _, child := range stmt.NamedChildren() {
		if child.Type() != ast.NodeExportClause {
			continue
		}
		for _, spec := range child.NamedChildren() {
			if spec.Type() != ast.NodeExportSpecifier {
				continue
			}
			decl := w.findLocal(spec.Field("name").Text())
			if decl == nil {
				continue
			}
			if err := w.declaration(decl, docComments(decl.Node(), w.source)); err != nil {
				return err
			}
		}
	}
	return nil
}

// declaration reports decl with the given comments, or a blank comment,
// and then walks class members.
func (w *exportWalk) declaration(decl *ast.NodePath, comments []*sitter.Node) error {
	if err := w.report(decl, comments, true); err != nil {
		return err
	}

	class := classOf(decl)
	if class == nil {
		return nil
	}
	body := class.Field("body")
	for _, member := range body.NamedChildren() {
		switch member.Type() {
		case ast.NodeMethodDefinition, ast.NodeFieldDefinition:
			blank := !member.IsConstructor()
			if err := w.report(member, docComments(member.Node(), w.source), blank); err != nil {
				return err
			}
		}
	}
	return nil
}

// report visits each comment attached to path, or a blank comment when
// there are none and blank is set.
func (w *exportWalk) report(path *ast.NodePath, comments []*sitter.Node, blank bool) error {
	if len(comments) == 0 {
		if !blank {
			return nil
		}
		return w.visit(Comment{
			Raw:            "",
			Range:          path.Range(),
			Path:           path,
			NodeRange:      path.Range(),
			CaptureContext: true,
		})
	}
	for _, node := range comments {
		c, ok := docComment(node, w.source, path, true)
		if !ok {
			continue
		}
		if err := w.visit(c); err != nil {
			return err
		}
	}
	return nil
}

// findLocal finds the top-level declaration that binds name.
func (w *exportWalk) findLocal(name string) *ast.NodePath {
	if name == "" {
		return nil
	}
	for _, stmt := range w.root.NamedChildren() {
		switch stmt.Type() {
		case ast.NodeFunctionDeclaration, ast.NodeGeneratorFunctionDecl, ast.NodeClassDeclaration:
			if stmt.Field("name").Text() == name {
				return stmt
			}
		case ast.NodeLexicalDeclaration, ast.NodeVariableDeclaration:
			for _, decl := range stmt.NamedChildren() {
				if decl.Type() == ast.NodeVariableDeclarator && decl.Field("name").Text() == name {
					return stmt
				}
			}
		}
	}
	return nil
}

// docComments returns the doc comments directly preceding node.
func docComments(node *sitter.Node, source []byte) []*sitter.Node {
	var docs []*sitter.Node
	for _, c := range precedingComments(node) {
		if IsDocComment(c.Content(source)) {
			docs = append(docs, c)
		}
	}
	return docs
}

// classOf returns the class node declared by decl, if any: a class
// declaration, a class expression, or a variable initialized with one.
func classOf(decl *ast.NodePath) *ast.NodePath {
	switch decl.Type() {
	case ast.NodeClassDeclaration, ast.NodeClass:
		return decl
	case ast.NodeLexicalDeclaration, ast.NodeVariableDeclaration:
		for _, child := range decl.NamedChildren() {
			if child.Type() != ast.NodeVariableDeclarator {
				continue
			}
			if value := child.Field("value"); value != nil && value.Type() == ast.NodeClass {
				return value
			}
			return nil
		}
	}
	return nil
}
