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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// languageJavaScript is the language reported on every SourceTree.
const languageJavaScript = "javascript"

// SourceTree is a parsed JavaScript file.
//
// Description:
//
//	Holds the tree-sitter tree together with the exact bytes it was parsed
//	from, so walkers can slice comment and snippet text out of Content.
//	The tree owns C memory; callers must Close it when done.
//
// Thread Safety:
//
//	Read-only use of a SourceTree from multiple goroutines is safe. Close
//	must not race with readers.
type SourceTree struct {
	// FilePath is the path the content was read from.
	FilePath string

	// Language is always "javascript".
	Language string

	// Hash is the hex SHA-256 of Content.
	Hash string

	// Content is the parsed source.
	Content []byte

	// SyntaxErrors lists recoverable syntax errors tree-sitter reported.
	SyntaxErrors []string

	tree *sitter.Tree
}

// Root returns the path of the program node.
func (t *SourceTree) Root() *NodePath {
	return NewRootPath(t.tree.RootNode(), t.Content)
}

// Close releases the underlying tree-sitter tree.
func (t *SourceTree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// SourceParserOptions configures SourceParser behavior.
type SourceParserOptions struct {
	// MaxFileSize is the maximum file size in bytes to parse.
	// Files larger than this return ErrFileTooLarge.
	// Default: 10MB
	MaxFileSize int

	// Strict turns recoverable syntax errors into a ParseError.
	// Default: false
	Strict bool
}

// DefaultSourceParserOptions returns the default options.
func DefaultSourceParserOptions() SourceParserOptions {
	return SourceParserOptions{
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		Strict:      false,
	}
}

// SourceParserOption is a functional option for configuring SourceParser.
type SourceParserOption func(*SourceParserOptions)

// WithMaxFileSize sets the maximum file size for parsing.
func WithMaxFileSize(size int) SourceParserOption {
	return func(o *SourceParserOptions) {
		o.MaxFileSize = size
	}
}

// WithStrict sets whether syntax errors fail the parse.
func WithStrict(strict bool) SourceParserOption {
	return func(o *SourceParserOptions) {
		o.Strict = strict
	}
}

// SourceParser turns JavaScript source into a SourceTree.
//
// Description:
//
//	SourceParser uses tree-sitter to parse JavaScript source files. Unlike a
//	symbol extractor it keeps comment nodes and the full tree, because the
//	documentation walkers need both.
//
// Thread Safety:
//
//	SourceParser is safe for concurrent use. Each Parse call creates its own
//	tree-sitter parser instance.
//
// Example:
//
//	parser := NewSourceParser()
//	tree, err := parser.Parse(ctx, content, "lib/app.js")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	defer tree.Close()
type SourceParser struct {
	options SourceParserOptions
}

// NewSourceParser creates a new SourceParser with the given options.
func NewSourceParser(opts ...SourceParserOption) *SourceParser {
	options := DefaultSourceParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &SourceParser{options: options}
}

// Options returns the options the parser was built with.
func (p *SourceParser) Options() SourceParserOptions {
	return p.options
}

// Parse parses JavaScript source code into a SourceTree.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Raw JavaScript source bytes. Must be valid UTF-8.
//	filePath - Path to the file, used for error reporting.
//
// Outputs:
//
//	*SourceTree - The parsed tree. Never nil on success; caller must Close it.
//	error       - ErrFileTooLarge, ErrInvalidContent, a *ParseError wrapping
//	              ErrParseFailed, or a cancellation error.
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *SourceParser) Parse(ctx context.Context, content []byte, filePath string) (*SourceTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("javascript parse canceled before start: %w", err)
	}

	ctx, span := startParseSpan(ctx, languageJavaScript, filePath, len(content))
	defer span.End()
	start := time.Now()

	if len(content) > p.options.MaxFileSize {
		recordParseMetrics(ctx, languageJavaScript, time.Since(start), false)
		return nil, fmt.Errorf("%s: %w", filePath, ErrFileTooLarge)
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, languageJavaScript, time.Since(start), false)
		return nil, fmt.Errorf("%s: %w", filePath, ErrInvalidContent)
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, languageJavaScript, time.Since(start), false)
		return nil, &ParseError{
			FilePath: filePath,
			Message:  "tree-sitter parse failed",
			Cause:    fmt.Errorf("%w: %v", ErrParseFailed, err),
		}
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		return nil, fmt.Errorf("javascript parse canceled after tree-sitter: %w", err)
	}

	result := &SourceTree{
		FilePath: filePath,
		Language: languageJavaScript,
		Hash:     hex.EncodeToString(hash[:]),
		Content:  content,
		tree:     tree,
	}

	root := tree.RootNode()
	if root.HasError() {
		errNode := firstErrorNode(root)
		rng := RangeOf(errNode)
		result.SyntaxErrors = append(result.SyntaxErrors,
			fmt.Sprintf("syntax error at %d:%d", rng.Start.Line, rng.Start.Column))

		if p.options.Strict {
			result.Close()
			recordParseMetrics(ctx, languageJavaScript, time.Since(start), false)
			return nil, &ParseError{
				FilePath: filePath,
				Line:     rng.Start.Line,
				Column:   rng.Start.Column,
				Message:  "syntax error",
				Cause:    ErrParseFailed,
			}
		}
	}

	setParseSpanResult(span, len(result.SyntaxErrors))
	recordParseMetrics(ctx, languageJavaScript, time.Since(start), true)

	return result, nil
}

// firstErrorNode returns the first ERROR or missing node in document order.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return node
}
