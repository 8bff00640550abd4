// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/jsdoc"
	"github.com/AleutianAI/docassoc/services/docs/walker"
)

// ContentParser turns a raw comment body into a doclet.
//
// Implementations attach context unchanged and must not retain it beyond
// the returned doclet. Errors are returned to the extractor's caller as-is
// (wrapped with %w).
type ContentParser interface {
	Parse(raw string, loc ast.Range, context doclet.Context) (*doclet.Doclet, error)
}

// ProcessStats counts what a Processor did with the comments it received.
type ProcessStats struct {
	// Produced is the number of doclets built by the content parser.
	Produced int

	// Duplicates is the number of comments skipped because they were
	// already processed.
	Duplicates int

	// Merged is the number of constructor doclets folded into their class.
	Merged int

	// Hidden is the number of constructor doclets dropped by
	// @hideconstructor with no class doclet to merge into.
	Hidden int
}

// Processor converts the comments of one file into doclets.
//
// Description:
//
//	A Processor owns the per-file state: the set of comment positions
//	already seen and the map from documented node to doclet. It must be
//	created fresh for every file and discarded afterwards.
//
// Thread Safety:
//
//	Not safe for concurrent use. One Processor serves one extraction run.
type Processor struct {
	file        string
	sortKeyBase string
	parser      ContentParser
	resolver    ast.TargetResolver
	logger      *slog.Logger

	visited map[string]struct{}
	byNode  map[ast.NodeKey]*doclet.Doclet
	stats   ProcessStats
}

// NewProcessor creates a Processor for one file.
//
// Inputs:
//
//	file        - Source file identifier, used in dedup keys and contexts.
//	sortKeyBase - Base of every sort key produced for this file.
//	parser      - Content parser. Must not be nil.
//	resolver    - Target resolver. Nil means DefaultTargetResolver.
//	logger      - Diagnostic sink. Nil discards diagnostics.
func NewProcessor(file, sortKeyBase string, parser ContentParser, resolver ast.TargetResolver, logger *slog.Logger) *Processor {
	if resolver == nil {
		resolver = ast.DefaultTargetResolver{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{
		file:        file,
		sortKeyBase: sortKeyBase,
		parser:      parser,
		resolver:    resolver,
		logger:      logger,
		visited:     make(map[string]struct{}),
		byNode:      make(map[ast.NodeKey]*doclet.Doclet),
	}
}

// Stats returns the counters accumulated so far.
func (p *Processor) Stats() ProcessStats {
	return p.stats
}

// Process converts one discovered comment into a doclet.
//
// Description:
//
//	A comment whose start position was already processed is skipped
//	silently. Otherwise the context is built, the content parser is called,
//	and, when the comment captures structural context, the doclet is
//	recorded against its documented node and the constructor rule applied.
//
// Outputs:
//
//	*doclet.Doclet - The doclet to emit, or nil when the comment was a
//	                 duplicate, was merged into its class, or was hidden.
//	error          - Content parser failure, wrapped.
func (p *Processor) Process(c walker.Comment) (*doclet.Doclet, error) {
	key := visitedKey(p.file, c.Range.Start)
	if _, seen := p.visited[key]; seen {
		p.stats.Duplicates++
		return nil, nil
	}
	p.visited[key] = struct{}{}

	context := doclet.Context{
		Loc:     c.NodeRange,
		File:    p.file,
		SortKey: BuildSortKey(p.sortKeyBase, c.NodeRange.Start.Line),
	}
	if c.CaptureContext {
		context = context.WithPath(c.Path)
		if parent := c.Path.Parent(); parent != nil && parent.Node() != nil {
			context.Code = parent.Text()
		}
	}

	d, err := p.parser.Parse(c.Raw, c.Range, context)
	if err != nil {
		return nil, fmt.Errorf("parsing comment at %s:%s: %w", p.file, c.Range.Start, err)
	}
	p.stats.Produced++

	if !c.CaptureContext {
		return d, nil
	}
	return p.associate(c.Path, d), nil
}

// associate records d against the documented node of path and applies the
// constructor rule.
func (p *Processor) associate(path *ast.NodePath, d *doclet.Doclet) *doclet.Doclet {
	target := p.resolver.Resolve(path)
	if target == nil {
		target = path
	}
	p.byNode[target.Key()] = d

	if !path.IsConstructor() {
		return d
	}
	return p.resolveConstructor(path, d)
}

// resolveConstructor folds a constructor doclet into its class doclet.
//
// Description:
//
//	The class is the constructor's grandparent (method_definition ->
//	class_body -> class). If the class already has a doclet, the
//	constructor doclet becomes its ConstructorComment and nil is returned.
//	Without a class doclet a @hideconstructor doclet is dropped and any
//	other doclet is returned for standalone emission.
func (p *Processor) resolveConstructor(path *ast.NodePath, d *doclet.Doclet) *doclet.Doclet {
	if !d.HideConstructor {
		p.logger.Debug("constructor documented directly; prefer documenting it on the class",
			slog.String("file", p.file),
			slog.Int("line", d.Loc.Start.Line),
		)
	}
	for _, tag := range d.Tags {
		if tag.Title != jsdoc.TagParam && tag.Title != jsdoc.TagHideConstructor {
			p.logger.Debug("constructor comment uses tags other than param and hideconstructor",
				slog.String("file", p.file),
				slog.Int("line", d.Loc.Start.Line),
				slog.String("tag", tag.Title),
			)
			break
		}
	}

	if class := path.Parent().Parent(); class != nil && class.Node() != nil {
		if parent, ok := p.byNode[class.Key()]; ok {
			parent.ConstructorComment = d
			p.stats.Merged++
			return nil
		}
	}

	if d.HideConstructor {
		p.stats.Hidden++
		return nil
	}
	return d
}

// visitedKey identifies a physical comment by file and start position.
func visitedKey(file string, start ast.Position) string {
	return file + ":" + strconv.Itoa(start.Line) + ":" + strconv.Itoa(start.Column)
}
