// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract associates JSDoc comments with the syntax nodes they
// document and produces one doclet per documentation comment.
//
// The engine is driven by an Extractor, which picks the traversal
// strategies, feeds every discovered comment through a per-file Processor
// and returns the emitted doclets in traversal order.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/config"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/jsdoc"
	"github.com/AleutianAI/docassoc/services/docs/walker"
)

// SourceFile is one input of an extraction run.
type SourceFile struct {
	// File identifies the source; it is read from disk when Source is nil.
	File string

	// Source is the file content. Nil means "read File".
	Source []byte

	// SortKey is the base of every sort key produced for this file. Empty
	// means the extractor's configured base.
	SortKey string
}

// Extractor runs comment association over source files.
//
// Description:
//
//	The extractor owns the collaborators of a run: the syntax parser, the
//	content parser, the target resolver and the strategies. Per-file state
//	lives in a Processor created for each run, so one Extractor can serve
//	any number of runs.
//
// Thread Safety:
//
//	Safe for concurrent use. Runs share no mutable state.
type Extractor struct {
	sourceParser     *ast.SourceParser
	contentParser    ContentParser
	resolver         ast.TargetResolver
	logger           *slog.Logger
	documentExported bool
	sortKeyBase      string
	workers          int
	strategies       []walker.Strategy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the diagnostic logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSourceParser replaces the syntax parser.
func WithSourceParser(parser *ast.SourceParser) Option {
	return func(e *Extractor) {
		e.sourceParser = parser
	}
}

// WithContentParser replaces the JSDoc content parser.
func WithContentParser(parser ContentParser) Option {
	return func(e *Extractor) {
		e.contentParser = parser
	}
}

// WithTargetResolver replaces the documented-node resolver.
func WithTargetResolver(resolver ast.TargetResolver) Option {
	return func(e *Extractor) {
		e.resolver = resolver
	}
}

// WithDocumentExported selects the exported-only strategy.
func WithDocumentExported(exported bool) Option {
	return func(e *Extractor) {
		e.documentExported = exported
	}
}

// WithSortKeyBase sets the base used when a SourceFile has no sort key.
func WithSortKeyBase(base string) Option {
	return func(e *Extractor) {
		e.sortKeyBase = base
	}
}

// WithWorkers bounds the parallelism of RunFiles. Values below 1 mean 1.
func WithWorkers(workers int) Option {
	return func(e *Extractor) {
		e.workers = workers
	}
}

// WithStrategies overrides strategy selection. Strategies must honor the
// walker.Strategy traversal contract for constructor merging to work.
func WithStrategies(strategies ...walker.Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// NewExtractor creates an Extractor.
//
// Description:
//
//	Defaults: a SourceParser with default options, a lenient jsdoc.Parser,
//	the DefaultTargetResolver, a discarding logger, the leading, inner and
//	trailing comment strategies, and one worker.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		sourceParser:  ast.NewSourceParser(),
		contentParser: jsdoc.NewParser(),
		resolver:      ast.DefaultTargetResolver{},
		logger:        slog.New(slog.DiscardHandler),
		workers:       1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExtractorFromConfig creates an Extractor configured from cfg. Further
// options are applied after the configuration.
func NewExtractorFromConfig(cfg *config.Config, opts ...Option) (*Extractor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	base := []Option{
		WithSourceParser(ast.NewSourceParser(
			ast.WithMaxFileSize(cfg.MaxFileSize),
			ast.WithStrict(cfg.StrictSyntax),
		)),
		WithContentParser(jsdoc.NewParser(jsdoc.WithStrict(cfg.StrictTags))),
		WithDocumentExported(cfg.DocumentExported),
		WithSortKeyBase(cfg.SortKeyBase),
		WithWorkers(cfg.Workers),
	}
	return NewExtractor(append(base, opts...)...), nil
}

// Strategies returns the strategies a run will use.
func (e *Extractor) Strategies() []walker.Strategy {
	if len(e.strategies) > 0 {
		return e.strategies
	}
	if e.documentExported {
		return []walker.Strategy{walker.ExportedDeclarations()}
	}
	return []walker.Strategy{
		walker.LeadingComments(),
		walker.InnerComments(),
		walker.TrailingComments(),
	}
}

// strictReporter is implemented by content parsers with a strict mode.
type strictReporter interface {
	Strict() bool
}

// Variant names everything besides the source that shapes a run's result:
// the strategy set and the parse settings, e.g.
// "leading_comments,inner_comments,trailing_comments;max_file_size=10485760;strict_syntax=false;strict_tags=false".
// Results of different variants differ for the same file.
func (e *Extractor) Variant() string {
	names := make([]string, 0, 3)
	for _, s := range e.Strategies() {
		names = append(names, s.Name())
	}
	opts := e.sourceParser.Options()
	variant := fmt.Sprintf("%s;max_file_size=%d;strict_syntax=%t",
		strings.Join(names, ","), opts.MaxFileSize, opts.Strict)
	if r, ok := e.contentParser.(strictReporter); ok {
		variant += fmt.Sprintf(";strict_tags=%t", r.Strict())
	}
	return variant
}

// Workers returns the concurrency bound of RunFiles.
func (e *Extractor) Workers() int {
	return e.workers
}

// SortKeyBase returns the base used for files without a sort key.
func (e *Extractor) SortKeyBase() string {
	return e.sortKeyBase
}

// Run extracts the doclets of one source file.
//
// Description:
//
//	Reads the file when no source is given, parses it, runs every strategy
//	against the tree with one shared Processor, then flattens the
//	per-strategy results in strategy order. Comments that produced no
//	doclet and doclets with @lends are dropped. The result is not sorted;
//	use doclet.SortByKey for sort-key order.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between strategies.
//	src - The file to process.
//
// Outputs:
//
//	[]*doclet.Doclet - Emitted doclets in traversal order. Never nil on success.
//	error            - Read, syntax, content parser or cancellation error.
//	                   No partial result is returned.
func (e *Extractor) Run(ctx context.Context, src SourceFile) (result []*doclet.Doclet, err error) {
	ctx, span := startRunSpan(ctx, src.File, e.documentExported)
	defer span.End()
	start := time.Now()

	var stats ProcessStats
	var lends int
	defer func() {
		recordRun(stats, lends, time.Since(start), err)
		endRunSpan(span, len(result), err)
	}()

	source := src.Source
	if source == nil {
		source, err = os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.File, err)
		}
	}

	tree, err := e.sourceParser.Parse(ctx, source, src.File)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", src.File, err)
	}
	defer tree.Close()

	base := src.SortKey
	if base == "" {
		base = e.sortKeyBase
	}
	proc := NewProcessor(src.File, base, e.contentParser, e.resolver, e.logger)

	strategies := e.Strategies()
	perStrategy := make([][]*doclet.Doclet, len(strategies))
	for i, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", src.File, err)
		}
		var produced []*doclet.Doclet
		walkErr := strategy.Walk(ctx, tree, func(c walker.Comment) error {
			d, err := proc.Process(c)
			if err != nil {
				return err
			}
			produced = append(produced, d)
			return nil
		})
		if walkErr != nil {
			stats = proc.Stats()
			return nil, fmt.Errorf("extracting %s with %s: %w", src.File, strategy.Name(), walkErr)
		}
		perStrategy[i] = produced
	}
	stats = proc.Stats()

	result = make([]*doclet.Doclet, 0)
	for i, produced := range perStrategy {
		emitted := 0
		for _, d := range produced {
			if d == nil {
				continue
			}
			if d.Lends != "" {
				lends++
				continue
			}
			result = append(result, d)
			emitted++
		}
		recordEmitted(strategies[i].Name(), emitted)
	}

	if len(tree.SyntaxErrors) > 0 {
		e.logger.Debug("extracted from file with syntax errors",
			slog.String("file", src.File),
			slog.Int("syntax_errors", len(tree.SyntaxErrors)),
		)
	}
	e.logger.Debug("extraction complete",
		slog.String("file", src.File),
		slog.Int("doclets", len(result)),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("constructors_merged", stats.Merged),
	)
	return result, nil
}
