// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package jsdoc turns the body of a JSDoc block comment into a doclet.
//
// Only the block structure is parsed: description, tag titles, brace-
// delimited type expressions (kept verbatim), names and tag descriptions.
// Type expressions are never interpreted.
package jsdoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
)

// ErrMalformedTag is returned in strict mode when a tag cannot be parsed,
// e.g. an unbalanced type expression.
var ErrMalformedTag = errors.New("malformed tag")

// Tag titles with special handling.
const (
	TagLends           = "lends"
	TagHideConstructor = "hideconstructor"
	TagParam           = "param"
)

// nameTags are the tags whose first word after the type is a name.
var nameTags = map[string]bool{
	"param": true, "arg": true, "argument": true,
	"property": true, "prop": true,
	"typedef": true, "callback": true,
	"name": true, "alias": true, "memberof": true, "lends": true,
	"augments": true, "extends": true, "mixes": true,
	"namespace": true, "module": true, "event": true, "fires": true, "emits": true,
}

// Parser converts raw JSDoc comment bodies into doclets.
//
// Description:
//
//	In lenient mode (the default) problems are recorded in Doclet.Errors
//	and parsing continues. In strict mode the first malformed tag fails
//	the whole comment with ErrMalformedTag.
//
// Thread Safety:
//
//	Parser is stateless and safe for concurrent use.
type Parser struct {
	strict bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrict makes malformed tags an error instead of a diagnostic.
func WithStrict(strict bool) Option {
	return func(p *Parser) {
		p.strict = strict
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Strict reports whether malformed tags fail the parse.
func (p *Parser) Strict() bool {
	return p.strict
}

// Parse builds a doclet from a comment body.
//
// Inputs:
//
//	raw     - Comment text between "/*" and "*/"; may be empty.
//	loc     - The comment's own source range.
//	context - Context of the documented node, attached unchanged.
//
// Outputs:
//
//	*doclet.Doclet - Never nil on success.
//	error          - Non-nil only in strict mode for malformed tags.
func (p *Parser) Parse(raw string, loc ast.Range, context doclet.Context) (*doclet.Doclet, error) {
	d := &doclet.Doclet{
		Tags:    make([]doclet.Tag, 0),
		Loc:     loc,
		Context: context,
	}

	var description []string
	var current *rawTag
	var tags []rawTag

	for i, line := range normalizeLines(raw) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "@") && len(trimmed) > 1 {
			if current != nil {
				tags = append(tags, *current)
			}
			current = &rawTag{text: trimmed[1:], line: i}
			continue
		}
		if current != nil {
			current.text += "\n" + line
			continue
		}
		description = append(description, line)
	}
	if current != nil {
		tags = append(tags, *current)
	}

	d.Description = strings.TrimSpace(strings.Join(description, "\n"))

	for _, rt := range tags {
		tag, err := parseTag(rt)
		if err != nil {
			if p.strict {
				return nil, fmt.Errorf("line %d of comment: %w", rt.line+1, err)
			}
			d.Errors = append(d.Errors, err.Error())
		}
		d.Tags = append(d.Tags, tag)

		switch tag.Title {
		case TagLends:
			if tag.Name == "" {
				d.Errors = append(d.Errors, "@lends requires a name")
				continue
			}
			d.Lends = tag.Name
		case TagHideConstructor:
			d.HideConstructor = true
		}
	}

	return d, nil
}

// rawTag is the unparsed text of one tag, without the leading "@".
type rawTag struct {
	text string
	line int
}

// normalizeLines strips comment decoration: the leading "*" of each line and
// the single space after it.
func normalizeLines(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		if strings.HasPrefix(line, "*") {
			line = line[1:]
			line = strings.TrimPrefix(line, " ")
		}
		lines[i] = strings.TrimRight(line, " \t")
	}
	return lines
}

// parseTag splits "title {type} name description" into a Tag. On error the
// returned tag still carries the title and the unparsed text.
func parseTag(rt rawTag) (doclet.Tag, error) {
	title, rest := splitWord(rt.text)
	tag := doclet.Tag{Title: title, Line: rt.line}
	rest = strings.TrimSpace(rest)

	if strings.HasPrefix(rest, "{") {
		typ, after, ok := cutBraces(rest)
		if !ok {
			tag.Description = rest
			return tag, fmt.Errorf("@%s: unbalanced type expression: %w", title, ErrMalformedTag)
		}
		tag.Type = typ
		rest = strings.TrimSpace(after)
	}

	if nameTags[title] {
		if strings.HasPrefix(rest, "[") {
			end := strings.Index(rest, "]")
			if end < 0 {
				tag.Description = rest
				return tag, fmt.Errorf("@%s: unterminated optional name: %w", title, ErrMalformedTag)
			}
			inner := rest[1:end]
			tag.Optional = true
			if name, def, found := strings.Cut(inner, "="); found {
				tag.Name = strings.TrimSpace(name)
				tag.Default = strings.TrimSpace(def)
			} else {
				tag.Name = strings.TrimSpace(inner)
			}
			rest = strings.TrimSpace(rest[end+1:])
		} else {
			tag.Name, rest = splitWord(rest)
			rest = strings.TrimSpace(rest)
		}
	}

	rest = strings.TrimPrefix(rest, "- ")
	tag.Description = strings.TrimSpace(rest)
	return tag, nil
}

// splitWord splits s at the first whitespace.
func splitWord(s string) (string, string) {
	s = strings.TrimLeft(s, " \t\n")
	idx := strings.IndexAny(s, " \t\n")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

// cutBraces extracts a balanced {...} expression from the start of s.
func cutBraces(s string) (inner string, after string, ok bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[1:i]), s[i+1:], true
			}
		}
	}
	return "", "", false
}
