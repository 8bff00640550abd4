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

// JavaScript Tree-sitter Node Types
//
// The walkers and target resolution use direct node traversal rather than
// tree-sitter's query language.
//
// Reference: https://github.com/tree-sitter/tree-sitter-javascript

// Node type constants for JavaScript AST traversal.
const (
	NodeProgram = "program"

	// Exports
	NodeExportStatement = "export_statement"
	NodeExportClause    = "export_clause"
	NodeExportSpecifier = "export_specifier"

	// Declarations
	NodeFunctionDeclaration   = "function_declaration"
	NodeGeneratorFunctionDecl = "generator_function_declaration"
	NodeClassDeclaration      = "class_declaration"
	NodeClass                 = "class"
	NodeLexicalDeclaration    = "lexical_declaration"
	NodeVariableDeclaration   = "variable_declaration"
	NodeVariableDeclarator    = "variable_declarator"

	// Classes
	NodeClassBody          = "class_body"
	NodeMethodDefinition   = "method_definition"
	NodeFieldDefinition    = "field_definition"
	NodePropertyIdentifier = "property_identifier"

	// Expressions and statements
	NodeExpressionStatement  = "expression_statement"
	NodeAssignmentExpression = "assignment_expression"
	NodePair                 = "pair"
	NodeIdentifier           = "identifier"

	// Comments
	NodeComment = "comment"

	// Keywords
	NodeStatic = "static"
)

// Field names used with Node.ChildByFieldName.
const (
	fieldDeclaration = "declaration"
	fieldValue       = "value"
	fieldName        = "name"
	fieldRight       = "right"
)

// ConstructorName is the method name tree-sitter reports for class constructors.
const ConstructorName = "constructor"

// JavaScript AST Structure Reference (comment placement)
//
// program
// ├── comment                            // leading comment of the next statement,
// │                                      // trailing comment of the previous one
// ├── export_statement
// │   ├── export
// │   ├── default?
// │   └── declaration: class_declaration | function_declaration | lexical_declaration
// │
// ├── class_declaration
// │   ├── class
// │   ├── name: identifier
// │   └── body: class_body
// │       ├── comment                    // leading comment of the constructor
// │       └── method_definition
// │           ├── static?
// │           ├── name: property_identifier   // "constructor"
// │           ├── parameters: formal_parameters
// │           └── body: statement_block
// │               └── comment            // inner comment when the block is empty
// │
// └── lexical_declaration
//     ├── const | let
//     └── variable_declarator
//         ├── name: identifier
//         └── value: <expression>        // documentation target of the declaration
