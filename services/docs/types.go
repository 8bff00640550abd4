// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docs

import (
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
)

// ExtractRequest is the body of POST /v1/docs/extract.
type ExtractRequest struct {
	// File identifies the source. Its extension selects the language.
	File string `json:"file" binding:"required"`

	// Source is the file content. The server never reads from disk.
	Source string `json:"source"`

	// SortKey is the sort key base; empty means the configured base.
	SortKey string `json:"sort_key,omitempty"`

	// DocumentExported overrides the configured strategy selection.
	DocumentExported *bool `json:"document_exported,omitempty"`
}

// ExtractResponse is the response of POST /v1/docs/extract.
type ExtractResponse struct {
	RequestID  string           `json:"request_id"`
	File       string           `json:"file"`
	Doclets    []*doclet.Doclet `json:"doclets"`
	Cached     bool             `json:"cached"`
	DurationMs int64            `json:"duration_ms"`
}

// BatchFile is one file of a batch request.
type BatchFile struct {
	File    string `json:"file" binding:"required"`
	Source  string `json:"source"`
	SortKey string `json:"sort_key,omitempty"`
}

// BatchExtractRequest is the body of POST /v1/docs/extract/batch.
type BatchExtractRequest struct {
	Files            []BatchFile `json:"files" binding:"required,min=1,max=500,dive"`
	DocumentExported *bool       `json:"document_exported,omitempty"`
}

// BatchExtractResponse is the response of POST /v1/docs/extract/batch.
type BatchExtractResponse struct {
	RequestID  string               `json:"request_id"`
	Results    []extract.FileResult `json:"results"`
	DurationMs int64                `json:"duration_ms"`
}

// HealthResponse is the response of GET /v1/docs/health.
type HealthResponse struct {
	Status       string `json:"status"`
	CacheEnabled bool   `json:"cache_enabled"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
