// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docs exposes JSDoc comment association over HTTP.
package docs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/docassoc/services/docs/ast"
	"github.com/AleutianAI/docassoc/services/docs/config"
	"github.com/AleutianAI/docassoc/services/docs/doclet"
	"github.com/AleutianAI/docassoc/services/docs/extract"
	"github.com/AleutianAI/docassoc/services/docs/jsdoc"
	"github.com/AleutianAI/docassoc/services/docs/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeInvalidContent      = "INVALID_CONTENT"
	CodeSyntaxError         = "SYNTAX_ERROR"
	CodeMalformedTag        = "MALFORMED_TAG"
	CodeRateLimited         = "RATE_LIMITED"
	CodeCanceled            = "CANCELED"
	CodeInternal            = "INTERNAL_ERROR"
)

// runner is what a handler needs from a (possibly cached) extractor.
type runner interface {
	Run(ctx context.Context, src extract.SourceFile) ([]*doclet.Doclet, bool, error)
	RunFiles(ctx context.Context, files []extract.SourceFile) ([]extract.FileResult, error)
}

// uncached adapts an Extractor to the runner interface.
type uncached struct {
	*extract.Extractor
}

func (u uncached) Run(ctx context.Context, src extract.SourceFile) ([]*doclet.Doclet, bool, error) {
	doclets, err := u.Extractor.Run(ctx, src)
	return doclets, false, err
}

// Handlers contains the HTTP handlers for the docs service.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Handlers struct {
	cfg     *config.Config
	runners map[bool]runner
	limiter *rate.Limiter
	cached  bool
	logger  *slog.Logger
}

// NewHandlers creates the handlers.
//
// Inputs:
//
//	cfg         - Validated configuration. Must not be nil.
//	resultStore - Optional result cache. Nil disables caching.
//	logger      - Logger for request diagnostics. Must not be nil.
//
// Outputs:
//
//	*Handlers - Ready to register.
//	error     - Non-nil if a required argument is missing.
func NewHandlers(cfg *config.Config, resultStore *store.ResultStore, logger *slog.Logger) (*Handlers, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	all, err := extract.NewExtractorFromConfig(cfg, extract.WithLogger(logger), extract.WithDocumentExported(false))
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}
	expo, err := extract.NewExtractorFromConfig(cfg, extract.WithLogger(logger), extract.WithDocumentExported(true))
	if err != nil {
		return nil, fmt.Errorf("creating exported extractor: %w", err)
	}

	h := &Handlers{
		cfg:     cfg,
		runners: map[bool]runner{false: uncached{all}, true: uncached{expo}},
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.Burst),
		logger:  logger,
	}

	if resultStore != nil {
		for exported, e := range map[bool]*extract.Extractor{false: all, true: expo} {
			c, err := store.NewCachedExtractor(resultStore, e, logger)
			if err != nil {
				return nil, fmt.Errorf("creating cached extractor: %w", err)
			}
			h.runners[exported] = c
		}
		h.cached = true
	}
	return h, nil
}

// HandleExtract handles POST /v1/docs/extract.
//
// Description:
//
//	Associates the JSDoc comments of one source file with their syntax
//	nodes. The source travels in the request body; the server never reads
//	the named file. Doclets are returned in sort-key order.
//
// Request Body:
//
//	ExtractRequest
//
// Response:
//
//	200 OK: ExtractResponse
//	400 Bad Request: Invalid body, unsupported extension or invalid content
//	413 Request Entity Too Large: Source exceeds max_file_size
//	422 Unprocessable Entity: Strict mode rejected the source or a tag
//	429 Too Many Requests: Rate limit exceeded
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (h *Handlers) HandleExtract(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleExtract"))

	if !h.allow(c) {
		return
	}

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}
	if !h.cfg.HasExtension(req.File) {
		writeError(c, fmt.Errorf("%s: %w", req.File, ast.ErrUnsupportedLanguage))
		return
	}

	start := time.Now()
	doclets, hit, err := h.runner(req.DocumentExported).Run(c.Request.Context(), extract.SourceFile{
		File:    req.File,
		Source:  sourceBytes(req.Source),
		SortKey: req.SortKey,
	})
	if err != nil {
		logger.Warn("extraction failed", slog.String("file", req.File), slog.String("error", err.Error()))
		writeError(c, err)
		return
	}
	doclet.SortByKey(doclets)

	logger.Debug("extraction served",
		slog.String("file", req.File),
		slog.Int("doclets", len(doclets)),
		slog.Bool("cached", hit),
	)
	c.JSON(http.StatusOK, ExtractResponse{
		RequestID:  requestID,
		File:       req.File,
		Doclets:    doclets,
		Cached:     hit,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// HandleExtractBatch handles POST /v1/docs/extract/batch.
//
// Description:
//
//	Extracts several files concurrently. Files without a sort key get the
//	configured base plus their zero-padded position, so the merged doclets
//	of all files sort in file order. Any failing file fails the request.
//	With a result store, files go through the cache and FileResult.Cached
//	marks the hits. The batch counts once against the rate limit.
//
// Request Body:
//
//	BatchExtractRequest
//
// Response:
//
//	200 OK: BatchExtractResponse
//	4xx: As HandleExtract, for the first failing file
func (h *Handlers) HandleExtractBatch(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleExtractBatch"))

	if !h.allow(c) {
		return
	}

	var req BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidRequest,
			Details: err.Error(),
		})
		return
	}

	files := make([]extract.SourceFile, len(req.Files))
	for i, f := range req.Files {
		if !h.cfg.HasExtension(f.File) {
			writeError(c, fmt.Errorf("%s: %w", f.File, ast.ErrUnsupportedLanguage))
			return
		}
		files[i] = extract.SourceFile{File: f.File, Source: sourceBytes(f.Source), SortKey: f.SortKey}
	}

	start := time.Now()
	results, err := h.runner(req.DocumentExported).RunFiles(c.Request.Context(), files)
	if err != nil {
		logger.Warn("batch extraction failed", slog.Int("files", len(files)), slog.String("error", err.Error()))
		writeError(c, err)
		return
	}
	for _, r := range results {
		doclet.SortByKey(r.Doclets)
	}

	logger.Debug("batch served", slog.Int("files", len(results)))
	c.JSON(http.StatusOK, BatchExtractResponse{
		RequestID:  requestID,
		Results:    results,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// HandleHealth handles GET /v1/docs/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", CacheEnabled: h.cached})
}

func (h *Handlers) runner(exported *bool) runner {
	if exported == nil {
		return h.runners[h.cfg.DocumentExported]
	}
	return h.runners[*exported]
}

// allow applies the rate limit and writes a 429 when it is exceeded.
func (h *Handlers) allow(c *gin.Context) bool {
	if h.limiter.Allow() {
		return true
	}
	c.Header("Retry-After", "1")
	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error: "rate limit exceeded",
		Code:  CodeRateLimited,
	})
	return false
}

// writeError maps an extraction error to a status code and error code.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, ast.ErrUnsupportedLanguage):
		status, code = http.StatusBadRequest, CodeUnsupportedLanguage
	case errors.Is(err, ast.ErrInvalidContent):
		status, code = http.StatusBadRequest, CodeInvalidContent
	case errors.Is(err, ast.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, CodeFileTooLarge
	case errors.Is(err, jsdoc.ErrMalformedTag):
		status, code = http.StatusUnprocessableEntity, CodeMalformedTag
	case ast.IsParseError(err):
		status, code = http.StatusUnprocessableEntity, CodeSyntaxError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, CodeCanceled
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// sourceBytes converts a request source, keeping an empty source non-nil so
// it is never mistaken for "read the file".
func sourceBytes(s string) []byte {
	if s == "" {
		return []byte{}
	}
	return []byte(s)
}

// getOrCreateRequestID extracts or generates a request ID for correlation.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
