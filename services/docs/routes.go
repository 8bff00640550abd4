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
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers all docs routes with the router.
//
// Description:
//
//	Registers all /v1/docs/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/docs/extract - Associate the comments of one file
//	POST /v1/docs/extract/batch - Associate the comments of several files
//	GET  /v1/docs/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	docs := rg.Group("/docs")
	{
		docs.POST("/extract", handlers.HandleExtract)
		docs.POST("/extract/batch", handlers.HandleExtractBatch)
		docs.GET("/health", handlers.HandleHealth)
	}
}

// NewRouter builds the service engine: recovery, tracing middleware, any
// extra middleware, the /v1 routes and, when metrics is non-nil, GET /metrics.
func NewRouter(serviceName string, handlers *Handlers, metrics http.Handler, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware...)

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
	return router
}
