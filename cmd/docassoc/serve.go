// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/docassoc/services/docs"
	"github.com/AleutianAI/docassoc/services/docs/store"
	"github.com/AleutianAI/docassoc/services/docs/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction HTTP API",
		Long: `Serve exposes extraction over HTTP:

  POST /v1/docs/extract        one file
  POST /v1/docs/extract/batch  several files
  GET  /v1/docs/health         health check
  GET  /metrics                prometheus metrics

Sources travel in the request body; the server never reads files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, debug)
		},
	}
	addExtractionFlags(cmd.Flags())
	cmd.Flags().Int("port", 8090, "Port to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	return cmd
}

func (a *app) runServe(ctx context.Context, debug bool) error {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	providers, err := telemetry.Init(ctx, a.cfg.Telemetry, telemetry.WithVersion(version))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// A broken cache degrades to uncached extraction.
	var resultStore *store.ResultStore
	if a.cfg.Cache.Enabled {
		db, err := store.OpenDB(store.DBConfigFrom(a.cfg.Cache, a.logger))
		if err != nil {
			a.logger.Warn("result cache unavailable, serving uncached",
				slog.String("dir", a.cfg.Cache.Dir),
				slog.String("error", err.Error()),
			)
		} else {
			defer db.Close()
			if resultStore, err = store.NewResultStore(db.DB, a.logger); err != nil {
				return err
			}
		}
	}

	handlers, err := docs.NewHandlers(a.cfg, resultStore, a.logger)
	if err != nil {
		return err
	}

	metrics := providers.MetricsHandler
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	var middleware []gin.HandlerFunc
	if debug {
		middleware = append(middleware, gin.Logger())
	}
	router := docs.NewRouter(a.cfg.Telemetry.ServiceName, handlers, metrics, middleware...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting docassoc server",
			slog.String("address", srv.Addr),
			slog.Bool("cache", resultStore != nil),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down docassoc server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
