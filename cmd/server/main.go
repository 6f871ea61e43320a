// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package main is the entry point for the Rentrank API server.
//
// The server loads the persisted interaction table from DuckDB and answers
// recommendation queries over HTTP. The table is built offline by the
// pipeline binary (cmd/pipeline); POST /api/v1/reload picks up a freshly
// written table without a restart.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, DUCKDB_PATH, LOG_LEVEL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits up to 10s for in-flight requests, then
// closes the database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentrank/rentrank/internal/api"
	"github.com/rentrank/rentrank/internal/config"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Data.DatabasePath).
		Int("port", cfg.Server.Port).
		Msg("Starting Rentrank server")

	st, err := store.Open(cfg.Data.DatabasePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	engine := recommend.NewEngine(cfg.Recommend.DefaultTopN)

	// Serve with whatever table is already persisted. A missing table is
	// not fatal: the pipeline may not have run yet, and a later reload
	// picks it up.
	tbl, err := st.LoadInteractions(context.Background())
	switch {
	case err == nil:
		engine.Load(tbl)
	case errors.Is(err, store.ErrNoInteractions):
		logging.Warn().Msg("No interaction table persisted yet; queries will fail until the pipeline runs")
	default:
		logging.Fatal().Err(err).Msg("Failed to load interaction table")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(&cfg.Server, engine, st),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
