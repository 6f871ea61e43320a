// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package main is the entry point for the offline pipeline.
//
// The pipeline ingests the raw review dump, runs feature engineering, and
// persists the interaction table to DuckDB for the API server to load.
// With BATCH_PRECOMPUTE=true it additionally runs recommendation queries
// for every user, category, and occasion combination and persists the
// ranked results.
//
// Text embeddings are optional: with EMBEDDING_ENABLED=true the pipeline
// calls the configured embedding service for each cleaned review and
// appends the vectors as feature columns.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rentrank/rentrank/internal/batch"
	"github.com/rentrank/rentrank/internal/config"
	"github.com/rentrank/rentrank/internal/embed"
	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/metrics"
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
		Str("raw_path", cfg.Data.RawPath).
		Str("db_path", cfg.Data.DatabasePath).
		Bool("precompute", cfg.Batch.Precompute).
		Bool("embeddings", cfg.Embedding.Enabled).
		Msg("Starting Rentrank pipeline")

	st, err := store.Open(cfg.Data.DatabasePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	var provider embed.Provider
	if cfg.Embedding.Enabled {
		provider = embed.NewHTTPProvider(embed.HTTPConfig{
			Endpoint:   cfg.Embedding.Endpoint,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			Timeout:    cfg.Embedding.Timeout,
		})
	}

	engineer := feature.NewEngineer(feature.Config{
		PresenceThreshold: cfg.Feature.PresenceThreshold,
		ScaleColumns:      cfg.Feature.ScaleColumns,
	}, provider)

	engine := recommend.NewEngine(cfg.Recommend.DefaultTopN)
	runner := batch.NewRunner(cfg.Data.RawPath, engineer, st, engine, cfg.Batch.Precompute)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := runner.Run(ctx)
	if err != nil {
		metrics.RecordPipelineRun(false, 0, time.Since(start))
		logging.Fatal().Err(err).Msg("Pipeline failed")
	}
	metrics.RecordPipelineRun(true, stats.Rows, stats.Duration)

	logging.Info().
		Int("lines", stats.IngestLines).
		Int("skipped", stats.IngestSkipped).
		Int("rows", stats.Rows).
		Int("columns", stats.Columns).
		Int("recommendations", stats.Recommendations).
		Msg("Pipeline finished")
}
