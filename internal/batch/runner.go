// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package batch drives the offline pipeline: ingest the raw review dump,
// run feature engineering, persist the interaction table, and optionally
// precompute recommendations for every user, category, and occasion
// combination.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/ingest"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/store"
	"github.com/rentrank/rentrank/internal/table"
)

// Runner orchestrates one pipeline pass.
type Runner struct {
	rawPath    string
	engineer   *feature.Engineer
	store      *store.Store
	engine     *recommend.Engine
	precompute bool
}

// Stats summarizes one pipeline run.
type Stats struct {
	IngestLines    int
	IngestSkipped  int
	Rows           int
	Columns        int
	Queries        int
	Recommendations int
	Duration       time.Duration
}

// NewRunner wires the pipeline stages together.
func NewRunner(rawPath string, engineer *feature.Engineer, st *store.Store, engine *recommend.Engine, precompute bool) *Runner {
	return &Runner{
		rawPath:    rawPath,
		engineer:   engineer,
		store:      st,
		engine:     engine,
		precompute: precompute,
	}
}

// Run executes the full pipeline. The engine is loaded with the engineered
// table on success, so a serving process can run queries immediately after.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	tbl, ingestStats, err := ingest.ReadFile(ctx, r.rawPath)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	stats.IngestLines = ingestStats.Lines
	stats.IngestSkipped = ingestStats.Skipped

	if err := r.engineer.Run(ctx, tbl); err != nil {
		return nil, fmt.Errorf("feature engineering failed: %w", err)
	}
	stats.Rows = tbl.NumRows()
	stats.Columns = tbl.NumCols()

	if err := r.store.SaveInteractions(ctx, tbl); err != nil {
		return nil, fmt.Errorf("persisting interaction table failed: %w", err)
	}

	r.engine.Load(tbl)

	if r.precompute {
		if err := r.precomputeAll(ctx, tbl, stats); err != nil {
			return nil, fmt.Errorf("precomputing recommendations failed: %w", err)
		}
	}

	stats.Duration = time.Since(start)
	logging.Info().
		Int("rows", stats.Rows).
		Int("columns", stats.Columns).
		Int("queries", stats.Queries).
		Dur("duration", stats.Duration).
		Msg("Pipeline run complete")
	return stats, nil
}

// precomputeAll runs the engine over the cross product of all users,
// categories, and occasions seen in the table and persists the results.
func (r *Runner) precomputeAll(ctx context.Context, tbl *table.Table, stats *Stats) error {
	users := distinct(tbl, feature.ColUserID)
	categories := distinct(tbl, feature.ColCategory)
	occasions := distinct(tbl, feature.ColRentedFor)

	if err := r.store.ClearRecommendations(ctx); err != nil {
		return err
	}

	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, category := range categories {
			for _, occasion := range occasions {
				recs, err := r.engine.Recommend(user, occasion, category, r.engine.DefaultTopN())
				if err != nil {
					return fmt.Errorf("query for user %s failed: %w", user, err)
				}
				stats.Queries++
				if len(recs) == 0 {
					logging.Debug().
						Str("user", user).
						Str("category", category).
						Str("occasion", occasion).
						Msg("No recommendations for combination")
					continue
				}
				if err := r.store.SaveRecommendations(ctx, user, occasion, category, recs); err != nil {
					return err
				}
				stats.Recommendations += len(recs)
			}
		}
	}

	logging.Info().
		Int("users", len(users)).
		Int("categories", len(categories)).
		Int("occasions", len(occasions)).
		Int("persisted", stats.Recommendations).
		Msg("Batch recommendations precomputed")
	return nil
}

func distinct(tbl *table.Table, name string) []string {
	col, ok := tbl.Column(name)
	if !ok {
		return nil
	}
	return col.DistinctSorted()
}
