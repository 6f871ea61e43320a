// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/recommend"
	"github.com/rentrank/rentrank/internal/store"
)

const sampleDump = `{"fit": "fit", "user_id": "1", "item_id": "100", "rating": "10", "rented for": "party", "category": "dress", "size": 8, "review_text": "perfect fit", "review_summary": "loved it", "review_date": "April 20, 2016"}
{"fit": "small", "user_id": "1", "item_id": "200", "rating": "8", "rented for": "party", "category": "dress", "size": 8, "review_text": "ran small", "review_summary": "tight", "review_date": "May 1, 2016"}
{"fit": "fit", "user_id": "2", "item_id": "100", "rating": "6", "rented for": "party", "category": "dress", "size": 12, "review_text": "just fine", "review_summary": "ok", "review_date": "May 3, 2016"}
{"fit": "large", "user_id": "2", "item_id": "200", "rating": "4", "rented for": "wedding", "category": "gown", "size": 12, "review_text": "too big", "review_summary": "baggy", "review_date": "May 9, 2016"}
`

func newTestRunner(t *testing.T, precompute bool) (*Runner, *recommend.Engine, *store.Store) {
	t.Helper()

	dir := t.TempDir()
	rawPath := filepath.Join(dir, "reviews.json")
	if err := os.WriteFile(rawPath, []byte(sampleDump), 0o600); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	st, err := store.Open(filepath.Join(dir, "rentrank.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("store.Close() error = %v", err)
		}
	})

	engineer := feature.NewEngineer(feature.Config{}, nil)
	engine := recommend.NewEngine(5)
	return NewRunner(rawPath, engineer, st, engine, precompute), engine, st
}

func TestRunLoadsEngine(t *testing.T) {
	runner, engine, _ := newTestRunner(t, false)

	stats, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.IngestLines != 4 || stats.IngestSkipped != 0 {
		t.Errorf("ingest stats = %d lines %d skipped, want 4 and 0", stats.IngestLines, stats.IngestSkipped)
	}
	if stats.Rows != 4 {
		t.Errorf("stats.Rows = %d, want 4", stats.Rows)
	}
	if !engine.Loaded() {
		t.Fatal("engine should be loaded after a successful run")
	}

	recs, err := engine.Recommend("1", "party", "dress", 5)
	if err != nil {
		t.Fatalf("Recommend() after run error = %v", err)
	}
	if len(recs) == 0 {
		t.Error("expected recommendations from the engineered table")
	}
}

func TestRunPersistsInteractions(t *testing.T) {
	runner, _, st := newTestRunner(t, false)

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tbl, err := st.LoadInteractions(context.Background())
	if err != nil {
		t.Fatalf("LoadInteractions() error = %v", err)
	}
	if tbl.NumRows() != 4 {
		t.Errorf("persisted rows = %d, want 4", tbl.NumRows())
	}
	if !tbl.Has(feature.ColFitEncoded) {
		t.Error("persisted table should carry engineered columns")
	}
}

func TestRunPrecompute(t *testing.T) {
	runner, _, _ := newTestRunner(t, true)

	stats, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 2 users x 2 categories x 2 occasions.
	if stats.Queries != 8 {
		t.Errorf("stats.Queries = %d, want 8", stats.Queries)
	}
	if stats.Recommendations == 0 {
		t.Error("expected at least one persisted recommendation")
	}
}

func TestRunMissingRawData(t *testing.T) {
	runner, _, _ := newTestRunner(t, false)
	runner.rawPath = filepath.Join(t.TempDir(), "missing.json")

	if _, err := runner.Run(context.Background()); err == nil {
		t.Error("Run() = nil error, want ingestion failure")
	}
}
