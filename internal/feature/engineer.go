// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package feature transforms a raw review table into the fully engineered
// interaction table consumed by the similarity engine.
//
// The pipeline runs a fixed sequence of steps: sparse-column pruning,
// categorical and numeric imputation, review-text normalization, feature
// engineering, optional min-max scaling, and optional text embedding. Every
// step is total over the table; malformed cells degrade to nulls and never
// abort a batch.
package feature

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rentrank/rentrank/internal/embed"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/table"
	"github.com/rentrank/rentrank/internal/textnorm"
)

// Column names shared between the pipeline, the store, and the similarity
// engine. These names are the contract of the persisted interaction table.
const (
	ColUserID        = "user_id"
	ColItemID        = "item_id"
	ColCategory      = "category"
	ColRentedFor     = "rented_for"
	ColFit           = "fit"
	ColBodyType      = "body_type"
	ColBustSize      = "bust_size"
	ColSize          = "size"
	ColWeight        = "weight"
	ColHeight        = "height"
	ColRating        = "rating"
	ColReviewText    = "review_text"
	ColReviewSummary = "review_summary"
	ColReviewDate    = "review_date"

	ColFullReview     = "full_review"
	ColFitEncoded     = "fit_encoded"
	ColWeightNumeric  = "weight_numeric"
	ColHeightInches   = "height_inches"
	ColBMI            = "BMI"
	ColBustBand       = "bust_band"
	ColBustCup        = "bust_cup"
	ColBustCupEncoded = "bust_cup_encoded"
	ColSizeEncoded    = "size_encoded"
	ColDaysSince      = "days_since_review"
	ColReviewLength   = "review_length"
	ColPositiveWords  = "positive_word_count"
	ColNegativeWords  = "negative_word_count"

	// EmbeddingPrefix prefixes the dense text-embedding columns
	// (text_emb_0 .. text_emb_{D-1}).
	EmbeddingPrefix = "text_emb_"
)

// fitCodes maps the three known fit labels to their ordinal codes. Any other
// label stays missing; fit is never inferred.
var fitCodes = map[string]float64{
	"small": 0,
	"fit":   1,
	"large": 2,
}

// Config controls the pipeline.
type Config struct {
	// PresenceThreshold is the strict lower bound on a column's non-null
	// fraction; columns at or below it are dropped. Default 0.5.
	PresenceThreshold float64

	// ScaleColumns lists numeric columns to min-max normalize to [0,1].
	// Absent columns are skipped.
	ScaleColumns []string

	// ReferenceTime anchors days_since_review. Defaults to time.Now at
	// pipeline start so a batch is internally consistent.
	ReferenceTime time.Time
}

// Engineer runs the feature-engineering pipeline.
type Engineer struct {
	cfg      Config
	provider embed.Provider
}

// NewEngineer creates a pipeline. provider may be nil to skip the embedding
// step.
func NewEngineer(cfg Config, provider embed.Provider) *Engineer {
	if cfg.PresenceThreshold == 0 {
		cfg.PresenceThreshold = 0.5
	}
	return &Engineer{cfg: cfg, provider: provider}
}

// Run applies every pipeline step in order, mutating tbl in place.
func (e *Engineer) Run(ctx context.Context, tbl *table.Table) error {
	ref := e.cfg.ReferenceTime
	if ref.IsZero() {
		ref = time.Now()
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"drop_sparse_columns", func() error { e.DropSparseColumns(tbl); return nil }},
		{"impute_categorical", func() error { e.ImputeCategorical(tbl); return nil }},
		{"impute_numeric", func() error { e.ImputeNumeric(tbl); return nil }},
		{"clean_review_text", func() error { e.CleanReviewText(tbl); return nil }},
		{"engineer_features", func() error { return e.EngineerFeatures(tbl, ref) }},
		{"scale_numeric", func() error { e.ScaleMinMax(tbl, e.cfg.ScaleColumns); return nil }},
		{"embed_reviews", func() error { return e.EmbedReviews(ctx, tbl) }},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := step.fn(); err != nil {
			return fmt.Errorf("pipeline step %s: %w", step.name, err)
		}
		logging.Debug().
			Str("step", step.name).
			Int("columns", tbl.NumCols()).
			Msg("Pipeline step completed")
	}
	return nil
}

// DropSparseColumns removes every column whose non-null fraction does not
// strictly exceed the presence threshold. A column with exactly half of its
// cells present is dropped.
func (e *Engineer) DropSparseColumns(tbl *table.Table) {
	var sparse []string
	for _, c := range tbl.Columns() {
		if c.PresentFraction() <= e.cfg.PresenceThreshold {
			sparse = append(sparse, c.Name())
		}
	}
	for _, name := range sparse {
		tbl.Drop(name)
	}
	if len(sparse) > 0 {
		logging.Debug().Strs("columns", sparse).Msg("Dropped sparse columns")
	}
}

// ImputeCategorical fills nulls in every string column with that column's
// most frequent value. Columns that are entirely null are left untouched.
func (e *Engineer) ImputeCategorical(tbl *table.Table) {
	for _, c := range tbl.Columns() {
		if c.Kind() != table.KindString {
			continue
		}
		mode, ok := c.Mode()
		if !ok {
			continue
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsValid(i) {
				c.SetString(i, mode)
			}
		}
	}
}

// ImputeNumeric fills nulls in every float column with that column's median.
// Columns that are entirely null are left untouched.
func (e *Engineer) ImputeNumeric(tbl *table.Table) {
	for _, c := range tbl.Columns() {
		if c.Kind() != table.KindFloat {
			continue
		}
		median, ok := c.Median()
		if !ok {
			continue
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsValid(i) {
				c.SetFloat(i, median)
			}
		}
	}
}

// CleanReviewText normalizes the raw review-text column in place, treating
// nulls as empty strings.
func (e *Engineer) CleanReviewText(tbl *table.Table) {
	c, ok := tbl.Column(ColReviewText)
	if !ok || c.Kind() != table.KindString {
		return
	}
	for i := 0; i < c.Len(); i++ {
		s, _ := c.String(i)
		c.SetString(i, textnorm.Clean(s))
	}
}

// EngineerFeatures derives the numeric interaction features from the raw
// columns. A derived column is created if and only if its source column
// exists. Per-row parse failures become nulls.
func (e *Engineer) EngineerFeatures(tbl *table.Table, ref time.Time) error {
	n := tbl.NumRows()

	if tbl.Has(ColReviewText) && tbl.Has(ColReviewSummary) {
		if err := e.synthesizeFullReview(tbl); err != nil {
			return err
		}
	}

	if src, ok := tbl.Column(ColFit); ok {
		vals, valid := make([]float64, n), make([]bool, n)
		for i := 0; i < n; i++ {
			if s, ok := src.String(i); ok {
				if code, known := fitCodes[s]; known {
					vals[i], valid[i] = code, true
				}
			}
		}
		if err := tbl.AddColumn(table.NewFloatColumn(ColFitEncoded, vals, valid)); err != nil {
			return err
		}
	}

	if src, ok := tbl.Column(ColWeight); ok {
		vals, valid := make([]float64, n), make([]bool, n)
		for i := 0; i < n; i++ {
			if s, ok := src.String(i); ok {
				if w, parsed := parseWeight(s); parsed {
					vals[i], valid[i] = w, true
				}
			}
		}
		if err := tbl.AddColumn(table.NewFloatColumn(ColWeightNumeric, vals, valid)); err != nil {
			return err
		}
	}

	if src, ok := tbl.Column(ColHeight); ok {
		vals, valid := make([]float64, n), make([]bool, n)
		for i := 0; i < n; i++ {
			if s, ok := src.String(i); ok {
				if h, parsed := parseHeight(s); parsed {
					vals[i], valid[i] = float64(h), true
				}
			}
		}
		if err := tbl.AddColumn(table.NewFloatColumn(ColHeightInches, vals, valid)); err != nil {
			return err
		}
	}

	if tbl.Has(ColWeightNumeric) && tbl.Has(ColHeightInches) {
		if err := e.computeBMI(tbl); err != nil {
			return err
		}
	}

	if tbl.Has(ColBustSize) {
		if err := e.parseBust(tbl); err != nil {
			return err
		}
	}

	if src, ok := tbl.Column(ColReviewDate); ok {
		vals, valid := make([]float64, n), make([]bool, n)
		for i := 0; i < n; i++ {
			if s, ok := src.String(i); ok {
				if ts, parsed := parseReviewDate(s); parsed {
					vals[i] = float64(int(ref.Sub(ts).Hours() / 24))
					valid[i] = true
				}
			}
		}
		if err := tbl.AddColumn(table.NewFloatColumn(ColDaysSince, vals, valid)); err != nil {
			return err
		}
	}

	if tbl.Has(ColFullReview) {
		if err := e.reviewTextFeatures(tbl); err != nil {
			return err
		}
	}

	for _, src := range []string{ColBodyType, ColRentedFor, ColCategory, ColSize} {
		if !tbl.Has(src) {
			continue
		}
		if err := encodeLabels(tbl, src); err != nil {
			return err
		}
	}

	return nil
}

// synthesizeFullReview concatenates summary and body, treating nulls as
// empty. The result is always present, possibly empty.
func (e *Engineer) synthesizeFullReview(tbl *table.Table) error {
	text, _ := tbl.Column(ColReviewText)
	summary, _ := tbl.Column(ColReviewSummary)

	n := tbl.NumRows()
	vals := make([]string, n)
	for i := 0; i < n; i++ {
		s, _ := summary.String(i)
		b, _ := text.String(i)
		vals[i] = trimJoin(s, b)
	}
	return tbl.AddColumn(table.NewStringColumn(ColFullReview, vals, nil))
}

// trimJoin joins summary and body with a single space; when both are empty
// the result is the empty string, never a lone separator.
func trimJoin(a, b string) string {
	return strings.TrimSpace(a + " " + b)
}

// computeBMI derives BMI from parsed weight and height. The value exists
// only when both are present and positive; everything else stays null.
func (e *Engineer) computeBMI(tbl *table.Table) error {
	weight, _ := tbl.Column(ColWeightNumeric)
	height, _ := tbl.Column(ColHeightInches)

	n := tbl.NumRows()
	vals, valid := make([]float64, n), make([]bool, n)
	for i := 0; i < n; i++ {
		w, wok := weight.Float(i)
		h, hok := height.Float(i)
		if wok && hok && w > 0 && h > 0 {
			vals[i] = w / (h * h) * 703
			valid[i] = true
		}
	}
	return tbl.AddColumn(table.NewFloatColumn(ColBMI, vals, valid))
}

// parseBust derives bust_band, bust_cup, and bust_cup_encoded from the raw
// bust-size column. bust_cup_encoded is never null: unmapped or absent cups
// encode as a true zero, unlike the null semantics of the other parsers.
func (e *Engineer) parseBust(tbl *table.Table) error {
	src, _ := tbl.Column(ColBustSize)
	n := tbl.NumRows()

	bands, bandValid := make([]float64, n), make([]bool, n)
	cups, cupValid := make([]string, n), make([]bool, n)
	codes := make([]float64, n)

	for i := 0; i < n; i++ {
		s, ok := src.String(i)
		if !ok {
			continue
		}
		if band, parsed := parseBustBand(s); parsed {
			bands[i], bandValid[i] = band, true
		}
		if cup, parsed := parseBustCup(s); parsed {
			cups[i], cupValid[i] = cup, true
			codes[i] = cupCodes[cup] // unmapped cup stays 0
		}
	}

	if err := tbl.AddColumn(table.NewFloatColumn(ColBustBand, bands, bandValid)); err != nil {
		return err
	}
	if err := tbl.AddColumn(table.NewStringColumn(ColBustCup, cups, cupValid)); err != nil {
		return err
	}
	return tbl.AddColumn(table.NewFloatColumn(ColBustCupEncoded, codes, nil))
}

// reviewTextFeatures derives review_length and the sentiment word counts
// from full_review.
func (e *Engineer) reviewTextFeatures(tbl *table.Table) error {
	src, _ := tbl.Column(ColFullReview)
	n := tbl.NumRows()

	lengths := make([]float64, n)
	positives := make([]float64, n)
	negatives := make([]float64, n)
	for i := 0; i < n; i++ {
		s, _ := src.String(i)
		lengths[i] = float64(utf8.RuneCountInString(s))
		positives[i] = float64(countWords(s, positiveWords))
		negatives[i] = float64(countWords(s, negativeWords))
	}

	if err := tbl.AddColumn(table.NewFloatColumn(ColReviewLength, lengths, nil)); err != nil {
		return err
	}
	if err := tbl.AddColumn(table.NewFloatColumn(ColPositiveWords, positives, nil)); err != nil {
		return err
	}
	return tbl.AddColumn(table.NewFloatColumn(ColNegativeWords, negatives, nil))
}

// encodeLabels label-encodes a categorical column into <name>_encoded.
// Codes are assigned by sorted order of the distinct values (lexicographic
// for strings, numeric otherwise), so the same value set always produces the
// same mapping.
func encodeLabels(tbl *table.Table, src string) error {
	c, ok := tbl.Column(src)
	if !ok {
		return nil
	}

	n := tbl.NumRows()
	vals, valid := make([]float64, n), make([]bool, n)

	switch c.Kind() {
	case table.KindString:
		codes := make(map[string]float64)
		for i, v := range c.DistinctSorted() {
			codes[v] = float64(i)
		}
		for i := 0; i < n; i++ {
			if s, ok := c.String(i); ok {
				vals[i], valid[i] = codes[s], true
			}
		}
	case table.KindFloat:
		seen := make(map[float64]struct{})
		var distinct []float64
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				if _, dup := seen[v]; !dup {
					seen[v] = struct{}{}
					distinct = append(distinct, v)
				}
			}
		}
		sort.Float64s(distinct)
		codes := make(map[float64]float64, len(distinct))
		for i, v := range distinct {
			codes[v] = float64(i)
		}
		for i := 0; i < n; i++ {
			if v, ok := c.Float(i); ok {
				vals[i], valid[i] = codes[v], true
			}
		}
	default:
		return nil
	}

	return tbl.AddColumn(table.NewFloatColumn(src+"_encoded", vals, valid))
}

// ScaleMinMax normalizes the listed float columns to [0,1] independently.
// A constant column maps to 0 for every row. Nulls stay null.
func (e *Engineer) ScaleMinMax(tbl *table.Table, cols []string) {
	for _, name := range cols {
		c, ok := tbl.Column(name)
		if !ok || c.Kind() != table.KindFloat {
			continue
		}

		var minV, maxV float64
		first := true
		for i := 0; i < c.Len(); i++ {
			v, ok := c.Float(i)
			if !ok {
				continue
			}
			if first {
				minV, maxV = v, v
				first = false
				continue
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		if first {
			continue // entirely null
		}

		span := maxV - minV
		for i := 0; i < c.Len(); i++ {
			v, ok := c.Float(i)
			if !ok {
				continue
			}
			if span == 0 {
				c.SetFloat(i, 0)
			} else {
				c.SetFloat(i, (v-minV)/span)
			}
		}
	}
}

// EmbedReviews appends text_emb_* columns computed from full_review by the
// configured provider. The step is skipped when no provider is configured or
// the table has no full_review column.
func (e *Engineer) EmbedReviews(ctx context.Context, tbl *table.Table) error {
	if e.provider == nil {
		return nil
	}
	src, ok := tbl.Column(ColFullReview)
	if !ok {
		return nil
	}

	n := tbl.NumRows()
	texts := make([]string, n)
	for i := 0; i < n; i++ {
		texts[i], _ = src.String(i)
	}

	logging.Info().Int("rows", n).Msg("Generating text embeddings")
	matrix, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed reviews: %w", err)
	}
	if len(matrix) != n {
		return fmt.Errorf("embed reviews: provider returned %d vectors for %d rows", len(matrix), n)
	}
	if n == 0 {
		return nil
	}

	dims := len(matrix[0])
	for d := 0; d < dims; d++ {
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			if len(matrix[i]) != dims {
				return fmt.Errorf("embed reviews: ragged embedding matrix at row %d", i)
			}
			vals[i] = matrix[i][d]
		}
		name := fmt.Sprintf("%s%d", EmbeddingPrefix, d)
		if err := tbl.AddColumn(table.NewFloatColumn(name, vals, nil)); err != nil {
			return err
		}
	}
	logging.Debug().Int("dimensions", dims).Msg("Embedding columns appended")
	return nil
}
