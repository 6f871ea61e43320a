// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package recommend ranks catalog items for a user by cosine similarity
// between the user's mean feature vector and the feature rows of reviews
// matching the requested occasion and category.
package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/table"
)

var (
	// ErrNotLoaded is returned when Recommend is called before an
	// interaction table has been loaded.
	ErrNotLoaded = errors.New("interaction table not loaded")

	// ErrInvalidTopN is returned for non-positive result limits.
	ErrInvalidTopN = errors.New("top_n must be a positive integer")
)

// priorityFeatures is the ordered set of engineered columns compared during
// similarity scoring. Columns absent from the loaded table are skipped; the
// same ordering is used for the user vector and every item row.
var priorityFeatures = []string{
	feature.ColFitEncoded,
	feature.ColBustCupEncoded,
	feature.ColBustBand,
	feature.ColBMI,
	feature.ColSizeEncoded,
	feature.ColDaysSince,
	feature.ColReviewLength,
	feature.ColPositiveWords,
	feature.ColNegativeWords,
	feature.ColBodyType + "_encoded",
	feature.ColRentedFor + "_encoded",
	feature.ColCategory + "_encoded",
}

// Engine answers recommendation queries against an immutable interaction
// table. The table is swapped atomically on reload, so queries in flight
// always see a consistent snapshot.
type Engine struct {
	defaultTopN int
	tbl         atomic.Pointer[table.Table]
}

// NewEngine creates an engine with the given default result limit, used when
// a request does not specify one.
func NewEngine(defaultTopN int) *Engine {
	if defaultTopN <= 0 {
		defaultTopN = 5
	}
	return &Engine{defaultTopN: defaultTopN}
}

// Load installs a new interaction table. Safe to call concurrently with
// Recommend.
func (e *Engine) Load(tbl *table.Table) {
	e.tbl.Store(tbl)
	if tbl != nil {
		logging.Info().
			Int("rows", tbl.NumRows()).
			Int("columns", tbl.NumCols()).
			Msg("Interaction table loaded")
	}
}

// Loaded reports whether an interaction table is available.
func (e *Engine) Loaded() bool { return e.tbl.Load() != nil }

// DefaultTopN returns the engine's default result limit.
func (e *Engine) DefaultTopN() int { return e.defaultTopN }

// Recommend ranks items reviewed for the given occasion and category by
// similarity to userID's profile. A non-positive topN is rejected with
// ErrInvalidTopN; callers wanting the configured default pass DefaultTopN.
// An unknown user or an empty filter result yields an empty slice, not an
// error.
func (e *Engine) Recommend(userID, occasion, category string, topN int) ([]Recommendation, error) {
	tbl := e.tbl.Load()
	if tbl == nil {
		return nil, ErrNotLoaded
	}

	if topN < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}

	filtered := filterRows(tbl, occasion, category)
	if len(filtered) == 0 {
		return []Recommendation{}, nil
	}

	features := featureSet(tbl)
	if len(features) == 0 {
		return []Recommendation{}, nil
	}

	profile, found := userProfile(tbl, userID, features)
	if !found {
		return []Recommendation{}, nil
	}

	scores := make([]float64, len(filtered))
	row := make([]float64, len(features))
	for i, r := range filtered {
		for j, col := range features {
			v, ok := col.Float(r)
			if !ok {
				v = 0
			}
			row[j] = v
		}
		scores[i] = cosineSimilarity(profile, row)
	}

	recs := aggregate(tbl, filtered, scores)

	// Stable sort keeps ties in filtered-row order, which makes results
	// reproducible for identical inputs.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SimilarityScore > recs[j].SimilarityScore
	})

	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

// Options returns the distinct categories and occasions present in the
// loaded table.
func (e *Engine) Options() (CatalogOptions, error) {
	tbl := e.tbl.Load()
	if tbl == nil {
		return CatalogOptions{}, ErrNotLoaded
	}

	opts := CatalogOptions{Users: []string{}, Categories: []string{}, Occasions: []string{}}
	if col, ok := tbl.Column(feature.ColUserID); ok {
		opts.Users = col.DistinctSorted()
	}
	if col, ok := tbl.Column(feature.ColCategory); ok {
		opts.Categories = col.DistinctSorted()
	}
	if col, ok := tbl.Column(feature.ColRentedFor); ok {
		opts.Occasions = col.DistinctSorted()
	}
	return opts, nil
}

// filterRows returns the indices of rows matching the occasion and category
// exactly, in table order.
func filterRows(tbl *table.Table, occasion, category string) []int {
	rentedFor, okR := tbl.Column(feature.ColRentedFor)
	categoryCol, okC := tbl.Column(feature.ColCategory)
	if !okR || !okC {
		return nil
	}

	var rows []int
	for i := 0; i < tbl.NumRows(); i++ {
		r, ok := rentedFor.String(i)
		if !ok || r != occasion {
			continue
		}
		c, ok := categoryCol.String(i)
		if !ok || c != category {
			continue
		}
		rows = append(rows, i)
	}
	return rows
}

// featureSet resolves the similarity columns present in the table: the
// priority list first, then every embedding column in table order.
func featureSet(tbl *table.Table) []*table.Column {
	var cols []*table.Column
	for _, name := range priorityFeatures {
		if col, ok := tbl.Column(name); ok && col.Kind() == table.KindFloat {
			cols = append(cols, col)
		}
	}
	for _, name := range tbl.Names() {
		if !strings.HasPrefix(name, feature.EmbeddingPrefix) {
			continue
		}
		if col, ok := tbl.Column(name); ok && col.Kind() == table.KindFloat {
			cols = append(cols, col)
		}
	}
	return cols
}

// userProfile computes the column-wise mean of the user's rows over the
// feature set. Features with no observed values for the user contribute 0.
// The second return is false when the user has no rows at all.
func userProfile(tbl *table.Table, userID string, features []*table.Column) ([]float64, bool) {
	userCol, ok := tbl.Column(feature.ColUserID)
	if !ok {
		return nil, false
	}

	sums := make([]float64, len(features))
	counts := make([]int, len(features))
	found := false
	for i := 0; i < tbl.NumRows(); i++ {
		u, ok := userCol.String(i)
		if !ok || u != userID {
			continue
		}
		found = true
		for j, col := range features {
			if v, ok := col.Float(i); ok {
				sums[j] += v
				counts[j]++
			}
		}
	}
	if !found {
		return nil, false
	}

	profile := make([]float64, len(features))
	for j := range features {
		if counts[j] > 0 {
			profile[j] = sums[j] / float64(counts[j])
		}
	}
	return profile, true
}

// cosineSimilarity returns u.v / (|u| |v|), or 0 when either norm is 0.
func cosineSimilarity(u, v []float64) float64 {
	var dot, normU, normV float64
	for i := range u {
		dot += u[i] * v[i]
		normU += u[i] * u[i]
		normV += v[i] * v[i]
	}
	if normU == 0 || normV == 0 {
		return 0
	}
	return dot / (math.Sqrt(normU) * math.Sqrt(normV))
}

type itemGroup struct {
	rec        Recommendation
	ratingSum  float64
	ratingRows int
}

// aggregate groups the scored rows by item_id, keeping first-encounter
// group order. Per group: mean rating, row count, max similarity, and the
// category and occasion of the first row seen.
func aggregate(tbl *table.Table, rows []int, scores []float64) []Recommendation {
	itemCol, ok := tbl.Column(feature.ColItemID)
	if !ok {
		return nil
	}
	ratingCol, _ := tbl.Column(feature.ColRating)
	categoryCol, _ := tbl.Column(feature.ColCategory)
	rentedForCol, _ := tbl.Column(feature.ColRentedFor)

	groups := make(map[int]*itemGroup)
	var order []int
	for i, r := range rows {
		id, ok := itemIDAt(itemCol, r)
		if !ok {
			logging.Debug().Int("row", r).Msg("Skipping row with unparseable item_id")
			continue
		}

		g, seen := groups[id]
		if !seen {
			g = &itemGroup{rec: Recommendation{ItemID: id}}
			if categoryCol != nil {
				g.rec.Category, _ = categoryCol.String(r)
			}
			if rentedForCol != nil {
				g.rec.RentedFor, _ = rentedForCol.String(r)
			}
			groups[id] = g
			order = append(order, id)
		}

		g.rec.ReviewCount++
		if ratingCol != nil {
			if v, ok := ratingCol.Float(r); ok {
				g.ratingSum += v
				g.ratingRows++
			}
		}
		if scores[i] > g.rec.SimilarityScore || g.rec.ReviewCount == 1 {
			g.rec.SimilarityScore = scores[i]
		}
	}

	recs := make([]Recommendation, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if g.ratingRows > 0 {
			g.rec.AverageRating = g.ratingSum / float64(g.ratingRows)
		}
		recs = append(recs, g.rec)
	}
	return recs
}

// itemIDAt reads an item identifier as an integer regardless of whether the
// column was ingested as numeric or string data.
func itemIDAt(col *table.Column, i int) (int, bool) {
	switch col.Kind() {
	case table.KindFloat:
		v, ok := col.Float(i)
		if !ok {
			return 0, false
		}
		return int(v), true
	case table.KindString:
		s, ok := col.String(i)
		if !ok {
			return 0, false
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
