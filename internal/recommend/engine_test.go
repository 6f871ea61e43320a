// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package recommend

import (
	"errors"
	"math"
	"testing"

	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/table"
)

// testTable builds an interaction table of reviews across two dress items.
// Users "1" and "2" have distinct feature profiles so similarity ordering
// is predictable.
func testTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.New(6)
	add := func(col *table.Column) {
		if err := tbl.AddColumn(col); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", col.Name(), err)
		}
	}

	add(table.NewStringColumn(feature.ColUserID,
		[]string{"1", "1", "2", "2", "3", "4"}, nil))
	add(table.NewStringColumn(feature.ColItemID,
		[]string{"100", "200", "100", "200", "100", "200"}, nil))
	add(table.NewStringColumn(feature.ColCategory,
		[]string{"dress", "dress", "dress", "dress", "gown", "dress"}, nil))
	add(table.NewStringColumn(feature.ColRentedFor,
		[]string{"party", "party", "party", "party", "party", "wedding"}, nil))
	add(table.NewFloatColumn(feature.ColRating,
		[]float64{3, 5, 5, 4, 2, 5}, nil))
	add(table.NewFloatColumn(feature.ColFitEncoded,
		[]float64{1, 1, 0, 2, 1, 1}, nil))
	add(table.NewFloatColumn(feature.ColBMI,
		[]float64{20, 20, 30, 32, 20, 20}, nil))

	return tbl
}

func TestRecommendBeforeLoad(t *testing.T) {
	e := NewEngine(5)
	if _, err := e.Recommend("1", "party", "dress", 5); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Recommend() before Load error = %v, want ErrNotLoaded", err)
	}
}

func TestRecommendInvalidTopN(t *testing.T) {
	e := NewEngine(5)
	e.Load(testTable(t))

	for _, topN := range []int{0, -1, -100} {
		recs, err := e.Recommend("1", "party", "dress", topN)
		if !errors.Is(err, ErrInvalidTopN) {
			t.Errorf("Recommend() with top_n %d error = %v, want ErrInvalidTopN", topN, err)
		}
		if len(recs) != 0 {
			t.Errorf("Recommend() with top_n %d returned %d results, want none", topN, len(recs))
		}
	}
}

func TestRecommendWithDefaultTopN(t *testing.T) {
	e := NewEngine(1)
	e.Load(testTable(t))

	recs, err := e.Recommend("1", "party", "dress", e.DefaultTopN())
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("engine default 1 should cap results at 1, got %d", len(recs))
	}
}

func TestRecommendSkipsUnparseableItemID(t *testing.T) {
	tbl := table.New(3)
	add := func(col *table.Column) {
		if err := tbl.AddColumn(col); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", col.Name(), err)
		}
	}
	add(table.NewStringColumn(feature.ColUserID, []string{"1", "1", "1"}, nil))
	add(table.NewStringColumn(feature.ColItemID, []string{"100", "junk", "200"}, nil))
	add(table.NewStringColumn(feature.ColCategory, []string{"dress", "dress", "dress"}, nil))
	add(table.NewStringColumn(feature.ColRentedFor, []string{"party", "party", "party"}, nil))
	add(table.NewFloatColumn(feature.ColRating, []float64{3, 4, 5}, nil))
	add(table.NewFloatColumn(feature.ColFitEncoded, []float64{1, 1, 1}, nil))

	e := NewEngine(5)
	e.Load(tbl)

	recs, err := e.Recommend("1", "party", "dress", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations, want 2 with the unparseable row dropped", len(recs))
	}
	for _, rec := range recs {
		if rec.ItemID != 100 && rec.ItemID != 200 {
			t.Errorf("unexpected item %d in results", rec.ItemID)
		}
	}
}

func TestRecommendEmptyFilter(t *testing.T) {
	e := NewEngine(5)
	e.Load(testTable(t))

	tests := []struct {
		name     string
		userID   string
		occasion string
		category string
	}{
		{"unknown occasion", "1", "gala", "dress"},
		{"unknown category", "1", "party", "jumpsuit"},
		{"unknown user", "999", "party", "dress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := e.Recommend(tt.userID, tt.occasion, tt.category, 5)
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(recs) != 0 {
				t.Errorf("expected empty result, got %d records", len(recs))
			}
		})
	}
}

func TestRecommendRanking(t *testing.T) {
	e := NewEngine(5)
	e.Load(testTable(t))

	// User "1" has profile [1, 20]. Item 100's party/dress rows are
	// [1, 20] (sim 1.0) and [0, 30]; item 200's are [1, 20] and [2, 32].
	recs, err := e.Recommend("1", "party", "dress", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 items, got %d", len(recs))
	}

	for _, rec := range recs {
		if math.Abs(rec.SimilarityScore-1.0) > 1e-9 {
			t.Errorf("item %d similarity = %v, want 1.0 (max over its rows)",
				rec.ItemID, rec.SimilarityScore)
		}
	}

	// Equal scores: stable sort keeps filtered-row order, item 100 first.
	if recs[0].ItemID != 100 || recs[1].ItemID != 200 {
		t.Errorf("tie order = [%d %d], want [100 200]", recs[0].ItemID, recs[1].ItemID)
	}
}

func TestRecommendAggregation(t *testing.T) {
	e := NewEngine(5)
	e.Load(testTable(t))

	recs, err := e.Recommend("1", "party", "dress", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	var item100 *Recommendation
	for i := range recs {
		if recs[i].ItemID == 100 {
			item100 = &recs[i]
		}
	}
	if item100 == nil {
		t.Fatal("item 100 missing from results")
	}

	// Item 100's party/dress rows carry ratings 3 and 5.
	if item100.AverageRating != 4 {
		t.Errorf("average_rating = %v, want 4", item100.AverageRating)
	}
	if item100.ReviewCount != 2 {
		t.Errorf("review_count = %v, want 2", item100.ReviewCount)
	}
	if item100.Category != "dress" || item100.RentedFor != "party" {
		t.Errorf("category/rented_for = %q/%q, want dress/party",
			item100.Category, item100.RentedFor)
	}
}

func TestRecommendTruncation(t *testing.T) {
	e := NewEngine(5)
	e.Load(testTable(t))

	recs, err := e.Recommend("1", "party", "dress", 1)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(recs))
	}
	if recs[0].ItemID != 100 {
		t.Errorf("top item = %d, want 100", recs[0].ItemID)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		u    []float64
		v    []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"zero left", []float64{0, 0}, []float64{1, 2}, 0.0},
		{"zero right", []float64{1, 2}, []float64{0, 0}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.u, tt.v)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity(%v, %v) = %v, want %v", tt.u, tt.v, got, tt.want)
			}
		})
	}
}

func TestFeatureSetOrdering(t *testing.T) {
	tbl := table.New(1)
	cols := []string{
		feature.EmbeddingPrefix + "0",
		feature.ColBMI,
		feature.EmbeddingPrefix + "1",
		feature.ColFitEncoded,
	}
	for _, name := range cols {
		if err := tbl.AddColumn(table.NewFloatColumn(name, []float64{1}, nil)); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", name, err)
		}
	}

	got := featureSet(tbl)
	want := []string{
		feature.ColFitEncoded,
		feature.ColBMI,
		feature.EmbeddingPrefix + "0",
		feature.EmbeddingPrefix + "1",
	}
	if len(got) != len(want) {
		t.Fatalf("feature set size = %d, want %d", len(got), len(want))
	}
	for i, col := range got {
		if col.Name() != want[i] {
			t.Errorf("feature %d = %q, want %q", i, col.Name(), want[i])
		}
	}
}

func TestUserProfileSparseFeatures(t *testing.T) {
	tbl := table.New(2)
	if err := tbl.AddColumn(table.NewStringColumn(feature.ColUserID, []string{"7", "7"}, nil)); err != nil {
		t.Fatal(err)
	}
	// All values null: the profile component falls back to 0.
	if err := tbl.AddColumn(table.NewFloatColumn(feature.ColBMI, []float64{0, 0}, []bool{false, false})); err != nil {
		t.Fatal(err)
	}
	bmi, _ := tbl.Column(feature.ColBMI)

	profile, found := userProfile(tbl, "7", []*table.Column{bmi})
	if !found {
		t.Fatal("userProfile() found = false, want true")
	}
	if profile[0] != 0 {
		t.Errorf("profile component with no observations = %v, want 0", profile[0])
	}
}

func TestOptions(t *testing.T) {
	e := NewEngine(5)
	if _, err := e.Options(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Options() before Load error = %v, want ErrNotLoaded", err)
	}

	e.Load(testTable(t))
	opts, err := e.Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}

	wantUsers := []string{"1", "2", "3", "4"}
	if len(opts.Users) != len(wantUsers) {
		t.Fatalf("users = %v, want %v", opts.Users, wantUsers)
	}
	for i, u := range wantUsers {
		if opts.Users[i] != u {
			t.Errorf("users[%d] = %q, want %q", i, opts.Users[i], u)
		}
	}

	wantCategories := []string{"dress", "gown"}
	wantOccasions := []string{"party", "wedding"}
	if len(opts.Categories) != len(wantCategories) {
		t.Fatalf("categories = %v, want %v", opts.Categories, wantCategories)
	}
	for i, c := range wantCategories {
		if opts.Categories[i] != c {
			t.Errorf("categories[%d] = %q, want %q", i, opts.Categories[i], c)
		}
	}
	for i, o := range wantOccasions {
		if opts.Occasions[i] != o {
			t.Errorf("occasions[%d] = %q, want %q", i, opts.Occasions[i], o)
		}
	}
}
