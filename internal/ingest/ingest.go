// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package ingest reads raw rental review dumps (newline-delimited JSON,
// optionally gzip-compressed) into a columnar table for the feature
// pipeline. Unknown JSON fields are ignored; malformed lines are skipped
// and counted rather than aborting the batch.
package ingest

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rentrank/rentrank/internal/feature"
	"github.com/rentrank/rentrank/internal/logging"
	"github.com/rentrank/rentrank/internal/table"
)

// ErrRawDataNotFound is returned when the configured raw data file does
// not exist.
var ErrRawDataNotFound = errors.New("raw data file not found")

// Stats summarizes one ingestion pass.
type Stats struct {
	// Lines is the number of input lines seen, including skipped ones.
	Lines int

	// Skipped is the number of malformed lines dropped.
	Skipped int
}

// rawRecord mirrors the review dump's JSON schema. The dump encodes most
// numeric fields as strings, so everything is read as text and converted
// during column assembly.
type rawRecord struct {
	UserID        json.RawMessage `json:"user_id"`
	ItemID        json.RawMessage `json:"item_id"`
	Category      *string         `json:"category"`
	RentedFor     *string         `json:"rented for"`
	Fit           *string         `json:"fit"`
	BodyType      *string         `json:"body type"`
	BustSize      *string         `json:"bust size"`
	Size          json.RawMessage `json:"size"`
	Age           json.RawMessage `json:"age"`
	Weight        *string         `json:"weight"`
	Height        *string         `json:"height"`
	Rating        json.RawMessage `json:"rating"`
	ReviewText    *string         `json:"review_text"`
	ReviewSummary *string         `json:"review_summary"`
	ReviewDate    *string         `json:"review_date"`
}

// stringAcc accumulates a nullable string column. Pointer fields keep an
// explicitly empty JSON string distinct from an absent field: only the
// latter becomes null.
type stringAcc struct {
	vals  []string
	valid []bool
}

func (a *stringAcc) add(v string, ok bool) {
	a.vals = append(a.vals, v)
	a.valid = append(a.valid, ok)
}

func (a *stringAcc) addPtr(p *string) {
	if p == nil {
		a.add("", false)
		return
	}
	a.add(*p, true)
}

// floatAcc accumulates a nullable numeric column.
type floatAcc struct {
	vals  []float64
	valid []bool
}

func (a *floatAcc) add(v float64, ok bool) {
	a.vals = append(a.vals, v)
	a.valid = append(a.valid, ok)
}

// ReadFile opens path and reads it as a review dump. Files ending in .gz
// are decompressed transparently.
func ReadFile(ctx context.Context, path string) (*table.Table, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRawDataNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to open raw data: %w", err)
	}
	defer closeQuietly(f, "raw data file")

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer closeQuietly(gz, "gzip reader")
		r = gz
	}

	return Read(ctx, r)
}

// Read consumes newline-delimited JSON review records from r and assembles
// the raw interaction table.
func Read(ctx context.Context, r io.Reader) (*table.Table, *Stats, error) {
	var (
		stats    Stats
		userID   stringAcc
		itemID   stringAcc
		category stringAcc
		occasion stringAcc
		fit      stringAcc
		bodyType stringAcc
		bustSize stringAcc
		weight   stringAcc
		height   stringAcc
		text     stringAcc
		summary  stringAcc
		date     stringAcc
		size     floatAcc
		age      floatAcc
		rating   floatAcc
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		stats.Lines++
		line := scanner.Bytes()
		if len(line) == 0 {
			stats.Skipped++
			continue
		}

		var rec rawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Skipped++
			logging.Debug().Int("line", stats.Lines).Err(err).Msg("Skipping malformed record")
			continue
		}

		userID.add(rawToString(rec.UserID))
		itemID.add(rawToString(rec.ItemID))
		category.addPtr(rec.Category)
		occasion.addPtr(rec.RentedFor)
		fit.addPtr(rec.Fit)
		bodyType.addPtr(rec.BodyType)
		bustSize.addPtr(rec.BustSize)
		weight.addPtr(rec.Weight)
		height.addPtr(rec.Height)
		text.addPtr(rec.ReviewText)
		summary.addPtr(rec.ReviewSummary)
		date.addPtr(rec.ReviewDate)
		size.add(rawToFloat(rec.Size))
		age.add(rawToFloat(rec.Age))
		rating.add(rawToFloat(rec.Rating))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read raw data: %w", err)
	}

	n := stats.Lines - stats.Skipped
	tbl := table.New(n)
	cols := []*table.Column{
		table.NewStringColumn(feature.ColUserID, userID.vals, userID.valid),
		table.NewStringColumn(feature.ColItemID, itemID.vals, itemID.valid),
		table.NewStringColumn(feature.ColCategory, category.vals, category.valid),
		table.NewStringColumn(feature.ColRentedFor, occasion.vals, occasion.valid),
		table.NewStringColumn(feature.ColFit, fit.vals, fit.valid),
		table.NewStringColumn(feature.ColBodyType, bodyType.vals, bodyType.valid),
		table.NewStringColumn(feature.ColBustSize, bustSize.vals, bustSize.valid),
		table.NewStringColumn(feature.ColWeight, weight.vals, weight.valid),
		table.NewStringColumn(feature.ColHeight, height.vals, height.valid),
		table.NewStringColumn(feature.ColReviewText, text.vals, text.valid),
		table.NewStringColumn(feature.ColReviewSummary, summary.vals, summary.valid),
		table.NewStringColumn(feature.ColReviewDate, date.vals, date.valid),
		table.NewFloatColumn(feature.ColSize, size.vals, size.valid),
		table.NewFloatColumn("age", age.vals, age.valid),
		table.NewFloatColumn(feature.ColRating, rating.vals, rating.valid),
	}
	for _, col := range cols {
		if err := tbl.AddColumn(col); err != nil {
			return nil, nil, fmt.Errorf("failed to assemble table: %w", err)
		}
	}

	logging.Info().
		Int("lines", stats.Lines).
		Int("skipped", stats.Skipped).
		Int("rows", n).
		Msg("Raw data ingested")

	return tbl, &stats, nil
}

// rawToString normalizes a JSON value that may arrive as a string or a
// number into its canonical string form. ok is false for an absent field or
// an unusable value.
func rawToString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// rawToFloat parses a JSON value that may arrive as a number or a numeric
// string.
func rawToFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			return v, true
		}
	}
	return 0, false
}

func closeQuietly(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Str("resource", what).Msg("Failed to close resource")
	}
}
