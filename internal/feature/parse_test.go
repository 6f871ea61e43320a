// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package feature

import (
	"testing"
	"time"
)

func TestParseWeight(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"137lbs", 137, true},
		{"100lbs", 100, true},
		{"145", 145, true},
		{" 120lbs ", 120, true},
		{"", 0, false},
		{"heavy", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseWeight(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseWeight(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseHeight(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{`5' 8"`, 68, true},
		{`5' 0"`, 60, true},
		{`6' 1"`, 73, true},
		{"", 0, false},
		{"tall", 0, false},
		{`5'`, 0, false},
		{`-5' 8"`, 0, false},
		{`5' -8"`, 0, false},
		{`+5' 8"`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseHeight(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseHeight(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseBust(t *testing.T) {
	tests := []struct {
		in       string
		wantBand float64
		bandOK   bool
		wantCup  string
		cupOK    bool
	}{
		{"34d", 34, true, "d", true},
		{"36dd+", 36, true, "dd", true},
		{"36ddd/e", 36, true, "e", true},
		{"32aa", 32, true, "aa", true},
		{"38D", 38, true, "d", true},
		{"", 0, false, "", false},
		{"unknown", 0, false, "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			band, bandOK := parseBustBand(tt.in)
			if bandOK != tt.bandOK || band != tt.wantBand {
				t.Errorf("parseBustBand(%q) = %v, %v; want %v, %v", tt.in, band, bandOK, tt.wantBand, tt.bandOK)
			}
			cup, cupOK := parseBustCup(tt.in)
			if cupOK != tt.cupOK || cup != tt.wantCup {
				t.Errorf("parseBustCup(%q) = %q, %v; want %q, %v", tt.in, cup, cupOK, tt.wantCup, tt.cupOK)
			}
		})
	}
}

func TestCupCodes(t *testing.T) {
	// The fixed cup ladder: aa sits below a, dd and ddd extend d.
	want := map[string]float64{
		"aa": 0.5, "a": 1, "b": 2, "c": 3, "d": 4, "dd": 5, "ddd": 6, "f": 7,
	}
	for cup, code := range want {
		if cupCodes[cup] != code {
			t.Errorf("cupCodes[%q] = %v, want %v", cup, cupCodes[cup], code)
		}
	}
	if _, ok := cupCodes["zz"]; ok {
		t.Error("unexpected mapping for unknown cup")
	}
}

func TestParseReviewDate(t *testing.T) {
	got, ok := parseReviewDate("April 20, 2016")
	if !ok {
		t.Fatal("parseReviewDate() failed for valid date")
	}
	want := time.Date(2016, time.April, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseReviewDate() = %v, want %v", got, want)
	}

	if _, ok := parseReviewDate("2016-04-20"); ok {
		t.Error("parseReviewDate() should reject ISO dates")
	}
	if _, ok := parseReviewDate(""); ok {
		t.Error("parseReviewDate() should reject empty input")
	}
}
