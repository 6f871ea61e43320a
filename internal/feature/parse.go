// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package feature

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// reviewDateLayout matches the marketplace export format, e.g. "June 8, 2015".
const reviewDateLayout = "January 2, 2006"

var (
	digits    = regexp.MustCompile(`\d+`)
	cupSuffix = regexp.MustCompile(`([A-Za-z]+)[^A-Za-z]*$`)
)

// parseWeight converts a raw weight string such as "137lbs" to pounds.
// ok is false for anything that does not parse to a number after the unit
// suffix is stripped.
func parseWeight(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "lbs", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseHeight converts a feet-inches string such as `5' 8"` to total inches.
// Any other shape, including bare numbers, metric values, and signed parts,
// fails.
func parseHeight(raw string) (int, bool) {
	parts := strings.Split(raw, "'")
	if len(parts) != 2 {
		return 0, false
	}
	feetStr := strings.TrimSpace(parts[0])
	inchStr := strings.TrimSpace(strings.ReplaceAll(parts[1], `"`, ""))

	feet, ok := parseDigits(feetStr)
	if !ok {
		return 0, false
	}
	inches, ok := parseDigits(inchStr)
	if !ok {
		return 0, false
	}
	return feet*12 + inches, true
}

// parseDigits parses a non-empty string of decimal digits only, so signs and
// embedded punctuation fail rather than sneaking through strconv.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseBustBand extracts the numeric band prefix from a bust size such as
// "34b".
func parseBustBand(raw string) (float64, bool) {
	m := digits.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseBustCup extracts the trailing alphabetic cup suffix, lower-cased,
// from a bust size such as "34D" or "36dd+".
func parseBustCup(raw string) (string, bool) {
	m := cupSuffix.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// cupCodes is the fixed cup-size encoding table. Unmapped cups encode as 0;
// this is a deliberate zero-fill, not a missing value.
var cupCodes = map[string]float64{
	"aa":  0.5,
	"a":   1,
	"b":   2,
	"c":   3,
	"d":   4,
	"dd":  5,
	"ddd": 6,
	"f":   7,
}

// parseReviewDate parses the marketplace review-date format.
func parseReviewDate(raw string) (time.Time, bool) {
	ts, err := time.Parse(reviewDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
