// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package textnorm provides deterministic review-text normalization used by
// the feature-engineering pipeline.
package textnorm

import (
	"regexp"
	"strings"
)

// nonLetter matches every character that is neither a lowercase ASCII letter
// nor whitespace. Applied after lower-casing, so uppercase never survives.
var nonLetter = regexp.MustCompile(`[^a-z\s]`)

// Clean normalizes free text for downstream feature extraction: lower-case,
// strip all characters outside [a-z] and whitespace, trim the ends.
// Clean is idempotent: Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = strings.ToLower(s)
	s = nonLetter.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// CleanValue normalizes a value of unknown type. Anything that is not a
// string (absent fields decode as nil, malformed ones as numbers or bools)
// yields the empty string rather than an error.
func CleanValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Clean(s)
}
