// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package feature

import "strings"

// Fixed sentiment lexicons for review word counts. The tokens are matched
// against normalized review text, so only lowercase letters appear here.
var (
	positiveWords = wordSet(
		"love", "loved", "perfect", "perfectly", "great", "beautiful",
		"gorgeous", "amazing", "stunning", "comfortable", "flattering",
		"compliments", "favorite", "best", "happy", "wonderful", "fabulous",
		"elegant", "recommend", "fantastic",
	)
	negativeWords = wordSet(
		"tight", "loose", "short", "long", "uncomfortable", "itchy",
		"cheap", "disappointed", "disappointing", "baggy", "awkward",
		"unflattering", "scratchy", "terrible", "awful", "worst", "hated",
		"returned", "bad", "poor",
	)
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// countWords returns how many whitespace-separated tokens of text appear in
// the lexicon.
func countWords(text string, lexicon map[string]struct{}) int {
	n := 0
	for _, tok := range strings.Fields(text) {
		if _, ok := lexicon[tok]; ok {
			n++
		}
	}
	return n
}
