// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package embed abstracts the external text-embedding service behind a small
// interface so the pipeline can be run against a live model server, a
// deterministic local fallback, or a test double.
package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Provider computes fixed-dimension dense vectors for review texts.
// Implementations must return one vector per input text, all of the same
// length.
type Provider interface {
	// Embed returns an n x D matrix for the n input texts.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns D, the vector width this provider produces.
	Dimensions() int
}

// HashProvider is a deterministic, dependency-free embedding provider using
// feature hashing of whitespace tokens. It stands in for the model server in
// development and tests; the vectors are stable across runs and processes.
type HashProvider struct {
	dims int
}

// NewHashProvider creates a hashing provider with the given vector width.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = 32
	}
	return &HashProvider{dims: dims}
}

// Dimensions returns the configured vector width.
func (p *HashProvider) Dimensions() int { return p.dims }

// Embed hashes each token into a bucket and L2-normalizes the result.
// Empty texts produce zero vectors.
func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vec := make([]float64, p.dims)
		for _, tok := range strings.Fields(text) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			vec[int(h.Sum32())%p.dims]++
		}

		var norm float64
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for d := range vec {
				vec[d] /= norm
			}
		}
		out[i] = vec
	}
	return out, nil
}
