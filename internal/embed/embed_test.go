// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package embed

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(16)

	first, err := p.Embed(context.Background(), []string{"great dress for a wedding"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := p.Embed(context.Background(), []string{"great dress for a wedding"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	for d := range first[0] {
		if first[0][d] != second[0][d] {
			t.Fatalf("dimension %d differs between runs: %v vs %v", d, first[0][d], second[0][d])
		}
	}
}

func TestHashProviderNormalized(t *testing.T) {
	p := NewHashProvider(8)

	vecs, err := p.Embed(context.Background(), []string{"fits true to size", ""})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
		t.Errorf("non-empty text should produce unit vector, got norm %v", math.Sqrt(norm))
	}

	for d, v := range vecs[1] {
		if v != 0 {
			t.Errorf("empty text should produce zero vector, dimension %d = %v", d, v)
		}
	}
}

func TestHashProviderDimensions(t *testing.T) {
	if got := NewHashProvider(64).Dimensions(); got != 64 {
		t.Errorf("Dimensions() = %d, want 64", got)
	}
	if got := NewHashProvider(0).Dimensions(); got != 32 {
		t.Errorf("Dimensions() with invalid width = %d, want default 32", got)
	}
}

func TestHTTPProviderEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("request model = %q, want %q", req.Model, "test-model")
		}

		vecs := make([][]float64, len(req.Texts))
		for i := range req.Texts {
			vecs[i] = []float64{float64(i), 1.0}
		}
		if err := json.NewEncoder(w).Encode(embedResponse{Embeddings: vecs}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{
		Endpoint:   srv.URL,
		Model:      "test-model",
		Dimensions: 2,
		BatchSize:  2,
	})

	// Five texts with batch size two exercises the batching loop.
	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}
	if vecs[2][0] != 0 || vecs[2][1] != 1 {
		t.Errorf("vector 2 = %v, want [0 1] (first of its batch)", vecs[2])
	}
}

func TestHTTPProviderVectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}}); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Dimensions: 1})
	if _, err := p.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error for mismatched vector count, got nil")
	}
}

func TestHTTPProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{Endpoint: srv.URL, Dimensions: 4})
	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error for 500 response, got nil")
	}
}
