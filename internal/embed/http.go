// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package embed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/rentrank/rentrank/internal/logging"
)

// ErrServiceUnavailable is returned when the embedding service circuit
// breaker is open and requests are being rejected locally.
var ErrServiceUnavailable = errors.New("embedding service unavailable")

// HTTPConfig configures the HTTP embedding provider.
type HTTPConfig struct {
	// Endpoint is the full URL of the embedding service.
	Endpoint string

	// Model is the model identifier sent with each request.
	Model string

	// Dimensions is the vector width the model produces.
	Dimensions int

	// BatchSize limits how many texts go into a single request.
	BatchSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// HTTPProvider calls a remote embedding service over JSON HTTP. Calls go
// through a circuit breaker so a failing model server degrades the pipeline
// instead of stalling it.
type HTTPProvider struct {
	cfg     HTTPConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[][]float64]
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewHTTPProvider creates a provider for the given service configuration.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "embedding-service",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Embedding service circuit breaker state changed")
		},
	}

	return &HTTPProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[[][]float64](settings),
	}
}

// Dimensions returns the configured vector width.
func (p *HTTPProvider) Dimensions() int { return p.cfg.Dimensions }

// Embed sends the texts to the service in batches and concatenates the
// returned vectors. A tripped breaker surfaces as ErrServiceUnavailable.
func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + p.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vecs, err := p.breaker.Execute(func() ([][]float64, error) {
			return p.embedBatch(ctx, texts[start:end])
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
			}
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *HTTPProvider) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Model: p.cfg.Model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("Failed to close embedding response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, data)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts",
			len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
