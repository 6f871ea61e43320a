// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

// Package config loads the static service configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration object. It is loaded once at startup
// and never mutated at runtime.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Data      DataConfig      `koanf:"data"`
	Feature   FeatureConfig   `koanf:"feature"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Recommend RecommendConfig `koanf:"recommend"`
	Batch     BatchConfig     `koanf:"batch"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DataConfig holds the data artifact locations.
type DataConfig struct {
	// RawPath is the review dump consumed by ingestion. A .gz suffix
	// enables transparent decompression.
	RawPath string `koanf:"raw_path" validate:"required"`

	// DatabasePath is the DuckDB file holding the interaction table and
	// batch recommendation results.
	DatabasePath string `koanf:"database_path" validate:"required"`
}

// FeatureConfig tunes the feature engineering pipeline.
type FeatureConfig struct {
	// PresenceThreshold is the minimum fraction of non-null values a raw
	// column needs to survive pruning.
	PresenceThreshold float64 `koanf:"presence_threshold" validate:"gt=0,lt=1"`

	// ScaleColumns lists numeric columns to min-max scale into [0, 1].
	ScaleColumns []string `koanf:"scale_columns"`
}

// EmbeddingConfig configures the optional text-embedding service.
type EmbeddingConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Endpoint   string        `koanf:"endpoint" validate:"required_if=Enabled true,omitempty,url"`
	Model      string        `koanf:"model"`
	Dimensions int           `koanf:"dimensions" validate:"required_if=Enabled true,omitempty,min=1"`
	BatchSize  int           `koanf:"batch_size" validate:"min=1"`
	Timeout    time.Duration `koanf:"timeout"`
}

// RecommendConfig configures the query engine.
type RecommendConfig struct {
	// DefaultTopN is the result limit used when a query does not specify
	// one.
	DefaultTopN int `koanf:"default_top_n" validate:"min=1"`
}

// BatchConfig configures the offline pipeline driver.
type BatchConfig struct {
	// Precompute, when set, runs recommendations for every user x
	// category x occasion combination after feature engineering and
	// persists the results.
	Precompute bool `koanf:"precompute"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Data: DataConfig{
			RawPath:      "/data/renttherunway.json.gz",
			DatabasePath: "/data/rentrank.duckdb",
		},
		Feature: FeatureConfig{
			PresenceThreshold: 0.5,
			ScaleColumns:      []string{"BMI", "days_since_review", "review_length"},
		},
		Embedding: EmbeddingConfig{
			Enabled:    false,
			Endpoint:   "",
			Model:      "all-MiniLM-L6-v2",
			Dimensions: 384,
			BatchSize:  64,
			Timeout:    30 * time.Second,
		},
		Recommend: RecommendConfig{
			DefaultTopN: 5,
		},
		Batch: BatchConfig{
			Precompute: false,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid configuration: %s", verrs[0])
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
