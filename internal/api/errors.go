// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rentrank/rentrank/internal/logging"
)

// errorResponse is the JSON body returned for all error statuses.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
