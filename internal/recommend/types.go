// Rentrank - Rental Marketplace Recommendation Service
// Copyright 2026 Rentrank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rentrank/rentrank

package recommend

// Recommendation is a single ranked catalog item returned to a user.
type Recommendation struct {
	// ItemID identifies the catalog item.
	ItemID int `json:"item_id"`

	// AverageRating is the mean rating across the item's matching reviews.
	AverageRating float64 `json:"average_rating"`

	// ReviewCount is the number of matching reviews the item received.
	ReviewCount int `json:"review_count"`

	// SimilarityScore is the best cosine similarity between the user's
	// profile vector and any of the item's matching reviews.
	SimilarityScore float64 `json:"similarity_score"`

	// Category is the item's catalog category.
	Category string `json:"category"`

	// RentedFor is the occasion recorded on the aggregated review.
	RentedFor string `json:"rented_for"`
}

// Request carries the parameters of a single recommendation query.
type Request struct {
	// UserID identifies the requesting user.
	UserID string `json:"user_id" validate:"required"`

	// Occasion filters items by the occasion they were rented for.
	Occasion string `json:"occasion" validate:"required"`

	// Category filters items by catalog category.
	Category string `json:"category" validate:"required"`

	// TopN is the maximum number of recommendations to return.
	// Must be positive.
	TopN int `json:"top_n"`
}

// CatalogOptions lists the filter values present in the loaded table,
// for populating query forms.
type CatalogOptions struct {
	Users      []string `json:"users"`
	Categories []string `json:"categories"`
	Occasions  []string `json:"occasions"`
}
