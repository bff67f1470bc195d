package dto

// Search sort orders
const (
	SearchSortNewest    = "newest"
	SearchSortOldest    = "oldest"
	SearchSortPriceAsc  = "price_asc"
	SearchSortPriceDesc = "price_desc"
	SearchSortKmAsc     = "km_asc"
)

// SearchListingsRequest is the public catalog query.
// Omitted range bounds default to the catalog-wide min/max.
type SearchListingsRequest struct {
	Brands           []string `json:"brands,omitempty"`
	Model            *string  `json:"model,omitempty"`
	Year             *int     `json:"year,omitempty"`
	RegistrationYear *int     `json:"registration_year,omitempty"`
	PriceMin         *int64   `json:"price_min,omitempty"`
	PriceMax         *int64   `json:"price_max,omitempty"`
	KmMin            *int64   `json:"km_min,omitempty"`
	KmMax            *int64   `json:"km_max,omitempty"`
	Color            *string  `json:"color,omitempty"`
	FreeText         *string  `json:"q,omitempty"`
	Sort             string   `json:"sort,omitempty" validate:"omitempty,oneof=newest oldest price_asc price_desc km_asc"`
	Offset           int      `json:"offset,omitempty" validate:"min=0"`
	Limit            int      `json:"limit,omitempty" validate:"min=0"`
}

// RangeDTO is an inclusive numeric range
type RangeDTO struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// SearchListingsResponse is one page of approved listings
type SearchListingsResponse struct {
	Items      []ListingDTO `json:"items"`
	Total      int          `json:"total"`
	Offset     int          `json:"offset"`
	Limit      int          `json:"limit"`
	PriceRange RangeDTO     `json:"price_range"`
	KmRange    RangeDTO     `json:"km_range"`
}
