package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Listing constants
const (
	// MinManufactureYear is the oldest manufacture year accepted for a listing
	MinManufactureYear = 1980

	// MaxListingImages caps the number of image URLs on one listing
	MaxListingImages = 30
)

// Pagination defaults shared by list and search endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Redis keys (prefixed with CacheConfig.RedisPrefix)
const (
	FilterCatalogCacheKey = "filter_catalog:snapshot"
	FilterCatalogLockKey  = "filter_catalog:lock"

	FilterCatalogLockTTL = 10 * time.Second
)
