package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrProductNotFound is returned when a barcode is unknown to a product database
	ErrProductNotFound = errors.New("product not found")

	// ErrNoSourcesFound is returned when a resolution completes with an empty
	// verified-source set
	ErrNoSourcesFound = errors.New("could not find sources for product")

	// ErrScrapeFailed is returned when a page yields no usable content
	ErrScrapeFailed = errors.New("scrape failed")

	// ErrBackendUnavailable is returned when a search backend is unreachable or blocked
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrOracleParse is returned when the oracle response holds no parseable payload
	ErrOracleParse = errors.New("unparseable oracle response")

	// ErrConsensusFailure is returned when the final unification call fails
	ErrConsensusFailure = errors.New("consensus call failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
