package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchBackend is one independent way of turning a query string into
// candidate URLs. A backend failure is isolated: it yields an empty result
// and must never abort the other backends.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchHit, error)
}

// Scraper turns a URL into a CandidateSource or a scrape failure.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*CandidateSource, error)
}

// ProductDatabase is a structured per-barcode lookup (the fast path that
// bypasses HTML scraping entirely).
type ProductDatabase interface {
	Lookup(ctx context.Context, barcode string) (*CandidateSource, error)
}

// Oracle is the AI classifier at the pipeline boundary. Both calls are
// non-deterministic and fallible; a malformed response surfaces as
// ErrOracleParse, which the caller treats as zero results for that call.
type Oracle interface {
	// VerifyBatch returns one verdict per candidate, in candidate order.
	VerifyBatch(ctx context.Context, candidates []FilteredCandidate) ([]Verdict, error)

	// Consensus unifies the full verified set into one ingredient list,
	// allergen list, and dietary verdicts.
	Consensus(ctx context.Context, barcode string, sources []VerifiedSource) (*OracleConsensus, error)
}
