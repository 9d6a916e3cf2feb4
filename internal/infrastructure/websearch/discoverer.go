package websearch

import (
	"context"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Discoverer fans one query out to every configured search backend
// concurrently and unions the results. Exact-string duplicates are removed;
// per-domain deduplication happens later, after scraping.
type Discoverer struct {
	backends   []domain.SearchBackend
	maxResults int
	logger     *zap.Logger
}

// NewDiscoverer builds a discoverer over the given backends.
func NewDiscoverer(backends []domain.SearchBackend, maxResults int, logger *zap.Logger) *Discoverer {
	if maxResults <= 0 {
		maxResults = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{backends: backends, maxResults: maxResults, logger: logger}
}

// Discover returns candidate URLs for a query plus the known-database
// fallback URLs for the barcode. Backend failures are absorbed: a dead
// backend contributes an empty slice. Result order is deterministic: backend
// order, then hit order, then fallback order.
func (d *Discoverer) Discover(ctx context.Context, query, barcode string) []string {
	perBackend := make([][]domain.SearchHit, len(d.backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, backend := range d.backends {
		g.Go(func() error {
			hits, err := backend.Search(gctx, query, d.maxResults)
			if err != nil {
				d.logger.Debug("search backend failed",
					zap.String("backend", backend.Name()),
					zap.String("query", query),
					zap.Error(err))
				return nil // isolated failure
			}
			perBackend[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	var urls []string
	appendURL := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	for _, hits := range perBackend {
		for _, hit := range hits {
			appendURL(hit.URL)
		}
	}
	for _, u := range KnownDatabaseURLs(barcode) {
		appendURL(u)
	}

	d.logger.Debug("discovery round complete",
		zap.String("query", query),
		zap.Int("urls", len(urls)))

	return urls
}
