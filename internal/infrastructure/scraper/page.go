// Package scraper turns URLs into candidate sources. Scrape failures are
// expected and common; callers drop failed URLs and continue, because the
// pipeline is built around partial acquisition rather than all-or-nothing
// fetching.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// productURLPattern recognizes structured product-database pages that have a
// JSON endpoint keyed by the barcode. Those skip HTML parsing entirely.
var productURLPattern = regexp.MustCompile(`openfoodfacts\.org/product/(\d+)`)

// Config holds scraper tuning knobs.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	MaxConcurrent int
	MaxBodyChars  int
}

// Scraper fetches pages with a browser-like user agent, bounded timeouts,
// a global outbound rate limit, and a capped worker pool for batches.
type Scraper struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	userAgent     string
	maxConcurrent int
	maxBodyChars  int
	productDB     domain.ProductDatabase
	logger        *zap.Logger
}

// New creates a scraper. productDB may be nil, which disables the structured
// fast path.
func New(cfg Config, productDB domain.ProductDatabase, logger *zap.Logger) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 6
	}
	if cfg.MaxBodyChars <= 0 {
		cfg.MaxBodyChars = 40000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(rate.Limit(4), 8),
		userAgent:     cfg.UserAgent,
		maxConcurrent: cfg.MaxConcurrent,
		maxBodyChars:  cfg.MaxBodyChars,
		productDB:     productDB,
		logger:        logger,
	}
}

// Scrape fetches one URL and produces a candidate source. A structured
// product-database URL is answered from its JSON endpoint instead of HTML.
// Network errors, bad statuses, and empty extractions all surface as
// ErrScrapeFailed; retries are the cycle controller's concern, not this
// layer's.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*domain.CandidateSource, error) {
	if m := productURLPattern.FindStringSubmatch(rawURL); m != nil && s.productDB != nil {
		candidate, err := s.productDB.Lookup(ctx, m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: structured lookup %s: %v", domain.ErrScrapeFailed, rawURL, err)
		}
		return candidate, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScrapeFailed, err)
	}

	htmlContent, err := s.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrScrapeFailed, rawURL, err)
	}

	ex, err := ExtractPage(htmlContent, s.maxBodyChars)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrScrapeFailed, rawURL, err)
	}

	candidate := &domain.CandidateSource{
		URL:             rawURL,
		Title:           ex.Title,
		IngredientsText: ex.IngredientsText,
		BodyText:        ex.BodyText,
		FetchedAt:       time.Now(),
	}

	if !candidate.HasContent() {
		return nil, fmt.Errorf("%w: %s: empty extraction", domain.ErrScrapeFailed, rawURL)
	}

	return candidate, nil
}

// ScrapeAll fetches a batch of URLs concurrently with a bounded worker pool
// and returns the successful candidates in input order. Failures are logged
// and dropped.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []domain.CandidateSource {
	results := make([]*domain.CandidateSource, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, u := range urls {
		g.Go(func() error {
			candidate, err := s.Scrape(gctx, u)
			if err != nil {
				s.logger.Debug("scrape failed", zap.String("url", u), zap.Error(err))
				return nil // partial acquisition: drop and continue
			}
			results[i] = candidate
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.CandidateSource
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// fetch GETs a page with browser-like headers and a 2MB read cap.
func (s *Scraper) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
