// Package openfoodfacts implements the structured product-database fast path.
// A barcode keyed JSON lookup is more reliable than scraping HTML, so the
// pipeline always tries it before any scraped source.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Open Food Facts API host.
const DefaultBaseURL = "https://world.openfoodfacts.org"

// Client handles communication with the Open Food Facts product API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// Product is the subset of Open Food Facts product fields the pipeline uses
type Product struct {
	ProductName     string `json:"product_name"`
	Brands          string `json:"brands"`
	IngredientsText string `json:"ingredients_text"`
	Allergens       string `json:"allergens"`
	Quantity        string `json:"quantity"`
}

// lookupResponse is the envelope of the per-barcode product endpoint
type lookupResponse struct {
	Status  int     `json:"status"`
	Code    string  `json:"code"`
	Product Product `json:"product"`
}

// NewClient creates a new Open Food Facts client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Open Food Facts asks read clients to stay under ~100 req/min
	limiter := rate.NewLimiter(rate.Limit(1.5), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   "LabelLens/1.0 (ingredient resolver)",
		rateLimiter: limiter,
		logger:      logger,
	}
}

// BaseURL returns the configured API host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// exponentialBackoff returns the sleep before retry n (1-based).
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Lookup fetches the product record for a barcode and synthesizes a candidate
// source from its structured fields. Returns ErrProductNotFound when the
// database has no record for the barcode.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.CandidateSource, error) {
	reqURL := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, barcode)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			c.logger.Debug("product lookup request failed",
				zap.String("barcode", barcode), zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			c.sleepBackoff(ctx, attempt)
			continue
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("product lookup: status %d", resp.StatusCode)
			c.logger.Debug("product lookup bad status",
				zap.String("barcode", barcode), zap.Int("status", resp.StatusCode))
			c.sleepBackoff(ctx, attempt)
			continue
		}

		var lookup lookupResponse
		if err := json.Unmarshal(body, &lookup); err != nil {
			return nil, fmt.Errorf("failed to decode product response: %w", err)
		}

		if lookup.Status != 1 {
			return nil, domain.ErrProductNotFound
		}

		candidate := MapToCandidate(barcode, c.baseURL, &lookup.Product)
		if candidate == nil {
			return nil, domain.ErrProductNotFound
		}

		c.logger.Debug("product lookup succeeded",
			zap.String("barcode", barcode), zap.String("product", lookup.Product.ProductName))
		return candidate, nil
	}

	return nil, lastErr
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product lookup request: %w", err)
	}

	return resp, nil
}

// sleepBackoff waits the backoff for the attempt unless the context ends first.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) {
	if attempt >= 3 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(exponentialBackoff(attempt)):
	}
}
