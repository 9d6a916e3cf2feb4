package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labellens/backend/internal/domain"
	"golang.org/x/net/html"
)

// Bing scrapes the Bing web search results page. A second independent
// backend matters because different engines surface different domains for
// the same product.
type Bing struct {
	baseURL    string
	httpClient *http.Client
}

// NewBing creates the backend. baseURL overrides the live endpoint for tests.
func NewBing(baseURL string, timeout time.Duration) *Bing {
	if baseURL == "" {
		baseURL = "https://www.bing.com/search"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bing{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in logs.
func (b *Bing) Name() string { return "bing" }

// Search runs one query and parses the organic result list.
func (b *Bing) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error) {
	searchURL := fmt.Sprintf("%s?q=%s", b.baseURL, url.QueryEscape(query))

	body, err := fetchSearchPage(ctx, b.httpClient, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bing: %v", domain.ErrBackendUnavailable, err)
	}

	return parseBingResults(body, maxResults)
}

// parseBingResults extracts results from li.b_algo blocks: the organic
// results carry an h2 > a with the target URL.
func parseBingResults(htmlContent string, maxResults int) ([]domain.SearchHit, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var hits []domain.SearchHit

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(hits) >= maxResults {
			return
		}

		if n.Type == html.ElementNode && n.Data == "li" && strings.Contains(getAttr(n, "class"), "b_algo") {
			if hit, ok := extractBingResult(n); ok {
				hits = append(hits, hit)
			}
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return hits, nil
}

// extractBingResult pulls the first h2-anchored link out of a result block.
func extractBingResult(n *html.Node) (domain.SearchHit, bool) {
	var hit domain.SearchHit

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if hit.URL != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "h2" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "a" {
					hit.URL = getAttr(c, "href")
					hit.Title = textContent(c)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return hit, hit.URL != "" && hit.Title != ""
}
