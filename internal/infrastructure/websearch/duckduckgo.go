// Package websearch discovers candidate URLs for a query. Each backend is
// isolated: a failing backend contributes nothing and never aborts the
// others, because the pipeline is designed around partial acquisition.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labellens/backend/internal/domain"
	"golang.org/x/net/html"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// DuckDuckGo scrapes the HTML (no-JS) search interface, which requires no
// API key.
type DuckDuckGo struct {
	baseURL    string
	httpClient *http.Client
}

// NewDuckDuckGo creates the backend. baseURL overrides the live endpoint for
// tests; pass "" for the real one.
func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = "https://html.duckduckgo.com/html/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in logs.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search runs one query and parses the result list.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error) {
	searchURL := fmt.Sprintf("%s?q=%s", d.baseURL, url.QueryEscape(query))

	body, err := fetchSearchPage(ctx, d.httpClient, searchURL)
	if err != nil {
		return nil, fmt.Errorf("%w: duckduckgo: %v", domain.ErrBackendUnavailable, err)
	}

	return parseDuckDuckGoResults(body, maxResults)
}

// fetchSearchPage GETs a search page with browser-like headers and a 1MB cap.
func fetchSearchPage(ctx context.Context, client *http.Client, searchURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseDuckDuckGoResults extracts search results from the result__a anchors.
func parseDuckDuckGoResults(htmlContent string, maxResults int) ([]domain.SearchHit, error) {
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

		if n.Type == html.ElementNode && n.Data == "a" {
			class := getAttr(n, "class")
			if strings.Contains(class, "result__a") {
				hit := domain.SearchHit{
					URL:   cleanRedirectURL(getAttr(n, "href")),
					Title: textContent(n),
				}
				if hit.URL != "" && hit.Title != "" {
					hits = append(hits, hit)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return hits, nil
}

// cleanRedirectURL unwraps DuckDuckGo's uddg redirect links.
func cleanRedirectURL(raw string) string {
	if idx := strings.Index(raw, "uddg="); idx >= 0 {
		encoded := raw[idx+len("uddg="):]
		if amp := strings.Index(encoded, "&"); amp > 0 {
			encoded = encoded[:amp]
		}
		if decoded, err := url.QueryUnescape(encoded); err == nil {
			return decoded
		}
	}
	return raw
}

// getAttr returns the value of an attribute.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// textContent returns all text content within a node.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var getText func(*html.Node)
	getText = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			getText(c)
		}
	}
	getText(n)
	return strings.TrimSpace(sb.String())
}
