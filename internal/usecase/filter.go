package usecase

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/labellens/backend/internal/domain"
)

var filterPunctuationRegex = regexp.MustCompile(`[^\w\s]`)

// filterStopWords are tokens that say nothing about which product a page is
// about: articles, units, and generic commerce nouns.
var filterStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"oz": true, "ounce": true, "ounces": true, "pack": true, "count": true,
	"buy": true, "shop": true, "online": true, "price": true, "best": true,
	"food": true, "item": true, "product": true, "products": true,
	"brand": true, "grocery": true, "store": true,
}

// RelevanceFilter partitions scraped candidates into accepted and rejected
// sets by keyword overlap with a reference product title.
type RelevanceFilter struct{}

func NewRelevanceFilter() *RelevanceFilter {
	return &RelevanceFilter{}
}

// Filter annotates and partitions candidates against the reference title.
// With no reference title every candidate passes unfiltered; relevance is
// then the verifier's problem. Otherwise a candidate is accepted when the
// brand token matches and either two keywords corroborate or the title is
// too short to demand more.
func (f *RelevanceFilter) Filter(candidates []domain.CandidateSource, referenceTitle string) (valid, rejected []domain.FilteredCandidate) {
	keywords := titleKeywords(referenceTitle)
	if len(keywords) == 0 {
		for _, c := range candidates {
			valid = append(valid, domain.FilteredCandidate{CandidateSource: c, Accepted: true})
		}
		return valid, nil
	}

	// First keyword is the brand token.
	brand := keywords[0]

	for _, c := range candidates {
		normalized := normalizeForMatching(c.Title)

		matchCount := 0
		for _, kw := range keywords {
			if strings.Contains(normalized, kw) {
				matchCount++
			}
		}
		hasBrand := strings.Contains(normalized, brand)

		fc := domain.FilteredCandidate{
			CandidateSource: c,
			MatchCount:      matchCount,
			HasBrandMatch:   hasBrand,
			Accepted:        hasBrand && (matchCount >= 2 || len(keywords) < 3),
		}

		if fc.Accepted {
			valid = append(valid, fc)
		} else {
			rejected = append(rejected, fc)
		}
	}

	return valid, rejected
}

// Relaxed re-admits rejected candidates on brand match alone. Used when the
// strict pass leaves a cycle short of candidates.
func (f *RelevanceFilter) Relaxed(rejected []domain.FilteredCandidate) []domain.FilteredCandidate {
	var readmitted []domain.FilteredCandidate
	for _, fc := range rejected {
		if fc.HasBrandMatch {
			fc.Accepted = true
			readmitted = append(readmitted, fc)
		}
	}
	return readmitted
}

// titleKeywords tokenizes a reference title: lower-cased, punctuation
// stripped, stop words removed, tokens longer than two characters only.
func titleKeywords(title string) []string {
	cleaned := filterPunctuationRegex.ReplaceAllString(strings.ToLower(title), " ")

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 || filterStopWords[word] {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

func normalizeForMatching(s string) string {
	return filterPunctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
}

// DedupeByDomain keeps the first candidate per registrable domain,
// preserving input order. The domain is the hostname with a leading "www."
// stripped. Candidates whose URL fails to parse count as their own domain
// and are kept unconditionally.
func DedupeByDomain(candidates []domain.FilteredCandidate) []domain.FilteredCandidate {
	seen := make(map[string]bool, len(candidates))
	var kept []domain.FilteredCandidate

	for _, c := range candidates {
		d, ok := registrableDomain(c.URL)
		if !ok {
			kept = append(kept, c)
			continue
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		kept = append(kept, c)
	}
	return kept
}

// registrableDomain normalizes a URL to its www-stripped hostname. The
// second return is false when the URL has no parseable host.
func registrableDomain(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host, true
}
