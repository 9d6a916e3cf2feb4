package domain

import "time"

// CandidateSource is one scraped web page or structured-API result that may
// contain ingredient information for a product.
type CandidateSource struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	IngredientsText string    `json:"ingredientsText,omitempty"`
	BodyText        string    `json:"bodyText,omitempty"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// HasContent reports whether the candidate carries any usable text. Candidates
// without content are dropped at the scrape boundary and never reach the
// filter or the verifier.
func (c *CandidateSource) HasContent() bool {
	return c.IngredientsText != "" || c.BodyText != ""
}

// FilteredCandidate is a CandidateSource annotated with relevance-filter
// results. Immutable once created.
type FilteredCandidate struct {
	CandidateSource
	MatchCount    int  `json:"matchCount"`
	HasBrandMatch bool `json:"hasBrandMatch"`
	Accepted      bool `json:"accepted"`
}

// VerifiedSource is a candidate the AI verifier confirmed to contain usable
// ingredient data. The accumulated set of verified sources is domain-unique:
// no two entries share a www-stripped hostname.
type VerifiedSource struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Ingredients    string `json:"ingredients"`
	HasIngredients bool   `json:"hasIngredients"`
}

// SearchHit is a single result returned by a search backend.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Verdict is the per-source answer of a verification call.
type Verdict struct {
	URL            string `json:"url"`
	HasIngredients bool   `json:"hasIngredients"`
	Ingredients    string `json:"ingredients,omitempty"`
}
