package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

// Strategy selects which family of search queries a cycle issues. Strategies
// are ordered; the cycle controller escalates through them when a cycle dries
// up, because different phrasings surface different domains.
type Strategy int

const (
	// StrategyBarcode issues raw-barcode queries. Used while no product
	// title is known yet.
	StrategyBarcode Strategy = iota
	// StrategyTitle issues queries built from the known product title.
	StrategyTitle
	// StrategyTitleCommerce biases toward shopping and label pages.
	StrategyTitleCommerce
	// StrategyShortTitle uses a truncated title for noisy or long names.
	StrategyShortTitle
)

func (s Strategy) String() string {
	switch s {
	case StrategyBarcode:
		return "barcode"
	case StrategyTitle:
		return "title"
	case StrategyTitleCommerce:
		return "title-commerce"
	case StrategyShortTitle:
		return "short-title"
	default:
		return "unknown"
	}
}

// NextStrategy picks the strategy for a cycle. Without a title only barcode
// queries are possible; with one, escalation walks the title strategies in
// order and wraps around.
func NextStrategy(cycle int, knownTitle string) Strategy {
	if knownTitle == "" {
		return StrategyBarcode
	}
	titleStrategies := []Strategy{StrategyTitle, StrategyTitleCommerce, StrategyShortTitle}
	return titleStrategies[(cycle-1)%len(titleStrategies)]
}

// Compiled patterns for title cleanup.
var (
	// Size and quantity fragments like "12 oz", "1.5 liter", "500 g".
	titleSizePattern = regexp.MustCompile(`\b\d+\.?\d*\s*(fl\s*)?(oz|ounces?|lbs?|pounds?|ml|liters?|gallons?|kg|grams?|g)\b`)

	// Pack counts like "12 pack", "pack of 6", "24 ct".
	titlePackPattern = regexp.MustCompile(`\b\d+[-\s]*(pack|pk|count|ct)\b|\bpack\s*of\s*\d+\b`)

	// Retailer suffixes like " - Amazon.com", " | Walmart".
	titleRetailerPattern = regexp.MustCompile(`\s+[|\-–]\s+[^|\-–]*$`)

	titleMultiSpacePattern = regexp.MustCompile(`\s+`)
)

const maxShortTitleWords = 4

// QueryStrategist turns a barcode and an optional known title into an
// ordered list of search queries, most specific first. Pure string work, no
// network or model calls.
type QueryStrategist struct{}

func NewQueryStrategist() *QueryStrategist {
	return &QueryStrategist{}
}

// Queries returns the query list for one cycle under the given strategy.
// Queries the caller has already issued should be skipped by the caller; the
// strategist itself is stateless.
func (q *QueryStrategist) Queries(strategy Strategy, barcode, knownTitle string) []string {
	switch strategy {
	case StrategyTitle:
		title := CleanTitle(knownTitle)
		if title == "" {
			return q.barcodeQueries(barcode)
		}
		return []string{
			title,
			fmt.Sprintf("%s ingredients", title),
			fmt.Sprintf("%s nutrition", title),
			fmt.Sprintf("%s facts", title),
		}
	case StrategyTitleCommerce:
		title := CleanTitle(knownTitle)
		if title == "" {
			return q.barcodeQueries(barcode)
		}
		return []string{
			fmt.Sprintf("%s buy", title),
			fmt.Sprintf("%s label", title),
			fmt.Sprintf("%s grocery", title),
		}
	case StrategyShortTitle:
		short := ShortTitle(knownTitle)
		if short == "" {
			return q.barcodeQueries(barcode)
		}
		return []string{
			fmt.Sprintf("%s ingredients", short),
			fmt.Sprintf("%s label", short),
		}
	default:
		return q.barcodeQueries(barcode)
	}
}

func (q *QueryStrategist) barcodeQueries(barcode string) []string {
	return []string{
		fmt.Sprintf("%s ingredients", barcode),
		fmt.Sprintf("%s product ingredients list", barcode),
		fmt.Sprintf("barcode %s food label", barcode),
	}
}

// CleanTitle strips size fragments, pack counts, and retailer suffixes from
// a scraped page title so it works as a search query and a filter reference.
func CleanTitle(title string) string {
	cleaned := titleRetailerPattern.ReplaceAllString(title, " ")
	cleaned = titleSizePattern.ReplaceAllString(cleaned, " ")
	cleaned = titlePackPattern.ReplaceAllString(cleaned, " ")
	cleaned = titleMultiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// ShortTitle truncates a cleaned title to its first words. Long scraped
// titles carry trailing marketing noise; the head usually holds brand and
// product name.
func ShortTitle(title string) string {
	words := strings.Fields(CleanTitle(title))
	if len(words) > maxShortTitleWords {
		words = words[:maxShortTitleWords]
	}
	return strings.Join(words, " ")
}

// PlausibleProductTitle reports whether a scraped title is worth adopting as
// the known product title for the rest of a resolution. Error pages and bare
// site names are rejected.
func PlausibleProductTitle(title string) bool {
	cleaned := CleanTitle(title)
	words := strings.Fields(cleaned)
	if len(words) < 2 {
		return false
	}

	lower := strings.ToLower(cleaned)
	for _, bad := range []string{"404", "not found", "access denied", "error", "captcha", "robot check", "just a moment"} {
		if strings.Contains(lower, bad) {
			return false
		}
	}
	return true
}
