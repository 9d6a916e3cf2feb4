package websearch

import "fmt"

// knownDatabaseTemplates are deterministic per-barcode URL templates for
// product databases, UPC aggregators, and ingredient-label lookup sites.
// They are appended to every discovery round regardless of search-backend
// availability, so the pipeline keeps a floor of coverage even when every
// search engine blocks us.
var knownDatabaseTemplates = []string{
	"https://world.openfoodfacts.org/product/%s",
	"https://www.upcitemdb.com/upc/%s",
	"https://go-upc.com/search?q=%s",
	"https://www.barcodespider.com/%s",
}

// KnownDatabaseURLs expands the fallback templates for a barcode.
func KnownDatabaseURLs(barcode string) []string {
	urls := make([]string, 0, len(knownDatabaseTemplates))
	for _, tmpl := range knownDatabaseTemplates {
		urls = append(urls, fmt.Sprintf(tmpl, barcode))
	}
	return urls
}
