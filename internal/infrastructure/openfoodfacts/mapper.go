package openfoodfacts

import (
	"fmt"
	"strings"
	"time"

	"github.com/labellens/backend/internal/domain"
)

// MapToCandidate converts a structured product record into a candidate
// source. Returns nil when the record carries nothing usable (no name and no
// ingredient text) so the caller can treat it as not found.
func MapToCandidate(barcode, baseURL string, product *Product) *domain.CandidateSource {
	if product == nil {
		return nil
	}

	title := buildTitle(product)
	ingredients := strings.TrimSpace(product.IngredientsText)

	if title == "" && ingredients == "" {
		return nil
	}

	candidate := &domain.CandidateSource{
		URL:             fmt.Sprintf("%s/product/%s", strings.TrimRight(baseURL, "/"), barcode),
		Title:           title,
		IngredientsText: ingredients,
		BodyText:        buildBody(product),
		FetchedAt:       time.Now(),
	}

	return candidate
}

// buildTitle joins brand and product name the way a retail page title would
func buildTitle(product *Product) string {
	name := strings.TrimSpace(product.ProductName)
	brand := firstBrand(product.Brands)

	switch {
	case name == "":
		return brand
	case brand == "" || strings.Contains(strings.ToLower(name), strings.ToLower(brand)):
		return name
	default:
		return brand + " " + name
	}
}

// buildBody flattens the structured fields into fallback context text
func buildBody(product *Product) string {
	var parts []string
	if product.ProductName != "" {
		parts = append(parts, "Product: "+product.ProductName)
	}
	if product.Brands != "" {
		parts = append(parts, "Brands: "+product.Brands)
	}
	if product.Quantity != "" {
		parts = append(parts, "Quantity: "+product.Quantity)
	}
	if product.IngredientsText != "" {
		parts = append(parts, "Ingredients: "+product.IngredientsText)
	}
	if product.Allergens != "" {
		parts = append(parts, "Allergens: "+cleanAllergens(product.Allergens))
	}
	return strings.Join(parts, "\n")
}

// firstBrand picks the first entry of the comma-separated brands field
func firstBrand(brands string) string {
	if idx := strings.Index(brands, ","); idx >= 0 {
		brands = brands[:idx]
	}
	return strings.TrimSpace(brands)
}

// cleanAllergens strips the "en:" style taxonomy prefixes from allergen tags
func cleanAllergens(allergens string) string {
	parts := strings.Split(allergens, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if idx := strings.Index(p, ":"); idx >= 0 && idx < len(p)-1 {
			p = p[idx+1:]
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}
