package domain

// Discrepancy reports an ingredient that some, but not all, verified sources
// list. Full agreement and full absence carry no signal and are not reported.
type Discrepancy struct {
	Ingredient string   `json:"ingredient"`
	PresentIn  []string `json:"presentIn"`
	MissingIn  []string `json:"missingIn"`
	Note       string   `json:"note,omitempty"`
}

// DietaryVerdict is a single dietary-compliance answer.
type DietaryVerdict struct {
	IsCompliant bool   `json:"isCompliant"`
	Reason      string `json:"reason,omitempty"`
}

// DietaryCompliance holds the verdicts for the diets the pipeline reports on.
type DietaryCompliance struct {
	Vegan       DietaryVerdict `json:"vegan"`
	Vegetarian  DietaryVerdict `json:"vegetarian"`
	Pescatarian DietaryVerdict `json:"pescatarian"`
	GlutenFree  DietaryVerdict `json:"glutenFree"`
}

// OracleConsensus is the unification answer returned by the AI oracle over
// the full verified-source set.
type OracleConsensus struct {
	ProductName       string            `json:"productName"`
	Ingredients       []string          `json:"unifiedIngredientList"`
	Top9Allergens     []string          `json:"top9Allergens"`
	DietaryCompliance DietaryCompliance `json:"dietaryCompliance"`
}

// ConsensusReport is the final output of one barcode resolution.
type ConsensusReport struct {
	Barcode               string            `json:"barcode"`
	ProductName           string            `json:"productName"`
	UnifiedIngredientList []string          `json:"unifiedIngredientList"`
	Differences           []Discrepancy     `json:"differences"`
	Top9Allergens         []string          `json:"top9Allergens"`
	DietaryCompliance     DietaryCompliance `json:"dietaryCompliance"`
	Sources               []VerifiedSource  `json:"sources"`
}
