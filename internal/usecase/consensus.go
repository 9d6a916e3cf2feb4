package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
)

// Qualifier fragments stripped during ingredient normalization. Word
// boundaries keep a second normalization pass from eating into already
// concatenated names.
var (
	ingredientPhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcontains\s+2%\s+or\s+less\s+of\b`),
		regexp.MustCompile(`(?i)\bless\s+than\s+2%\s+of\b`),
	}
	ingredientQualifierPattern = regexp.MustCompile(`(?i)\b(organic|natural|fresh|pure|raw|whole|real)\b`)
	nonAlphanumericPattern     = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeIngredient canonicalizes an ingredient name for cross-source
// comparison: lower-case, qualifier words and quantity phrases removed, all
// non-alphanumeric characters stripped. Idempotent.
func NormalizeIngredient(name string) string {
	s := strings.ToLower(name)
	for _, p := range ingredientPhrasePatterns {
		s = p.ReplaceAllString(s, " ")
	}
	s = ingredientQualifierPattern.ReplaceAllString(s, " ")
	return nonAlphanumericPattern.ReplaceAllString(s, "")
}

// splitIngredients breaks a source's raw ingredient text into individual
// ingredient tokens. Commas and semicolons separate entries; parenthesised
// sub-lists are flattened into their own entries.
func splitIngredients(text string) []string {
	replacer := strings.NewReplacer("(", ",", ")", ",", "[", ",", "]", ",", ";", ",", ".", ",", ":", ",")
	parts := strings.Split(replacer.Replace(text), ",")

	var tokens []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// ComputeDifferences compares every unified ingredient against each
// source's own ingredient tokens and reports the ones present in some but
// not all sources. Full agreement and full absence carry no signal and are
// not reported. Deterministic: output order follows the unified list.
func ComputeDifferences(unified []string, sources []domain.VerifiedSource) []domain.Discrepancy {
	if len(sources) < 2 {
		return nil
	}

	// Pre-normalize each source's tokens once.
	sourceTokens := make([][]string, len(sources))
	for i, src := range sources {
		for _, raw := range splitIngredients(src.Ingredients) {
			if t := NormalizeIngredient(raw); t != "" {
				sourceTokens[i] = append(sourceTokens[i], t)
			}
		}
	}

	var differences []domain.Discrepancy
	for _, ingredient := range unified {
		needle := NormalizeIngredient(ingredient)
		if needle == "" {
			continue
		}

		var presentIn, missingIn []string
		for i, src := range sources {
			if containsToken(sourceTokens[i], needle) {
				presentIn = append(presentIn, src.URL)
			} else {
				missingIn = append(missingIn, src.URL)
			}
		}

		if len(presentIn) == 0 || len(missingIn) == 0 {
			continue
		}

		differences = append(differences, domain.Discrepancy{
			Ingredient: ingredient,
			PresentIn:  presentIn,
			MissingIn:  missingIn,
			Note:       fmt.Sprintf("listed by %d of %d sources", len(presentIn), len(sources)),
		})
	}

	return differences
}

// containsToken matches a normalized ingredient against a source's tokens
// by substring in either direction, so "cayennepepper" matches "pepper" and
// vice versa.
func containsToken(tokens []string, needle string) bool {
	for _, t := range tokens {
		if strings.Contains(t, needle) || strings.Contains(needle, t) {
			return true
		}
	}
	return false
}

// ConsensusEngine produces the final report from the accumulated verified
// set: one oracle call for unification, then deterministic discrepancy
// computation on top of it.
type ConsensusEngine struct {
	oracle domain.Oracle
	logger *zap.Logger
}

func NewConsensusEngine(oracle domain.Oracle, logger *zap.Logger) *ConsensusEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsensusEngine{oracle: oracle, logger: logger}
}

// Build runs the consensus call and assembles the report. A failed or
// unparseable consensus call is fatal for the resolution; no partial report
// is returned.
func (e *ConsensusEngine) Build(ctx context.Context, barcode string, sources []domain.VerifiedSource) (*domain.ConsensusReport, error) {
	if len(sources) == 0 {
		return nil, domain.ErrNoSourcesFound
	}

	consensus, err := e.oracle.Consensus(ctx, barcode, sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConsensusFailure, err)
	}

	differences := ComputeDifferences(consensus.Ingredients, sources)

	e.logger.Info("consensus built",
		zap.String("barcode", barcode),
		zap.Int("sources", len(sources)),
		zap.Int("unified_ingredients", len(consensus.Ingredients)),
		zap.Int("differences", len(differences)))

	return &domain.ConsensusReport{
		Barcode:               barcode,
		ProductName:           consensus.ProductName,
		UnifiedIngredientList: consensus.Ingredients,
		Differences:           differences,
		Top9Allergens:         consensus.Top9Allergens,
		DietaryCompliance:     consensus.DietaryCompliance,
		Sources:               sources,
	}, nil
}
