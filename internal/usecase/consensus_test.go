package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
)

func TestNormalizeIngredient(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lower-cases", "Sea Salt", "seasalt"},
		{"strips organic qualifier", "Organic Cane Sugar", "canesugar"},
		{"strips natural qualifier", "Natural Flavor", "flavor"},
		{"strips quantity phrase", "Contains 2% or less of salt", "salt"},
		{"strips punctuation", "high-fructose corn syrup", "highfructosecornsyrup"},
		{"empty stays empty", "", ""},
		{"qualifier alone becomes empty", "Organic", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeIngredient(tc.input); got != tc.want {
				t.Errorf("NormalizeIngredient(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIngredientIdempotent(t *testing.T) {
	inputs := []string{
		"Organic Cane Sugar",
		"Natural Flavor",
		"Contains 2% or less of: citric acid",
		"Fresh Pressed Apple Juice",
		"Water",
		"high-fructose corn syrup (modified)",
	}

	for _, input := range inputs {
		once := NormalizeIngredient(input)
		twice := NormalizeIngredient(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestSplitIngredients(t *testing.T) {
	got := splitIngredients("Water, Avocado Oil (cold pressed), Sea Salt; Spices.")
	want := []string{"Water", "Avocado Oil", "cold pressed", "Sea Salt", "Spices"}

	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestComputeDifferences(t *testing.T) {
	sources := []domain.VerifiedSource{
		{URL: "https://a.com/p", Ingredients: "water, cayenne pepper, sea salt", HasIngredients: true},
		{URL: "https://b.com/p", Ingredients: "water, cayenne pepper, garlic powder", HasIngredients: true},
		{URL: "https://c.com/p", Ingredients: "water, cayenne pepper", HasIngredients: true},
	}
	unified := []string{"water", "cayenne pepper", "sea salt", "garlic powder", "xanthan gum"}

	differences := ComputeDifferences(unified, sources)

	t.Run("partial agreement reported", func(t *testing.T) {
		byIngredient := make(map[string]domain.Discrepancy)
		for _, d := range differences {
			byIngredient[d.Ingredient] = d
		}

		salt, ok := byIngredient["sea salt"]
		if !ok {
			t.Fatal("expected a discrepancy for sea salt")
		}
		if len(salt.PresentIn) != 1 || salt.PresentIn[0] != "https://a.com/p" {
			t.Errorf("sea salt presentIn = %v", salt.PresentIn)
		}
		if len(salt.MissingIn) != 2 {
			t.Errorf("sea salt missingIn = %v", salt.MissingIn)
		}

		if _, ok := byIngredient["garlic powder"]; !ok {
			t.Error("expected a discrepancy for garlic powder")
		}
	})

	t.Run("full agreement and full absence suppressed", func(t *testing.T) {
		for _, d := range differences {
			if d.Ingredient == "water" || d.Ingredient == "cayenne pepper" {
				t.Errorf("fully agreed ingredient %q reported", d.Ingredient)
			}
			if d.Ingredient == "xanthan gum" {
				t.Error("fully absent ingredient reported")
			}
		}
	})

	t.Run("soundness", func(t *testing.T) {
		for _, d := range differences {
			total := len(d.PresentIn) + len(d.MissingIn)
			if len(d.PresentIn) == 0 || len(d.PresentIn) >= total {
				t.Errorf("unsound discrepancy for %q: %d of %d", d.Ingredient, len(d.PresentIn), total)
			}
		}
	})

	t.Run("single source yields no discrepancies", func(t *testing.T) {
		if got := ComputeDifferences(unified, sources[:1]); got != nil {
			t.Errorf("expected nil for one source, got %v", got)
		}
	})
}

func TestComputeDifferencesSubstringMatching(t *testing.T) {
	// Qualified names still count as present: "organic cane sugar"
	// normalizes to "canesugar", matching unified "cane sugar".
	sources := []domain.VerifiedSource{
		{URL: "https://a.com/p", Ingredients: "Organic Cane Sugar, water", HasIngredients: true},
		{URL: "https://b.com/p", Ingredients: "water", HasIngredients: true},
	}

	differences := ComputeDifferences([]string{"cane sugar", "water"}, sources)

	if len(differences) != 1 {
		t.Fatalf("expected exactly one discrepancy, got %d", len(differences))
	}
	if differences[0].Ingredient != "cane sugar" {
		t.Errorf("expected cane sugar discrepancy, got %q", differences[0].Ingredient)
	}
	if differences[0].PresentIn[0] != "https://a.com/p" {
		t.Errorf("expected qualified listing to count as present, got %v", differences[0].PresentIn)
	}
}

type fakeOracle struct {
	verdicts     []domain.Verdict
	verifyErr    error
	consensus    *domain.OracleConsensus
	consensusErr error
	verifyCalls  int
}

func (f *fakeOracle) VerifyBatch(ctx context.Context, candidates []domain.FilteredCandidate) ([]domain.Verdict, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if f.verdicts != nil {
		return f.verdicts, nil
	}
	verdicts := make([]domain.Verdict, len(candidates))
	for i, c := range candidates {
		verdicts[i] = domain.Verdict{URL: c.URL, HasIngredients: true, Ingredients: c.IngredientsText}
	}
	return verdicts, nil
}

func (f *fakeOracle) Consensus(ctx context.Context, barcode string, sources []domain.VerifiedSource) (*domain.OracleConsensus, error) {
	if f.consensusErr != nil {
		return nil, f.consensusErr
	}
	if f.consensus != nil {
		return f.consensus, nil
	}
	return &domain.OracleConsensus{
		ProductName: "Test Product",
		Ingredients: []string{"water", "salt"},
	}, nil
}

func TestConsensusEngineBuild(t *testing.T) {
	sources := []domain.VerifiedSource{
		{URL: "https://a.com/p", Title: "Product", Ingredients: "water, salt", HasIngredients: true},
		{URL: "https://b.com/p", Title: "Product", Ingredients: "water", HasIngredients: true},
	}

	t.Run("assembles report with differences", func(t *testing.T) {
		engine := NewConsensusEngine(&fakeOracle{}, zap.NewNop())
		report, err := engine.Build(context.Background(), "070662230015", sources)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Barcode != "070662230015" {
			t.Errorf("barcode = %q", report.Barcode)
		}
		if report.ProductName != "Test Product" {
			t.Errorf("productName = %q", report.ProductName)
		}
		if len(report.UnifiedIngredientList) != 2 {
			t.Errorf("unified list = %v", report.UnifiedIngredientList)
		}
		if len(report.Differences) != 1 || report.Differences[0].Ingredient != "salt" {
			t.Errorf("differences = %v", report.Differences)
		}
		if len(report.Sources) != 2 {
			t.Errorf("sources = %v", report.Sources)
		}
	})

	t.Run("empty verified set is an error", func(t *testing.T) {
		engine := NewConsensusEngine(&fakeOracle{}, zap.NewNop())
		_, err := engine.Build(context.Background(), "070662230015", nil)
		if !errors.Is(err, domain.ErrNoSourcesFound) {
			t.Errorf("expected ErrNoSourcesFound, got %v", err)
		}
	})

	t.Run("oracle failure is fatal", func(t *testing.T) {
		engine := NewConsensusEngine(&fakeOracle{consensusErr: errors.New("model offline")}, zap.NewNop())
		_, err := engine.Build(context.Background(), "070662230015", sources)
		if !errors.Is(err, domain.ErrConsensusFailure) {
			t.Errorf("expected ErrConsensusFailure, got %v", err)
		}
	})
}
