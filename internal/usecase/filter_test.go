package usecase

import (
	"testing"

	"github.com/labellens/backend/internal/domain"
)

func candidatesFromTitles(titles ...string) []domain.CandidateSource {
	candidates := make([]domain.CandidateSource, len(titles))
	for i, title := range titles {
		candidates[i] = domain.CandidateSource{
			URL:      "https://example.com/p" + string(rune('a'+i)),
			Title:    title,
			BodyText: "some page text",
		}
	}
	return candidates
}

func TestRelevanceFilter(t *testing.T) {
	filter := NewRelevanceFilter()

	t.Run("brand plus corroborating keywords accepted", func(t *testing.T) {
		valid, rejected := filter.Filter(
			candidatesFromTitles("Primal Kitchen Buffalo Mayo - Amazon.com"),
			"Primal Kitchen Buffalo Sauce",
		)

		if len(valid) != 1 || len(rejected) != 0 {
			t.Fatalf("expected 1 valid / 0 rejected, got %d / %d", len(valid), len(rejected))
		}
		if !valid[0].HasBrandMatch {
			t.Error("expected brand match")
		}
		if valid[0].MatchCount < 2 {
			t.Errorf("expected matchCount >= 2, got %d", valid[0].MatchCount)
		}
	})

	t.Run("no brand match rejected", func(t *testing.T) {
		valid, rejected := filter.Filter(
			candidatesFromTitles("Generic Hot Sauce Recipe"),
			"Primal Kitchen Buffalo Sauce",
		)

		if len(valid) != 0 || len(rejected) != 1 {
			t.Fatalf("expected 0 valid / 1 rejected, got %d / %d", len(valid), len(rejected))
		}
		if rejected[0].HasBrandMatch {
			t.Error("expected no brand match")
		}
		if rejected[0].Accepted {
			t.Error("rejected candidate marked accepted")
		}
	})

	t.Run("brand alone insufficient for long titles", func(t *testing.T) {
		valid, rejected := filter.Filter(
			candidatesFromTitles("Primal living blog: ten morning habits"),
			"Primal Kitchen Buffalo Sauce",
		)

		if len(valid) != 0 || len(rejected) != 1 {
			t.Fatalf("expected rejection on single keyword, got %d valid", len(valid))
		}
	})

	t.Run("short reference title needs only the brand", func(t *testing.T) {
		valid, _ := filter.Filter(
			candidatesFromTitles("Cholula Original - Target"),
			"Cholula Original",
		)

		if len(valid) != 1 {
			t.Fatalf("expected short-title acceptance, got %d valid", len(valid))
		}
	})

	t.Run("empty reference title passes everything", func(t *testing.T) {
		valid, rejected := filter.Filter(
			candidatesFromTitles("Anything At All", "Another Page"),
			"",
		)

		if len(valid) != 2 || len(rejected) != 0 {
			t.Fatalf("expected all candidates to pass unfiltered, got %d / %d", len(valid), len(rejected))
		}
		for _, c := range valid {
			if !c.Accepted {
				t.Error("unfiltered candidate not marked accepted")
			}
		}
	})
}

func TestRelaxedFilter(t *testing.T) {
	filter := NewRelevanceFilter()

	_, rejected := filter.Filter(
		candidatesFromTitles(
			"Primal living blog: ten morning habits", // brand only
			"Generic Hot Sauce Recipe",               // nothing
		),
		"Primal Kitchen Buffalo Sauce",
	)
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejected, got %d", len(rejected))
	}

	readmitted := filter.Relaxed(rejected)
	if len(readmitted) != 1 {
		t.Fatalf("expected 1 readmitted on brand match alone, got %d", len(readmitted))
	}
	if !readmitted[0].Accepted {
		t.Error("readmitted candidate not marked accepted")
	}
}

func TestDedupeByDomain(t *testing.T) {
	mk := func(url string) domain.FilteredCandidate {
		return domain.FilteredCandidate{
			CandidateSource: domain.CandidateSource{URL: url, Title: "t", BodyText: "b"},
			Accepted:        true,
		}
	}

	t.Run("first per domain wins in input order", func(t *testing.T) {
		kept := DedupeByDomain([]domain.FilteredCandidate{
			mk("https://www.example.com/first"),
			mk("https://example.com/second"),
			mk("https://other.com/page"),
		})

		if len(kept) != 2 {
			t.Fatalf("expected 2 kept, got %d", len(kept))
		}
		if kept[0].URL != "https://www.example.com/first" {
			t.Errorf("expected first occurrence kept, got %q", kept[0].URL)
		}
		if kept[1].URL != "https://other.com/page" {
			t.Errorf("expected distinct domain kept, got %q", kept[1].URL)
		}
	})

	t.Run("www prefix is not a distinct domain", func(t *testing.T) {
		kept := DedupeByDomain([]domain.FilteredCandidate{
			mk("https://www.site.com/a"),
			mk("https://site.com/b"),
		})
		if len(kept) != 1 {
			t.Fatalf("expected www-stripped collapse, got %d", len(kept))
		}
	})

	t.Run("unparseable url kept unconditionally", func(t *testing.T) {
		kept := DedupeByDomain([]domain.FilteredCandidate{
			mk("://not-a-url"),
			mk("://not-a-url"),
			mk("https://site.com/a"),
		})
		if len(kept) != 3 {
			t.Fatalf("expected unparseable candidates kept, got %d", len(kept))
		}
	})
}
