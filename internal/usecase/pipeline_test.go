package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
)

// fakeDiscoverer hands out fresh unique-domain URLs on every call.
type fakeDiscoverer struct {
	perCall int
	next    int
	calls   int
	fixed   []string
}

func (f *fakeDiscoverer) Discover(ctx context.Context, query, barcode string) []string {
	f.calls++
	if f.fixed != nil {
		return f.fixed
	}
	urls := make([]string, 0, f.perCall)
	for i := 0; i < f.perCall; i++ {
		f.next++
		urls = append(urls, fmt.Sprintf("https://site%d.com/product", f.next))
	}
	return urls
}

// fakeScraper synthesizes one candidate per URL with a shared product title.
type fakeScraper struct {
	title    string
	failURLs map[string]bool
}

func (f *fakeScraper) ScrapeAll(ctx context.Context, urls []string) []domain.CandidateSource {
	var candidates []domain.CandidateSource
	for _, u := range urls {
		if f.failURLs[u] {
			continue
		}
		candidates = append(candidates, domain.CandidateSource{
			URL:             u,
			Title:           f.title,
			IngredientsText: "water, cayenne pepper, sea salt",
			BodyText:        "product page text",
			FetchedAt:       time.Now(),
		})
	}
	return candidates
}

// cappedOracle verifies at most maxPositive candidates per batch.
type cappedOracle struct {
	fakeOracle
	maxPositive int
}

func (c *cappedOracle) VerifyBatch(ctx context.Context, candidates []domain.FilteredCandidate) ([]domain.Verdict, error) {
	c.verifyCalls++
	verdicts := make([]domain.Verdict, len(candidates))
	for i, cand := range candidates {
		verdicts[i] = domain.Verdict{
			URL:            cand.URL,
			HasIngredients: i < c.maxPositive,
			Ingredients:    cand.IngredientsText,
		}
	}
	return verdicts, nil
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.store[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok, nil
}

func newTestPipeline(d SourceDiscoverer, s BatchScraper, o domain.Oracle) *Pipeline {
	return NewPipeline(d, s, o, nil, PipelineConfig{MaxCycles: 5, TargetSources: 5}, zap.NewNop())
}

func TestPipelineCycleTermination(t *testing.T) {
	// Two verified sources per cycle against a target of five must finish
	// in exactly three verification rounds (2, 4, 6).
	oracle := &cappedOracle{maxPositive: 2}
	pipeline := newTestPipeline(
		&fakeDiscoverer{perCall: 4},
		&fakeScraper{title: "Acme Buffalo Sauce"},
		oracle,
	)

	report, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if oracle.verifyCalls != 3 {
		t.Errorf("expected 3 verification cycles, got %d", oracle.verifyCalls)
	}
	if len(report.Sources) < 5 {
		t.Errorf("expected target reached, got %d sources", len(report.Sources))
	}
}

func TestPipelineDomainUniqueness(t *testing.T) {
	pipeline := newTestPipeline(
		&fakeDiscoverer{fixed: []string{
			"https://www.example.com/a",
			"https://example.com/b",
			"https://other.com/c",
		}},
		&fakeScraper{title: "Acme Buffalo Sauce"},
		&fakeOracle{},
	)

	report, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, src := range report.Sources {
		host := strings.TrimPrefix(strings.Split(strings.TrimPrefix(strings.TrimPrefix(src.URL, "https://"), "http://"), "/")[0], "www.")
		if seen[host] {
			t.Errorf("domain %q appears twice in verified set", host)
		}
		seen[host] = true
	}
	if len(report.Sources) != 2 {
		t.Errorf("expected 2 domain-unique sources, got %d", len(report.Sources))
	}
}

func TestPipelineFallbackFloor(t *testing.T) {
	// All search backends dead; only the known-database URL survives. The
	// resolution must still produce at least one verified source and a
	// non-empty unified list.
	pipeline := newTestPipeline(
		&fakeDiscoverer{fixed: []string{"https://world.openfoodfacts.org/product/070662230015"}},
		&fakeScraper{title: "Primal Kitchen Buffalo Sauce"},
		&fakeOracle{},
	)

	report, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Sources) < 1 {
		t.Fatal("expected at least one verified source from the fallback URL")
	}
	if len(report.UnifiedIngredientList) == 0 {
		t.Error("expected a non-empty unified ingredient list")
	}
}

func TestPipelinePartialScrapeFailure(t *testing.T) {
	// Three of five URLs fail to scrape; the surviving two still flow
	// through filtering and verification.
	fixed := []string{
		"https://site1.com/p", "https://site2.com/p", "https://site3.com/p",
		"https://site4.com/p", "https://site5.com/p",
	}
	scraper := &fakeScraper{
		title: "Acme Buffalo Sauce",
		failURLs: map[string]bool{
			"https://site1.com/p": true,
			"https://site3.com/p": true,
			"https://site5.com/p": true,
		},
	}

	pipeline := newTestPipeline(&fakeDiscoverer{fixed: fixed}, scraper, &fakeOracle{})

	report, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Sources) != 2 {
		t.Errorf("expected the 2 surviving sources, got %d", len(report.Sources))
	}
}

func TestPipelineNoSources(t *testing.T) {
	pipeline := newTestPipeline(
		&fakeDiscoverer{perCall: 0},
		&fakeScraper{title: "Acme Buffalo Sauce"},
		&fakeOracle{},
	)

	_, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err == nil {
		t.Fatal("expected an error for an empty verified set")
	}
	if !strings.Contains(err.Error(), "could not find sources") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPipelineVerificationFailureIsRecoverable(t *testing.T) {
	// A malformed oracle answer yields zero sources for the cycle but
	// never kills the resolution mid-flight; it surfaces only as the
	// empty-set error after the cycle budget runs out.
	oracle := &fakeOracle{verifyErr: fmt.Errorf("%w: model returned prose", domain.ErrOracleParse)}
	pipeline := newTestPipeline(&fakeDiscoverer{perCall: 2}, &fakeScraper{title: "Acme Buffalo Sauce"}, oracle)

	_, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err == nil {
		t.Fatal("expected empty-set error")
	}
	if oracle.verifyCalls < 2 {
		t.Errorf("expected the controller to keep cycling after a parse failure, got %d calls", oracle.verifyCalls)
	}
}

func TestPipelineProgressEvents(t *testing.T) {
	pipeline := newTestPipeline(
		&fakeDiscoverer{perCall: 6},
		&fakeScraper{title: "Acme Buffalo Sauce"},
		&fakeOracle{},
	)

	var events []domain.ProgressEvent
	for e := range pipeline.Resolve(context.Background(), "070662230015", "") {
		events = append(events, e)
	}

	if len(events) < 2 {
		t.Fatalf("expected status events before the result, got %d events", len(events))
	}
	last := events[len(events)-1]
	if last.Kind != domain.EventResult || last.Report == nil {
		t.Errorf("expected terminal result event, got %+v", last)
	}
	for _, e := range events[:len(events)-1] {
		if e.Kind == domain.EventResult {
			t.Error("result event emitted before terminal position")
		}
	}
}

func TestPipelineCachedResolution(t *testing.T) {
	cache := newFakeCache()
	discoverer := &fakeDiscoverer{perCall: 6}
	pipeline := NewPipeline(
		discoverer,
		&fakeScraper{title: "Acme Buffalo Sauce"},
		&fakeOracle{},
		cache,
		PipelineConfig{MaxCycles: 5, TargetSources: 5, CacheTTL: time.Hour},
		zap.NewNop(),
	)

	first, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}
	callsAfterFirst := discoverer.calls

	second, err := pipeline.ResolveSync(context.Background(), "070662230015", "")
	if err != nil {
		t.Fatalf("cached resolution failed: %v", err)
	}

	if discoverer.calls != callsAfterFirst {
		t.Error("cached resolution hit the network")
	}
	if second.ProductName != first.ProductName {
		t.Errorf("cached report diverged: %q vs %q", second.ProductName, first.ProductName)
	}
}

func TestPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pipeline := newTestPipeline(
		&fakeDiscoverer{perCall: 6},
		&fakeScraper{title: "Acme Buffalo Sauce"},
		&fakeOracle{},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range pipeline.Resolve(ctx, "070662230015", "") {
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resolution did not stop after cancellation")
	}
}
