package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labellens/backend/internal/domain"
	"go.uber.org/zap"
)

// candidateBuffer is how many candidates beyond the remaining need each
// cycle requests, to absorb scrape and verification attrition.
const candidateBuffer = 2

// SourceDiscoverer turns one query into candidate URLs. Backend failures
// are absorbed inside the implementation; the result may be short but the
// call itself never fails.
type SourceDiscoverer interface {
	Discover(ctx context.Context, query, barcode string) []string
}

// BatchScraper fetches a URL list concurrently and returns the candidates
// that yielded usable content, in input order.
type BatchScraper interface {
	ScrapeAll(ctx context.Context, urls []string) []domain.CandidateSource
}

// PipelineConfig bounds one resolution.
type PipelineConfig struct {
	MaxCycles     int
	TargetSources int
	CacheTTL      time.Duration
}

// Pipeline resolves a barcode into a consensus report by running bounded
// cycles of discovery, scraping, filtering, and AI verification.
type Pipeline struct {
	strategist *QueryStrategist
	discoverer SourceDiscoverer
	scraper    BatchScraper
	filter     *RelevanceFilter
	oracle     domain.Oracle
	consensus  *ConsensusEngine
	cache      domain.CacheRepository
	cfg        PipelineConfig
	logger     *zap.Logger
}

func NewPipeline(
	discoverer SourceDiscoverer,
	scraper BatchScraper,
	oracle domain.Oracle,
	cache domain.CacheRepository,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = 5
	}
	if cfg.TargetSources <= 0 {
		cfg.TargetSources = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		strategist: NewQueryStrategist(),
		discoverer: discoverer,
		scraper:    scraper,
		filter:     NewRelevanceFilter(),
		oracle:     oracle,
		consensus:  NewConsensusEngine(oracle, logger),
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
	}
}

// resolution holds the state of one barcode resolution. Owned exclusively
// by the cycle loop; two concurrent resolutions share nothing.
type resolution struct {
	barcode         string
	knownTitle      string
	visitedURLs     map[string]bool
	issuedQueries   map[string]bool
	verified        []domain.VerifiedSource
	verifiedDomains map[string]bool
}

func newResolution(barcode, titleHint string) *resolution {
	return &resolution{
		barcode:         barcode,
		knownTitle:      CleanTitle(titleHint),
		visitedURLs:     make(map[string]bool),
		issuedQueries:   make(map[string]bool),
		verifiedDomains: make(map[string]bool),
	}
}

// Resolve runs one resolution asynchronously and streams progress events.
// The channel is closed after a terminal result or error event. Cancelling
// the context stops in-flight work; sources already verified stay valid.
func (p *Pipeline) Resolve(ctx context.Context, barcode, titleHint string) <-chan domain.ProgressEvent {
	events := make(chan domain.ProgressEvent, 16)

	go func() {
		defer close(events)
		emit := func(e domain.ProgressEvent) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}
		p.run(ctx, barcode, titleHint, emit)
	}()

	return events
}

// ResolveSync runs one resolution to completion, discarding progress.
func (p *Pipeline) ResolveSync(ctx context.Context, barcode, titleHint string) (*domain.ConsensusReport, error) {
	var report *domain.ConsensusReport
	var resolveErr error

	for event := range p.Resolve(ctx, barcode, titleHint) {
		switch event.Kind {
		case domain.EventResult:
			report = event.Report
		case domain.EventError:
			resolveErr = errors.New(event.Message)
		}
	}

	if report != nil {
		return report, nil
	}
	if resolveErr != nil {
		return nil, resolveErr
	}
	return nil, ctx.Err()
}

func (p *Pipeline) run(ctx context.Context, barcode, titleHint string, emit func(domain.ProgressEvent)) {
	if cached := p.cachedReport(ctx, barcode); cached != nil {
		emit(domain.StatusEvent(0, "found cached result"))
		emit(domain.ResultEvent(cached))
		return
	}

	state := newResolution(barcode, titleHint)
	emit(domain.StatusEvent(0, fmt.Sprintf("resolving barcode %s", barcode)))

	for cycle := 1; cycle <= p.cfg.MaxCycles; cycle++ {
		if ctx.Err() != nil {
			emit(domain.ErrorEvent("resolution cancelled"))
			return
		}

		needed := p.cfg.TargetSources - len(state.verified)
		if needed <= 0 {
			break
		}

		emit(domain.StatusEvent(cycle, fmt.Sprintf("cycle %d: need %d more sources", cycle, needed)))
		added := p.runCycle(ctx, cycle, needed, state, emit)

		p.logger.Info("cycle complete",
			zap.String("barcode", barcode),
			zap.Int("cycle", cycle),
			zap.Int("added", added),
			zap.Int("verified_total", len(state.verified)))
		// A dry cycle is not fatal; the next cycle escalates to a
		// different query strategy.
	}

	if len(state.verified) == 0 {
		emit(domain.ErrorEvent(domain.ErrNoSourcesFound.Error()))
		return
	}

	emit(domain.StatusEvent(0, fmt.Sprintf("building consensus from %d sources", len(state.verified))))
	report, err := p.consensus.Build(ctx, barcode, state.verified)
	if err != nil {
		emit(domain.ErrorEvent(err.Error()))
		return
	}

	p.storeReport(ctx, barcode, report)
	emit(domain.ResultEvent(report))
}

// runCycle performs one round of discovery, scraping, filtering, and
// verification. Returns the number of sources merged into the verified set.
func (p *Pipeline) runCycle(ctx context.Context, cycle, needed int, state *resolution, emit func(domain.ProgressEvent)) int {
	urls := p.discoverURLs(ctx, cycle, needed+candidateBuffer, state)
	if len(urls) == 0 {
		emit(domain.StatusEvent(cycle, "no new candidate URLs found"))
		return 0
	}

	emit(domain.StatusEvent(cycle, fmt.Sprintf("checking %d sources", len(urls))))
	candidates := p.scraper.ScrapeAll(ctx, urls)
	if len(candidates) == 0 {
		return 0
	}

	// First plausible product title wins and is never overwritten.
	if state.knownTitle == "" {
		for _, c := range candidates {
			if PlausibleProductTitle(c.Title) {
				state.knownTitle = CleanTitle(c.Title)
				emit(domain.StatusEvent(cycle, fmt.Sprintf("identified product: %s", state.knownTitle)))
				break
			}
		}
	}

	valid, rejected := p.filter.Filter(candidates, state.knownTitle)
	if len(valid) == 0 {
		valid = p.filter.Relaxed(rejected)
	}

	unique := dropKnownDomains(DedupeByDomain(valid), state)
	if len(unique) == 0 {
		return 0
	}

	emit(domain.StatusEvent(cycle, fmt.Sprintf("verifying %d candidates", len(unique))))
	verdicts, err := p.oracle.VerifyBatch(ctx, unique)
	if err != nil {
		// Recoverable: a bad oracle answer means zero verified sources
		// for this cycle, not a dead resolution.
		p.logger.Warn("verification failed for cycle",
			zap.Int("cycle", cycle), zap.Error(err))
		return 0
	}

	return merge(unique, verdicts, state)
}

// discoverURLs walks the cycle's query list and unions backend results
// until enough unvisited URLs are collected or the queries run out.
func (p *Pipeline) discoverURLs(ctx context.Context, cycle, want int, state *resolution) []string {
	strategy := NextStrategy(cycle, state.knownTitle)

	var collected []string
	for _, query := range p.strategist.Queries(strategy, state.barcode, state.knownTitle) {
		if state.issuedQueries[query] {
			continue
		}
		state.issuedQueries[query] = true

		for _, u := range p.discoverer.Discover(ctx, query, state.barcode) {
			if state.visitedURLs[u] {
				continue
			}
			state.visitedURLs[u] = true
			collected = append(collected, u)
			if len(collected) >= want {
				return collected
			}
		}
	}

	return collected
}

// dropKnownDomains removes candidates whose domain is already represented
// in the verified set.
func dropKnownDomains(candidates []domain.FilteredCandidate, state *resolution) []domain.FilteredCandidate {
	var kept []domain.FilteredCandidate
	for _, c := range candidates {
		if d, ok := registrableDomain(c.URL); ok && state.verifiedDomains[d] {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// merge promotes positively verified candidates into the verified set,
// skipping any whose domain is already present. Returns how many were added.
func merge(candidates []domain.FilteredCandidate, verdicts []domain.Verdict, state *resolution) int {
	byURL := make(map[string]domain.FilteredCandidate, len(candidates))
	for _, c := range candidates {
		byURL[c.URL] = c
	}

	added := 0
	for _, v := range verdicts {
		if !v.HasIngredients {
			continue
		}
		candidate, ok := byURL[v.URL]
		if !ok {
			continue
		}

		d, hasDomain := registrableDomain(candidate.URL)
		if hasDomain {
			if state.verifiedDomains[d] {
				continue
			}
			state.verifiedDomains[d] = true
		}

		ingredients := v.Ingredients
		if ingredients == "" {
			ingredients = candidate.IngredientsText
		}

		state.verified = append(state.verified, domain.VerifiedSource{
			URL:            candidate.URL,
			Title:          candidate.Title,
			Ingredients:    ingredients,
			HasIngredients: true,
		})
		added++
	}
	return added
}

// cachedReport returns a previously resolved report for the barcode, if any.
func (p *Pipeline) cachedReport(ctx context.Context, barcode string) *domain.ConsensusReport {
	if p.cache == nil {
		return nil
	}

	value, err := p.cache.Get(ctx, reportCacheKey(barcode))
	if err != nil {
		return nil
	}
	raw, ok := value.(string)
	if !ok {
		return nil
	}

	var report domain.ConsensusReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil
	}
	return &report
}

func (p *Pipeline) storeReport(ctx context.Context, barcode string, report *domain.ConsensusReport) {
	if p.cache == nil || p.cfg.CacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, reportCacheKey(barcode), string(raw), p.cfg.CacheTTL); err != nil {
		p.logger.Warn("report cache write failed", zap.Error(err))
	}
}

func reportCacheKey(barcode string) string {
	return "resolution:" + barcode
}
