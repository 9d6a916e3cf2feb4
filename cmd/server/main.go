package main

import (
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/labellens/backend/config"
	httpDelivery "github.com/labellens/backend/internal/delivery/http"
	"github.com/labellens/backend/internal/domain"
	"github.com/labellens/backend/internal/infrastructure/cache"
	"github.com/labellens/backend/internal/infrastructure/openfoodfacts"
	"github.com/labellens/backend/internal/infrastructure/oracle"
	"github.com/labellens/backend/internal/infrastructure/scraper"
	"github.com/labellens/backend/internal/infrastructure/websearch"
	"github.com/labellens/backend/internal/logger"
	"github.com/labellens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer zlog.Sync()

	zlog.Info("starting LabelLens backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	// Infrastructure dependencies
	memoryCache := cache.NewMemoryCache()

	productDB := openfoodfacts.NewClient("", zlog)

	backends := []domain.SearchBackend{
		websearch.NewDuckDuckGo("", cfg.Search.Timeout),
		websearch.NewBing("", cfg.Search.Timeout),
	}
	discoverer := websearch.NewDiscoverer(backends, cfg.Search.MaxResults, zlog)

	pageScraper := scraper.New(scraper.Config{
		Timeout:       cfg.Scrape.Timeout,
		UserAgent:     cfg.Scrape.UserAgent,
		MaxConcurrent: cfg.Scrape.MaxConcurrent,
		MaxBodyChars:  cfg.Scrape.MaxBodyChars,
	}, productDB, zlog)

	verifier := oracle.NewClient(cfg.Oracle.APIKey, cfg.Oracle.BaseURL, cfg.Oracle.Model,
		cfg.Oracle.Timeout, cfg.Pipeline.VerifyBatch, zlog)

	// Usecase layer
	pipeline := usecase.NewPipeline(
		discoverer,
		pageScraper,
		verifier,
		memoryCache,
		usecase.PipelineConfig{
			MaxCycles:     cfg.Pipeline.MaxCycles,
			TargetSources: cfg.Pipeline.TargetSources,
			CacheTTL:      cfg.Cache.TTL,
		},
		zlog,
	)

	zlog.Info("pipeline configured",
		zap.Int("max_cycles", cfg.Pipeline.MaxCycles),
		zap.Int("target_sources", cfg.Pipeline.TargetSources),
		zap.Int("search_backends", len(backends)))

	// HTTP delivery
	handler := httpDelivery.NewHandler(pipeline, zlog)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server listening", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
