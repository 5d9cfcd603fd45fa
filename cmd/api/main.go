package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"finstat/pkg/api/respond"
	"finstat/pkg/core/config"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/market"
	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/store"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("FINSTAT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}
	config.SetupLogging(cfg.Log, os.Stderr)

	aliases := statements.DefaultAliases
	if cfg.AliasesFile != "" {
		extra, err := statements.LoadAliasOverrides(cfg.AliasesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.AliasesFile).Msg("[CONFIG] failed to load alias overrides")
		}
		aliases = aliases.Extend(extra)
		log.Info().Str("file", cfg.AliasesFile).Int("items", len(extra)).Msg("[CONFIG] alias overrides loaded")
	}

	// Postgres is optional; runs fall back to JSON files.
	ctx := context.Background()
	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			log.Warn().Err(err).Msg("[STORE] database unavailable, using file storage")
		}
	}
	defer store.Close()
	runsDir := cfg.RunsDir
	if runsDir == "" {
		runsDir = filepath.Join(cfg.DataDir, ".runs")
	}
	repo := store.NewValuationRepo(store.GetPool(), runsDir)

	opts := []market.ClientOption{
		market.WithTimeout(cfg.Market.Timeout),
		market.WithRateLimit(cfg.Market.RateLimit),
	}
	if cfg.Market.BaseURL != "" {
		opts = append(opts, market.WithBaseURL(cfg.Market.BaseURL))
	}
	if cfg.Market.PageURL != "" {
		opts = append(opts, market.WithPageURL(cfg.Market.PageURL))
	}
	svc := pipeline.NewService(cfg.DataDir, aliases, market.NewYahooClient(opts...), repo)

	if cfg.Refresh.Enabled {
		refresher := ingest.NewRefresher(svc.Fetcher(), cfg.Refresh.Tickers, cfg.Refresh.Lookback())
		if err := refresher.Start(cfg.Refresh.Schedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Refresh.Schedule).Msg("[REFRESH] invalid schedule")
		}
		defer refresher.Stop()
	}

	mux := http.NewServeMux()
	registerRoutes(mux, cfg, svc, repo.Backend())

	log.Info().Str("addr", cfg.ListenAddr).Str("data_dir", cfg.DataDir).Str("runs", repo.Backend()).Msg("[API] server starting")
	for _, r := range routes {
		log.Info().Msgf("  - %-5s %s", r.method, r.path)
	}

	if err := http.ListenAndServe(cfg.ListenAddr, respond.WithRequestID(mux)); err != nil {
		log.Error().Err(err).Msg("[FATAL] server failed to start")
		os.Exit(1)
	}
}
