// Package pipeline orchestrates requests end to end: locate, normalize, then
// compute metrics or valuations, recording valuation runs on the way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"finstat/pkg/core/calc"
	"finstat/pkg/core/ingest"
	"finstat/pkg/core/market"
	"finstat/pkg/core/statements"
	"finstat/pkg/core/store"
	"finstat/pkg/core/valuation"

	"github.com/phuslu/log"
)

// RunStore records valuation runs.
type RunStore interface {
	Save(ctx context.Context, run *store.ValuationRun) error
	List(ctx context.Context, ticker string, limit int) ([]store.ValuationRun, error)
}

// Source identifies a statement set: a ticker resolved against the data root,
// or an explicit folder. The folder wins when both are set.
type Source struct {
	Ticker string `json:"ticker"`
	Folder string `json:"path"`
}

// Label names the source for titles and file names.
func (s Source) Label() string {
	if t := strings.ToUpper(strings.TrimSpace(s.Ticker)); t != "" {
		return t
	}
	if s.Folder != "" {
		return filepath.Base(filepath.Clean(s.Folder))
	}
	return "COMPANY"
}

// Service wires the locator, alias table, market provider and run store.
type Service struct {
	locator  *statements.Locator
	aliases  *statements.AliasTable
	provider market.Provider
	fetcher  *ingest.Fetcher
	runs     RunStore
}

// NewService creates a service over dataRoot. provider and runs may be nil:
// without a provider share counts are never looked up and fetch is unavailable,
// without a store runs are not recorded.
func NewService(dataRoot string, aliases *statements.AliasTable, provider market.Provider, runs RunStore) *Service {
	if aliases == nil {
		aliases = statements.DefaultAliases
	}
	s := &Service{
		locator:  statements.NewLocator(dataRoot),
		aliases:  aliases,
		provider: provider,
		runs:     runs,
	}
	if provider != nil {
		s.fetcher = ingest.NewFetcher(provider, dataRoot)
	}
	return s
}

// ErrNoProvider is returned by operations that need the market provider.
var ErrNoProvider = errors.New("no market data provider configured")

// Standardize locates, loads and normalizes a statement set. Failures are carried
// inside the result.
func (s *Service) Standardize(src Source) *statements.Standardized {
	return statements.Standardize(s.locator, s.aliases, src.Ticker, src.Folder)
}

// Analyze standardizes src and runs every metric.
func (s *Service) Analyze(src Source) (*statements.Standardized, *calc.Analysis, error) {
	std := s.Standardize(src)
	a, err := calc.Analyze(std)
	if err != nil {
		return std, nil, err
	}
	return std, a, nil
}

// DCF values src. When params carry no share count and a ticker is known, the
// provider snapshot supplies it; a provider failure only leaves the price target
// undefined. The run is recorded best-effort.
func (s *Service) DCF(ctx context.Context, src Source, params valuation.DCFParams) (*valuation.DCFResult, error) {
	std := s.Standardize(src)
	if err := std.Ensure(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if params.SharesOutstanding.IsMissing() {
		params.SharesOutstanding = s.lookupShares(ctx, src.Ticker)
	}

	res, err := valuation.SimpleDCF(std, params)
	if err != nil {
		return nil, err
	}
	log.Info().Str("source", src.Label()).Float64("ev", res.EnterpriseValue).Bool("price_target", !res.PriceTarget.IsMissing()).Msg("[VALUATION] dcf complete")

	if s.runs != nil {
		run := &store.ValuationRun{Ticker: src.Label(), Params: params, Result: res}
		if err := s.runs.Save(ctx, run); err != nil {
			log.Warn().Err(err).Str("source", src.Label()).Msg("[VALUATION] failed to record run")
		}
	}
	return res, nil
}

func (s *Service) lookupShares(ctx context.Context, ticker string) statements.Value {
	ticker = strings.TrimSpace(ticker)
	if s.provider == nil || ticker == "" {
		return statements.Missing
	}
	snap, err := s.provider.Snapshot(ctx, strings.ToUpper(ticker))
	if err != nil {
		log.Warn().Str("ticker", ticker).Err(err).Msg("[VALUATION] shares lookup failed")
		return statements.Missing
	}
	return snap.SharesOutstanding
}

// Comps builds the comparables table and its multiple ranges.
func (s *Service) Comps(ctx context.Context, tickers []string) ([]valuation.CompRow, valuation.CompsSummary, error) {
	if s.provider == nil {
		return nil, valuation.CompsSummary{}, ErrNoProvider
	}
	var clean []string
	for _, t := range tickers {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return nil, valuation.CompsSummary{}, fmt.Errorf("%w: at least one ticker is required", valuation.ErrInvalidParams)
	}
	rows := valuation.ComparablesTable(ctx, s.provider, clean)
	return rows, valuation.SummarizeComps(rows), nil
}

// Fetch downloads a new snapshot into the data root.
func (s *Service) Fetch(ctx context.Context, req ingest.FetchRequest) (*ingest.FetchResult, error) {
	if s.fetcher == nil {
		return nil, ErrNoProvider
	}
	return s.fetcher.Fetch(ctx, req)
}

// Fetcher exposes the ingest fetcher for the scheduled refresher.
func (s *Service) Fetcher() *ingest.Fetcher {
	return s.fetcher
}

// Runs lists recorded valuation runs, newest first.
func (s *Service) Runs(ctx context.Context, ticker string, limit int) ([]store.ValuationRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.List(ctx, ticker, limit)
}
